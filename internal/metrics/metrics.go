// Package metrics provides application-level metrics collection
// using atomic counters.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// chainCounters holds the per-chain RPC counters.
type chainCounters struct {
	calls        atomic.Int64
	errors       atomic.Int64
	latencyNanos atomic.Int64
}

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// RPC metrics
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	// Wallet operation metrics
	walletOpsTotal  atomic.Int64
	walletOpsErrors atomic.Int64

	// Cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Chain-specific RPC calls, keyed by chain id
	chains sync.Map
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(chain string, duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}

	if chain == "" {
		return
	}
	c := m.counters(chain)
	c.calls.Add(1)
	c.latencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.errors.Add(1)
	}
}

func (m *Metrics) counters(chain string) *chainCounters {
	if v, ok := m.chains.Load(chain); ok {
		return v.(*chainCounters) //nolint:forcetypeassert // only chainCounters are stored
	}
	v, _ := m.chains.LoadOrStore(chain, &chainCounters{})
	return v.(*chainCounters) //nolint:forcetypeassert // only chainCounters are stored
}

// RecordWalletOp records a wallet operation.
func (m *Metrics) RecordWalletOp(err error) {
	m.walletOpsTotal.Add(1)
	if err != nil {
		m.walletOpsErrors.Add(1)
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// ChainSnapshot is the per-chain part of a Snapshot.
type ChainSnapshot struct {
	Chain        string
	Calls        int64
	Errors       int64
	LatencyNanos int64
}

// AvgLatencyMs returns the average latency in milliseconds, or 0 without calls.
func (c ChainSnapshot) AvgLatencyMs() float64 {
	if c.Calls == 0 {
		return 0
	}
	return float64(c.LatencyNanos) / float64(c.Calls) / 1e6
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal   int64
	RPCErrorsTotal  int64
	RPCLatencyNanos int64
	WalletOpsTotal  int64
	WalletOpsErrors int64
	CacheHits       int64
	CacheMisses     int64
	Chains          []ChainSnapshot // sorted by chain id
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		RPCCallsTotal:   m.rpcCallsTotal.Load(),
		RPCErrorsTotal:  m.rpcErrorsTotal.Load(),
		RPCLatencyNanos: m.rpcLatencyNanos.Load(),
		WalletOpsTotal:  m.walletOpsTotal.Load(),
		WalletOpsErrors: m.walletOpsErrors.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
	}

	m.chains.Range(func(k, v any) bool {
		c := v.(*chainCounters) //nolint:forcetypeassert // only chainCounters are stored
		snap.Chains = append(snap.Chains, ChainSnapshot{
			Chain:        k.(string), //nolint:forcetypeassert // keys are chain ids
			Calls:        c.calls.Load(),
			Errors:       c.errors.Load(),
			LatencyNanos: c.latencyNanos.Load(),
		})
		return true
	})
	sort.Slice(snap.Chains, func(i, j int) bool { return snap.Chains[i].Chain < snap.Chains[j].Chain })

	return snap
}

// ChainCalls returns the number of RPC calls recorded for a chain.
func (m *Metrics) ChainCalls(chain string) int64 {
	v, ok := m.chains.Load(chain)
	if !ok {
		return 0
	}
	return v.(*chainCounters).calls.Load() //nolint:forcetypeassert // only chainCounters are stored
}

// RPCCallsTotal returns the total number of RPC calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of RPC errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	nanos := m.rpcLatencyNanos.Load()
	return float64(nanos) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
// Returns 0 if no cache operations have occurred.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.walletOpsTotal.Store(0)
	m.walletOpsErrors.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.chains.Range(func(k, _ any) bool {
		m.chains.Delete(k)
		return true
	})
}
