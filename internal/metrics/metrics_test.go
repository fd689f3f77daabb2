package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

func TestMetrics_RecordRPCCall(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	// Record successful call
	m.RecordRPCCall("eth", 100*time.Millisecond, nil)
	assert.Equal(t, int64(1), m.RPCCallsTotal())
	assert.Equal(t, int64(0), m.RPCErrorsTotal())
	assert.Equal(t, int64(1), m.ChainCalls("eth"))

	// Record failed call
	m.RecordRPCCall("sol", 50*time.Millisecond, walleterr.ErrNetworkError)
	assert.Equal(t, int64(2), m.RPCCallsTotal())
	assert.Equal(t, int64(1), m.RPCErrorsTotal())
	assert.Equal(t, int64(1), m.ChainCalls("sol"))
	assert.Equal(t, int64(0), m.ChainCalls("trx"))
}

func TestMetrics_RecordRPCCall_NoChain(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRPCCall("", time.Millisecond, nil)
	assert.Equal(t, int64(1), m.RPCCallsTotal())
	assert.Empty(t, m.Snapshot().Chains)
}

func TestMetrics_RecordWalletOp(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordWalletOp(nil)
	m.RecordWalletOp(walleterr.ErrGeneral)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.WalletOpsTotal)
	assert.Equal(t, int64(1), snap.WalletOpsErrors)
}

func TestMetrics_CacheHitRate(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	// No operations
	assert.InDelta(t, 0.0, m.CacheHitRate(), 0.001)

	// 3 hits, 1 miss = 75%
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	assert.InDelta(t, 75.0, m.CacheHitRate(), 0.001)
}

func TestMetrics_RPCLatencyAvg(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	// No calls
	assert.InDelta(t, 0.0, m.RPCLatencyAvgMs(), 0.001)

	// Two calls: 100ms and 200ms = 150ms avg
	m.RecordRPCCall("eth", 100*time.Millisecond, nil)
	m.RecordRPCCall("eth", 200*time.Millisecond, nil)

	assert.InDelta(t, 150.0, m.RPCLatencyAvgMs(), 1.0)

	snap := m.Snapshot()
	require.Len(t, snap.Chains, 1)
	assert.InDelta(t, 150.0, snap.Chains[0].AvgLatencyMs(), 1.0)
}

func TestMetrics_Snapshot(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRPCCall("trx", time.Millisecond, nil)
	m.RecordRPCCall("eth", time.Millisecond, walleterr.ErrNetworkError)
	m.RecordCacheHit()
	m.RecordWalletOp(nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RPCCallsTotal)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.WalletOpsTotal)

	require.Len(t, snap.Chains, 2)
	assert.Equal(t, "eth", snap.Chains[0].Chain)
	assert.Equal(t, int64(1), snap.Chains[0].Errors)
	assert.Equal(t, "trx", snap.Chains[1].Chain)
	assert.Equal(t, int64(0), snap.Chains[1].Errors)
	assert.InDelta(t, 0.0, ChainSnapshot{}.AvgLatencyMs(), 0.001)
}

func TestMetrics_ConcurrentRecord(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRPCCall("sol", time.Microsecond, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.ChainCalls("sol"))
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRPCCall("eth", time.Millisecond, nil)
	m.RecordCacheHit()
	m.RecordWalletOp(nil)

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.RPCCallsTotal)
	assert.Equal(t, int64(0), snap.CacheHits)
	assert.Equal(t, int64(0), snap.WalletOpsTotal)
	assert.Empty(t, snap.Chains)
}

func TestGlobal(t *testing.T) {
	// Test that Global is initialized
	assert.NotNil(t, Global)
}
