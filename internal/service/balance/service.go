// Package balance aggregates per-chain balances. Every chain is queried
// concurrently and independently: one failure never cancels the others.
package balance

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

const (
	// DefaultMaxConcurrent bounds in-flight queries.
	DefaultMaxConcurrent = 8

	// DefaultTimeout bounds each chain's query.
	DefaultTimeout = 15 * time.Second
)

// Config holds the configuration for the balance service.
type Config struct {
	Source        Source
	MaxConcurrent int
	Timeout       time.Duration
	Logger        LogWriter
}

// Service fans balance queries out over a Source.
type Service struct {
	source        Source
	maxConcurrent int
	timeout       time.Duration
	logger        LogWriter
}

// NewService creates a new balance service.
func NewService(cfg *Config) *Service {
	s := &Service{
		source:        cfg.Source,
		maxConcurrent: cfg.MaxConcurrent,
		timeout:       cfg.Timeout,
		logger:        cfg.Logger,
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = DefaultMaxConcurrent
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// FetchBalances queries every (chain, address) pair. Each chain gets its own
// Result; the map always has one entry per input.
func (s *Service) FetchBalances(ctx context.Context, addresses map[chain.ID]string) map[chain.ID]Result {
	results := make(map[chain.ID]Result, len(addresses))
	var mu sync.Mutex

	// The group's context is never cancelled by a failure: workers return nil.
	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)

	for id, address := range addresses {
		g.Go(func() error {
			r := s.fetchOne(ctx, id, address)
			mu.Lock()
			results[id] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// FetchBatch is FetchBalances keyed by ticker symbol. Unknown symbols get an
// ErrUnsupportedChain result and do not stop the rest.
func (s *Service) FetchBatch(ctx context.Context, bySymbol map[string]string) map[string]Result {
	out := make(map[string]Result, len(bySymbol))
	byChain := make(map[chain.ID]string, len(bySymbol))
	symbols := make(map[chain.ID]string, len(bySymbol))

	for symbol, address := range bySymbol {
		id, ok := chain.ParseChainID(symbol)
		if !ok {
			out[symbol] = Result{
				Chain:   id,
				Address: address,
				Err:     walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"symbol": symbol}),
			}
			continue
		}
		byChain[id] = address
		symbols[id] = symbol
	}

	for id, r := range s.FetchBalances(ctx, byChain) {
		out[symbols[id]] = r
	}
	return out
}

func (s *Service) fetchOne(ctx context.Context, id chain.ID, address string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	q, err := s.source.Quote(ctx, id, address)
	if err != nil {
		s.logger.Error("balance %s %s: %v", id, address, err)
		metrics.Global.RecordWalletOp(err)
		return Result{Chain: id, Address: address, Err: err}
	}
	s.logger.Debug("balance %s %s = %s in %s", id, address, q.Balance.String(), time.Since(start))
	metrics.Global.RecordWalletOp(nil)
	return Result{Chain: id, Address: address, Quote: q}
}
