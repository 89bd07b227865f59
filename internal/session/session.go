// Package session loads one draw history and the managed bridge catalog
// from the stores and keeps them, plus the derived rates cache, for the
// duration of a run. A Session replaces process-wide caches: every consumer
// receives the session (or its parts) explicitly.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/scanner"
	"lottery-bridge-lab/internal/storage"
)

// Session errors
var (
	ErrClosed   = errors.New("session closed")
	ErrNoDraws  = errors.New("no draws loaded")
	ErrNoStores = errors.New("draw and bridge stores are required")
)

var _ scanner.RatesLookup = (*RatesCache)(nil)

// Options configures a Session.
type Options struct {
	Config  config.Config
	Draws   storage.DrawStore
	Bridges storage.ManagedBridgeStore
	Limit   int         // most recent draws to load, 0 = all
	Closers []io.Closer // released by Close, in reverse order
	Logger  *log.Logger
}

// Session is a loaded history plus the managed bridge catalog.
// Reads are safe for concurrent use; Reload and Close are exclusive.
type Session struct {
	cfg     config.Config
	draws   storage.DrawStore
	store   storage.ManagedBridgeStore
	limit   int
	closers []io.Closer
	logger  *log.Logger

	mu      sync.RWMutex
	series  *position.Series
	bridges []*domain.ManagedBridge
	rates   *RatesCache
	closed  bool
}

// Open creates a session and loads draws and bridges.
// Returns ErrNoDraws if the draw store is empty.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Draws == nil || opts.Bridges == nil {
		return nil, ErrNoStores
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Session{
		cfg:     opts.Config,
		draws:   opts.Draws,
		store:   opts.Bridges,
		limit:   opts.Limit,
		closers: opts.Closers,
		logger:  opts.Logger,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads draws and bridges from the stores and rebuilds the
// rates cache.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var (
		rows []*domain.Draw
		err  error
	)
	if s.limit > 0 {
		rows, err = s.draws.GetLatest(ctx, s.limit)
	} else {
		rows, err = s.draws.GetAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("load draws: %w", err)
	}
	if len(rows) == 0 {
		return ErrNoDraws
	}
	draws := make([]domain.Draw, len(rows))
	for i, d := range rows {
		draws[i] = *d
	}

	bridges, err := s.store.GetAll(ctx, false)
	if err != nil {
		return fmt.Errorf("load managed bridges: %w", err)
	}

	s.series = position.NewSeries(draws)
	s.bridges = bridges
	s.rates = NewRatesCache(s.cfg.Backtest.RecentWindow, bridges)
	s.logger.Printf("session loaded %d draws (%s..%s), %d managed bridges",
		s.series.Len(), s.series.PeriodID(0), s.series.PeriodID(s.series.Len()-1), len(bridges))
	return nil
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() config.Config {
	return s.cfg
}

// Series returns the loaded history.
func (s *Session) Series() *position.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series
}

// Bridges returns the managed bridges as loaded, ordered by name.
// The slice is shared; callers must not modify the bridges.
func (s *Session) Bridges() []*domain.ManagedBridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bridges
}

// EnabledBridges returns the enabled managed bridges.
func (s *Session) EnabledBridges() []*domain.ManagedBridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ManagedBridge
	for _, b := range s.bridges {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

// Rates returns the rates cache built from the managed bridges.
func (s *Session) Rates() *RatesCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates
}

// BridgeStore returns the managed bridge store the session reads from.
func (s *Session) BridgeStore() storage.ManagedBridgeStore {
	return s.store
}

// NewScanner creates a scanner that de-duplicates against the session's
// managed bridges and falls back to its rates cache.
func (s *Session) NewScanner() *scanner.Scanner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanner.New(scanner.Options{
		Config:  s.cfg,
		Managed: s.bridges,
		Rates:   s.rates,
		Logger:  s.logger,
	})
}

// Close releases the registered closers. Calling Close twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.series = nil
	s.bridges = nil
	s.rates = nil

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
