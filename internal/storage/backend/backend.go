// Package backend opens the stores named by DSNs.
//
// The catalog DSN holds draws and managed bridges:
//
//	memory                      in-process, lost on exit
//	sqlite:///path/to/lab.db    single local file (a bare *.db path works too)
//	postgres://user:pw@host/db  PostgreSQL
//
// The analytics DSN holds backtest history and scan results:
//
//	memory (or empty)           in-process
//	clickhouse://user:pw@host:9000/db
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"lottery-bridge-lab/internal/storage"
	chstore "lottery-bridge-lab/internal/storage/clickhouse"
	"lottery-bridge-lab/internal/storage/memory"
	"lottery-bridge-lab/internal/storage/migrations"
	pgstore "lottery-bridge-lab/internal/storage/postgres"
	sqlitestore "lottery-bridge-lab/internal/storage/sqlite"
)

// ErrUnknownScheme is returned for a DSN no backend understands.
var ErrUnknownScheme = errors.New("unknown store scheme")

// MemoryDSN selects the in-memory stores.
const MemoryDSN = "memory"

// Options selects the backends.
type Options struct {
	CatalogDSN   string
	AnalyticsDSN string
	Migrate      bool // apply embedded migrations (SQLite always migrates)
	Logger       *log.Logger
}

// Stores holds every storage implementation a tool may need.
type Stores struct {
	Draws   storage.DrawStore
	Bridges storage.ManagedBridgeStore
	History storage.BacktestHistoryStore
	Scans   storage.ScanResultStore

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open connects the catalog and analytics backends.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Stores{}
	if err := s.openCatalog(ctx, opts, logger); err != nil {
		return nil, err
	}
	if err := s.openAnalytics(ctx, opts, logger); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stores) openCatalog(ctx context.Context, opts Options, logger *log.Logger) error {
	dsn := strings.TrimSpace(opts.CatalogDSN)
	switch {
	case dsn == "" || dsn == MemoryDSN:
		s.Draws = memory.NewDrawStore()
		s.Bridges = memory.NewManagedBridgeStore()
		logger.Printf("catalog: memory")

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		if opts.Migrate {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				pool.Close()
				return fmt.Errorf("postgres migrations: %w", err)
			}
			logMigrations(logger, "postgres", applied)
		}
		s.Draws = pgstore.NewDrawStore(pool)
		s.Bridges = pgstore.NewManagedBridgeStore(pool)
		s.closers = append(s.closers, closerFunc(func() error {
			pool.Close()
			return nil
		}))
		logger.Printf("catalog: postgres")

	case strings.HasPrefix(dsn, "sqlite://"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		path := strings.TrimPrefix(dsn, "sqlite://")
		db, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		s.Draws = sqlitestore.NewDrawStore(db)
		s.Bridges = sqlitestore.NewManagedBridgeStore(db)
		s.closers = append(s.closers, db)
		logger.Printf("catalog: sqlite %s", path)

	default:
		return fmt.Errorf("catalog dsn %q: %w", redact(dsn), ErrUnknownScheme)
	}
	return nil
}

func (s *Stores) openAnalytics(ctx context.Context, opts Options, logger *log.Logger) error {
	dsn := strings.TrimSpace(opts.AnalyticsDSN)
	switch {
	case dsn == "" || dsn == MemoryDSN:
		s.History = memory.NewBacktestHistoryStore()
		s.Scans = memory.NewScanResultStore()
		logger.Printf("analytics: memory")

	case strings.HasPrefix(dsn, "clickhouse://"):
		if opts.Migrate {
			if err := chstore.EnsureDatabase(ctx, dsn); err != nil {
				return fmt.Errorf("clickhouse database: %w", err)
			}
		}
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		if opts.Migrate {
			applied, err := migrations.RunClickhouseMigrations(ctx, conn)
			if err != nil {
				conn.Close()
				return fmt.Errorf("clickhouse migrations: %w", err)
			}
			logMigrations(logger, "clickhouse", applied)
		}
		s.History = chstore.NewBacktestHistoryStore(conn)
		s.Scans = chstore.NewScanResultStore(conn)
		s.closers = append(s.closers, conn)
		logger.Printf("analytics: clickhouse")

	default:
		return fmt.Errorf("analytics dsn %q: %w", redact(dsn), ErrUnknownScheme)
	}
	return nil
}

// Closers returns the connections to release, in open order.
// A session takes ownership of them; call either Close or hand them over, not both.
func (s *Stores) Closers() []io.Closer {
	return s.closers
}

// Close releases every connection in reverse open order.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func logMigrations(logger *log.Logger, backend string, applied []string) {
	if len(applied) == 0 {
		return
	}
	logger.Printf("%s: applied migrations %s", backend, strings.Join(applied, ", "))
}

// redact drops the password from a URL-style DSN for error messages.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		userinfo = userinfo[:i] + ":***"
	}
	return dsn[:scheme+3] + userinfo + dsn[at:]
}
