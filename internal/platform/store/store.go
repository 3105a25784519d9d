// Package store opens the optional backends: Postgres for contributions and
// checkpoints, ClickHouse for execution events, Redis for rate limiting
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// Store holds whichever backends were enabled; a nil field means disabled
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse
	RDS redis.UniversalClient
}

// Row is anything that scans one row
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the surface repositories run sql against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can run fn inside one transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar sink; Insert rows follow the table's column order
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Pinger answers readiness probes
type Pinger interface{ Ping(context.Context) error }

// Open applies opts and then dials every backend cfg enables
// a failure closes whatever was already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	fail := func(err error) (*Store, error) {
		_ = s.Close(ctx)
		return nil, err
	}
	var err error
	if cfg.PG.Enabled {
		if s.PG, err = openPG(ctx, cfg, s); err != nil {
			return fail(err)
		}
	}
	if cfg.CH.Enabled {
		if s.CH, err = openCH(ctx, cfg); err != nil {
			return fail(err)
		}
	}
	if cfg.RDS.Enabled {
		if s.RDS, err = openRedis(ctx, cfg); err != nil {
			return fail(err)
		}
	}
	return s, nil
}

type backend struct {
	name string
	c    interface{ Close() error }
}

type redisBackend struct{ redis.UniversalClient }

func (r redisBackend) Ping(ctx context.Context) error { return r.UniversalClient.Ping(ctx).Err() }

// backends lists the open clients in dial order
func (s *Store) backends() []backend {
	var out []backend
	if c, ok := s.PG.(interface{ Close() error }); ok {
		out = append(out, backend{"pg", c})
	} else if s.PG != nil {
		out = append(out, backend{"pg", noClose{s.PG}})
	}
	if s.CH != nil {
		out = append(out, backend{"ch", s.CH})
	}
	if s.RDS != nil {
		out = append(out, backend{"redis", redisBackend{s.RDS}})
	}
	return out
}

type noClose struct{ v any }

func (noClose) Close() error { return nil }

func (n noClose) Ping(ctx context.Context) error {
	if p, ok := n.v.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Guard pings every open backend and joins the failures, each prefixed by its name
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store not opened")
	}
	var errs []error
	for _, b := range s.backends() {
		p, ok := b.c.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts backends down in reverse dial order
func (s *Store) Close(context.Context) error {
	bs := s.backends()
	var errs []error
	for i := len(bs) - 1; i >= 0; i-- {
		if err := bs[i].c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bs[i].name, err))
		}
	}
	return errors.Join(errs...)
}
