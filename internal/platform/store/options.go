package store

import "github.com/ditsyandrea22/celo-identity/internal/platform/logger"

// Option adjusts a Store while Open runs, before any service is dialled
type Option func(*Store) error

// WithLogger hands l to the pg, clickhouse and redis clients
func WithLogger(l logger.Logger) Option {
	return func(s *Store) error {
		s.Log = l
		return nil
	}
}

// WithPG skips dialling postgres and uses q instead
func WithPG(q TxRunner) Option {
	return func(s *Store) error {
		s.PG = q
		return nil
	}
}
