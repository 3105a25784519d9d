// Package repokit binds domain repositories to a Postgres queryer
package repokit

import "github.com/ditsyandrea22/celo-identity/internal/platform/store"

type (
	// Queryer is what repositories run statements against
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can also open a transaction
	TxRunner = store.TxRunner
)

// Binder produces a repository of type T over a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// MustBind binds b to q and panics when q is nil
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: bind on a nil queryer")
	}
	return b.Bind(q)
}
