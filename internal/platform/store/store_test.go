package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store/ch"
)

type fakeTag int64

func (t fakeTag) String() string      { return "UPDATE" }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

type fakeRows struct {
	vals []int
	i    int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.vals) {
		return false
	}
	r.i++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*int)) = r.vals[r.i-1]
	return nil
}
func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return []string{"n"} }

type scanFn func(dest ...any) error

func (f scanFn) Scan(dest ...any) error { return f(dest...) }

type fakeQ struct {
	affected int64
	rows     []int
	rowErr   error
	pingErr  error
	closed   bool
}

func (q *fakeQ) Exec(context.Context, string, ...any) (CommandTag, error) {
	return fakeTag(q.affected), nil
}
func (q *fakeQ) Query(context.Context, string, ...any) (Rows, error) {
	return &fakeRows{vals: q.rows}, nil
}
func (q *fakeQ) QueryRow(context.Context, string, ...any) Row {
	return scanFn(func(dest ...any) error {
		if q.rowErr != nil {
			return q.rowErr
		}
		*(dest[0].(*int)) = 42
		return nil
	})
}
func (q *fakeQ) Tx(ctx context.Context, fn func(RowQuerier) error) error { return fn(q) }
func (q *fakeQ) Ping(context.Context) error                              { return q.pingErr }
func (q *fakeQ) Close() error                                            { q.closed = true; return nil }

func scanInt(r Row) (int, error) {
	var n int
	err := r.Scan(&n)
	return n, err
}

func TestExecOne(t *testing.T) {
	ctx := context.Background()
	if err := ExecOne(ctx, &fakeQ{affected: 1}, "UPDATE x"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if err := ExecOne(ctx, &fakeQ{affected: 0}, "UPDATE x"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("zero rows = %v", err)
	}
	if err := ExecOne(ctx, &fakeQ{affected: 10}, "UPDATE x"); err == nil {
		t.Fatalf("ten rows should fail")
	}
}

func TestOneAndMany(t *testing.T) {
	ctx := context.Background()
	if n, err := One(ctx, &fakeQ{rows: []int{7}}, scanInt, "SELECT"); err != nil || n != 7 {
		t.Fatalf("One = %d, %v", n, err)
	}
	if _, err := One(ctx, &fakeQ{}, scanInt, "SELECT"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("One empty = %v", err)
	}
	if _, err := One(ctx, &fakeQ{rows: []int{1, 2}}, scanInt, "SELECT"); err == nil {
		t.Fatalf("One with two rows should fail")
	}
	all, err := Many(ctx, &fakeQ{rows: []int{3, 2, 1}}, scanInt, "SELECT")
	if err != nil || len(all) != 3 || all[0] != 3 {
		t.Fatalf("Many = %v, %v", all, err)
	}
}

type fakeCH struct {
	execs    []string
	inserted [][]any
	pingErr  error
	closed   bool
}

func (f *fakeCH) Insert(_ context.Context, _ string, rows [][]any) error {
	f.inserted = append(f.inserted, rows...)
	return nil
}
func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	return nil, errors.New("no query in fake")
}
func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

func TestGuardAndClose(t *testing.T) {
	q := &fakeQ{pingErr: errors.New("refused")}
	c := &fakeCH{}
	s := &Store{PG: q, CH: newCHAdapter(c)}

	err := s.Guard(context.Background())
	if err == nil || err.Error() != "pg: refused" {
		t.Fatalf("Guard = %v", err)
	}

	c.pingErr = errors.New("timeout")
	q.pingErr = nil
	if err := s.Guard(context.Background()); err == nil || err.Error() != "ch: timeout" {
		t.Fatalf("Guard = %v", err)
	}

	if err := s.CH.Insert(context.Background(), "execution_events", [][]any{{1, "a"}}); err != nil {
		t.Fatal(err)
	}
	if len(c.inserted) != 1 {
		t.Fatalf("insert not forwarded")
	}
	if err := s.CH.Exec(context.Background(), "SELECT 1"); err != nil || len(c.execs) != 1 {
		t.Fatalf("exec not forwarded: %v", err)
	}
	if _, err := s.CH.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("query error not forwarded")
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !q.closed || !c.closed {
		t.Fatalf("close not propagated pg=%v ch=%v", q.closed, c.closed)
	}

	var nilStore *Store
	if nilStore.Guard(context.Background()) == nil {
		t.Fatalf("nil store should fail guard")
	}
}

func TestOpenWithNothingEnabled(t *testing.T) {
	q := &fakeQ{}
	s, err := Open(context.Background(), Config{}, WithPG(q))
	if err != nil {
		t.Fatal(err)
	}
	if s.PG != q || s.CH != nil || s.RDS != nil {
		t.Fatalf("store = %+v", s)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://u:p@db:5432/celoid")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "16")
	t.Setenv("SERVICE_CLICKHOUSE_DBURL", "")
	t.Setenv("SERVICE_REDIS_ADDR", "redis:6379")

	c := FromConfig(config.New(), "api")
	if !c.PG.Enabled || c.PG.MaxConns != 16 || c.AppName != "celoid-api" {
		t.Fatalf("pg = %+v", c.PG)
	}
	if c.CH.Enabled {
		t.Fatalf("ch should be disabled without a url")
	}
	if !c.RDS.Enabled || c.RDS.Addr != "redis:6379" {
		t.Fatalf("redis = %+v", c.RDS)
	}
}
