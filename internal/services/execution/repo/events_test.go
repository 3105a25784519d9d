package repo

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/platform/store"
	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

type fakeCH struct {
	table string
	rows  [][]any
	execs []string
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table = table
	f.rows = append(f.rows, rows...)
	return nil
}
func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                              { return nil }

func TestCHEventsRowOrder(t *testing.T) {
	ch := &fakeCH{}
	s := NewCHEvents(ch)
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	kit.MustContain(t, ch.execs[0], "CREATE TABLE IF NOT EXISTS execution_events")

	tx := common.Hash{0xbe, 0xef}
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	err := s.Emit(context.Background(), dom.StepEvent{
		Proof:   common.Hash{1},
		Address: common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7"),
		Step:    dom.StepMinting,
		Outcome: dom.OutcomeConfirmed,
		Tx:      &tx,
		At:      at,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ch.table != EventsTable || len(ch.rows) != 1 || len(ch.rows[0]) != 7 {
		t.Fatalf("insert = %s %v", ch.table, ch.rows)
	}
	row := ch.rows[0]
	if row[2] != "Minting" || row[3] != "confirmed" || row[4] != tx.Hex() {
		t.Fatalf("row = %v", row)
	}
	if got := row[6].(time.Time); got.Location() != time.UTC || !got.Equal(at) {
		t.Fatalf("at = %v", got)
	}
}

func TestLogEventsNeverFails(t *testing.T) {
	s := NewLogEvents()
	if err := s.Emit(context.Background(), dom.StepEvent{Step: dom.StepRegistering, Outcome: dom.OutcomeFailed, Cause: "boom"}); err != nil {
		t.Fatal(err)
	}
}
