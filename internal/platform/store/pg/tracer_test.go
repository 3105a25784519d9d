package pg

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestTracerHidesArgsAndFlagsSlow(t *testing.T) {
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf).Level(zerolog.ErrorLevel))
	tr.OnQuery(context.Background(), QueryEvent{
		SQL:     "UPDATE tier_states\n SET tier = $2 WHERE address = $1",
		Args:    []any{"0x52908400098527886E0F7030069857D2E4169EE7", 2},
		Elapsed: 1500 * time.Microsecond,
		Slow:    true,
		Err:     errors.New("deadlock detected"),
	})
	out := buf.String()
	kit.MustContain(t, out, `"level":"warn"`)
	kit.MustContain(t, out, `"args":2`)
	kit.MustContain(t, out, `"elapsed_ms":1.5`)
	kit.MustContain(t, out, `"sql":"UPDATE tier_states SET tier = $2 WHERE address = $1"`)
	if bytes.Contains(buf.Bytes(), []byte("0x5290")) {
		t.Fatalf("arg values leaked: %s", out)
	}
}
