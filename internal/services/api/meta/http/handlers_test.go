package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, d Deps, path string) map[string]any {
	t.Helper()
	srv := phttp.NewServer(config.New())
	srv.Router().Route("/meta", func(r phttp.Router) { Register(r, d) })

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("%s = %d %s", path, rr.Code, rr.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	return env.Data
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		deps Deps
		want string
	}{
		{"nothing configured", Deps{}, "ok"},
		{"pg up", Deps{PG: pinger{}}, "ok"},
		{"redis down", Deps{PG: pinger{}, Redis: pinger{err: errors.New("refused")}}, "fail"},
		{"not a pinger", Deps{CH: struct{}{}}, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := serve(t, tc.deps, "/meta/ready")
			if got["status"] != tc.want {
				t.Fatalf("status = %v want %s (%v)", got["status"], tc.want, got)
			}
			if checks, _ := got["checks"].([]any); len(checks) != 3 {
				t.Fatalf("checks = %v", got["checks"])
			}
		})
	}
}

func TestPipelineAndService(t *testing.T) {
	d := Deps{
		ServiceName: "celoid-api",
		StartedAt:   time.Now().Add(-time.Minute),
		Pipeline:    PipelineResponse{LedgerMode: "memory", Ecosystem: "celo"},
	}
	got := serve(t, d, "/meta/pipeline")
	if got["ledger_mode"] != "memory" || got["oracle"] != false || got["ecosystem"] != "celo" {
		t.Fatalf("pipeline = %v", got)
	}
	if b, _ := got["build"].(map[string]any); b["version"] == "" {
		t.Fatalf("build = %v", got["build"])
	}

	got = serve(t, d, "/meta/service")
	if got["name"] != "celoid-api" || got["uptime"].(float64) < 59 {
		t.Fatalf("service = %v", got)
	}
}
