package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	pnet "github.com/ditsyandrea22/celo-identity/internal/platform/net"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v body=%s", err, rr.Body.String())
	}
	return env
}

func TestHandleSuccessEnvelope(t *testing.T) {
	h := Handle(func(*stdhttp.Request) Response { return Created(map[string]int{"score": 12}) })
	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	req = req.WithContext(pnet.WithRequest(req.Context(), "req-1"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	env := decode(t, rr)
	if rr.Code != stdhttp.StatusCreated || env.StatusCode != 201 || env.RequestID != "req-1" {
		t.Fatalf("env = %+v", env)
	}
	if env.Data.(map[string]any)["score"].(float64) != 12 {
		t.Fatalf("data = %v", env.Data)
	}
}

func TestHandleErrorEnvelope(t *testing.T) {
	err := perr.WithOp(perr.LedgerRejectedf(nil, "proof already used"), "Registering")
	h := Handle(func(*stdhttp.Request) Response { return Error(err) })
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodPost, "/", nil))

	env := decode(t, rr)
	if rr.Code != stdhttp.StatusConflict || env.Code != perr.ErrorCodeLedgerRejected || env.Op != "Registering" {
		t.Fatalf("status=%d env=%+v", rr.Code, env)
	}
}

func TestListAndHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	Handle(func(*stdhttp.Request) Response { return List([]int{1, 2}, 9, 2, 4) }).
		ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	env := decode(t, rr)
	if env.Page == nil || env.Page.Total != 9 || env.Page.Limit != 2 || env.Page.Offset != 4 {
		t.Fatalf("page = %+v", env.Page)
	}

	rr = httptest.NewRecorder()
	Handle(func(*stdhttp.Request) Response {
		resp := OK("fine")
		resp.Header = stdhttp.Header{"X-Extra": {"1"}}
		return resp
	}).ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rr.Code != stdhttp.StatusOK || decode(t, rr).Data != "fine" || rr.Header().Get("X-Extra") != "1" {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestJSONHandlerBindsAndPassesResponse(t *testing.T) {
	type in struct {
		Handle string `json:"handle" validate:"required"`
	}
	h := JSONHandler(func(_ *stdhttp.Request, v in) (any, error) {
		return Created(v.Handle), nil
	})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(`{"handle":"octo"}`)))
	if rr.Code != stdhttp.StatusCreated || decode(t, rr).Data != "octo" {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(`{}`)))
	if rr.Code != stdhttp.StatusBadRequest || decode(t, rr).Field != "handle" {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCallHandlerMapsErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	CallHandler(func(*stdhttp.Request) (any, error) { return nil, perr.NotFoundf("no contributor") })(
		rr, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("code = %d", rr.Code)
	}
}
