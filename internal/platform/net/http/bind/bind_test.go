package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"
)

type claimIn struct {
	Address string `json:"address" validate:"required,eth_addr"`
	Handle  string `json:"github_handle" validate:"required,min=1,max=39"`
	Type    string `json:"contribution_type" validate:"required,oneof=MERGED_PR COMMIT"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/contributions", strings.NewReader(body))
}

func TestParseJSONHappyPath(t *testing.T) {
	in, err := ParseJSON[claimIn](post(`{"address":"0x52908400098527886E0F7030069857D2E4169EE7","github_handle":"octo","contribution_type":"COMMIT"}`))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if in.Handle != "octo" || in.Type != "COMMIT" {
		t.Fatalf("in = %+v", in)
	}
}

func TestParseJSONFailures(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  perr.ErrorCode
		field string
		msg   string
	}{
		{"empty", "", perr.ErrorCodeJSON, "", "empty body"},
		{"syntax", "{", perr.ErrorCodeJSON, "", "invalid JSON"},
		{"unknown field", `{"nope":1}`, perr.ErrorCodeJSON, "", "unknown field"},
		{"trailing", `{"address":"0x52908400098527886E0F7030069857D2E4169EE7","github_handle":"a","contribution_type":"COMMIT"} {}`, perr.ErrorCodeJSON, "", "trailing"},
		{"bad address", `{"address":"0x12","github_handle":"a","contribution_type":"COMMIT"}`, perr.ErrorCodeValidation, "address", "20 byte hex"},
		{"handle too long", `{"address":"0x52908400098527886E0F7030069857D2E4169EE7","github_handle":"` + strings.Repeat("a", 40) + `","contribution_type":"COMMIT"}`, perr.ErrorCodeValidation, "github_handle", "at most 39"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseJSON[claimIn](post(c.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if perr.CodeOf(err) != c.code {
				t.Fatalf("code = %v, err = %v", perr.CodeOf(err), err)
			}
			if w := perr.WireFrom(err); w.Field != c.field {
				t.Fatalf("field = %q", w.Field)
			}
			kit.MustContain(t, err.Error(), c.msg)
		})
	}
}

func TestParseJSONAllowEmpty(t *testing.T) {
	type opt struct {
		Limit int `json:"limit" validate:"omitempty,min=1"`
	}
	v, err := ParseJSON[opt](post(""), Options{AllowEmptyBody: true})
	if err != nil || v.Limit != 0 {
		t.Fatalf("v=%+v err=%v", v, err)
	}
}

func TestParseJSONAllowUnknownAndCap(t *testing.T) {
	type small struct {
		Handle string `json:"github_handle"`
	}
	v, err := ParseJSON[small](post(`{"github_handle":"octo","extra":true}`), Options{AllowUnknown: true})
	if err != nil || v.Handle != "octo" {
		t.Fatalf("v=%+v err=%v", v, err)
	}
	_, err = ParseJSON[small](post(`{"github_handle":"`+strings.Repeat("a", 64)+`"}`), Options{MaxBytes: 16})
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("capped body err = %v", err)
	}
}
