// Package http is the API's response envelope, handler adapters, router seam and server
package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	pnet "github.com/ditsyandrea22/celo-identity/internal/platform/net"
	"github.com/ditsyandrea22/celo-identity/internal/platform/net/http/bind"
)

// Envelope wraps every response body; error fields are set only on failures
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	Op         string         `json:"op,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
	Page       *Page          `json:"page,omitempty"`
}

// Page is the offset paging block of list responses
type Page struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Response is what return style handlers produce; a Body that is an error decides its own status
type Response struct {
	Status int
	Body   any
	Page   *Page
	Header stdhttp.Header
}

func OK(data any) Response      { return Response{Status: stdhttp.StatusOK, Body: data} }
func Created(data any) Response { return Response{Status: stdhttp.StatusCreated, Body: data} }
func Error(err error) Response  { return Response{Body: err} }

// List answers 200 with items and the page they came from
func List(items any, total, limit, offset int) Response {
	return Response{Status: stdhttp.StatusOK, Body: items, Page: &Page{Total: total, Limit: limit, Offset: offset}}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (resp Response) envelope(r *stdhttp.Request) Envelope {
	env := Envelope{StatusCode: resp.Status, RequestID: pnet.RequestID(r.Context())}
	if err, ok := resp.Body.(error); ok && err != nil {
		wr := perr.WireFrom(err)
		env.StatusCode = perr.HTTPStatus(err)
		env.Code, env.Error, env.Field, env.Op = wr.Code, wr.Message, wr.Field, wr.Op
	} else {
		if env.StatusCode == 0 {
			env.StatusCode = stdhttp.StatusOK
		}
		env.Data, env.Page = resp.Body, resp.Page
	}
	env.Status = stdhttp.StatusText(env.StatusCode)
	return env
}

// Handle adapts a Response returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		resp := h(r)
		for k, vv := range resp.Header {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		env := resp.envelope(r)
		writeJSON(w, env.StatusCode, env)
	}
}

// JSONHandler decodes and validates a T body with bind.ParseJSON before calling fn
func JSONHandler[T any](fn func(*stdhttp.Request, T) (any, error)) Handler {
	return Handle(func(r *stdhttp.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		return result(fn(r, in))
	})
}

// CallHandler adapts a handler that reads no body
func CallHandler(fn func(*stdhttp.Request) (any, error)) Handler {
	return Handle(func(r *stdhttp.Request) Response { return result(fn(r)) })
}

// result lets a handler return either plain data or a prepared Response
func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}
