// Package bind decodes request bodies and runs go-playground validation on them,
// reporting the first failing field by its json name
package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// Options tunes ParseJSON; the zero value is strict with a 64KB cap
type Options struct {
	MaxBytes       int64
	AllowUnknown   bool
	AllowEmptyBody bool
}

const defaultMaxBytes = 64 << 10

type checker struct {
	v  *validator.Validate
	tr ut.Translator
}

// shorter wording than the stock english translations
var messages = map[string]string{
	"min":      "{0} must be at least {1}",
	"max":      "{0} must be at most {1}",
	"eth_addr": "{0} must be a 0x-prefixed 20 byte hex address",
}

var validate = sync.OnceValue(func() checker {
	loc := en.New()
	tr, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = entrans.RegisterDefaultTranslations(v, tr)
	for tag, text := range messages {
		_ = v.RegisterTranslation(tag, tr,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field(), fe.Param())
				return msg
			},
		)
	}
	return checker{v: v, tr: tr}
})

// ParseJSON decodes exactly one JSON value from r into T and validates it
// decode problems are ErrorCodeJSON, failed rules are ErrorCodeValidation naming the field
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.C(r.Context()).Warn().Err(err).Msg("closing request body")
		}
	}()

	var dst T
	body := bufio.NewReader(io.LimitReader(r.Body, o.MaxBytes))
	if _, err := body.Peek(1); err != nil {
		if o.AllowEmptyBody {
			return dst, nil
		}
		return dst, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(body)
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&dst); err != nil {
		return dst, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return dst, perr.JSONErrf("unexpected trailing data")
	}

	c := validate()
	err := c.v.Struct(dst)
	var fields validator.ValidationErrors
	switch {
	case err == nil:
		return dst, nil
	case errors.As(err, &fields) && len(fields) > 0:
		fe := fields[0]
		return dst, perr.WithField(perr.New(perr.ErrorCodeValidation, fe.Translate(c.tr)), fe.Field())
	default:
		logger.C(r.Context()).Error().Err(err).Msg("validator misuse")
		return dst, perr.JSONErrf("validation error")
	}
}
