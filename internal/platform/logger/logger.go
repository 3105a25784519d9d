// Package logger holds the process zerolog logger and the context fields
// that follow a claim through the pipeline
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config/raw"
)

// Logger is zerolog's logger under the project's name
type Logger = zerolog.Logger

// Options shapes the root logger
type Options struct {
	Level        string
	Format       string // json or console
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* through the raw view, which cannot log
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(env.Get("LEVEL", "info")),
		Format:      strings.ToLower(env.Get("FORMAT", "json")),
		Service:     env.Get("SERVICE", "celoid"),
		Component:   env.Get("COMPONENT", ""),
		WithCaller:  env.GetBool("CALLER", false),
		SampleEvery: env.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once sync.Once
	root *Logger
)

// Init builds the root logger; only the first call has any effect
func Init(opt Options) {
	once.Do(func() { root = build(opt) })
}

// Get returns the root logger, building it from the environment if Init was never called
func Get() *Logger {
	Init(FromEnv())
	return root
}

func build(opt Options) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	b := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		b = b.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		b = b.Str("service", opt.Service)
	}
	if opt.Component != "" {
		b = b.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		b = b.Str(k, v)
	}
	if opt.WithCaller {
		b = b.Caller()
	}

	l := b.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return &l
}

// parseLevel accepts zerolog's names plus "warning"; anything unknown logs at debug
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey string

// context fields in the order C emits them
var ctxFields = []ctxKey{"request_id", "address", "proof_hash"}

func with(ctx context.Context, k ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest stores the request id for C
func WithRequest(ctx context.Context, reqID string) context.Context {
	return with(ctx, "request_id", reqID)
}

// WithSubmission stores the claimant address and proof hash for C
// either may be empty and filled in later, once it is known
func WithSubmission(ctx context.Context, address, proofHash string) context.Context {
	return with(with(ctx, "address", address), "proof_hash", proofHash)
}

// C returns the root logger carrying whatever request and claim fields ctx holds
func C(ctx context.Context) *Logger {
	b := Get().With()
	for _, k := range ctxFields {
		if s, ok := ctx.Value(k).(string); ok {
			b = b.Str(string(k), s)
		}
	}
	l := b.Logger()
	return &l
}

// Named returns the root logger with component set
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
