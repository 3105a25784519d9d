// Package config reads settings from the environment under service prefixes
// such as CORE_API_, GITHUB_, ORACLE_ and LEDGER_
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// Conf resolves keys below a prefix; the zero value reads unprefixed names
type Conf struct{ prefix string }

// New returns the root Conf
func New() Conf { return Conf{} }

// Prefix narrows c, so New().Prefix("LEDGER_").MayString("RPC_URL", "") reads LEDGER_RPC_URL
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) raw(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// may parses key with parse, falling back to def when unset or malformed
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msg("unparseable setting, using default")
		return def
	}
	return v
}

// MustString returns key or panics when it is unset
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("required setting missing")
	}
	return v
}

// MayString returns key or def
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

func (c Conf) MayInt64(key string, def int64) int64 {
	return may(c, key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration takes Go duration syntax, e.g. 250ms or 2m
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma separated list, dropping blanks; GITHUB_TOKENS is read this way
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for p := range strings.SplitSeq(c.raw(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns key when it is one of allowed (case insensitive) and panics otherwise
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("setting not in allowed set")
	return ""
}

// MaySecret reads key, or the file named by key_FILE when key is empty
// file contents are trimmed so mounted secrets may end in a newline
func (c Conf) MaySecret(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	path := c.raw(key + "_FILE")
	if path == "" {
		return def
	}
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.Get().Warn().Err(err).Str("key", c.key(key+"_FILE")).Msg("secret file unreadable, using default")
		return def
	}
	if v := strings.TrimSpace(string(b)); v != "" {
		return v
	}
	return def
}

// MustSecret is MaySecret that panics when neither key nor key_FILE yields a value
func (c Conf) MustSecret(key string) string {
	v := c.MaySecret(key, "")
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("required secret missing, set it or its _FILE")
	}
	return v
}
