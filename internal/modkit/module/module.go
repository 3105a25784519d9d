// Package module looks up port sets across modules during bootstrap
package module

import "github.com/ditsyandrea22/celo-identity/internal/modkit"

// Module is the modkit contract, re-exported so callers wiring ports need one import
type Module = modkit.Module
