package module

import (
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/domain"
	execdom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

// Ports declares what the contributions module needs injected
type Ports struct {
	Extractor submission.Extractor
	Verifier  submission.Verifier
	Executor  execdom.ExecutorPort
	Ledger    domain.LedgerReader
}

// Ports exposes the service as domain.ServicePort once built
func (m *Module) Ports() any { return m.ports }
