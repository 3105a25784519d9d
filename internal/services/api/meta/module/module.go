// Package module mounts the /meta endpoints
package module

import (
	"time"

	modkit "github.com/ditsyandrea22/celo-identity/internal/modkit"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
	str "github.com/ditsyandrea22/celo-identity/internal/platform/strings"

	metahttp "github.com/ditsyandrea22/celo-identity/internal/services/api/meta/http"
)

// ServiceName is what /meta/health and /meta/service report
const ServiceName = "celoid-api"

// Info is the pipeline assembly reported at /meta/pipeline
type Info = metahttp.PipelineResponse

// Module serves liveness, readiness and build info
type Module struct {
	built modkit.Built
	deps  metahttp.Deps
}

// New builds the meta module; readiness probes whichever of deps' stores are set
func New(deps modkit.Deps, info Info, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)
	d := metahttp.Deps{
		ServiceName: ServiceName,
		StartedAt:   time.Now(),
		Pipeline:    info,
		PG:          deps.PG,
		CH:          deps.CH,
	}
	if deps.RDS != nil {
		d.Redis = metahttp.RedisPinger(deps.RDS)
	}
	return &Module{built: b, deps: d}
}

// MountRoutes mounts the meta routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	b := m.built
	b.Prefix = str.MustPrefix(b.Prefix)
	b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

func (m *Module) Name() string { return str.MustString(m.built.Name, "meta") }

// Ports is nil, nothing depends on meta
func (m *Module) Ports() any { return nil }
