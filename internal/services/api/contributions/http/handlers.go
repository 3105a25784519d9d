// Package http provides http transport for contributions
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/ditsyandrea22/celo-identity/internal/modkit/httpkit"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/domain"
	svc "github.com/ditsyandrea22/celo-identity/internal/services/api/contributions/service"
)

// Register mounts the contributions routes
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.SubmitInput](r, "/contributions", h.submit)
	httpkit.Get(r, "/contributors/{address}", h.contributor)
	httpkit.Get(r, "/contributors/{address}/contributions", h.contributions)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /contributions Contributions submitContribution
// @Summary Submit a contribution claim
// @Description Scores the claim against the claimant's public activity and records it on-chain
// @Tags Contributions
// @Accept json
// @Produce json
// @Param payload body domain.SubmitInput true "Claim"
// @Success 200 {object} domain.SubmitOutput "ok"
// @Failure 422 {object} httpkit.Envelope "invalid input or policy rejection"
// @Failure 409 {object} httpkit.Envelope "ledger rejected the claim"
// @Failure 503 {object} httpkit.Envelope "identity source or ledger unavailable"
// @Router /contributions [post]
func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitInput) (any, error) {
	return h.svc.Submit(r.Context(), in)
}

// swagger:route GET /contributors/{address} Contributions getContributor
// @Summary Contributor tier and on-chain reputation
// @Tags Contributions
// @Produce json
// @Param address path string true "0x address"
// @Success 200 {object} domain.Contributor "ok"
// @Failure 422 {object} httpkit.Envelope "invalid address"
// @Router /contributors/{address} [get]
func (h *handlers) contributor(r *stdhttp.Request) (any, error) {
	return h.svc.Contributor(r.Context(), httpkit.Param(r, "address"))
}

// swagger:route GET /contributors/{address}/contributions Contributions listContributions
// @Summary Stored contribution records, newest first
// @Tags Contributions
// @Produce json
// @Param address path string true "0x address"
// @Param limit query int false "page size" default(20)
// @Param offset query int false "page offset" default(0)
// @Success 200 {array} contrib.Record "ok"
// @Router /contributors/{address}/contributions [get]
func (h *handlers) contributions(r *stdhttp.Request) (any, error) {
	q, err := listQuery(r)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Contributions(r.Context(), httpkit.Param(r, "address"), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(page.Items, page.Total, page.Limit, page.Offset), nil
}

func listQuery(r *stdhttp.Request) (domain.ListQuery, error) {
	var q domain.ListQuery
	for key, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, perr.WithField(perr.InvalidArgf("%s must be a non negative integer", key), key)
		}
		*dst = n
	}
	return q, nil
}
