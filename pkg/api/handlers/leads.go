package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/evoclabs/crm/pkg/api/errors"
	"github.com/evoclabs/crm/pkg/leads"
	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/phone"
	"github.com/evoclabs/crm/pkg/views"
)

// LeadHandler handles lead triage endpoints
type LeadHandler struct {
	leadService *leads.Service
	phones      *phone.Formatter
	validator   *validator.Validate
	pageSize    int
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *leads.Service, phones *phone.Formatter, pageSize int) *LeadHandler {
	if pageSize < 1 {
		pageSize = 10
	}
	return &LeadHandler{
		leadService: leadService,
		phones:      phones,
		validator:   validator.New(),
		pageSize:    pageSize,
	}
}

// ensureLoaded triggers the lazy first fetch. A failed fetch is only
// fatal when nothing is available to serve; a session list restored
// from the cache checkpoint still renders.
func (h *LeadHandler) ensureLoaded(c echo.Context) error {
	err := h.leadService.EnsureLoaded(c.Request().Context())
	if err != nil && len(h.leadService.Leads()) == 0 {
		return err
	}
	return nil
}

// leadsForView resolves the source list for a projection: the shared
// session list for dashboard and pipeline, the contacts collection
// read directly for companion.
func (h *LeadHandler) leadsForView(c echo.Context, state views.State) ([]models.Lead, error) {
	if state.View == views.ViewCompanion {
		return h.leadService.CompanionLeads(c.Request().Context())
	}
	if err := h.ensureLoaded(c); err != nil {
		return nil, err
	}
	return h.leadService.Leads(), nil
}

// sourceError maps a failed source resolution: probe exhaustion is
// the 404 banner, anything else is a store fault.
func sourceError(c echo.Context, err error) error {
	if stderrors.Is(err, leads.ErrNoLeads) {
		return errors.NoLeadsError(c)
	}
	return errors.StoreError(c, err)
}

// bindState parses and validates the query string into a view state.
func (h *LeadHandler) bindState(c echo.Context) (views.State, error) {
	var req models.LeadListRequest
	if err := c.Bind(&req); err != nil {
		return views.State{}, err
	}
	if err := h.validator.Struct(req); err != nil {
		return views.State{}, err
	}
	return views.NewState(req, h.pageSize), nil
}

// List handles the filtered, sorted, paginated lead listing
// GET /api/v1/leads
func (h *LeadHandler) List(c echo.Context) error {
	state, err := h.bindState(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	source, err := h.leadsForView(c, state)
	if err != nil {
		return sourceError(c, err)
	}

	projected := state.Project(source)
	stats := views.Stats(projected)
	page, pagination := views.Paginate(projected, state.Page, state.Limit)

	return c.JSON(http.StatusOK, models.LeadListResponse{
		Data:       h.toResponses(page),
		Pagination: pagination,
		Filters:    state.Filters(),
		Stats:      stats,
	})
}

// Get returns a single lead from the session list
// GET /api/v1/leads/:id
func (h *LeadHandler) Get(c echo.Context) error {
	if err := h.ensureLoaded(c); err != nil {
		return sourceError(c, err)
	}

	lead, ok := h.leadService.Get(c.Param("id"))
	if !ok {
		return errors.NotFoundError(c, "lead")
	}
	return c.JSON(http.StatusOK, h.toResponse(lead))
}

// UpdateStatus moves a lead to a new triage status
// PATCH /api/v1/leads/:id/status
func (h *LeadHandler) UpdateStatus(c echo.Context) error {
	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	if err := h.ensureLoaded(c); err != nil {
		return sourceError(c, err)
	}

	id := c.Param("id")
	if !h.leadService.SetStatus(id, models.LeadStatus(req.Status)) {
		return errors.NotFoundError(c, "lead")
	}

	lead, _ := h.leadService.Get(id)
	return c.JSON(http.StatusOK, h.toResponse(lead))
}

// Delete removes a lead from the session list and, asynchronously,
// from the remote store
// DELETE /api/v1/leads/:id
func (h *LeadHandler) Delete(c echo.Context) error {
	if err := h.ensureLoaded(c); err != nil {
		return sourceError(c, err)
	}

	if !h.leadService.Delete(c.Param("id")) {
		return errors.NotFoundError(c, "lead")
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats returns aggregates over the filtered projection
// GET /api/v1/leads/stats
func (h *LeadHandler) Stats(c echo.Context) error {
	state, err := h.bindState(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	source, err := h.leadsForView(c, state)
	if err != nil {
		return sourceError(c, err)
	}

	projected := state.Project(source)
	return c.JSON(http.StatusOK, views.Stats(projected))
}

// Pipeline returns the filtered projection grouped into status columns
// GET /api/v1/leads/pipeline
func (h *LeadHandler) Pipeline(c echo.Context) error {
	state, err := h.bindState(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	source, err := h.leadsForView(c, state)
	if err != nil {
		return sourceError(c, err)
	}

	projected := state.Project(source)
	return c.JSON(http.StatusOK, models.PipelineResponse{
		Columns: views.Pipeline(projected),
		Filters: state.Filters(),
		Total:   len(projected),
	})
}

// Refresh re-fetches the lead list from the store
// POST /api/v1/leads/refresh
func (h *LeadHandler) Refresh(c echo.Context) error {
	if err := h.leadService.Fetch(c.Request().Context()); err != nil {
		return sourceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"refreshed": true,
		"count":     len(h.leadService.Leads()),
	})
}

func (h *LeadHandler) toResponse(l models.Lead) models.LeadResponse {
	resp := views.ToResponse(l)
	if h.phones != nil {
		resp.Phone = h.phones.Display(resp.Phone)
	}
	return resp
}

func (h *LeadHandler) toResponses(page []models.Lead) []models.LeadResponse {
	out := make([]models.LeadResponse, 0, len(page))
	for _, l := range page {
		out = append(out, h.toResponse(l))
	}
	return out
}
