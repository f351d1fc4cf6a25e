package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/evoclabs/crm/pkg/api/errors"
	"github.com/evoclabs/crm/pkg/export"
	"github.com/evoclabs/crm/pkg/leads"
	"github.com/evoclabs/crm/pkg/metrics"
	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/views"
)

// ExportHandler handles lead export downloads
type ExportHandler struct {
	leadService   *leads.Service
	exportService *export.Service
	metrics       *metrics.Metrics
	validator     *validator.Validate
	pageSize      int
}

// NewExportHandler creates a new export handler. m may be nil.
func NewExportHandler(leadService *leads.Service, exportService *export.Service, m *metrics.Metrics, pageSize int) *ExportHandler {
	if pageSize < 1 {
		pageSize = 10
	}
	return &ExportHandler{
		leadService:   leadService,
		exportService: exportService,
		metrics:       m,
		validator:     validator.New(),
		pageSize:      pageSize,
	}
}

// Download streams the full filtered projection as CSV or Excel.
// Pagination parameters are ignored: an export always covers every
// matching lead.
// GET /api/v1/leads/export?format=csv|excel
func (h *ExportHandler) Download(c echo.Context) error {
	var req models.LeadListRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "excel" {
		return errors.ValidationError(c, fmt.Errorf("invalid format: must be csv or excel"))
	}

	state := views.NewState(req, h.pageSize)

	var source []models.Lead
	if state.View == views.ViewCompanion {
		companion, err := h.leadService.CompanionLeads(c.Request().Context())
		if err != nil {
			return sourceError(c, err)
		}
		source = companion
	} else {
		if err := h.leadService.EnsureLoaded(c.Request().Context()); err != nil && len(h.leadService.Leads()) == 0 {
			return sourceError(c, err)
		}
		source = h.leadService.Leads()
	}

	projected := state.Project(source)

	if h.metrics != nil {
		h.metrics.RecordExportCreated(string(state.View), format)
	}

	if format == "excel" {
		filename := h.exportService.Filename(state.View, "xlsx")
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
		c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().WriteHeader(http.StatusOK)
		if err := h.exportService.WriteExcel(c.Response(), state.View, projected); err != nil {
			return errors.InternalError(c, err)
		}
		return nil
	}

	filename := h.exportService.Filename(state.View, "csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if err := h.exportService.WriteCSV(c.Response(), state.View, projected); err != nil {
		return errors.InternalError(c, err)
	}
	return nil
}
