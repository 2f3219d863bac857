package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursetrack-api/internal/middleware"
	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/internal/service"
	"github.com/noah-isme/coursetrack-api/pkg/response"
)

type importReportProvider interface {
	Get(ctx context.Context, batchID string) (*models.ImportResult, error)
	Render(ctx context.Context, batchID, format string) (*service.ImportDocument, error)
}

type importTemplateProvider interface {
	Template(kind models.ImportKind, format string) (*service.ImportDocument, error)
}

// ImportReportHandler serves stored batch outcomes and upload templates.
type ImportReportHandler struct {
	reports   importReportProvider
	templates importTemplateProvider
}

// NewImportReportHandler constructs the handler.
func NewImportReportHandler(reports importReportProvider, templates importTemplateProvider) *ImportReportHandler {
	return &ImportReportHandler{reports: reports, templates: templates}
}

// Summary godoc
// @Summary Get import batch result
// @Tags Imports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/imports/{id} [get]
func (h *ImportReportHandler) Summary(c *gin.Context) {
	result, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "rows", result.TotalRows)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Report godoc
// @Summary Download import batch report
// @Tags Imports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admin/imports/{id}/report [get]
func (h *ImportReportHandler) Report(c *gin.Context) {
	doc, err := h.reports.Render(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}

// Template godoc
// @Summary Download an upload template
// @Tags Imports
// @Produce text/csv
// @Security BearerAuth
// @Param kind path string true "students, faculty or courses"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admin/bulk-templates/{kind} [get]
func (h *ImportReportHandler) Template(c *gin.Context) {
	kind, _ := models.ParseImportKind(c.Param("kind"))
	doc, err := h.templates.Template(kind, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}
