package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/coursetrack-api/internal/models"
	appErrors "github.com/noah-isme/coursetrack-api/pkg/errors"
	"github.com/noah-isme/coursetrack-api/pkg/export"
)

// ImportTemplateService produces blank upload templates with one sample row.
type ImportTemplateService struct{}

// NewImportTemplateService constructs the template service.
func NewImportTemplateService() *ImportTemplateService {
	return &ImportTemplateService{}
}

// Template renders the template for kind as csv or xlsx.
func (s *ImportTemplateService) Template(kind models.ImportKind, format string) (*ImportDocument, error) {
	schema, ok := schemaFor(kind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown import kind %q", kind))
	}

	var renderer export.Renderer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		renderer = export.NewCSVExporter()
	case "xlsx":
		plural := kind.Plural()
		renderer = export.NewXLSXExporter(strings.ToUpper(plural[:1]) + plural[1:])
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported template format %q", format))
	}

	data := export.Dataset{
		Headers: schema.fieldNames(),
		Rows:    []map[string]string{schema.sampleRow()},
	}
	body, err := renderer.Render(data, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}

	return &ImportDocument{
		Filename:    fmt.Sprintf("%s-template.%s", kind.Plural(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        body,
	}, nil
}
