package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coursetrack-api/internal/models"
	appErrors "github.com/noah-isme/coursetrack-api/pkg/errors"
	"github.com/noah-isme/coursetrack-api/pkg/export"
)

type importReportReader interface {
	Find(ctx context.Context, batchID string) (*models.ImportResult, error)
}

// ImportDocument is a rendered file ready to stream to the client.
type ImportDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

var reportHeaders = []string{"row", "status", "reference", "message"}

// ImportReportService renders the row-by-row outcome of a stored batch.
type ImportReportService struct {
	store     importReportReader
	metrics   *MetricsService
	logger    *zap.Logger
	renderers map[string]export.Renderer
}

// NewImportReportService constructs the report service.
func NewImportReportService(store importReportReader, metrics *MetricsService, logger *zap.Logger) *ImportReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportReportService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		renderers: map[string]export.Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
	}
}

// Get returns the stored result for batchID.
func (s *ImportReportService) Get(ctx context.Context, batchID string) (*models.ImportResult, error) {
	result, err := s.store.Find(ctx, batchID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			s.metrics.RecordReportLookup(false)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import report not found or expired")
		}
		s.logger.Warn("load import report", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import report")
	}
	s.metrics.RecordReportLookup(true)
	return result, nil
}

// Render produces the report for batchID in the requested format.
func (s *ImportReportService) Render(ctx context.Context, batchID, format string) (*ImportDocument, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported report format %q", format))
	}

	result, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s import %s", result.Kind.Plural(), result.BatchID)
	data, err := renderer.Render(reportDataset(*result), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render import report")
	}

	return &ImportDocument{
		Filename:    fmt.Sprintf("import-%s.%s", result.BatchID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

// reportDataset lists one line per processed row, or a single summary line
// when the batch failed before any row was processed.
func reportDataset(result models.ImportResult) export.Dataset {
	data := export.Dataset{Headers: reportHeaders}
	for _, o := range result.Outcomes {
		line := map[string]string{"row": strconv.Itoa(o.Row)}
		if o.Valid() {
			line["status"] = "created"
			if result.DryRun || result.State != models.ImportStateCommitted {
				line["status"] = "valid"
			}
			line["reference"] = o.Created.ID
			if o.Created.Code != "" {
				line["reference"] = o.Created.Code + " (" + o.Created.ID + ")"
			}
		} else {
			line["status"] = "error"
			line["message"] = o.Error
		}
		data.Rows = append(data.Rows, line)
	}

	if len(result.Outcomes) == 0 && result.FailureType != "" {
		data.Rows = append(data.Rows, map[string]string{
			"row":     "-",
			"status":  string(result.FailureType),
			"message": strings.Join(append([]string{result.Reason}, result.Errors...), "; "),
		})
	}
	return data
}
