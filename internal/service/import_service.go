package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/pkg/database"
	"github.com/noah-isme/coursetrack-api/pkg/tabular"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type importAuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type importReportStore interface {
	Save(ctx context.Context, result *models.ImportResult, ttl time.Duration) error
}

// ImportUpload is the canonical shape of an uploaded file, independent of how
// the transport delivered it.
type ImportUpload struct {
	Filename string
	Content  []byte
	MimeType string
}

// ImportOptions carries per-request settings and actor metadata.
type ImportOptions struct {
	DryRun    bool
	ActorID   string
	IPAddress string
	UserAgent string
}

// ImportConfig tunes the coordinator.
type ImportConfig struct {
	IsolationLevel sql.IsolationLevel
	ReportTTL      time.Duration
}

// ImportStores groups the repositories a batch writes through.
type ImportStores struct {
	Users      importUserStore
	Students   importStudentStore
	Faculty    importFacultyStore
	Courses    importCourseStore
	Savepoints savepointer
	Audit      importAuditStore
	Reports    importReportStore
}

const (
	reasonNoFile          = "No file uploaded"
	reasonUnsupportedKind = "Unsupported import kind"
	reasonRetryConflict   = "The import conflicted with a concurrent change. Please retry the upload."
)

// ImportService coordinates bulk imports: parse, schema check, then a single
// transaction in which every row is validated, checked for collisions and
// materialized. Any failing row rolls back the whole batch.
type ImportService struct {
	tx           txProvider
	validator    *rowValidator
	checker      *uniquenessChecker
	materializer *entityMaterializer
	audit        importAuditStore
	reports      importReportStore
	metrics      *MetricsService
	logger       *zap.Logger
	config       ImportConfig
	now          func() time.Time
}

// NewImportService constructs the coordinator.
func NewImportService(tx txProvider, stores ImportStores, hasher passwordHasher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IsolationLevel == sql.LevelDefault {
		cfg.IsolationLevel = sql.LevelSerializable
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = time.Hour
	}
	return &ImportService{
		tx:        tx,
		validator: newRowValidator(validate),
		checker: &uniquenessChecker{
			users:    stores.Users,
			students: stores.Students,
			courses:  stores.Courses,
		},
		materializer: &entityMaterializer{
			hasher:     hasher,
			users:      stores.Users,
			students:   stores.Students,
			faculty:    stores.Faculty,
			courses:    stores.Courses,
			savepoints: stores.Savepoints,
		},
		audit:   stores.Audit,
		reports: stores.Reports,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
}

// importAccumulator is the fold state of the row loop. record returns a new
// value and never mutates the receiver's backing arrays.
type importAccumulator struct {
	outcomes []models.RowOutcome
	created  []models.CreatedRef
	errors   []string
}

func (a importAccumulator) record(o models.RowOutcome) importAccumulator {
	next := importAccumulator{
		outcomes: append(a.outcomes[:len(a.outcomes):len(a.outcomes)], o),
		created:  a.created,
		errors:   a.errors,
	}
	if o.Valid() {
		next.created = append(a.created[:len(a.created):len(a.created)], *o.Created)
	} else {
		next.errors = append(a.errors[:len(a.errors):len(a.errors)], o.Error)
	}
	return next
}

func (a importAccumulator) failed() bool {
	return len(a.errors) > 0
}

// rowNumber converts a zero-based data index into the number shown to
// admins. Course imports report the line in the file, header included, so
// skipped blank rows still count; lines may be nil.
func rowNumber(kind models.ImportKind, lines []int) func(int) int {
	if kind == models.ImportKindCourse {
		return func(i int) int {
			if i < len(lines) {
				return lines[i]
			}
			return i + 2
		}
	}
	return func(i int) int { return i + 1 }
}

func createdOutcome(n int, ref models.CreatedRef) models.RowOutcome {
	return models.RowOutcome{Row: n, Created: &ref}
}

func failedOutcome(n int, reason string) models.RowOutcome {
	return models.RowOutcome{Row: n, Error: fmt.Sprintf("Row %d: %s", n, reason)}
}

// Run imports one uploaded file. It never returns an error: every failure is
// described by the result's FailureType and Reason.
func (s *ImportService) Run(ctx context.Context, kind models.ImportKind, upload ImportUpload, opts ImportOptions) models.ImportResult {
	result := models.ImportResult{
		BatchID:   uuid.NewString(),
		Kind:      kind,
		Filename:  upload.Filename,
		State:     models.ImportStateReceived,
		DryRun:    opts.DryRun,
		ActorID:   opts.ActorID,
		StartedAt: s.now().UTC(),
	}
	log := s.logger.With(
		zap.String("batch_id", result.BatchID),
		zap.String("kind", string(kind)),
		zap.String("filename", upload.Filename),
	)

	result = s.run(ctx, log, result, upload, opts)
	result.FinishedAt = s.now().UTC()
	s.finish(ctx, log, result, opts)
	return result
}

func (s *ImportService) run(ctx context.Context, log *zap.Logger, result models.ImportResult, upload ImportUpload, opts ImportOptions) models.ImportResult {
	schema, ok := schemaFor(result.Kind)
	if !ok {
		return fail(result, models.ImportFailureUpload, reasonUnsupportedKind)
	}
	if upload.Filename == "" && upload.Content == nil {
		return fail(result, models.ImportFailureUpload, reasonNoFile)
	}

	table, err := tabular.Parse(upload.Filename, upload.MimeType, upload.Content)
	if err != nil {
		return fail(result, models.ImportFailureParse, parseReason(err))
	}
	result.State = models.ImportStateParsed
	result.TotalRows = len(table.Records)
	log.Debug("import parsed", zap.Int("rows", result.TotalRows), zap.Strings("headers", table.Headers))

	mapping, missing := schema.resolve(table.Headers)
	if len(missing) > 0 {
		return fail(result, models.ImportFailureSchema, "Missing required columns: "+strings.Join(missing, ", "))
	}
	rows := mapRecords(mapping, table.Records)
	number := rowNumber(result.Kind, table.Lines)
	index := newBatchIndex(result.Kind, rows, number)

	if result.Kind == models.ImportKindCourse {
		if codes, reasons := index.duplicateCodes(rows); len(codes) > 0 {
			result.DuplicateCodes = codes
			result.Errors = reasons
			return fail(result, models.ImportFailureDuplicateCodes, "Duplicate course codes found in file: "+strings.Join(codes, ", "))
		}
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: s.config.IsolationLevel})
	if err != nil {
		log.Error("begin import transaction", zap.Error(err))
		return fail(result, models.ImportFailureInternal, err.Error())
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Warn("rollback import transaction", zap.Error(rbErr))
			}
		}
	}()

	result.State = models.ImportStateValidating
	acc := importAccumulator{}
	for i, raw := range rows {
		outcome, err := s.processRow(ctx, tx, result.Kind, number(i), raw, index)
		if err != nil {
			result.Outcomes = acc.outcomes
			if lostRace(err) {
				log.Warn("import row lost concurrent write race", zap.Int("row", number(i)), zap.Error(err))
				return fail(result, models.ImportFailureConflict, reasonRetryConflict)
			}
			log.Error("import row aborted batch", zap.Int("row", number(i)), zap.Error(err))
			return fail(result, models.ImportFailureInternal, err.Error())
		}
		acc = acc.record(outcome)
	}
	result.Outcomes = acc.outcomes

	if acc.failed() {
		result.State = models.ImportStateAnyInvalid
		result.Errors = acc.errors
		return fail(result, models.ImportFailureValidation, fmt.Sprintf("%d of %d rows failed", len(acc.errors), len(rows)))
	}

	result.State = models.ImportStateAllValid
	result.Created = acc.created
	if opts.DryRun {
		result.State = models.ImportStateRolledBack
		return result
	}

	if err := tx.Commit(); err != nil {
		committed = true
		result.Created = nil
		if lostRace(err) {
			log.Warn("import commit lost concurrent write race", zap.Error(err))
			return fail(result, models.ImportFailureConflict, reasonRetryConflict)
		}
		log.Error("commit import transaction", zap.Error(err))
		return fail(result, models.ImportFailureInternal, err.Error())
	}
	committed = true
	result.State = models.ImportStateCommitted
	return result
}

// lostRace reports whether err came from a concurrent batch touching the same
// keys, in which case resubmitting the file is expected to succeed or report
// row errors.
func lostRace(err error) bool {
	if database.SerializationFailure(err) {
		return true
	}
	_, unique := database.UniqueViolation(err)
	return unique
}

// processRow is one step of the fold: validate, check the in-file index,
// check the store, then materialize. Only infrastructure failures return an
// error.
func (s *ImportService) processRow(ctx context.Context, tx *sqlx.Tx, kind models.ImportKind, n int, raw map[string]string, index batchIndex) (models.RowOutcome, error) {
	row, err := s.validator.Validate(kind, n, raw)
	if err != nil {
		return failedOutcome(n, err.Error()), nil
	}
	if reason := index.duplicate(kind, raw); reason != "" {
		return failedOutcome(n, reason), nil
	}

	reason, err := s.checker.Check(ctx, tx, kind, row)
	if err != nil {
		return models.RowOutcome{}, err
	}
	if reason != "" {
		return failedOutcome(n, reason), nil
	}

	ref, reason, err := s.materializer.Materialize(ctx, tx, kind, row)
	if err != nil {
		return models.RowOutcome{}, err
	}
	if reason != "" {
		return failedOutcome(n, reason), nil
	}
	return createdOutcome(n, ref), nil
}

func (s *ImportService) finish(ctx context.Context, log *zap.Logger, result models.ImportResult, opts ImportOptions) {
	fields := []zap.Field{
		zap.String("state", string(result.State)),
		zap.Int("rows", result.TotalRows),
		zap.Int("created", len(result.Created)),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("dry_run", result.DryRun),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	}
	if result.FailureType != "" {
		fields = append(fields, zap.String("failure_type", string(result.FailureType)), zap.String("reason", result.Reason))
	}
	log.Info("import finished", fields...)

	s.metrics.ObserveImport(result)

	// the request context may already be cancelled; bookkeeping should still land
	bg := context.WithoutCancel(ctx)

	if s.reports != nil {
		if err := s.reports.Save(bg, &result, s.config.ReportTTL); err != nil {
			log.Warn("store import report", zap.Error(err))
		}
	}

	if s.audit == nil || result.State != models.ImportStateCommitted {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"kind":     result.Kind,
		"filename": result.Filename,
		"created":  len(result.Created),
	})
	entry := &models.AuditLog{
		Action:     models.AuditActionBulkImport,
		Resource:   result.Kind.Plural(),
		ResourceID: &result.BatchID,
		NewValues:  payload,
		IPAddress:  opts.IPAddress,
		UserAgent:  opts.UserAgent,
	}
	if opts.ActorID != "" {
		actor := opts.ActorID
		entry.UserID = &actor
	}
	if err := s.audit.CreateAuditLog(bg, entry); err != nil {
		log.Warn("write import audit log", zap.Error(err))
	}
}

func fail(result models.ImportResult, failure models.ImportFailureType, reason string) models.ImportResult {
	result.FailureType = failure
	result.Reason = reason
	switch result.State {
	case models.ImportStateValidating, models.ImportStateAnyInvalid, models.ImportStateAllValid:
		result.State = models.ImportStateRolledBack
	}
	return result
}

func parseReason(err error) string {
	switch {
	case errors.Is(err, tabular.ErrEmptyFile):
		return "Uploaded file is empty"
	case errors.Is(err, tabular.ErrNoDataRows):
		return "Uploaded file has a header row but no data rows"
	case errors.Is(err, tabular.ErrInvalidEncoding):
		return "Uploaded file is not valid UTF-8 text"
	}
	return "Unable to parse uploaded file: " + err.Error()
}
