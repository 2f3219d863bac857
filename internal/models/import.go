package models

import (
	"strings"
	"time"
)

// ImportKind selects which entity graph a batch materializes.
type ImportKind string

const (
	ImportKindStudent ImportKind = "student"
	ImportKindFaculty ImportKind = "faculty"
	ImportKindCourse  ImportKind = "course"
)

// Plural is used in user facing messages and file names.
func (k ImportKind) Plural() string {
	switch k {
	case ImportKindStudent:
		return "students"
	case ImportKindCourse:
		return "courses"
	default:
		return "faculty"
	}
}

// ParseImportKind accepts the singular or plural name of a kind in any case.
func ParseImportKind(raw string) (ImportKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "student", "students":
		return ImportKindStudent, true
	case "faculty", "faculties":
		return ImportKindFaculty, true
	case "course", "courses":
		return ImportKindCourse, true
	}
	return ImportKind(raw), false
}

// ImportState tracks a batch through the coordinator.
type ImportState string

const (
	ImportStateReceived   ImportState = "received"
	ImportStateParsed     ImportState = "parsed"
	ImportStateValidating ImportState = "validating"
	ImportStateAllValid   ImportState = "all_valid"
	ImportStateAnyInvalid ImportState = "any_invalid"
	ImportStateCommitted  ImportState = "committed"
	ImportStateRolledBack ImportState = "rolled_back"
)

// ImportFailureType distinguishes fatal upload problems from row failures.
type ImportFailureType string

const (
	ImportFailureUpload         ImportFailureType = "upload"
	ImportFailureParse          ImportFailureType = "parse"
	ImportFailureSchema         ImportFailureType = "schema"
	ImportFailureDuplicateCodes ImportFailureType = "duplicate_codes"
	ImportFailureValidation     ImportFailureType = "validation"
	ImportFailureConflict       ImportFailureType = "conflict"
	ImportFailureInternal       ImportFailureType = "internal"
)

// CreatedRef identifies an entity created by a row. Code is set for courses.
type CreatedRef struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
}

// RowOutcome is the verdict for one data row. Exactly one of Created and
// Error is populated.
type RowOutcome struct {
	Row     int         `json:"row"`
	Created *CreatedRef `json:"created,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Valid reports whether the row was materialized.
func (o RowOutcome) Valid() bool {
	return o.Error == ""
}

// ImportResult is the terminal state of one batch.
type ImportResult struct {
	BatchID        string            `json:"batch_id"`
	Kind           ImportKind        `json:"kind"`
	Filename       string            `json:"filename"`
	State          ImportState       `json:"state"`
	FailureType    ImportFailureType `json:"failure_type,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Errors         []string          `json:"errors,omitempty"`
	Created        []CreatedRef      `json:"created,omitempty"`
	DuplicateCodes []string          `json:"duplicate_codes,omitempty"`
	Outcomes       []RowOutcome      `json:"outcomes,omitempty"`
	TotalRows      int               `json:"total_rows"`
	DryRun         bool              `json:"dry_run"`
	ActorID        string            `json:"actor_id,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
}

// Succeeded reports whether every row was materialized.
func (r ImportResult) Succeeded() bool {
	return r.FailureType == ""
}
