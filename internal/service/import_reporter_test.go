package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

func TestBuildImportResponse(t *testing.T) {
	t.Run("students committed", func(t *testing.T) {
		status, resp := BuildImportResponse(models.ImportResult{
			Kind:    models.ImportKindStudent,
			State:   models.ImportStateCommitted,
			Created: []models.CreatedRef{{ID: "u1"}, {ID: "u2"}},
		})
		assert.Equal(t, http.StatusCreated, status)
		assert.True(t, resp.Success)
		assert.Equal(t, "Successfully imported 2 students", resp.Message)
		assert.Equal(t, []string{"u1", "u2"}, resp.UserIDs)
		assert.Nil(t, resp.Courses)
	})

	t.Run("courses committed", func(t *testing.T) {
		status, resp := BuildImportResponse(models.ImportResult{
			Kind:    models.ImportKindCourse,
			State:   models.ImportStateCommitted,
			Created: []models.CreatedRef{{ID: "c1", Code: "CS101"}},
		})
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "Successfully imported 1 courses", resp.Message)
		assert.Equal(t, "CS101", resp.Courses[0].Code)
		assert.Nil(t, resp.UserIDs)
	})

	t.Run("dry run", func(t *testing.T) {
		status, resp := BuildImportResponse(models.ImportResult{
			Kind:    models.ImportKindFaculty,
			State:   models.ImportStateRolledBack,
			DryRun:  true,
			Created: []models.CreatedRef{{ID: "u1"}},
		})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
		assert.Contains(t, resp.Message, "1 faculty would be imported")
		assert.Nil(t, resp.UserIDs)
	})

	t.Run("validation", func(t *testing.T) {
		status, resp := BuildImportResponse(models.ImportResult{
			Kind:        models.ImportKindStudent,
			State:       models.ImportStateRolledBack,
			FailureType: models.ImportFailureValidation,
			Errors:      []string{"Row 2: Invalid email format"},
			TotalRows:   3,
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, resp.Success)
		assert.Equal(t, "Import failed: 1 of 3 rows had errors. No records were imported.", resp.Message)
		assert.Equal(t, []string{"Row 2: Invalid email format"}, resp.Errors)
	})

	t.Run("duplicate codes", func(t *testing.T) {
		status, resp := BuildImportResponse(models.ImportResult{
			Kind:           models.ImportKindCourse,
			FailureType:    models.ImportFailureDuplicateCodes,
			Reason:         "Duplicate course codes found in file: CS101",
			DuplicateCodes: []string{"CS101"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, []string{"CS101"}, resp.DuplicateCodes)
		assert.Equal(t, models.ImportFailureDuplicateCodes, resp.FailureType)
	})

	statuses := map[models.ImportFailureType]int{
		models.ImportFailureUpload:   http.StatusBadRequest,
		models.ImportFailureParse:    http.StatusBadRequest,
		models.ImportFailureSchema:   http.StatusBadRequest,
		models.ImportFailureConflict: http.StatusConflict,
		models.ImportFailureInternal: http.StatusInternalServerError,
	}
	for failure, want := range statuses {
		status, resp := BuildImportResponse(models.ImportResult{Kind: models.ImportKindStudent, FailureType: failure, Reason: "boom"})
		assert.Equal(t, want, status, string(failure))
		assert.Contains(t, resp.Message, "boom")
		assert.Empty(t, resp.UserIDs)
	}
}
