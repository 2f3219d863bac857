package service

import (
	"fmt"
	"net/http"

	"github.com/noah-isme/coursetrack-api/internal/dto"
	"github.com/noah-isme/coursetrack-api/internal/models"
)

// BuildImportResponse formats a finished batch into the HTTP contract and
// picks the status code. It holds no business logic.
func BuildImportResponse(result models.ImportResult) (int, dto.ImportResponse) {
	resp := dto.ImportResponse{
		Success:     result.Succeeded(),
		FailureType: result.FailureType,
		BatchID:     result.BatchID,
		DryRun:      result.DryRun,
	}

	if result.Succeeded() {
		noun := result.Kind.Plural()
		if result.DryRun {
			resp.Message = fmt.Sprintf("Dry run: %d %s would be imported. No records were saved.", len(result.Created), noun)
			return http.StatusOK, resp
		}
		resp.Message = fmt.Sprintf("Successfully imported %d %s", len(result.Created), noun)
		if result.Kind == models.ImportKindCourse {
			resp.Courses = make([]dto.CourseRef, len(result.Created))
			for i, ref := range result.Created {
				resp.Courses[i] = dto.CourseRef{ID: ref.ID, Code: ref.Code}
			}
		} else {
			resp.UserIDs = make([]string, len(result.Created))
			for i, ref := range result.Created {
				resp.UserIDs[i] = ref.ID
			}
		}
		return http.StatusCreated, resp
	}

	resp.Errors = result.Errors
	switch result.FailureType {
	case models.ImportFailureValidation:
		resp.Message = fmt.Sprintf("Import failed: %d of %d rows had errors. No records were imported.", len(result.Errors), result.TotalRows)
		return http.StatusBadRequest, resp
	case models.ImportFailureDuplicateCodes:
		resp.Message = result.Reason
		resp.DuplicateCodes = result.DuplicateCodes
		return http.StatusBadRequest, resp
	case models.ImportFailureUpload, models.ImportFailureParse, models.ImportFailureSchema:
		resp.Message = result.Reason
		return http.StatusBadRequest, resp
	case models.ImportFailureConflict:
		resp.Message = result.Reason
		return http.StatusConflict, resp
	default:
		resp.Message = "Import failed: " + result.Reason
		return http.StatusInternalServerError, resp
	}
}
