package dto

import "github.com/noah-isme/coursetrack-api/internal/models"

// CourseRef identifies a created course.
type CourseRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// ImportResponse is the response contract of the bulk import endpoints.
type ImportResponse struct {
	Success        bool                     `json:"success"`
	Message        string                   `json:"message"`
	Errors         []string                 `json:"errors,omitempty"`
	UserIDs        []string                 `json:"userIds,omitempty"`
	Courses        []CourseRef              `json:"courses,omitempty"`
	DuplicateCodes []string                 `json:"duplicateCodes,omitempty"`
	FailureType    models.ImportFailureType `json:"failureType,omitempty"`
	BatchID        string                   `json:"batchId,omitempty"`
	DryRun         bool                     `json:"dryRun,omitempty"`
}
