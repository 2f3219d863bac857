package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/coursetrack-api/internal/dto"
	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/internal/service"
	appErrors "github.com/noah-isme/coursetrack-api/pkg/errors"
	"github.com/noah-isme/coursetrack-api/pkg/response"
)

const multipartMemory = 32 << 20

// uploadFields lists the form keys an upload may arrive under, in priority
// order.
var uploadFields = []string{"file", "files", "file[]"}

type importRunner interface {
	Run(ctx context.Context, kind models.ImportKind, upload service.ImportUpload, opts service.ImportOptions) models.ImportResult
}

// ImportHandler exposes the bulk import endpoints.
type ImportHandler struct {
	imports        importRunner
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewImportHandler constructs the handler. maxUploadBytes <= 0 disables the
// size limit.
func NewImportHandler(imports importRunner, maxUploadBytes int64, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{imports: imports, maxUploadBytes: maxUploadBytes, logger: logger}
}

// BulkStudents godoc
// @Summary Bulk import students
// @Description Creates a user and student profile per row. Any failing row rolls back the whole file.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX file"
// @Param dryRun query bool false "Validate without saving"
// @Success 201 {object} dto.ImportResponse
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} dto.ImportResponse
// @Failure 409 {object} dto.ImportResponse
// @Failure 413 {object} dto.ImportResponse
// @Failure 500 {object} dto.ImportResponse
// @Router /admin/bulk-students [post]
func (h *ImportHandler) BulkStudents(c *gin.Context) {
	h.bulk(c, models.ImportKindStudent)
}

// BulkFaculty godoc
// @Summary Bulk import faculty
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX file"
// @Param dryRun query bool false "Validate without saving"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} dto.ImportResponse
// @Router /admin/bulk-faculty [post]
func (h *ImportHandler) BulkFaculty(c *gin.Context) {
	h.bulk(c, models.ImportKindFaculty)
}

// BulkCourses godoc
// @Summary Bulk import courses
// @Description Course codes repeated inside the file are rejected before anything is written.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX file"
// @Param dryRun query bool false "Validate without saving"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} dto.ImportResponse
// @Router /admin/bulk-courses [post]
func (h *ImportHandler) BulkCourses(c *gin.Context) {
	h.bulk(c, models.ImportKindCourse)
}

func (h *ImportHandler) bulk(c *gin.Context, kind models.ImportKind) {
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))
	if err != nil {
		response.Raw(c, http.StatusBadRequest, dto.ImportResponse{
			Message:     "dryRun must be true or false",
			FailureType: models.ImportFailureUpload,
		})
		return
	}

	upload, err := uploadFromRequest(c, h.maxUploadBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, appErrors.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.logger.Info("rejected import upload", zap.String("kind", string(kind)), zap.Error(err))
		response.Raw(c, status, dto.ImportResponse{
			Message:     appErrors.FromError(err).Message,
			FailureType: models.ImportFailureUpload,
		})
		return
	}

	opts := service.ImportOptions{
		DryRun:    dryRun,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if claims := claimsFromContext(c); claims != nil {
		opts.ActorID = claims.UserID
	}

	result := h.imports.Run(c.Request.Context(), kind, upload, opts)
	status, body := service.BuildImportResponse(result)
	response.Raw(c, status, body)
}

// uploadFromRequest normalizes the multipart shapes clients send into a
// single upload. A request without any file yields a zero upload.
func uploadFromRequest(c *gin.Context, maxBytes int64) (service.ImportUpload, error) {
	tooLarge := appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("Uploaded file exceeds the maximum size of %d bytes", maxBytes))
	if maxBytes > 0 {
		if c.Request.ContentLength > maxBytes {
			return service.ImportUpload{}, tooLarge
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return service.ImportUpload{}, tooLarge
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return service.ImportUpload{}, nil
		}
		return service.ImportUpload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Malformed multipart upload")
	}

	header := firstFile(c.Request.MultipartForm)
	if header == nil {
		return service.ImportUpload{}, nil
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return service.ImportUpload{}, tooLarge
	}

	file, err := header.Open()
	if err != nil {
		return service.ImportUpload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Unable to read uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return service.ImportUpload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Unable to read uploaded file")
	}
	if content == nil {
		content = []byte{}
	}

	return service.ImportUpload{
		Filename: header.Filename,
		Content:  content,
		MimeType: header.Header.Get("Content-Type"),
	}, nil
}

func firstFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	for _, field := range uploadFields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}
