package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

// CourseRepository provides persistence for the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// CodeExistsWithTx reports whether a course with code exists, ignoring case.
func (r *CourseRepository) CodeExistsWithTx(ctx context.Context, tx *sqlx.Tx, code string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	const query = `SELECT EXISTS(SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1))`
	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return exists, nil
}

// CreateWithTx inserts a course inside an existing transaction.
func (r *CourseRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, description, credits, semester, created_at, updated_at) VALUES (:id, :code, :name, :description, :credits, :semester, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}
