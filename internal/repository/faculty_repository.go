package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

// FacultyRepository manages faculty specialization records.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// CreateWithTx inserts the faculty row for an already created user.
func (r *FacultyRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, faculty *models.Faculty) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if faculty.UserID == "" {
		return fmt.Errorf("create faculty: missing user id")
	}
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO faculty (user_id, department, position, created_at) VALUES (:user_id, :department, :position, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}
