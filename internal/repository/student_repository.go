package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

// StudentRepository manages student specialization records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// RollNumberExistsWithTx reports whether any student already holds rollNumber.
func (r *StudentRepository) RollNumberExistsWithTx(ctx context.Context, tx *sqlx.Tx, rollNumber string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE roll_number = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, query, rollNumber); err != nil {
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return exists, nil
}

// CreateWithTx inserts the student row for an already created user.
func (r *StudentRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if student.UserID == "" {
		return fmt.Errorf("create student: missing user id")
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO students (user_id, roll_number, enrollment_year, major, created_at) VALUES (:user_id, :roll_number, :enrollment_year, :major, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
