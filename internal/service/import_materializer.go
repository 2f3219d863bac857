package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/pkg/database"
)

type savepointer interface {
	Create(ctx context.Context, tx *sqlx.Tx, name string) error
	RollbackTo(ctx context.Context, tx *sqlx.Tx, name string) error
	Release(ctx context.Context, tx *sqlx.Tx, name string) error
}

// entityMaterializer persists the entity graph for one validated row.
type entityMaterializer struct {
	hasher     passwordHasher
	users      importUserStore
	students   importStudentStore
	faculty    importFacultyStore
	courses    importCourseStore
	savepoints savepointer
}

const reasonValueTooLong = "Value exceeds the maximum column length"

// Materialize writes row inside a savepoint. A unique violation or an
// over-long value raised by the store is undone back to the savepoint and
// reported as a row reason, leaving the transaction usable for the remaining
// rows.
func (m *entityMaterializer) Materialize(ctx context.Context, tx *sqlx.Tx, kind models.ImportKind, row importRow) (models.CreatedRef, string, error) {
	var passwordHash string
	if kind != models.ImportKindCourse {
		hashed, err := m.hasher.Hash(row.Password)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.CreatedRef{}, reasonPasswordLength, nil
		}
		if err != nil {
			return models.CreatedRef{}, "", err
		}
		passwordHash = hashed
	}

	name := fmt.Sprintf("import_row_%d", row.Number)
	if err := m.savepoints.Create(ctx, tx, name); err != nil {
		return models.CreatedRef{}, "", err
	}

	ref, err := m.write(ctx, tx, kind, row, passwordHash)
	if err != nil {
		var reason string
		if constraint, unique := database.UniqueViolation(err); unique {
			reason = constraintReason(constraint, row)
		} else if database.ValueTooLong(err) {
			reason = reasonValueTooLong
		} else {
			return models.CreatedRef{}, "", err
		}
		if rbErr := m.savepoints.RollbackTo(ctx, tx, name); rbErr != nil {
			return models.CreatedRef{}, "", rbErr
		}
		return models.CreatedRef{}, reason, nil
	}

	if err := m.savepoints.Release(ctx, tx, name); err != nil {
		return models.CreatedRef{}, "", err
	}
	return ref, "", nil
}

func (m *entityMaterializer) write(ctx context.Context, tx *sqlx.Tx, kind models.ImportKind, row importRow, passwordHash string) (models.CreatedRef, error) {
	if kind == models.ImportKindCourse {
		course := &models.Course{
			Code:        row.Code,
			Name:        row.Name,
			Description: row.Description,
			Credits:     row.Credits,
			Semester:    row.Semester,
		}
		if err := m.courses.CreateWithTx(ctx, tx, course); err != nil {
			return models.CreatedRef{}, err
		}
		return models.CreatedRef{ID: course.ID, Code: course.Code}, nil
	}

	user := &models.User{
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: passwordHash,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		UserType:     models.UserType(kind),
	}
	if err := m.users.CreateWithTx(ctx, tx, user); err != nil {
		return models.CreatedRef{}, err
	}

	switch kind {
	case models.ImportKindStudent:
		student := &models.Student{
			UserID:         user.ID,
			RollNumber:     row.RollNumber,
			EnrollmentYear: row.EnrollmentYear,
			Major:          row.Major,
		}
		if err := m.students.CreateWithTx(ctx, tx, student); err != nil {
			return models.CreatedRef{}, err
		}
	case models.ImportKindFaculty:
		faculty := &models.Faculty{
			UserID:     user.ID,
			Department: row.Department,
			Position:   row.Position,
		}
		if err := m.faculty.CreateWithTx(ctx, tx, faculty); err != nil {
			return models.CreatedRef{}, err
		}
	}
	return models.CreatedRef{ID: user.ID}, nil
}

func constraintReason(constraint string, row importRow) string {
	switch constraint {
	case "users_username_lower_key", "users_username_key":
		return usernameTaken(row.Username)
	case "users_email_lower_key", "users_email_key":
		return emailTaken(row.Email)
	case "students_roll_number_key":
		return rollNumberTaken(row.RollNumber)
	case "courses_code_lower_key", "courses_code_key":
		return courseCodeTaken(row.Code)
	}
	return fmt.Sprintf("Duplicate value violates unique constraint '%s'", constraint)
}
