package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

type importUserStore interface {
	FindConflictWithTx(ctx context.Context, tx *sqlx.Tx, username, email string) (*models.User, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
}

type importStudentStore interface {
	RollNumberExistsWithTx(ctx context.Context, tx *sqlx.Tx, rollNumber string) (bool, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
}

type importFacultyStore interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, faculty *models.Faculty) error
}

type importCourseStore interface {
	CodeExistsWithTx(ctx context.Context, tx *sqlx.Tx, code string) (bool, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error
}

func usernameTaken(v string) string   { return fmt.Sprintf("Username '%s' already exists", v) }
func emailTaken(v string) string      { return fmt.Sprintf("Email '%s' already exists", v) }
func rollNumberTaken(v string) string { return fmt.Sprintf("Roll number '%s' already exists", v) }
func courseCodeTaken(v string) string { return fmt.Sprintf("Course code '%s' already exists", v) }

// uniquenessChecker looks for collisions through the live transaction, so
// rows written earlier in the same batch are visible.
type uniquenessChecker struct {
	users    importUserStore
	students importStudentStore
	courses  importCourseStore
}

// Check returns a non-empty reason when row collides with a stored entity.
// The error is reserved for store failures.
func (c *uniquenessChecker) Check(ctx context.Context, tx *sqlx.Tx, kind models.ImportKind, row importRow) (string, error) {
	switch kind {
	case models.ImportKindCourse:
		exists, err := c.courses.CodeExistsWithTx(ctx, tx, row.Code)
		if err != nil {
			return "", err
		}
		if exists {
			return courseCodeTaken(row.Code), nil
		}
		return "", nil
	}

	existing, err := c.users.FindConflictWithTx(ctx, tx, row.Username, row.Email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", err
	case existing == nil:
	case strings.EqualFold(existing.Username, row.Username):
		return usernameTaken(row.Username), nil
	default:
		return emailTaken(row.Email), nil
	}

	if kind == models.ImportKindStudent {
		exists, err := c.students.RollNumberExistsWithTx(ctx, tx, row.RollNumber)
		if err != nil {
			return "", err
		}
		if exists {
			return rollNumberTaken(row.RollNumber), nil
		}
	}
	return "", nil
}

// batchIndex records which rows use each unique key so that every row sharing
// a key with another row in the same file is rejected, not only the later one.
type batchIndex struct {
	keys map[string]map[string][]int
}

var indexedKeys = map[models.ImportKind][]string{
	models.ImportKindStudent: {fieldUsername, fieldEmail, fieldRollNumber},
	models.ImportKindFaculty: {fieldUsername, fieldEmail},
	models.ImportKindCourse:  {fieldCode},
}

var keyLabels = map[string]string{
	fieldUsername:   "username",
	fieldEmail:      "email",
	fieldRollNumber: "roll number",
	fieldCode:       "course code",
}

func indexKey(field, value string) string {
	value = strings.TrimSpace(value)
	if field == fieldRollNumber {
		return value
	}
	return strings.ToLower(value)
}

func newBatchIndex(kind models.ImportKind, rows []map[string]string, rowNumber func(int) int) batchIndex {
	idx := batchIndex{keys: make(map[string]map[string][]int)}
	for _, field := range indexedKeys[kind] {
		idx.keys[field] = make(map[string][]int)
	}
	for i, row := range rows {
		for field, values := range idx.keys {
			key := indexKey(field, row[field])
			if key == "" {
				continue
			}
			values[key] = append(values[key], rowNumber(i))
		}
	}
	return idx
}

// duplicate returns the in-file duplicate reason for row, checking keys in a
// fixed order.
func (idx batchIndex) duplicate(kind models.ImportKind, raw map[string]string) string {
	for _, field := range indexedKeys[kind] {
		rows := idx.keys[field][indexKey(field, raw[field])]
		if len(rows) < 2 {
			continue
		}
		return fmt.Sprintf("Duplicate %s '%s' in file (rows %s)", keyLabels[field], strings.TrimSpace(raw[field]), joinInts(rows))
	}
	return ""
}

// duplicateCodes lists course codes used by more than one row, in order of
// first appearance, with the rows that use them.
func (idx batchIndex) duplicateCodes(rows []map[string]string) ([]string, []string) {
	var codes, reasons []string
	reported := make(map[string]bool)
	for _, row := range rows {
		key := indexKey(fieldCode, row[fieldCode])
		numbers := idx.keys[fieldCode][key]
		if key == "" || len(numbers) < 2 || reported[key] {
			continue
		}
		reported[key] = true
		code := strings.TrimSpace(row[fieldCode])
		codes = append(codes, code)
		reasons = append(reasons, fmt.Sprintf("Duplicate course code '%s' in file (rows %s)", code, joinInts(numbers)))
	}
	return codes, reasons
}

func joinInts(values []int) string {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
