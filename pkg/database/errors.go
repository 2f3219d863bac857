package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeStringTooLong        = "22001"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// UniqueViolation reports whether err is a unique constraint violation and
// returns the violated constraint name.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// ValueTooLong reports whether err is a string value that exceeded its
// column width.
func ValueTooLong(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeStringTooLong
}

// SerializationFailure reports whether the transaction lost a concurrent
// write race and may be retried.
func SerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}

// ParseIsolationLevel maps a config value onto a sql.IsolationLevel.
func ParseIsolationLevel(raw string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))) {
	case "", "serializable":
		return sql.LevelSerializable, nil
	case "repeatable read", "repeatable-read":
		return sql.LevelRepeatableRead, nil
	case "read committed", "read-committed":
		return sql.LevelReadCommitted, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", raw)
	}
}
