package models

import "time"

// UserType is the specialization a user owns. It doubles as the RBAC role.
type UserType string

const (
	UserTypeAdmin   UserType = "admin"
	UserTypeFaculty UserType = "faculty"
	UserTypeStudent UserType = "student"
)

// User represents an account stored in the users table. Username and email
// are unique case-insensitively; email is stored lower-case.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     *string   `db:"last_name" json:"last_name,omitempty"`
	UserType     UserType  `db:"user_type" json:"user_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
