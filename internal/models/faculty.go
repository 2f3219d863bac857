package models

import "time"

// Faculty is the specialization record for UserTypeFaculty.
type Faculty struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Department string    `db:"department" json:"department"`
	Position   string    `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
