package models

import "time"

// Student is the specialization record for UserTypeStudent; UserID is both
// primary key and foreign key to users.
type Student struct {
	UserID         string    `db:"user_id" json:"user_id"`
	RollNumber     string    `db:"roll_number" json:"roll_number"`
	EnrollmentYear int       `db:"enrollment_year" json:"enrollment_year"`
	Major          string    `db:"major" json:"major"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
