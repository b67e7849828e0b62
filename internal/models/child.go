package models

import "time"

// Child is a dependent associated with exactly one member. Rows are removed
// by the database cascade when the parent member is deleted.
type Child struct {
	ID              string     `db:"id" json:"id"`
	ParentID        string     `db:"parent_id" json:"parent_id"`
	Name            string     `db:"name" json:"name"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	ParentalConsent bool       `db:"parental_consent" json:"parental_consent"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
