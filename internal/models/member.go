package models

import "time"

// MemberStatus enumerates membership lifecycle states.
type MemberStatus string

const (
	StatusNewMember MemberStatus = "new_member"
	StatusActive    MemberStatus = "active"
	StatusInactive  MemberStatus = "inactive"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s MemberStatus) bool {
	switch s {
	case StatusNewMember, StatusActive, StatusInactive:
		return true
	}
	return false
}

// RegistrationMethod marks how a member record entered the system.
const (
	RegistrationOnline = "online"
	RegistrationImport = "import"
)

// MaritalStatus values accepted on registration.
var MaritalStatuses = map[string]bool{
	"single":   true,
	"married":  true,
	"divorced": true,
	"widowed":  true,
}

// Member represents a registered individual in the church directory.
type Member struct {
	ID                 string       `db:"id" json:"id"`
	FirstName          string       `db:"first_name" json:"first_name"`
	LastName           string       `db:"last_name" json:"last_name"`
	Email              string       `db:"email" json:"email"`
	Phone              string       `db:"phone" json:"phone"`
	DateOfBirth        time.Time    `db:"date_of_birth" json:"date_of_birth"`
	StreetAddress      string       `db:"street_address" json:"street_address"`
	City               string       `db:"city" json:"city"`
	State              string       `db:"state" json:"state"`
	ZipCode            string       `db:"zip_code" json:"zip_code"`
	BaptismDate        *time.Time   `db:"baptism_date" json:"baptism_date,omitempty"`
	MaritalStatus      *string      `db:"marital_status" json:"marital_status,omitempty"`
	SpouseName         *string      `db:"spouse_name" json:"spouse_name,omitempty"`
	ReferralSource     *string      `db:"referral_source" json:"referral_source,omitempty"`
	PhotoConsent       bool         `db:"photo_consent" json:"photo_consent"`
	SocialMediaConsent bool         `db:"social_media_consent" json:"social_media_consent"`
	EmailConsent       bool         `db:"email_consent" json:"email_consent"`
	Status             MemberStatus `db:"member_status" json:"member_status"`
	RegistrationMethod string       `db:"registration_method" json:"registration_method"`
	JoinDate           time.Time    `db:"join_date" json:"join_date"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// MemberFilter captures allowed search parameters for listing members.
type MemberFilter struct {
	Search    string
	Status    MemberStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MemberSummary is a member row with its dependent children count.
type MemberSummary struct {
	Member
	ChildrenCount int `db:"children_count" json:"children_count"`
}

// MemberDetail is a member with its children loaded.
type MemberDetail struct {
	Member
	Children []Child `json:"children"`
}
