package models

import "time"

// Activity log action kinds.
const (
	ActionRegistration     = "member_registration"
	ActionMemberUpdate     = "member_update"
	ActionMemberDelete     = "member_delete"
	ActionStatusUpdate     = "status_update"
	ActionBulkStatusUpdate = "bulk_status_update"
	ActionDataExport       = "data_export"
	ActionLogin            = "login"
	ActionLogout           = "logout"
	ActionPasswordChange   = "password_change"
)

// ActivityLog is an append-only audit record. UserID is nil for anonymous
// public actions such as self-registration. Entries reference actors and
// entities by id only and survive deletion of the referenced rows.
type ActivityLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogDetail joins an entry with the acting user's display fields.
type ActivityLogDetail struct {
	ActivityLog
	Username *string `db:"username" json:"username,omitempty"`
	FullName *string `db:"full_name" json:"full_name,omitempty"`
}
