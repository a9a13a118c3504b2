package models

import "time"

// ActivityType constants enumerate the recorded activity kinds.
const (
	ActivitySubmitted  = "submitted"
	ActivityEdited     = "edited"
	ActivityApproved   = "approved"
	ActivityRejected   = "rejected"
	ActivityArchived   = "archived"
	ActivityUnarchived = "unarchived"
	ActivityDeleted    = "deleted"
	ActivityLogin      = "login"
	ActivityLogout     = "logout"
)

// ActivityLog is one append-only trail entry. User and sample references
// use SET NULL foreign keys so deleting either never erases history.
type ActivityLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	SampleID     *string   `db:"sample_id" json:"sample_id,omitempty"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ActivityEntry is the recent-activity view row: an activity log joined
// with the acting user's name and role and the sample's rock id when the
// references still resolve.
type ActivityEntry struct {
	ID           string    `db:"id" json:"id"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	Description  string    `db:"description" json:"description"`
	UserName     *string   `db:"user_name" json:"user_name,omitempty"`
	UserRole     *UserRole `db:"user_role" json:"user_role,omitempty"`
	RockID       *string   `db:"rock_id" json:"rock_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ActivityFilter narrows activity listings on the admin log screen.
type ActivityFilter struct {
	ActivityType string
	UserID       string
	SampleID     string
	Page         int
	PageSize     int
}
