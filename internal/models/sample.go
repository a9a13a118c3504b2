package models

import "time"

// SampleStatus enumerates the review states of a rock sample.
type SampleStatus string

const (
	StatusPending  SampleStatus = "pending"
	StatusVerified SampleStatus = "verified"
	StatusRejected SampleStatus = "rejected"
)

// Valid reports whether the status is one of the known literals.
func (s SampleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// RockSample is a submitted geological specimen record. RockID is the
// human-assigned natural key; ID is the surrogate key everything else
// references. VerifiedBy is set exactly once status has left pending
// through an approve/reject transition. Version is an optimistic-lock
// counter bumped by every mutation.
type RockSample struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	RockIndex    string       `db:"rock_index" json:"rock_index"`
	RockID       string       `db:"rock_id" json:"rock_id"`
	RockType     string       `db:"rock_type" json:"rock_type"`
	Formation    string       `db:"formation" json:"formation"`
	Description  string       `db:"description" json:"description"`
	OutcropID    string       `db:"outcrop_id" json:"outcrop_id"`
	LocationName string       `db:"location_name" json:"location_name"`
	Latitude     *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64     `db:"longitude" json:"longitude,omitempty"`
	Status       SampleStatus `db:"status" json:"status"`
	VerifiedBy   *string      `db:"verified_by" json:"verified_by,omitempty"`
	Version      int          `db:"version" json:"version"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// SampleFilter narrows sample listings. Archived samples are excluded
// unless IncludeArchived is set; OwnerID scopes the listing to a submitter.
type SampleFilter struct {
	Status          SampleStatus
	RockType        string
	OwnerID         string
	Search          string
	IncludeArchived bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// VerifiedSample is the verified-samples-with-names view row: a verified,
// non-archived sample joined with submitter and verifier display names.
type VerifiedSample struct {
	ID            string    `db:"id" json:"id"`
	RockID        string    `db:"rock_id" json:"rock_id"`
	RockType      string    `db:"rock_type" json:"rock_type"`
	Formation     string    `db:"formation" json:"formation"`
	LocationName  string    `db:"location_name" json:"location_name"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	SubmittedBy   string    `db:"submitted_by" json:"submitted_by"`
	VerifiedBy    string    `db:"verified_by" json:"verified_by"`
	SubmittedAt   time.Time `db:"submitted_at" json:"submitted_at"`
	LastUpdatedAt time.Time `db:"last_updated_at" json:"last_updated_at"`
}

// PendingSample is the pending-queue view row, ordered oldest first so the
// verification panel works through submissions in FIFO order.
type PendingSample struct {
	ID           string    `db:"id" json:"id"`
	RockID       string    `db:"rock_id" json:"rock_id"`
	RockType     string    `db:"rock_type" json:"rock_type"`
	LocationName string    `db:"location_name" json:"location_name"`
	SubmittedBy  string    `db:"submitted_by" json:"submitted_by"`
	SchoolID     *string   `db:"school_id" json:"school_id,omitempty"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// MapMarker is one verified specimen plotted on the interactive map.
type MapMarker struct {
	SampleID     string    `db:"sample_id" json:"sample_id"`
	RockID       string    `db:"rock_id" json:"rock_id"`
	RockType     string    `db:"rock_type" json:"rock_type"`
	LocationName string    `db:"location_name" json:"location_name"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	SubmittedBy  string    `db:"submitted_by" json:"submitted_by"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// LocationAggregate summarises verified specimens per location for the
// map's clustered city markers.
type LocationAggregate struct {
	LocationName  string  `db:"location_name" json:"location_name"`
	SpecimenCount int     `db:"specimen_count" json:"specimen_count"`
	AvgLatitude   float64 `db:"avg_latitude" json:"avg_latitude"`
	AvgLongitude  float64 `db:"avg_longitude" json:"avg_longitude"`
}
