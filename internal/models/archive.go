package models

import "time"

// Archive marks a verified sample as excluded from default listings. It is
// an overlay: the sample row and its status stay untouched, and removing
// the archive row restores visibility.
type Archive struct {
	ID            string    `db:"id" json:"id"`
	SampleID      string    `db:"sample_id" json:"sample_id"`
	ArchivedBy    *string   `db:"archived_by" json:"archived_by,omitempty"`
	ArchiveReason string    `db:"archive_reason" json:"archive_reason"`
	ArchivedAt    time.Time `db:"archived_at" json:"archived_at"`
}

// ArchiveEntry is an archive row joined with its sample and the archiver's
// display name for listing screens.
type ArchiveEntry struct {
	ID             string    `db:"id" json:"id"`
	SampleID       string    `db:"sample_id" json:"sample_id"`
	RockID         string    `db:"rock_id" json:"rock_id"`
	RockType       string    `db:"rock_type" json:"rock_type"`
	LocationName   string    `db:"location_name" json:"location_name"`
	ArchivedByName *string   `db:"archived_by_name" json:"archived_by_name,omitempty"`
	ArchiveReason  string    `db:"archive_reason" json:"archive_reason"`
	ArchivedAt     time.Time `db:"archived_at" json:"archived_at"`
}

// ArchiveFilter narrows archive listings; OwnerID scopes students to
// archives of their own samples.
type ArchiveFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}
