package models

// SampleCreateRequest is the submission payload. Images travel separately
// as multipart parts.
type SampleCreateRequest struct {
	RockIndex    string   `json:"rock_index"`
	RockID       string   `json:"rock_id" validate:"required"`
	RockType     string   `json:"rock_type" validate:"required"`
	Formation    string   `json:"formation"`
	Description  string   `json:"description"`
	OutcropID    string   `json:"outcrop_id"`
	LocationName string   `json:"location_name" validate:"required"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// SampleUpdateRequest edits an existing sample. Version carries the
// optimistic-lock counter the client last read.
type SampleUpdateRequest struct {
	RockIndex    *string  `json:"rock_index"`
	RockID       *string  `json:"rock_id"`
	RockType     *string  `json:"rock_type"`
	Formation    *string  `json:"formation"`
	Description  *string  `json:"description"`
	OutcropID    *string  `json:"outcrop_id"`
	LocationName *string  `json:"location_name"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Status       *string  `json:"status"`
	Version      int      `json:"version" validate:"required,min=1"`
}

// DecisionRequest is the approve/reject payload. Remarks are required when
// rejecting so the submitter learns why.
type DecisionRequest struct {
	Remarks string `json:"remarks"`
	Version int    `json:"version" validate:"required,min=1"`
}

// ArchiveRequest archives a verified sample.
type ArchiveRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SampleDetail bundles a sample with its image metadata and decision
// history for the detail screen.
type SampleDetail struct {
	Sample    RockSample    `json:"sample"`
	Images    []ImageMeta   `json:"images"`
	Approvals []ApprovalLog `json:"approvals"`
	Archived  bool          `json:"archived"`
}
