package models

import "time"

// ApprovalAction enumerates verification decisions.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "approved"
	ActionRejected ApprovalAction = "rejected"
)

// ApprovalLog records one approve/reject decision. Rows are written only
// inside the approve/reject transitions and are never mutated.
type ApprovalLog struct {
	ID        string         `db:"id" json:"id"`
	UserID    *string        `db:"user_id" json:"user_id,omitempty"`
	SampleID  *string        `db:"sample_id" json:"sample_id,omitempty"`
	Action    ApprovalAction `db:"action" json:"action"`
	Remarks   string         `db:"remarks" json:"remarks"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
