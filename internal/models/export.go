package models

import "time"

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusFinished   ExportStatus = "finished"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob tracks one asynchronous export of the verified-samples dataset.
// Jobs live in memory for the lifetime of the process; the rendered file
// itself sits on disk behind a signed download token.
type ExportJob struct {
	ID           string       `json:"id"`
	Format       ExportFormat `json:"format"`
	Status       ExportStatus `json:"status"`
	RequestedBy  string       `json:"requested_by"`
	DownloadURL  *string      `json:"download_url,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}
