package models

// DashboardStats aggregates the counters shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers      int `db:"total_users" json:"total_users"`
	TotalStudents   int `db:"total_students" json:"total_students"`
	TotalPersonnel  int `db:"total_personnel" json:"total_personnel"`
	TotalSamples    int `db:"total_samples" json:"total_samples"`
	VerifiedSamples int `db:"verified_samples" json:"verified_samples"`
	PendingSamples  int `db:"pending_samples" json:"pending_samples"`
	RejectedSamples int `db:"rejected_samples" json:"rejected_samples"`
	ArchivedSamples int `db:"archived_samples" json:"archived_samples"`
}
