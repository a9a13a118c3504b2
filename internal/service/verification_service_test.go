package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/repository"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type verificationRepoStub struct {
	sample     *models.RockSample
	queue      []models.PendingSample
	approveErr error
	rejectErr  error
	approved   []repository.DecisionParams
	rejected   []repository.DecisionParams
}

func (r *verificationRepoStub) FindByID(ctx context.Context, id string) (*models.RockSample, error) {
	if r.sample == nil || r.sample.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *r.sample
	return &copied, nil
}

func (r *verificationRepoStub) PendingQueue(ctx context.Context) ([]models.PendingSample, error) {
	return r.queue, nil
}

func (r *verificationRepoStub) Approve(ctx context.Context, p repository.DecisionParams) error {
	if r.approveErr != nil {
		return r.approveErr
	}
	r.approved = append(r.approved, p)
	return nil
}

func (r *verificationRepoStub) Reject(ctx context.Context, p repository.DecisionParams) error {
	if r.rejectErr != nil {
		return r.rejectErr
	}
	r.rejected = append(r.rejected, p)
	return nil
}

type counterStub struct {
	submitted, approved, rejected, archived int
	exports                                 []string
}

func (c *counterStub) SampleSubmitted()              { c.submitted++ }
func (c *counterStub) SampleApproved()               { c.approved++ }
func (c *counterStub) SampleRejected()               { c.rejected++ }
func (c *counterStub) SampleArchived()               { c.archived++ }
func (c *counterStub) ExportGenerated(format string) { c.exports = append(c.exports, format) }

type cacheStub struct {
	deleted []string
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	return nil
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestVerificationServiceApprove(t *testing.T) {
	repo := &verificationRepoStub{sample: &models.RockSample{
		ID:      "sample-1",
		RockID:  "BSK-0001",
		Status:  models.StatusPending,
		Version: 2,
	}}
	metrics := &counterStub{}
	cache := &cacheStub{}
	svc := NewVerificationService(repo, metrics, cache, nil, nil)

	err := svc.Approve(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.DecisionRequest{Remarks: "well documented", Version: 2})
	require.NoError(t, err)
	require.Len(t, repo.approved, 1)
	require.Equal(t, "admin-1", repo.approved[0].VerifierID)
	require.Equal(t, 2, repo.approved[0].Version)
	require.Equal(t, 1, metrics.approved)
	require.Contains(t, cache.deleted, "dashboard:*")
	require.Contains(t, cache.deleted, "map:*")
}

func TestVerificationServiceApproveNonPending(t *testing.T) {
	repo := &verificationRepoStub{sample: &models.RockSample{
		ID:      "sample-1",
		Status:  models.StatusVerified,
		Version: 3,
	}}
	svc := NewVerificationService(repo, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.DecisionRequest{Version: 3})
	require.Equal(t, "PRECONDITION_FAILED", errorCode(t, err))
	require.Empty(t, repo.approved)
}

func TestVerificationServiceRejectRequiresRemarks(t *testing.T) {
	repo := &verificationRepoStub{sample: &models.RockSample{
		ID:      "sample-1",
		Status:  models.StatusPending,
		Version: 1,
	}}
	svc := NewVerificationService(repo, nil, nil, nil, nil)

	err := svc.Reject(context.Background(), Actor{ID: "staff-1", Role: models.RolePersonnel}, "sample-1",
		models.DecisionRequest{Version: 1})
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, err))
	require.Empty(t, repo.rejected)
}

func TestVerificationServiceStaleVersionConflict(t *testing.T) {
	repo := &verificationRepoStub{
		sample:     &models.RockSample{ID: "sample-1", Status: models.StatusPending, Version: 5},
		approveErr: sql.ErrNoRows,
	}
	metrics := &counterStub{}
	svc := NewVerificationService(repo, metrics, nil, nil, nil)

	err := svc.Approve(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.DecisionRequest{Version: 4})
	require.Equal(t, "CONFLICT", errorCode(t, err))
	require.Zero(t, metrics.approved)
}

func TestVerificationServiceQueue(t *testing.T) {
	repo := &verificationRepoStub{queue: []models.PendingSample{
		{ID: "sample-1", RockID: "BSK-0001"},
		{ID: "sample-2", RockID: "GRN-0002"},
	}}
	svc := NewVerificationService(repo, nil, nil, nil, nil)

	queue, err := svc.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 2)
	require.Equal(t, "BSK-0001", queue[0].RockID)
}
