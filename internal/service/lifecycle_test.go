package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/repository"
)

// registryStore backs the sample, verification, and archive services with
// one shared in-memory state so a full review flow can be walked end to
// end. Mutating methods mirror the transactional repositories: the primary
// write and its trail entry land together.
type registryStore struct {
	nextID    int
	order     []string
	samples   map[string]*models.RockSample
	archived  map[string]*models.Archive
	approvals []models.ApprovalLog
	trail     []string
}

func newRegistryStore() *registryStore {
	return &registryStore{
		samples:  map[string]*models.RockSample{},
		archived: map[string]*models.Archive{},
	}
}

func (s *registryStore) Create(ctx context.Context, sample *models.RockSample) error {
	s.nextID++
	sample.ID = fmt.Sprintf("sample-%d", s.nextID)
	sample.Status = models.StatusPending
	sample.Version = 1
	clone := *sample
	s.samples[sample.ID] = &clone
	s.order = append(s.order, sample.ID)
	s.trail = append(s.trail, "submitted")
	return nil
}

func (s *registryStore) FindByID(ctx context.Context, id string) (*models.RockSample, error) {
	if sample, ok := s.samples[id]; ok {
		clone := *sample
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registryStore) FindByRockID(ctx context.Context, rockID string) (*models.RockSample, error) {
	for _, sample := range s.samples {
		if sample.RockID == rockID {
			clone := *sample
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *registryStore) List(ctx context.Context, filter models.SampleFilter) ([]models.RockSample, int, error) {
	var out []models.RockSample
	for _, id := range s.order {
		sample, ok := s.samples[id]
		if !ok {
			continue
		}
		if _, hidden := s.archived[id]; hidden && !filter.IncludeArchived {
			continue
		}
		if filter.OwnerID != "" && sample.UserID != filter.OwnerID {
			continue
		}
		out = append(out, *sample)
	}
	return out, len(out), nil
}

func (s *registryStore) Update(ctx context.Context, sample *models.RockSample, prevStatus models.SampleStatus) error {
	stored, ok := s.samples[sample.ID]
	if !ok {
		return sql.ErrNoRows
	}
	clone := *sample
	clone.Version = stored.Version + 1
	s.samples[sample.ID] = &clone
	s.trail = append(s.trail, "edited")
	return nil
}

func (s *registryStore) Delete(ctx context.Context, id, rockID, actorID string) error {
	if _, ok := s.samples[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.samples, id)
	s.trail = append(s.trail, "deleted")
	return nil
}

func (s *registryStore) VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error) {
	var out []models.VerifiedSample
	for _, id := range s.order {
		sample, ok := s.samples[id]
		if !ok || sample.Status != models.StatusVerified {
			continue
		}
		if _, hidden := s.archived[id]; hidden {
			continue
		}
		out = append(out, models.VerifiedSample{ID: sample.ID, RockID: sample.RockID})
	}
	return out, nil
}

func (s *registryStore) PendingQueue(ctx context.Context) ([]models.PendingSample, error) {
	var out []models.PendingSample
	for _, id := range s.order {
		sample, ok := s.samples[id]
		if !ok || sample.Status != models.StatusPending {
			continue
		}
		out = append(out, models.PendingSample{ID: sample.ID, RockID: sample.RockID})
	}
	return out, nil
}

func (s *registryStore) decide(p repository.DecisionParams, status models.SampleStatus, action models.ApprovalAction) error {
	stored, ok := s.samples[p.SampleID]
	if !ok || stored.Version != p.Version {
		return sql.ErrNoRows
	}
	verifier := p.VerifierID
	stored.Status = status
	stored.VerifiedBy = &verifier
	stored.Version++
	s.approvals = append(s.approvals, models.ApprovalLog{
		SampleID: &p.SampleID,
		UserID:   &verifier,
		Action:   action,
		Remarks:  p.Remarks,
	})
	s.trail = append(s.trail, string(action))
	return nil
}

func (s *registryStore) Approve(ctx context.Context, p repository.DecisionParams) error {
	return s.decide(p, models.StatusVerified, models.ActionApproved)
}

func (s *registryStore) Reject(ctx context.Context, p repository.DecisionParams) error {
	return s.decide(p, models.StatusRejected, models.ActionRejected)
}

func (s *registryStore) ListBySample(ctx context.Context, sampleID string) ([]models.ApprovalLog, error) {
	var out []models.ApprovalLog
	for _, log := range s.approvals {
		if log.SampleID != nil && *log.SampleID == sampleID {
			out = append(out, log)
		}
	}
	return out, nil
}

// registryArchives exposes the archive overlay of the shared store under
// the archive repository method set.
type registryArchives struct{ *registryStore }

func (a registryArchives) Create(ctx context.Context, rec *models.Archive, rockID string) error {
	a.archived[rec.SampleID] = rec
	a.trail = append(a.trail, "archived")
	return nil
}

func (a registryArchives) Remove(ctx context.Context, sampleID, rockID, actorID string) error {
	if _, ok := a.archived[sampleID]; !ok {
		return sql.ErrNoRows
	}
	delete(a.archived, sampleID)
	a.trail = append(a.trail, "unarchived")
	return nil
}

func (a registryArchives) FindBySample(ctx context.Context, sampleID string) (*models.Archive, error) {
	if rec, ok := a.archived[sampleID]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (a registryArchives) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, error) {
	var out []models.ArchiveEntry
	for id := range a.archived {
		out = append(out, models.ArchiveEntry{SampleID: id})
	}
	return out, nil
}

func TestSampleLifecycleSubmitApproveArchive(t *testing.T) {
	store := newRegistryStore()
	archives := registryArchives{store}
	metrics := &counterStub{}

	sampleSvc := NewSampleService(store, &imageStoreStub{}, store, archives, metrics, nil, nil,
		UploadPolicy{MaxFileSizeBytes: 1024, AllowedMIMEs: []string{"image/png"}})
	reviewSvc := NewVerificationService(store, metrics, nil, nil, nil)
	archiveSvc := NewArchiveService(archives, store, metrics, nil, nil, nil)

	ctx := context.Background()
	student := Actor{ID: "student-1", Role: models.RoleStudent}
	reviewer := Actor{ID: "personnel-1", Role: models.RolePersonnel}
	admin := Actor{ID: "admin-1", Role: models.RoleAdmin}

	sample, err := sampleSvc.Submit(ctx, student, models.SampleCreateRequest{
		RockID:       "GRN-0100",
		RockType:     "granite",
		LocationName: "Batholith Ridge",
	}, []models.ImageUpload{{ImageType: models.ImageTypeSpecimen, FileName: "face.png", Data: pngHeader}})
	require.NoError(t, err)

	queue, err := reviewSvc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, sample.ID, queue[0].ID)

	err = reviewSvc.Approve(ctx, reviewer, sample.ID,
		models.DecisionRequest{Remarks: "looks good", Version: sample.Version})
	require.NoError(t, err)

	stored := store.samples[sample.ID]
	require.Equal(t, models.StatusVerified, stored.Status)
	require.NotNil(t, stored.VerifiedBy)
	require.Equal(t, reviewer.ID, *stored.VerifiedBy)
	require.Len(t, store.approvals, 1)
	require.Equal(t, models.ActionApproved, store.approvals[0].Action)

	// decided samples leave the queue
	queue, err = reviewSvc.Queue(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)

	err = archiveSvc.Archive(ctx, admin, sample.ID, models.ArchiveRequest{Reason: "superseded"})
	require.NoError(t, err)

	// archiving hides the sample without touching its status
	require.Equal(t, models.StatusVerified, store.samples[sample.ID].Status)
	listed, _, err := sampleSvc.List(ctx, admin, models.SampleFilter{})
	require.NoError(t, err)
	require.Empty(t, listed)

	detail, err := sampleSvc.Get(ctx, admin, sample.ID)
	require.NoError(t, err)
	require.True(t, detail.Archived)
	require.Len(t, detail.Approvals, 1)

	require.Equal(t, []string{"submitted", "approved", "archived"}, store.trail)
	require.Equal(t, 1, metrics.submitted)
	require.Equal(t, 1, metrics.approved)
	require.Equal(t, 1, metrics.archived)
}

func TestSampleLifecycleRejectLeavesNoArchive(t *testing.T) {
	store := newRegistryStore()
	archives := registryArchives{store}

	sampleSvc := NewSampleService(store, &imageStoreStub{}, store, archives, nil, nil, nil,
		UploadPolicy{MaxFileSizeBytes: 1024, AllowedMIMEs: []string{"image/png"}})
	reviewSvc := NewVerificationService(store, nil, nil, nil, nil)
	archiveSvc := NewArchiveService(archives, store, nil, nil, nil, nil)

	ctx := context.Background()
	sample, err := sampleSvc.Submit(ctx,
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleCreateRequest{RockID: "SLT-0200", RockType: "slate", LocationName: "Quarry East"},
		nil)
	require.NoError(t, err)

	err = reviewSvc.Reject(ctx, Actor{ID: "personnel-1", Role: models.RolePersonnel}, sample.ID,
		models.DecisionRequest{Remarks: "blurry coordinates", Version: sample.Version})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, store.samples[sample.ID].Status)

	// rejected samples never reach the archive overlay
	err = archiveSvc.Archive(ctx, Actor{ID: "admin-1", Role: models.RoleAdmin}, sample.ID,
		models.ArchiveRequest{Reason: "cleanup"})
	require.Equal(t, "PRECONDITION_FAILED", errorCode(t, err))
	require.Empty(t, store.archived)
	require.Equal(t, []string{"submitted", "rejected"}, store.trail)
}
