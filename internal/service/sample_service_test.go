package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type sampleRepoStub struct {
	byID      map[string]*models.RockSample
	byRockID  map[string]*models.RockSample
	created   []*models.RockSample
	updated   []*models.RockSample
	updateErr error
	filter    models.SampleFilter
	verified  []models.VerifiedSample
}

func newSampleRepoStub() *sampleRepoStub {
	return &sampleRepoStub{
		byID:     map[string]*models.RockSample{},
		byRockID: map[string]*models.RockSample{},
	}
}

func (r *sampleRepoStub) add(sample *models.RockSample) {
	r.byID[sample.ID] = sample
	r.byRockID[sample.RockID] = sample
}

func (r *sampleRepoStub) Create(ctx context.Context, sample *models.RockSample) error {
	sample.ID = "sample-new"
	sample.Status = models.StatusPending
	sample.Version = 1
	r.created = append(r.created, sample)
	r.add(sample)
	return nil
}

func (r *sampleRepoStub) FindByID(ctx context.Context, id string) (*models.RockSample, error) {
	if sample, ok := r.byID[id]; ok {
		copied := *sample
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *sampleRepoStub) FindByRockID(ctx context.Context, rockID string) (*models.RockSample, error) {
	if sample, ok := r.byRockID[rockID]; ok {
		copied := *sample
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *sampleRepoStub) List(ctx context.Context, filter models.SampleFilter) ([]models.RockSample, int, error) {
	r.filter = filter
	return nil, 0, nil
}

func (r *sampleRepoStub) Update(ctx context.Context, sample *models.RockSample, prevStatus models.SampleStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, sample)
	return nil
}

func (r *sampleRepoStub) Delete(ctx context.Context, id, rockID, actorID string) error {
	if _, ok := r.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *sampleRepoStub) VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error) {
	return r.verified, nil
}

type imageStoreStub struct {
	created []*models.Image
}

func (s *imageStoreStub) Create(ctx context.Context, image *models.Image) error {
	s.created = append(s.created, image)
	return nil
}

func (s *imageStoreStub) MetaBySample(ctx context.Context, sampleID string) ([]models.ImageMeta, error) {
	return nil, nil
}

type approvalReaderStub struct{}

func (approvalReaderStub) ListBySample(ctx context.Context, sampleID string) ([]models.ApprovalLog, error) {
	return nil, nil
}

type archiveReaderStub struct{ archived bool }

func (s archiveReaderStub) FindBySample(ctx context.Context, sampleID string) (*models.Archive, error) {
	if s.archived {
		return &models.Archive{SampleID: sampleID}, nil
	}
	return nil, sql.ErrNoRows
}

func newSampleService(repo *sampleRepoStub, images *imageStoreStub, metrics *counterStub) *SampleService {
	return NewSampleService(repo, images, approvalReaderStub{}, archiveReaderStub{}, metrics, nil, nil,
		UploadPolicy{MaxFileSizeBytes: 1024, AllowedMIMEs: []string{"image/png"}})
}

func TestSampleServiceSubmit(t *testing.T) {
	repo := newSampleRepoStub()
	images := &imageStoreStub{}
	metrics := &counterStub{}
	svc := newSampleService(repo, images, metrics)

	sample, err := svc.Submit(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleCreateRequest{
			RockID:       "BSK-0001",
			RockType:     "basalt",
			LocationName: "Mount Batur",
		},
		[]models.ImageUpload{{ImageType: models.ImageTypeSpecimen, FileName: "rock.png", Data: pngHeader}})
	require.NoError(t, err)
	require.Equal(t, "student-1", sample.UserID)
	require.Equal(t, models.StatusPending, sample.Status)
	require.Len(t, images.created, 1)
	require.Equal(t, "image/png", images.created[0].MimeType)
	require.Equal(t, sample.ID, images.created[0].SampleID)
	require.Equal(t, 1, metrics.submitted)
}

func TestSampleServiceSubmitDuplicateRockID(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{ID: "sample-1", RockID: "BSK-0001"})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	_, err := svc.Submit(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleCreateRequest{RockID: "BSK-0001", RockType: "basalt", LocationName: "Batur"},
		nil)
	require.Equal(t, "CONFLICT", errorCode(t, err))
	require.Empty(t, repo.created)
}

func TestSampleServiceSubmitRejectsNonImagePayload(t *testing.T) {
	svc := newSampleService(newSampleRepoStub(), &imageStoreStub{}, nil)

	_, err := svc.Submit(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleCreateRequest{RockID: "BSK-0002", RockType: "basalt", LocationName: "Batur"},
		[]models.ImageUpload{{ImageType: models.ImageTypeSpecimen, FileName: "notes.txt", Data: []byte("just text")}})
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, err))
}

func TestSampleServiceSubmitRejectsOversizedImage(t *testing.T) {
	svc := newSampleService(newSampleRepoStub(), &imageStoreStub{}, nil)

	big := append([]byte{}, pngHeader...)
	big = append(big, make([]byte, 2048)...)
	_, err := svc.Submit(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleCreateRequest{RockID: "BSK-0003", RockType: "basalt", LocationName: "Batur"},
		[]models.ImageUpload{{ImageType: models.ImageTypeOutcrop, FileName: "big.png", Data: big}})
	require.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(t, err))
}

func TestSampleServiceListScopesStudents(t *testing.T) {
	repo := newSampleRepoStub()
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	_, _, err := svc.List(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent},
		models.SampleFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Equal(t, "student-1", repo.filter.OwnerID)
	require.False(t, repo.filter.IncludeArchived)
}

func TestSampleServiceGetForbiddenForOtherStudent(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{ID: "sample-1", UserID: "student-1"})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	_, err := svc.Get(context.Background(), Actor{ID: "student-2", Role: models.RoleStudent}, "sample-1")
	require.Equal(t, "FORBIDDEN", errorCode(t, err))

	detail, err := svc.Get(context.Background(), Actor{ID: "staff-1", Role: models.RolePersonnel}, "sample-1")
	require.NoError(t, err)
	require.Equal(t, "sample-1", detail.Sample.ID)
}

func TestSampleServiceUpdateStaleVersion(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:      "sample-1",
		UserID:  "student-1",
		RockID:  "BSK-0001",
		Status:  models.StatusPending,
		Version: 3,
	})
	repo.updateErr = sql.ErrNoRows
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	desc := "updated description"
	_, err := svc.Update(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent}, "sample-1",
		models.SampleUpdateRequest{Description: &desc, Version: 2})
	require.Equal(t, "CONFLICT", errorCode(t, err))
}

func TestSampleServiceStudentCannotEditVerified(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:      "sample-1",
		UserID:  "student-1",
		Status:  models.StatusVerified,
		Version: 2,
	})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	desc := "tweak"
	_, err := svc.Update(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent}, "sample-1",
		models.SampleUpdateRequest{Description: &desc, Version: 2})
	require.Equal(t, "PRECONDITION_FAILED", errorCode(t, err))
}

func TestSampleServiceStatusEditSetsVerifier(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:      "sample-1",
		UserID:  "student-1",
		RockID:  "BSK-0001",
		Status:  models.StatusPending,
		Version: 1,
	})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	status := "verified"
	updated, err := svc.Update(context.Background(),
		Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.SampleUpdateRequest{Status: &status, Version: 1})
	require.NoError(t, err)
	require.Equal(t, models.StatusVerified, updated.Status)
	require.NotNil(t, updated.VerifiedBy)
	require.Equal(t, "admin-1", *updated.VerifiedBy)
}

func TestSampleServiceStatusEditBackToPendingClearsVerifier(t *testing.T) {
	verifier := "personnel-1"
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:         "sample-1",
		UserID:     "student-1",
		RockID:     "BSK-0001",
		Status:     models.StatusVerified,
		VerifiedBy: &verifier,
		Version:    2,
	})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	status := "pending"
	updated, err := svc.Update(context.Background(),
		Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.SampleUpdateRequest{Status: &status, Version: 2})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, updated.Status)
	require.Nil(t, updated.VerifiedBy)
}

func TestSampleServiceStatusEditKeepsOriginalVerifier(t *testing.T) {
	verifier := "personnel-1"
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:         "sample-1",
		UserID:     "student-1",
		RockID:     "BSK-0001",
		Status:     models.StatusVerified,
		VerifiedBy: &verifier,
		Version:    2,
	})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	status := "rejected"
	updated, err := svc.Update(context.Background(),
		Actor{ID: "admin-1", Role: models.RoleAdmin}, "sample-1",
		models.SampleUpdateRequest{Status: &status, Version: 2})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.Equal(t, "personnel-1", *updated.VerifiedBy)
}

func TestSampleServiceStudentCannotChangeStatus(t *testing.T) {
	repo := newSampleRepoStub()
	repo.add(&models.RockSample{
		ID:      "sample-1",
		UserID:  "student-1",
		Status:  models.StatusPending,
		Version: 1,
	})
	svc := newSampleService(repo, &imageStoreStub{}, nil)

	status := "verified"
	_, err := svc.Update(context.Background(),
		Actor{ID: "student-1", Role: models.RoleStudent}, "sample-1",
		models.SampleUpdateRequest{Status: &status, Version: 1})
	require.Equal(t, "FORBIDDEN", errorCode(t, err))
}
