package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/pkg/storage"
)

type exportReaderStub struct {
	samples []models.VerifiedSample
}

func (r exportReaderStub) VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error) {
	return r.samples, nil
}

func newExportService(t *testing.T, reader exportReaderStub) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test_secret", time.Minute)
	return NewExportService(reader, store, signer, &counterStub{}, nil, 1, 1)
}

func waitForJob(t *testing.T, svc *ExportService, actor Actor, jobID string) *models.ExportJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Status(context.Background(), actor, jobID)
		require.NoError(t, err)
		if job.Status == models.ExportStatusFinished || job.Status == models.ExportStatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("export job did not finish in time")
	return nil
}

func TestExportServiceCSVRoundTrip(t *testing.T) {
	lat, lon := 8.24, 115.38
	svc := newExportService(t, exportReaderStub{samples: []models.VerifiedSample{{
		RockID:       "BSK-0001",
		RockType:     "basalt",
		Formation:    "Batur Formation",
		LocationName: "Mount Batur",
		Latitude:     &lat,
		Longitude:    &lon,
		SubmittedBy:  "Ana Reyes",
		VerifiedBy:   "Admin One",
		SubmittedAt:  time.Now(),
	}}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	actor := Actor{ID: "admin-1", Role: models.RoleAdmin}
	job, err := svc.Enqueue(ctx, actor, models.ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, job.Status)

	finished := waitForJob(t, svc, actor, job.ID)
	require.Equal(t, models.ExportStatusFinished, finished.Status)
	require.NotNil(t, finished.DownloadURL)
	require.NotNil(t, finished.ExpiresAt)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(t, exportReaderStub{})

	_, err := svc.Enqueue(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "xlsx")
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, err))
}

func TestExportServiceStatusScopedToRequester(t *testing.T) {
	svc := newExportService(t, exportReaderStub{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	owner := Actor{ID: "staff-1", Role: models.RolePersonnel}
	job, err := svc.Enqueue(ctx, owner, models.ExportFormatPDF)
	require.NoError(t, err)

	_, err = svc.Status(ctx, Actor{ID: "student-1", Role: models.RoleStudent}, job.ID)
	require.Equal(t, "FORBIDDEN", errorCode(t, err))

	_, err = svc.Status(ctx, Actor{ID: "admin-1", Role: models.RoleAdmin}, job.ID)
	require.NoError(t, err)
}

func TestBuildVerifiedDataset(t *testing.T) {
	dataset := buildVerifiedDataset([]models.VerifiedSample{{
		RockID:       "BSK-0001",
		RockType:     "basalt",
		LocationName: "Mount Batur",
		SubmittedAt:  time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}})
	require.Len(t, dataset.Rows, 1)
	require.Len(t, dataset.Rows[0], len(dataset.Columns))
	require.Equal(t, "BSK-0001", dataset.Rows[0][0])
	require.Empty(t, dataset.Rows[0][4])
}
