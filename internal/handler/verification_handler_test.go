package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/webgis-caps/rocksample-api/internal/middleware"
	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/repository"
	"github.com/webgis-caps/rocksample-api/internal/service"
)

type verificationRepoMock struct {
	sample   *models.RockSample
	queue    []models.PendingSample
	approved []repository.DecisionParams
	rejected []repository.DecisionParams
}

func (m *verificationRepoMock) FindByID(ctx context.Context, id string) (*models.RockSample, error) {
	if m.sample == nil || m.sample.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *m.sample
	return &clone, nil
}

func (m *verificationRepoMock) PendingQueue(ctx context.Context) ([]models.PendingSample, error) {
	return m.queue, nil
}

func (m *verificationRepoMock) Approve(ctx context.Context, p repository.DecisionParams) error {
	m.approved = append(m.approved, p)
	return nil
}

func (m *verificationRepoMock) Reject(ctx context.Context, p repository.DecisionParams) error {
	m.rejected = append(m.rejected, p)
	return nil
}

func staffContext(t *testing.T, w *httptest.ResponseRecorder, method, path string, body []byte) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c
}

func newVerificationHandler(repo *verificationRepoMock) *VerificationHandler {
	svc := service.NewVerificationService(repo, nil, nil, nil, nil)
	return NewVerificationHandler(svc)
}

func TestVerificationHandlerApprove(t *testing.T) {
	repo := &verificationRepoMock{
		sample: &models.RockSample{ID: "sample-1", RockID: "GRN-001", Status: models.StatusPending, Version: 2},
	}
	handler := newVerificationHandler(repo)

	w := httptest.NewRecorder()
	c := staffContext(t, w, http.MethodPost, "/samples/sample-1/approve",
		[]byte(`{"remarks":"looks good","version":2}`))
	c.Params = gin.Params{{Key: "id", Value: "sample-1"}}

	handler.Approve(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.approved, 1)
	require.Equal(t, "sample-1", repo.approved[0].SampleID)
	require.Equal(t, "admin-1", repo.approved[0].VerifierID)
	require.Equal(t, 2, repo.approved[0].Version)
}

func TestVerificationHandlerRejectRequiresRemarks(t *testing.T) {
	repo := &verificationRepoMock{
		sample: &models.RockSample{ID: "sample-1", Status: models.StatusPending, Version: 1},
	}
	handler := newVerificationHandler(repo)

	w := httptest.NewRecorder()
	c := staffContext(t, w, http.MethodPost, "/samples/sample-1/reject",
		[]byte(`{"version":1}`))
	c.Params = gin.Params{{Key: "id", Value: "sample-1"}}

	handler.Reject(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.rejected)
}

func TestVerificationHandlerApproveNonPending(t *testing.T) {
	repo := &verificationRepoMock{
		sample: &models.RockSample{ID: "sample-1", Status: models.StatusVerified, Version: 3},
	}
	handler := newVerificationHandler(repo)

	w := httptest.NewRecorder()
	c := staffContext(t, w, http.MethodPost, "/samples/sample-1/approve",
		[]byte(`{"remarks":"again","version":3}`))
	c.Params = gin.Params{{Key: "id", Value: "sample-1"}}

	handler.Approve(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	require.Empty(t, repo.approved)
}

func TestVerificationHandlerQueue(t *testing.T) {
	repo := &verificationRepoMock{
		queue: []models.PendingSample{
			{ID: "sample-1", RockID: "GRN-001"},
			{ID: "sample-2", RockID: "BSL-002"},
		},
	}
	handler := newVerificationHandler(repo)

	w := httptest.NewRecorder()
	c := staffContext(t, w, http.MethodGet, "/verification/queue", nil)

	handler.Queue(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.PendingSample `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	require.Equal(t, "GRN-001", envelope.Data[0].RockID)
}

func TestVerificationHandlerMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newVerificationHandler(&verificationRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/samples/sample-1/approve",
		bytes.NewReader([]byte(`{"version":1}`)))
	require.NoError(t, err)
	c.Request = req

	handler.Approve(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
