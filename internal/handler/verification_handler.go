package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// VerificationHandler exposes the review queue and decision endpoints.
type VerificationHandler struct {
	service *service.VerificationService
}

// NewVerificationHandler creates a new handler.
func NewVerificationHandler(svc *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{service: svc}
}

// Queue godoc
// @Summary Pending review queue
// @Description Pending, non-archived samples in submission order
// @Tags Verification
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /verification/queue [get]
func (h *VerificationHandler) Queue(c *gin.Context) {
	samples, err := h.service.Queue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, samples, nil)
}

// Approve godoc
// @Summary Approve a sample
// @Description Mark a pending sample as verified
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body models.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /samples/{id}/approve [post]
func (h *VerificationHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a sample
// @Description Mark a pending sample as rejected; remarks are mandatory
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body models.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /samples/{id}/reject [post]
func (h *VerificationHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *VerificationHandler) decide(c *gin.Context, fn func(ctx context.Context, actor service.Actor, sampleID string, req models.DecisionRequest) error) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	if err := fn(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id")}, nil)
}
