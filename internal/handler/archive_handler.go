package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// ArchiveHandler exposes archive and restore endpoints.
type ArchiveHandler struct {
	service *service.ArchiveService
}

// NewArchiveHandler creates a new handler.
func NewArchiveHandler(svc *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

// Archive godoc
// @Summary Archive a sample
// @Description Hide a verified sample from default views without deleting it
// @Tags Archives
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body models.ArchiveRequest true "Archive reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /samples/{id}/archive [post]
func (h *ArchiveHandler) Archive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid archive payload"))
		return
	}

	if err := h.service.Archive(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id")}, nil)
}

// Unarchive godoc
// @Summary Restore an archived sample
// @Description Remove the archive overlay so the sample reappears in default views
// @Tags Archives
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /samples/{id}/archive [delete]
func (h *ArchiveHandler) Unarchive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unarchive(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id")}, nil)
}

// List godoc
// @Summary List archived samples
// @Description Archive entries with sample and archiver details
// @Tags Archives
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /archives [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ArchiveFilter{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}

	entries, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}
