package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// SampleHandler wires HTTP endpoints to the sample service.
type SampleHandler struct {
	service *service.SampleService
}

// NewSampleHandler creates a new handler.
func NewSampleHandler(svc *service.SampleService) *SampleHandler {
	return &SampleHandler{service: svc}
}

// Submit godoc
// @Summary Submit a rock sample
// @Description Create a pending sample with optional specimen and outcrop images
// @Tags Samples
// @Accept multipart/form-data
// @Produce json
// @Param metadata formData string true "Sample payload as JSON"
// @Param rock_specimen formData file false "Specimen photograph"
// @Param outcrop formData file false "Outcrop photograph"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /samples [post]
func (h *SampleHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SampleCreateRequest
	metadata := c.PostForm("metadata")
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sample metadata"))
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sample payload"))
		return
	}

	uploads, err := collectUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	sample, err := h.service.Submit(c.Request.Context(), actor, req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, sample)
}

// List godoc
// @Summary List rock samples
// @Description Filtered, paginated listing; students only see their own
// @Tags Samples
// @Produce json
// @Param status query string false "Status filter"
// @Param rock_type query string false "Rock type filter"
// @Param search query string false "Search in rock id, location, formation"
// @Param include_archived query bool false "Include archived samples (staff only)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /samples [get]
func (h *SampleHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.SampleFilter{
		Status:          models.SampleStatus(c.Query("status")),
		RockType:        c.Query("rock_type"),
		Search:          c.Query("search"),
		IncludeArchived: c.Query("include_archived") == "true",
		Page:            intQuery(c, "page", 1),
		PageSize:        intQuery(c, "page_size", 20),
		SortBy:          c.Query("sort_by"),
		SortOrder:       c.Query("sort_order"),
	}

	samples, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, samples, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Sample detail
// @Description Full sample record with image metadata and decision history
// @Tags Samples
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /samples/{id} [get]
func (h *SampleHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit a sample
// @Description Version-guarded edit; students only while pending
// @Tags Samples
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body models.SampleUpdateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /samples/{id} [put]
func (h *SampleHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SampleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	sample, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sample, nil)
}

// Delete godoc
// @Summary Delete a sample
// @Description Permanently remove a sample and its images
// @Tags Samples
// @Produce json
// @Param id path string true "Sample ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /samples/{id} [delete]
func (h *SampleHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Verified godoc
// @Summary Verified samples
// @Description Verified, non-archived samples with submitter and verifier names
// @Tags Samples
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /samples/verified [get]
func (h *SampleHandler) Verified(c *gin.Context) {
	samples, err := h.service.Verified(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, samples, nil)
}

func collectUploads(c *gin.Context) ([]models.ImageUpload, error) {
	uploads := []models.ImageUpload{}
	for _, imageType := range []models.ImageType{models.ImageTypeSpecimen, models.ImageTypeOutcrop} {
		fileHeader, err := c.FormFile(string(imageType))
		if err != nil {
			continue
		}
		data, err := readUpload(fileHeader)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file")
		}
		uploads = append(uploads, models.ImageUpload{
			ImageType: imageType,
			FileName:  fileHeader.Filename,
			Data:      data,
		})
	}
	return uploads, nil
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
