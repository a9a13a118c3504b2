package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// ImageHandler serves sample photographs.
type ImageHandler struct {
	service *service.ImageService
}

// NewImageHandler creates a new handler.
func NewImageHandler(svc *service.ImageService) *ImageHandler {
	return &ImageHandler{service: svc}
}

// Get godoc
// @Summary Fetch an image
// @Description Raw image bytes with the stored content type
// @Tags Images
// @Produce octet-stream
// @Param id path string true "Image ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /images/{id} [get]
func (h *ImageHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	image, err := h.service.Fetch(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	serveImage(c, image)
}

// GetBySlot godoc
// @Summary Fetch a sample image by slot
// @Description Raw image bytes for a sample's specimen or outcrop slot
// @Tags Images
// @Produce octet-stream
// @Param id path string true "Sample ID"
// @Param type path string true "Image type (rock_specimen or outcrop)"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /samples/{id}/images/{type} [get]
func (h *ImageHandler) GetBySlot(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	imageType := models.ImageType(c.Param("type"))
	image, err := h.service.FetchBySlot(c.Request.Context(), actor, c.Param("id"), imageType)
	if err != nil {
		response.Error(c, err)
		return
	}

	serveImage(c, image)
}

// Replace godoc
// @Summary Replace a sample image
// @Description Upload a new photograph into a sample's specimen or outcrop slot
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Sample ID"
// @Param type path string true "Image type (rock_specimen or outcrop)"
// @Param file formData file true "Image file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /samples/{id}/images/{type} [put]
func (h *ImageHandler) Replace(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	imageType := models.ImageType(c.Param("type"))
	if !imageType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown image type"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
		return
	}

	meta, err := h.service.Replace(c.Request.Context(), actor, c.Param("id"), models.ImageUpload{
		ImageType: imageType,
		FileName:  fileHeader.Filename,
		Data:      data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, meta, nil)
}

func serveImage(c *gin.Context, image *models.Image) {
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, image.MimeType, image.ImageData)
}
