package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/service"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// MapHandler serves the public map views.
type MapHandler struct {
	service *service.MapService
}

// NewMapHandler creates a new handler.
func NewMapHandler(svc *service.MapService) *MapHandler {
	return &MapHandler{service: svc}
}

// Markers godoc
// @Summary Map markers
// @Description Verified, non-archived samples with coordinates
// @Tags Map
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /map/markers [get]
func (h *MapHandler) Markers(c *gin.Context) {
	markers, err := h.service.Markers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, markers, nil)
}

// Locations godoc
// @Summary Location aggregates
// @Description Verified samples grouped by location name with averaged coordinates
// @Tags Map
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /map/locations [get]
func (h *MapHandler) Locations(c *gin.Context) {
	locations, err := h.service.Locations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, locations, nil)
}
