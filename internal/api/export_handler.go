package api

import (
	"net/http"

	"alcyxob/fitflow/internal/service"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService service.ExportService
}

func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// CreateExport godoc
// @Summary Export the calendar
// @Description Uploads the calendar as JSON to object storage and returns a presigned download URL.
// @Tags Export
// @Produce json
// @Security BearerAuth
// @Success 201 {object} service.Export
// @Failure 503 {object} gin.H "Object storage not configured"
// @Router /exports [post]
func (h *ExportHandler) CreateExport(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	export, err := h.exportService.Export(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, export)
}
