package api

import (
	"fmt"
	"net/http"

	"alcyxob/fitflow/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const migrateEndpoint = "/api/v1/migrate-workouts"

type MigrationHandler struct {
	migrationService service.MigrationService
}

func NewMigrationHandler(migrationService service.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrationService: migrationService}
}

// Migrate godoc
// @Summary Seed the sample week
// @Description Writes Push, Pull and Leg Day to Monday, Wednesday and Friday of the current week.
// @Tags Migration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "{success: true, message}"
// @Failure 500 {object} gin.H "{success: false, error}"
// @Router /migrate-workouts [post]
func (h *MigrationHandler) Migrate(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	n, err := h.migrationService.Run(c.Request.Context(), owner)
	if err != nil {
		log.WithError(err).WithField("owner", owner.Hex()).Error("workout migration failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Migration failed: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d workouts successfully migrated", n),
	})
}

func (h *MigrationHandler) Usage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Use POST method to trigger workout migration",
		"endpoint": migrateEndpoint,
		"method":   http.MethodPost,
	})
}
