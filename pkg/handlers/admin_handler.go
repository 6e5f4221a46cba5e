package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	config "storeops-api/configs"

	"github.com/gin-gonic/gin"
)

// isMaintenanceMode flags whether the server is in maintenance mode.
var isMaintenanceMode atomic.Bool

var startedAt = time.Now()

// AdminHandler handles operator-facing endpoints.
type AdminHandler struct {
	environment string
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config) *AdminHandler {
	return &AdminHandler{environment: cfg.Environment}
}

// GetHealthStatus reports process-level health.
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment":    h.environment,
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
		"maintenance":    isMaintenanceMode.Load(),
	})
}

// StartMaintenance turns maintenance mode on.
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	isMaintenanceMode.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance turns maintenance mode off.
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	isMaintenanceMode.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}
