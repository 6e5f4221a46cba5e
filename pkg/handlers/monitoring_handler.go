package handlers

import (
	"net/http"

	"storeops-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler serves the aggregated request log.
type MonitoringHandler struct {
	monitoringService *services.MonitoringService
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(monitoringService *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{monitoringService: monitoringService}
}

// GetLogs returns dashboard data for the trailing period (?period_hours=, default 24).
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	periodHours := queryIntDefault(c, "period_hours", 24)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.monitoringService.GetDashboardData(periodHours),
	})
}
