package handlers

import (
	"net/http"
	"strings"

	"storeops-api/pkg/copilot"
	"storeops-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// CopilotHandler exposes the query orchestration pipeline over HTTP.
type CopilotHandler struct {
	pipeline *copilot.Pipeline
}

// NewCopilotHandler creates a new CopilotHandler.
func NewCopilotHandler(pipeline *copilot.Pipeline) *CopilotHandler {
	return &CopilotHandler{pipeline: pipeline}
}

// Ask answers a free-text question about orders, inventory or policy.
// The response always carries all eight fields, nullable.
func (h *CopilotHandler) Ask(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	resp := h.pipeline.Ask(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}
