package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	config "storeops-api/configs"
	"storeops-api/pkg/copilot"
	"storeops-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// newOfflinePipeline builds a pipeline with no model, database or vector
// store, which is the degraded mode the copilot must still answer in.
func newOfflinePipeline() *copilot.Pipeline {
	return copilot.NewPipeline(copilot.HeuristicClassifier{}, nil, nil, nil, copilot.NewComposer(nil))
}

func TestHealthCheck(t *testing.T) {
	r := setupTestRouter()
	r.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "StoreOps API")
}

func TestCopilotAsk(t *testing.T) {
	r := setupTestRouter()
	handler := NewCopilotHandler(newOfflinePipeline())
	r.POST("/api/v1/copilot/ask", handler.Ask)

	body := bytes.NewBufferString(`{"question": "what is your refund policy?"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/copilot/ask", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, key := range []string{"intent", "order_id", "sku", "horizon_days", "answer", "sql_result", "citations", "error"} {
		assert.Contains(t, resp, key)
	}
	assert.Equal(t, `"policy_q"`, string(resp["intent"]))
	assert.NotEqual(t, "null", string(resp["answer"]))
	assert.Equal(t, "[]", string(resp["citations"]))
}

func TestCopilotAskRejectsBlankQuestion(t *testing.T) {
	r := setupTestRouter()
	handler := NewCopilotHandler(newOfflinePipeline())
	r.POST("/api/v1/copilot/ask", handler.Ask)

	for _, body := range []string{`{}`, `{"question": "   "}`, `not json`} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/copilot/ask", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestAdminMaintenanceToggle(t *testing.T) {
	r := setupTestRouter()
	handler := NewAdminHandler(&config.Config{Environment: "test"})
	r.GET("/admin/health-status", handler.GetHealthStatus)
	r.POST("/admin/maintenance/start", handler.StartMaintenance)
	r.POST("/admin/maintenance/stop", handler.StopMaintenance)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/maintenance/start", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/admin/health-status", nil)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"maintenance":true`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/admin/maintenance/stop", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/admin/health-status", nil)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"maintenance":false`)
}

func TestMonitoringLogs(t *testing.T) {
	r := setupTestRouter()
	monitoringService := services.NewMonitoringService()
	handler := NewMonitoringHandler(monitoringService)

	r.Use(monitoringService.LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/monitoring/logs", handler.GetLogs)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/monitoring/logs?period_hours=1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), "GET /ping")
}
