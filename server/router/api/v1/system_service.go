package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/babywise/server/internal/observability"
)

// HealthResponse reports that the server is up.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                                    `json:"total_requests"`
	SuccessRate   float64                                  `json:"success_rate"`
	ErrorCount    int64                                    `json:"error_count"`
	Commands      map[string]observability.CommandSnapshot `json:"commands"`
	UptimeSeconds int64                                    `json:"uptime_seconds"`
}

// Health is the liveness probe used by the offline client.
// GET /api/v1/health
func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.Profile.Version,
		Mode:    s.Profile.Mode,
	})
}

// GetMetricsOverview returns the in-process chat counters since start.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		ErrorCount:    snapshot.RequestFailed,
		Commands:      snapshot.Commands,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}
