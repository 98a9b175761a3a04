package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	checks  map[string]Pinger
	version string
	timeout time.Duration
}

func NewHealthController(checks map[string]Pinger, version string) *HealthController {
	return &HealthController{
		checks:  checks,
		version: version,
		timeout: 2 * time.Second,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string, len(h.checks))
	status := "healthy"

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pinger := h.checks[name]
		if pinger == nil {
			checks[name] = "not configured"
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := pinger.Ping(ctx)
		cancel()

		if err != nil {
			checks[name] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks[name] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
