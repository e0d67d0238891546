package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	outbox  OutboxReader
	version string
}

func NewHealthController(db *database.Database, outbox OutboxReader, version string) *HealthController {
	return &HealthController{
		db:      db,
		outbox:  outbox,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// A growing failed count means the server keeps rejecting local changes;
	// reported, not fatal.
	if h.outbox != nil {
		if stats, err := h.outbox.OutboxStats(); err != nil {
			checks["outbox"] = "error: " + err.Error()
		} else {
			checks["outbox"] = "pending=" + strconv.FormatInt(stats.Pending, 10) +
				" failed=" + strconv.FormatInt(stats.Failed, 10)
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
