package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/entities"
)

type OutboxController struct {
	outbox OutboxReader
}

func NewOutboxController(outbox OutboxReader) *OutboxController {
	return &OutboxController{outbox: outbox}
}

// ListOutbox handles GET /api/outbox: local changes not yet confirmed by the server.
func (oc *OutboxController) ListOutbox(c *gin.Context) {
	entries, err := oc.outbox.Outbox()
	if err != nil {
		respondInternalError(c, err, "list outbox")
		return
	}
	stats, err := oc.outbox.OutboxStats()
	if err != nil {
		respondInternalError(c, err, "outbox stats")
		return
	}
	if entries == nil {
		entries = []entities.OutboxEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"pending": stats.Pending,
		"failed":  stats.Failed,
	})
}
