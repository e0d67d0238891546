package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/tasks"
)

type RefreshController struct {
	refresher Refresher
	queue     TaskQueue
}

// NewRefreshController returns a controller that enqueues a durable task when
// queue is non-nil and starts an in-process refresh otherwise.
func NewRefreshController(refresher Refresher, queue TaskQueue) *RefreshController {
	return &RefreshController{refresher: refresher, queue: queue}
}

// Refresh handles POST /api/refresh. It never waits for the fetch.
func (rc *RefreshController) Refresh(c *gin.Context) {
	if rc.queue != nil {
		ids, err := rc.queue.Enqueue(tasks.RefreshTask{Reason: "manual"})
		if err != nil {
			respondInternalError(c, err, "enqueue refresh")
			return
		}
		respondAccepted(c, "refresh enqueued", gin.H{"task_id": ids[0]})
		return
	}

	rc.refresher.Refresh(nil)
	respondAccepted(c, "refresh started", nil)
}
