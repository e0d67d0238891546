package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/entities"
)

// ArchiveController exposes the server-side archive. Nothing here touches
// the local store except re-add, which refreshes afterwards.
type ArchiveController struct {
	archive ArchiveStore
}

func NewArchiveController(archive ArchiveStore) *ArchiveController {
	return &ArchiveController{archive: archive}
}

// ReAddRequest optionally carries the item's URL so the local copy can be
// matched even when the server returns it under a new ID.
type ReAddRequest struct {
	URL string `json:"url"`
}

// ListArchive returns one page of archived items.
// GET /api/archive?cursor=
func (ac *ArchiveController) ListArchive(c *gin.Context) {
	page, err := ac.archive.FetchArchivedItems(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		respondEngineError(c, err, "archive", "list archive")
		return
	}
	items := page.Items
	if items == nil {
		items = []entities.ArchivedItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": page.NextCursor,
	})
}

// Favorite handles POST /api/archive/:remoteID/favorite
func (ac *ArchiveController) Favorite(c *gin.Context) {
	ac.mutate(c, "favorite", ac.archive.FavoriteArchived)
}

// Unfavorite handles DELETE /api/archive/:remoteID/favorite
func (ac *ArchiveController) Unfavorite(c *gin.Context) {
	ac.mutate(c, "unfavorite", ac.archive.UnfavoriteArchived)
}

// Delete handles DELETE /api/archive/:remoteID
func (ac *ArchiveController) Delete(c *gin.Context) {
	ac.mutate(c, "delete", ac.archive.DeleteArchived)
}

// ReAdd moves an archived item back to the list and waits for the refresh.
// POST /api/archive/:remoteID/readd
func (ac *ArchiveController) ReAdd(c *gin.Context) {
	remoteID, ok := requireParam(c, "remoteID")
	if !ok {
		return
	}
	var req ReAddRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	item := entities.ArchivedItem{RemoteID: remoteID, URL: req.URL}
	if err := ac.archive.ReAdd(c.Request.Context(), item); err != nil {
		respondEngineError(c, err, "archived item", "re-add")
		return
	}
	respondSuccess(c, "item re-added")
}

func (ac *ArchiveController) mutate(c *gin.Context, action string, fn func(context.Context, entities.ArchivedItem) error) {
	remoteID, ok := requireParam(c, "remoteID")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), entities.ArchivedItem{RemoteID: remoteID}); err != nil {
		respondEngineError(c, err, "archived item", action+" archived item")
		return
	}
	respondSuccess(c, action+" applied")
}
