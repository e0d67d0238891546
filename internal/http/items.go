package http

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/entities"
)

type ItemsController struct {
	items ItemStore
	live  LiveQueries
}

func NewItemsController(items ItemStore, live LiveQueries) *ItemsController {
	return &ItemsController{items: items, live: live}
}

type SaveItemRequest struct {
	URL string `json:"url" binding:"required"`
}

// ListItems returns the active list, newest first.
// GET /api/items?favorites=1&archived=1&limit=50
func (ic *ItemsController) ListItems(c *gin.Context) {
	q := store.Query{
		FavoritesOnly:   queryFlag(c, "favorites"),
		IncludeArchived: queryFlag(c, "archived"),
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			q.Limit = l
		}
	}

	items, err := ic.items.Items(q)
	if err != nil {
		respondInternalError(c, err, "list items")
		return
	}
	if items == nil {
		items = []entities.SavedItem{}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetItem returns one saved item.
// GET /api/items/:id
func (ic *ItemsController) GetItem(c *gin.Context) {
	item, ok := ic.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, item)
}

// SaveItem adds a URL to the list. The remote save runs in the background.
// POST /api/items
func (ic *ItemsController) SaveItem(c *gin.Context) {
	var req SaveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "url is required")
		return
	}

	item, err := ic.items.Save(req.URL)
	if err != nil {
		respondEngineError(c, err, "item", "save item")
		return
	}
	respondCreated(c, item)
}

// AddFavorite marks an item as favorite.
// POST /api/items/:id/favorite
func (ic *ItemsController) AddFavorite(c *gin.Context) {
	ic.mutate(c, "favorite", ic.items.Favorite)
}

// RemoveFavorite clears the favorite flag.
// DELETE /api/items/:id/favorite
func (ic *ItemsController) RemoveFavorite(c *gin.Context) {
	ic.mutate(c, "unfavorite", ic.items.Unfavorite)
}

// ArchiveItem moves an item to the archive.
// POST /api/items/:id/archive
func (ic *ItemsController) ArchiveItem(c *gin.Context) {
	ic.mutate(c, "archive", ic.items.Archive)
}

// DeleteItem removes an item.
// DELETE /api/items/:id
func (ic *ItemsController) DeleteItem(c *gin.Context) {
	ic.mutate(c, "delete", ic.items.Delete)
}

func (ic *ItemsController) mutate(c *gin.Context, action string, fn func(*entities.SavedItem) error) {
	item, ok := ic.load(c)
	if !ok {
		return
	}
	if err := fn(item); err != nil {
		respondEngineError(c, err, "item", action+" item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": action + " applied", "item": item})
}

func (ic *ItemsController) load(c *gin.Context) (*entities.SavedItem, bool) {
	id, ok := requireParam(c, "id")
	if !ok {
		return nil, false
	}
	item, err := ic.items.Item(id)
	if err != nil {
		respondEngineError(c, err, "item", "load item")
		return nil, false
	}
	return item, true
}

// Changes streams the live list as server-sent events: one "snapshot" with
// the current items, then a "changes" event per committed change.
// GET /api/items/changes?favorites=1
func (ic *ItemsController) Changes(c *gin.Context) {
	var (
		rc  *store.ResultsController
		err error
	)
	if queryFlag(c, "favorites") {
		rc, err = ic.live.MakeFavoritesController()
	} else {
		rc, err = ic.live.MakeItemsController()
	}
	if err != nil {
		respondInternalError(c, err, "open change stream")
		return
	}
	defer rc.Close()

	batches := make(chan store.ChangeBatch, 32)
	unsubscribe := rc.Subscribe(func(b store.ChangeBatch) {
		select {
		case batches <- b:
		default:
			// Every batch carries the full list, so the next one resyncs the client.
			log.Printf("[HTTP] Change stream client is behind, dropping a batch")
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", rc.FetchedObjects())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case b := <-batches:
			c.SSEvent("changes", b)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
