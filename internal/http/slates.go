package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readinglist/internal/entities"
)

type SlatesController struct {
	slates SlateStore
}

func NewSlatesController(slates SlateStore) *SlatesController {
	return &SlatesController{slates: slates}
}

// GetLineup handles GET /api/lineups/:id
func (sc *SlatesController) GetLineup(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	lineup, err := sc.slates.FetchSlateLineup(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "lineup", "fetch lineup")
		return
	}
	c.JSON(http.StatusOK, lineup)
}

// GetSlate handles GET /api/slates/:id
func (sc *SlatesController) GetSlate(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	slate, err := sc.slates.FetchSlate(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "slate", "fetch slate")
		return
	}
	c.JSON(http.StatusOK, slate)
}

// SaveRecommendation adds a recommended item to the list with its metadata.
// POST /api/recommendations/save
func (sc *SlatesController) SaveRecommendation(c *gin.Context) {
	var rec entities.Recommendation
	if err := c.ShouldBindJSON(&rec); err != nil {
		respondBadRequest(c, "invalid recommendation")
		return
	}
	item, err := sc.slates.SaveRecommendation(rec)
	if err != nil {
		respondEngineError(c, err, "recommendation", "save recommendation")
		return
	}
	respondCreated(c, item)
}

// ArchiveRecommendation archives the saved copy of a recommendation, if any.
// POST /api/recommendations/archive
func (sc *SlatesController) ArchiveRecommendation(c *gin.Context) {
	var rec entities.Recommendation
	if err := c.ShouldBindJSON(&rec); err != nil {
		respondBadRequest(c, "invalid recommendation")
		return
	}
	if err := sc.slates.ArchiveRecommendation(rec); err != nil {
		respondEngineError(c, err, "recommendation", "archive recommendation")
		return
	}
	respondSuccess(c, "recommendation archived")
}
