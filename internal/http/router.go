package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(SecurityHeadersMiddleware())

	health := NewHealthController(cfg.Database, cfg.Engine, cfg.Version)
	items := NewItemsController(cfg.Engine, cfg.Engine)
	archive := NewArchiveController(cfg.Engine)
	slates := NewSlatesController(cfg.Engine)
	refresh := NewRefreshController(cfg.Engine, cfg.Tasks)
	outbox := NewOutboxController(cfg.Engine)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Saved items
	router.GET("/api/items", items.ListItems)
	router.POST("/api/items", items.SaveItem)
	router.GET("/api/items/changes", items.Changes)
	router.GET("/api/items/:id", items.GetItem)
	router.DELETE("/api/items/:id", items.DeleteItem)
	router.POST("/api/items/:id/favorite", items.AddFavorite)
	router.DELETE("/api/items/:id/favorite", items.RemoveFavorite)
	router.POST("/api/items/:id/archive", items.ArchiveItem)

	router.POST("/api/refresh", refresh.Refresh)
	router.GET("/api/outbox", outbox.ListOutbox)

	// Archive (server side only)
	router.GET("/api/archive", archive.ListArchive)
	router.DELETE("/api/archive/:remoteID", archive.Delete)
	router.POST("/api/archive/:remoteID/favorite", archive.Favorite)
	router.DELETE("/api/archive/:remoteID/favorite", archive.Unfavorite)
	router.POST("/api/archive/:remoteID/readd", archive.ReAdd)

	// Recommendations
	router.GET("/api/lineups/:id", slates.GetLineup)
	router.GET("/api/slates/:id", slates.GetSlate)
	router.POST("/api/recommendations/save", slates.SaveRecommendation)
	router.POST("/api/recommendations/archive", slates.ArchiveRecommendation)

	// Task management endpoints
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
