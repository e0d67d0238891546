package http

import (
	"github.com/mrlokans/readinglist/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Engine   Engine
	Database *database.Database

	// Task queue (optional). When set, refreshes requested over the API run
	// as durable tasks and the task endpoints are registered.
	Tasks TaskQueue

	// Application info
	Version string
}
