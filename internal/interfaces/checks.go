package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/readinglist/internal/database/settings"
	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/http"
	"github.com/mrlokans/readinglist/internal/operations"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/remote/remotetest"
	"github.com/mrlokans/readinglist/internal/services"
	"github.com/mrlokans/readinglist/internal/syncengine"
	"github.com/mrlokans/readinglist/internal/tasks"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

// =============================================================================
// Remote Boundary
// =============================================================================

// Gateway implementations
var _ remote.Gateway = (*remote.HTTPGateway)(nil)
var _ remote.Gateway = (*remotetest.Gateway)(nil)

// Token providers
var _ tokenstore.Provider = (*tokenstore.Store)(nil)
var _ tokenstore.Provider = tokenstore.Static("")

// =============================================================================
// Sync Engine
// =============================================================================

var _ operations.Factory = (*operations.RemoteFactory)(nil)
var _ services.ArchiveService = (*services.RemoteArchiveService)(nil)
var _ services.SlateService = (*services.RemoteSlateService)(nil)
var _ syncengine.LastRefresh = (*settings.LastRefresh)(nil)

// =============================================================================
// Control API
// =============================================================================

var _ http.Engine = (*syncengine.Engine)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ tasks.Refresher = (*syncengine.Engine)(nil)
var _ tasks.OutboxReplayer = (*syncengine.Engine)(nil)
var _ tasks.RemovedPurger = (*store.Store)(nil)
