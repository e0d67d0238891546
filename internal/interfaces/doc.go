// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see how to implement new functionality.
//
// # Interface Categories
//
// ## Remote Boundary
//
//   - Gateway: typed calls to the reading-list service (internal/remote/gateway.go)
//   - Provider: the current access token, "" when logged out (internal/tokenstore/tokenstore.go)
//
// ## Sync Engine
//
//   - Factory: builds queued operations for fetches and outbox entries (internal/operations/factory.go)
//   - ArchiveService, SlateService: read-through remote data (internal/services/interfaces.go)
//   - LastRefresh: the watermark for incremental fetches (internal/syncengine/engine.go)
//
// ## Control API
//
//   - Engine and its parts (ItemStore, LiveQueries, ArchiveStore, SlateStore,
//     Refresher, OutboxReader): what the HTTP handlers need (internal/http/stores.go)
//   - TaskQueue: durable background work (internal/http/stores.go)
//
// ## Background Tasks
//
//   - Refresher, OutboxReplayer, RemovedPurger (internal/tasks/)
//
// # Adding a New Remote Backend
//
//  1. Implement remote.Gateway in internal/remote/
//
//     type GRPCGateway struct {
//         conn *grpc.ClientConn
//     }
//
//     func (g *GRPCGateway) FetchList(ctx context.Context, req remote.ListRequest) (*remote.ListPage, error)
//     // ... the remaining Gateway methods
//
//     var _ remote.Gateway = (*GRPCGateway)(nil)
//
//  2. Map its errors onto remote.ErrUnauthorized, remote.ErrNotFound,
//     remote.ErrRateLimited and *remote.ServerError. The engine relies on
//     ErrNotFound to treat mutations of vanished items as done.
//
//  3. Pass it to entrypoint.Assemble.
//
// # Adding a New Mutation
//
//  1. Add an entities.MutationKind and teach the gateway to send it.
//  2. Add a Tx method that applies it locally and bumps the revision.
//  3. Call it from a syncengine.Engine method through mutate, which records
//     the outbox entry in the same transaction.
//
// # Adding a New Background Task
//
//  1. Define the task and its queue in internal/tasks/:
//
//     type ExportTask struct{}
//
//     func (t ExportTask) Config() backlite.QueueConfig
//     func NewExportQueue(...) backlite.Queue
//
//  2. Register the queue in entrypoint.Run and list it in internal/http/tasks.go.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
