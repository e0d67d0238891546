package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/services"
)

// ItemStore is the part of the sync engine that reads and mutates the
// user's list.
type ItemStore interface {
	Items(q store.Query) ([]entities.SavedItem, error)
	Item(id string) (*entities.SavedItem, error)
	Save(rawURL string) (*entities.SavedItem, error)
	Favorite(item *entities.SavedItem) error
	Unfavorite(item *entities.SavedItem) error
	Archive(item *entities.SavedItem) error
	Delete(item *entities.SavedItem) error
}

// LiveQueries builds live result sets for the change stream.
type LiveQueries interface {
	MakeItemsController() (*store.ResultsController, error)
	MakeFavoritesController() (*store.ResultsController, error)
}

// ArchiveStore is the read-through archive accessor.
type ArchiveStore interface {
	FetchArchivedItems(ctx context.Context, cursor string) (*services.ArchivePage, error)
	FavoriteArchived(ctx context.Context, item entities.ArchivedItem) error
	UnfavoriteArchived(ctx context.Context, item entities.ArchivedItem) error
	DeleteArchived(ctx context.Context, item entities.ArchivedItem) error
	ReAdd(ctx context.Context, item entities.ArchivedItem) error
}

// SlateStore serves recommendations and saves or archives them.
type SlateStore interface {
	FetchSlateLineup(ctx context.Context, lineupID string) (*entities.SlateLineup, error)
	FetchSlate(ctx context.Context, slateID string) (*entities.Slate, error)
	SaveRecommendation(rec entities.Recommendation) (*entities.SavedItem, error)
	ArchiveRecommendation(rec entities.Recommendation) error
}

// Refresher starts a refresh without waiting for it.
type Refresher interface {
	Refresh(completion func(error))
}

type OutboxReader interface {
	Outbox() ([]entities.OutboxEntry, error)
	OutboxStats() (store.OutboxStats, error)
}

// TaskQueue hands work to the background task queue.
type TaskQueue interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Engine is everything the control API needs from the sync engine.
type Engine interface {
	ItemStore
	LiveQueries
	ArchiveStore
	SlateStore
	Refresher
	OutboxReader
}
