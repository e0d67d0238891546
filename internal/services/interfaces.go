package services

import (
	"context"

	"github.com/mrlokans/readinglist/internal/entities"
)

// ArchiveService reads and mutates archived items. Nothing is cached
// locally; every call is a remote round trip.
type ArchiveService interface {
	Fetch(ctx context.Context, cursor string) (*ArchivePage, error)
	Favorite(ctx context.Context, item entities.ArchivedItem) error
	Unfavorite(ctx context.Context, item entities.ArchivedItem) error
	Delete(ctx context.Context, item entities.ArchivedItem) error
	ReAdd(ctx context.Context, item entities.ArchivedItem) error
}

// ArchivePage is one page of archived items. An empty NextCursor means the
// last page.
type ArchivePage struct {
	Items      []entities.ArchivedItem `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// SlateService reads recommendation slates.
type SlateService interface {
	FetchSlateLineup(ctx context.Context, lineupID string) (*entities.SlateLineup, error)
	FetchSlate(ctx context.Context, slateID string) (*entities.Slate, error)
	FetchSlates(ctx context.Context, slateIDs []string) ([]entities.Slate, error)
}
