// Package remote is the typed boundary to the reading-list service. The sync
// engine depends only on Gateway; HTTPGateway is the JSON adapter used in
// production.
package remote

import (
	"context"
	"time"

	"github.com/mrlokans/readinglist/internal/entities"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// ParseSort accepts "newest" and "oldest", defaulting to newest.
func ParseSort(s string) Sort {
	if Sort(s) == SortOldest {
		return SortOldest
	}
	return SortNewest
}

type ListRequest struct {
	Token    string
	Cursor   string
	PageSize int
	Sort     Sort
	// Since restricts the page to items changed after the watermark.
	Since *time.Time
}

type ListPage struct {
	Items      []entities.RemoteSavedItem `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// MutationRequest changes one saved item. Save is not a mutation here; it
// goes through SaveItem because it is addressed by URL.
type MutationRequest struct {
	Token          string
	Kind           entities.MutationKind
	RemoteID       string
	IdempotencyKey string
}

type SaveRequest struct {
	Token          string
	URL            string
	IdempotencyKey string
}

type SaveResponse struct {
	RemoteID string                  `json:"remote_id"`
	Item     *entities.UnmanagedItem `json:"item,omitempty"`
}

type ArchiveRequest struct {
	Token    string
	Cursor   string
	PageSize int
}

type ArchivePage struct {
	Items      []entities.ArchivedItem `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

type ArchiveAction string

const (
	ArchiveFavorite   ArchiveAction = "favorite"
	ArchiveUnfavorite ArchiveAction = "unfavorite"
	ArchiveDelete     ArchiveAction = "delete"
	ArchiveReAdd      ArchiveAction = "readd"
)

type ArchiveMutationRequest struct {
	Token    string
	Action   ArchiveAction
	RemoteID string
}

// Gateway is every remote call the engine makes.
type Gateway interface {
	FetchList(ctx context.Context, req ListRequest) (*ListPage, error)
	MutateItem(ctx context.Context, req MutationRequest) error
	SaveItem(ctx context.Context, req SaveRequest) (*SaveResponse, error)
	FetchSlateLineup(ctx context.Context, token, lineupID string) (*entities.SlateLineup, error)
	FetchSlate(ctx context.Context, token, slateID string) (*entities.Slate, error)
	FetchArchive(ctx context.Context, req ArchiveRequest) (*ArchivePage, error)
	MutateArchived(ctx context.Context, req ArchiveMutationRequest) error
}
