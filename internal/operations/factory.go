package operations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/remote"
)

// FetchListGroup is the supersede group shared by every list fetch.
const FetchListGroup = "fetch-list"

type FetchListParams struct {
	PageSize int
	Sort     remote.Sort
	Since    *time.Time
	// Reconcile holds normalized URLs whose local flags give way to the
	// server's in this fetch.
	Reconcile map[string]bool
}

// FetchListResult is the Value of a successful list fetch.
type FetchListResult struct {
	StartedAt time.Time
	Pages     int
	Fetched   int
	Created   int
	Merged    int
	Skipped   int
}

// MutationResult is the Value of a successful item mutation. Skipped means
// the server had nothing to change.
type MutationResult struct {
	RemoteID string
	Skipped  bool
}

// SaveResult is the Value of a successful save.
type SaveResult struct {
	RemoteID string
}

// Factory builds the operations the engine submits.
type Factory interface {
	FetchList(token string, params FetchListParams) *Operation
	ItemMutation(token string, entry entities.OutboxEntry) *Operation
	SaveItem(token string, entry entities.OutboxEntry) *Operation
}

// RemoteFactory builds operations over a remote gateway and the local store.
type RemoteFactory struct {
	gateway remote.Gateway
	store   *store.Store
	now     func() time.Time
}

func NewRemoteFactory(gateway remote.Gateway, s *store.Store) *RemoteFactory {
	return &RemoteFactory{gateway: gateway, store: s, now: time.Now}
}

// FetchList reads every page before touching the store, then applies them
// in one transaction. A fetch canceled before that point changes nothing.
func (f *RemoteFactory) FetchList(token string, params FetchListParams) *Operation {
	op := New(uuid.NewString(), KindFetchList, func(ctx context.Context) (any, error) {
		result := FetchListResult{StartedAt: f.now().UTC()}

		var records []entities.RemoteSavedItem
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := f.gateway.FetchList(ctx, remote.ListRequest{
				Token:    token,
				Cursor:   cursor,
				PageSize: params.PageSize,
				Sort:     params.Sort,
				Since:    params.Since,
			})
			if err != nil {
				return nil, fmt.Errorf("fetch list page %d: %w", result.Pages+1, err)
			}
			result.Pages++
			records = append(records, page.Items...)

			if page.NextCursor == "" || page.NextCursor == cursor || len(page.Items) == 0 {
				break
			}
			cursor = page.NextCursor
		}
		result.Fetched = len(records)

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := f.store.Perform(func(tx *store.Tx) error {
			result.Created, result.Merged, result.Skipped = 0, 0, 0
			for _, rec := range records {
				u, _ := store.NormalizeURL(rec.URL)
				outcome, _, err := tx.UpsertRemote(rec, params.Reconcile[u])
				if err != nil {
					return fmt.Errorf("upsert %s: %w", rec.URL, err)
				}
				switch outcome {
				case store.UpsertCreated:
					result.Created++
				case store.UpsertMerged:
					result.Merged++
				default:
					result.Skipped++
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	op.Group = FetchListGroup
	op.Token = token
	return op
}

// ItemMutation sends a favorite, unfavorite, archive or delete. The remote
// ID is looked up when the operation runs, so a mutation queued behind the
// item's save uses the ID the save produced. While that save is still
// unconfirmed the mutation fails with ErrSavePending and stays in the
// outbox. An item the server does not know is treated as already consistent.
func (f *RemoteFactory) ItemMutation(token string, entry entities.OutboxEntry) *Operation {
	op := New(entry.OperationID, KindFor(entry.Kind), func(ctx context.Context) (any, error) {
		remoteID, err := f.store.ResolveRemoteID(entry.SavedItemID)
		if err != nil {
			return nil, err
		}
		if remoteID == "" {
			remoteID = entry.RemoteID
		}
		if remoteID == "" {
			pending, err := f.store.HasPendingSave(entry.SavedItemID)
			if err != nil {
				return nil, err
			}
			if pending {
				return nil, fmt.Errorf("%s %s: %w", entry.Kind, entry.SavedItemID, ErrSavePending)
			}
			log.Printf("[QUEUE] No remote ID for %s, skipping %s", entry.SavedItemID, entry.Kind)
			return MutationResult{Skipped: true}, nil
		}

		err = f.gateway.MutateItem(ctx, remote.MutationRequest{
			Token:          token,
			Kind:           entry.Kind,
			RemoteID:       remoteID,
			IdempotencyKey: entry.OperationID,
		})
		if errors.Is(err, remote.ErrNotFound) {
			return MutationResult{RemoteID: remoteID, Skipped: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", entry.Kind, remoteID, err)
		}
		return MutationResult{RemoteID: remoteID}, nil
	})
	op.Key = entry.SavedItemID
	op.Token = token
	return op
}

// SaveItem saves the entry's URL remotely and backfills the server's ID and
// metadata into the local item.
func (f *RemoteFactory) SaveItem(token string, entry entities.OutboxEntry) *Operation {
	op := New(entry.OperationID, KindSave, func(ctx context.Context) (any, error) {
		resp, err := f.gateway.SaveItem(ctx, remote.SaveRequest{
			Token:          token,
			URL:            entry.URL,
			IdempotencyKey: entry.OperationID,
		})
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", entry.URL, err)
		}

		err = f.store.Perform(func(tx *store.Tx) error {
			return tx.BackfillSave(entry.SavedItemID, resp.RemoteID, resp.Item)
		})
		if err != nil {
			return nil, fmt.Errorf("backfill %s: %w", entry.SavedItemID, err)
		}
		return SaveResult{RemoteID: resp.RemoteID}, nil
	})
	op.Key = entry.SavedItemID
	op.Token = token
	return op
}

// ForEntry picks the builder for an outbox entry.
func ForEntry(f Factory, token string, entry entities.OutboxEntry) *Operation {
	if entry.Kind == entities.MutationSave {
		return f.SaveItem(token, entry)
	}
	return f.ItemMutation(token, entry)
}
