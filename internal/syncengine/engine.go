// Package syncengine is the façade over the local store and the remote
// service.
//
// Every mutation is applied to the store first and recorded in the outbox
// in the same transaction, so callers see the new state as soon as the call
// returns. The matching remote operation is then dispatched on the queue.
// When there is no access token the outbox entry simply waits; ResumePending
// replays it after login or restart.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/operations"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/services"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

const (
	DefaultPageSize          = 30
	DefaultOutboxMaxAttempts = 5
)

// LastRefresh tracks the watermark of the last successful refresh.
type LastRefresh interface {
	LastRefreshAt() *time.Time
	Refreshed(at time.Time) error
}

type Config struct {
	PageSize int
	Sort     remote.Sort
	// OutboxMaxAttempts is the number of failures after which an outbox
	// entry stops being replayed and waits for the next refresh to
	// reconcile it.
	OutboxMaxAttempts int
}

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Store       *store.Store
	Factory     operations.Factory
	Queue       *operations.Queue
	Tokens      tokenstore.Provider
	LastRefresh LastRefresh
	Archive     services.ArchiveService
	Slates      services.SlateService
}

type Engine struct {
	store       *store.Store
	factory     operations.Factory
	queue       *operations.Queue
	tokens      tokenstore.Provider
	lastRefresh LastRefresh
	archive     services.ArchiveService
	slates      services.SlateService
	cfg         Config

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(deps Deps, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Sort == "" {
		cfg.Sort = remote.SortNewest
	}
	if cfg.OutboxMaxAttempts <= 0 {
		cfg.OutboxMaxAttempts = DefaultOutboxMaxAttempts
	}
	return &Engine{
		store:       deps.Store,
		factory:     deps.Factory,
		queue:       deps.Queue,
		tokens:      deps.Tokens,
		lastRefresh: deps.LastRefresh,
		archive:     deps.Archive,
		slates:      deps.Slates,
		cfg:         cfg,
		inflight:    make(map[string]struct{}),
	}
}

// Refresh fetches the remote list and merges it into the store. completion
// is called exactly once: with nil when there is no token or the fetch
// succeeded, with operations.ErrCanceled when a newer refresh superseded
// this one, or with the fetch error.
func (e *Engine) Refresh(completion func(error)) {
	e.refresh(nil, completion)
}

// refresh lets the server's flags win for every URL in reconcile as well as
// for items whose remaining outbox entries are all exhausted.
func (e *Engine) refresh(reconcile []string, completion func(error)) {
	if completion == nil {
		completion = func(error) {}
	}

	token := e.tokens.CurrentToken()
	if token == "" {
		completion(nil)
		return
	}

	pending, err := e.store.PendingOutbox()
	if err != nil {
		completion(err)
		return
	}

	params := operations.FetchListParams{
		PageSize: e.cfg.PageSize,
		Sort:     e.cfg.Sort,
	}
	// An item whose exhausted entries are followed by newer ones keeps its
	// local flags; the newer entries carry the user's latest intent.
	var exhausted []entities.OutboxEntry
	waiting := make(map[string]bool)
	for _, entry := range pending {
		if e.exhausted(entry) {
			exhausted = append(exhausted, entry)
		} else {
			waiting[entry.SavedItemID] = true
		}
	}
	for _, entry := range exhausted {
		if !waiting[entry.SavedItemID] {
			reconcile = append(reconcile, entry.URL)
		}
	}
	if len(reconcile) > 0 {
		// Reconciliation needs the full list, not just what changed.
		params.Reconcile = make(map[string]bool, len(reconcile))
		for _, u := range reconcile {
			params.Reconcile[u] = true
		}
	} else if e.lastRefresh != nil {
		params.Since = e.lastRefresh.LastRefreshAt()
	}

	op := e.factory.FetchList(token, params)
	op.OnComplete(func(r operations.Result) {
		completion(e.finishRefresh(r, exhausted))
	})
	if err := e.queue.Add(op); err != nil {
		log.Printf("[SYNC] Refresh not scheduled: %v", err)
	}
}

func (e *Engine) finishRefresh(r operations.Result, exhausted []entities.OutboxEntry) error {
	if r.Err != nil {
		if !errors.Is(r.Err, operations.ErrCanceled) {
			log.Printf("[SYNC] Refresh failed: %v", r.Err)
		}
		return r.Err
	}

	result, _ := r.Value.(operations.FetchListResult)
	if e.lastRefresh != nil {
		if err := e.lastRefresh.Refreshed(result.StartedAt); err != nil {
			log.Printf("[SYNC] Failed to record refresh watermark: %v", err)
		}
	}

	if len(exhausted) > 0 {
		seqs := make([]uint, 0, len(exhausted))
		for _, entry := range exhausted {
			seqs = append(seqs, entry.Seq)
		}
		if err := e.store.DropOutbox(seqs); err != nil {
			log.Printf("[SYNC] Failed to drop reconciled outbox entries: %v", err)
		} else {
			log.Printf("[SYNC] Reconciled %d failed mutations with the server", len(seqs))
			for _, entry := range exhausted {
				e.dispatch(entry.SavedItemID)
			}
		}
	}

	log.Printf("[SYNC] Refresh complete: %d fetched, %d created, %d merged", result.Fetched, result.Created, result.Merged)
	return nil
}

// RefreshAndWait runs Refresh and blocks until it completes or ctx ends.
func (e *Engine) RefreshAndWait(ctx context.Context) error {
	return e.refreshAndWait(ctx, nil)
}

func (e *Engine) refreshAndWait(ctx context.Context, reconcile []string) error {
	done := make(chan error, 1)
	e.refresh(reconcile, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save adds rawURL to the list with a placeholder item. Saving a URL that is
// already in the list returns the existing item without queueing anything.
func (e *Engine) Save(rawURL string) (*entities.SavedItem, error) {
	var saved *entities.SavedItem
	var changed bool
	err := e.store.Perform(func(tx *store.Tx) error {
		var err error
		saved, changed, err = tx.SaveURL(rawURL)
		if err != nil || !changed {
			return err
		}
		_, err = tx.Enqueue(entities.MutationSave, saved)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", rawURL, err)
	}
	if changed {
		e.dispatch(saved.ID)
	}
	return saved, nil
}

// SaveRecommendation saves the recommendation's item with all its metadata.
func (e *Engine) SaveRecommendation(rec entities.Recommendation) (*entities.SavedItem, error) {
	var saved *entities.SavedItem
	err := e.store.Perform(func(tx *store.Tx) error {
		var err error
		if saved, err = tx.SaveUnmanaged(rec.Item); err != nil {
			return err
		}
		_, err = tx.Enqueue(entities.MutationSave, saved)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save recommendation %s: %w", rec.ID, err)
	}
	e.dispatch(saved.ID)
	return saved, nil
}

// Favorite marks item as a favorite. item is updated in place.
func (e *Engine) Favorite(item *entities.SavedItem) error {
	updated, err := e.mutate(item, entities.MutationFavorite, func(tx *store.Tx) (*entities.SavedItem, error) {
		return tx.SetFavorite(item.ID, true)
	})
	if err != nil {
		return err
	}
	item.IsFavorite = updated.IsFavorite
	item.Revision = updated.Revision
	return nil
}

func (e *Engine) Unfavorite(item *entities.SavedItem) error {
	updated, err := e.mutate(item, entities.MutationUnfavorite, func(tx *store.Tx) (*entities.SavedItem, error) {
		return tx.SetFavorite(item.ID, false)
	})
	if err != nil {
		return err
	}
	item.IsFavorite = updated.IsFavorite
	item.Revision = updated.Revision
	return nil
}

// Archive removes item from the list.
func (e *Engine) Archive(item *entities.SavedItem) error {
	updated, err := e.mutate(item, entities.MutationArchive, func(tx *store.Tx) (*entities.SavedItem, error) {
		return tx.Archive(item.ID)
	})
	if err != nil {
		return err
	}
	item.IsArchived = updated.IsArchived
	item.Revision = updated.Revision
	return nil
}

// ArchiveRecommendation archives the saved item created from rec. A
// recommendation that was never saved is left alone.
func (e *Engine) ArchiveRecommendation(rec entities.Recommendation) error {
	var saved *entities.SavedItem
	err := store.ErrNotFound
	if rec.Item.ID != "" {
		saved, err = e.store.FetchSavedItemByItemRemoteID(rec.Item.ID)
	}
	if errors.Is(err, store.ErrNotFound) {
		saved, err = e.store.FetchSavedItemByURL(rec.Item.BestURL())
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.Archive(saved)
}

func (e *Engine) Delete(item *entities.SavedItem) error {
	updated, err := e.mutate(item, entities.MutationDelete, func(tx *store.Tx) (*entities.SavedItem, error) {
		return tx.Delete(item.ID)
	})
	if err != nil {
		return err
	}
	item.DeletedAt = updated.DeletedAt
	item.IsArchived = updated.IsArchived
	item.Revision = updated.Revision
	return nil
}

// mutate applies change and records kind in one transaction, then dispatches.
func (e *Engine) mutate(item *entities.SavedItem, kind entities.MutationKind, change func(tx *store.Tx) (*entities.SavedItem, error)) (*entities.SavedItem, error) {
	if item == nil {
		return nil, fmt.Errorf("%s: %w", kind, store.ErrNotFound)
	}

	var updated *entities.SavedItem
	err := e.store.Perform(func(tx *store.Tx) error {
		var err error
		if updated, err = change(tx); err != nil {
			return err
		}
		_, err = tx.Enqueue(kind, updated)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, item.ID, err)
	}
	e.dispatch(updated.ID)
	return updated, nil
}

// dispatch submits the oldest unconfirmed outbox entry of an item. Newer
// entries of the same item wait until it is confirmed, so the server sees
// one item's mutations in the order they were made. Nothing is submitted
// without a token, while the item already has an operation in flight, or
// when its oldest entry has used up its attempts.
func (e *Engine) dispatch(savedItemID string) bool {
	token := e.tokens.CurrentToken()
	if token == "" {
		return false
	}

	e.mu.Lock()
	if _, running := e.inflight[savedItemID]; running {
		e.mu.Unlock()
		return false
	}
	head, err := e.store.OutboxHead(savedItemID)
	if err != nil {
		e.mu.Unlock()
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[SYNC] Failed to load outbox for %s: %v", savedItemID, err)
		}
		return false
	}
	if e.exhausted(*head) {
		e.mu.Unlock()
		return false
	}
	e.inflight[savedItemID] = struct{}{}
	e.mu.Unlock()

	entry := *head
	op := operations.ForEntry(e.factory, token, entry)
	op.OnComplete(func(r operations.Result) {
		e.settle(entry, r)
	})
	if err := e.queue.Add(op); err != nil {
		log.Printf("[SYNC] %s for %s not scheduled: %v", entry.Kind, entry.SavedItemID, err)
		return false
	}
	return true
}

func (e *Engine) exhausted(entry entities.OutboxEntry) bool {
	return entry.Status == entities.OutboxStatusFailed && entry.Attempts >= e.cfg.OutboxMaxAttempts
}

// settle records the outcome of an outbox operation and, once the server
// confirmed it, moves on to the item's next entry. Canceled and failed
// operations leave the item's entries for the next replay.
func (e *Engine) settle(entry entities.OutboxEntry, r operations.Result) {
	next := false
	switch {
	case r.Err == nil:
		if err := e.store.CompleteOutbox(entry.OperationID); err != nil {
			log.Printf("[SYNC] Failed to complete outbox entry %s: %v", entry.OperationID, err)
		} else {
			next = true
		}
	case errors.Is(r.Err, operations.ErrCanceled), errors.Is(r.Err, operations.ErrQueueStopped):
		log.Printf("[SYNC] %s for %s canceled, will retry", entry.Kind, entry.SavedItemID)
	default:
		log.Printf("[SYNC] %s for %s failed: %v", entry.Kind, entry.SavedItemID, r.Err)
		if err := e.store.FailOutbox(entry.OperationID, r.Err); err != nil {
			log.Printf("[SYNC] Failed to record outbox failure %s: %v", entry.OperationID, err)
		}
	}

	e.mu.Lock()
	delete(e.inflight, entry.SavedItemID)
	e.mu.Unlock()

	if next {
		e.dispatch(entry.SavedItemID)
	}
}

// ResumePending restarts delivery for every item with unconfirmed outbox
// entries, oldest item first. Each item resumes from its oldest entry. It
// returns the number of entries now on their way to the server.
func (e *Engine) ResumePending(ctx context.Context) (int, error) {
	if e.tokens.CurrentToken() == "" {
		return 0, nil
	}
	entries, err := e.store.PendingOutbox()
	if err != nil {
		return 0, err
	}

	var items []string
	counts := make(map[string]int)
	for _, entry := range entries {
		if _, seen := counts[entry.SavedItemID]; !seen {
			items = append(items, entry.SavedItemID)
		}
		counts[entry.SavedItemID]++
	}

	dispatched := 0
	for _, id := range items {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		if e.dispatch(id) {
			dispatched += counts[id]
		}
	}
	if dispatched > 0 {
		log.Printf("[SYNC] Resumed %d pending mutations", dispatched)
	}
	return dispatched, nil
}

func (e *Engine) FetchSlateLineup(ctx context.Context, lineupID string) (*entities.SlateLineup, error) {
	return e.slates.FetchSlateLineup(ctx, lineupID)
}

func (e *Engine) FetchSlate(ctx context.Context, slateID string) (*entities.Slate, error) {
	return e.slates.FetchSlate(ctx, slateID)
}

func (e *Engine) FetchArchivedItems(ctx context.Context, cursor string) (*services.ArchivePage, error) {
	return e.archive.Fetch(ctx, cursor)
}

func (e *Engine) FavoriteArchived(ctx context.Context, item entities.ArchivedItem) error {
	return e.archive.Favorite(ctx, item)
}

func (e *Engine) UnfavoriteArchived(ctx context.Context, item entities.ArchivedItem) error {
	return e.archive.Unfavorite(ctx, item)
}

func (e *Engine) DeleteArchived(ctx context.Context, item entities.ArchivedItem) error {
	return e.archive.Delete(ctx, item)
}

// ReAdd moves an archived item back to the list and refreshes so it shows
// up locally. The refresh starts only after the server confirmed the re-add,
// and a local archived copy takes the server's flags.
func (e *Engine) ReAdd(ctx context.Context, item entities.ArchivedItem) error {
	if err := e.archive.ReAdd(ctx, item); err != nil {
		return fmt.Errorf("re-add %s: %w", item.RemoteID, err)
	}

	var reconcile []string
	for _, raw := range []string{item.URL, item.Item.BestURL()} {
		if u, err := store.NormalizeURL(raw); err == nil {
			reconcile = append(reconcile, u)
		}
	}
	return e.refreshAndWait(ctx, reconcile)
}

// MakeItemsController returns a fetched live query over the active list.
func (e *Engine) MakeItemsController() (*store.ResultsController, error) {
	return e.makeController(store.Query{})
}

func (e *Engine) MakeFavoritesController() (*store.ResultsController, error) {
	return e.makeController(store.FavoritesQuery)
}

func (e *Engine) makeController(q store.Query) (*store.ResultsController, error) {
	c := e.store.NewResultsController(q)
	if err := c.PerformFetch(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (e *Engine) FetchAllItems() ([]entities.SavedItem, error) {
	return e.store.FetchAllSavedItems()
}

func (e *Engine) Items(q store.Query) ([]entities.SavedItem, error) {
	return e.store.Fetch(q)
}

func (e *Engine) Item(id string) (*entities.SavedItem, error) {
	return e.store.FetchSavedItem(id)
}

func (e *Engine) Outbox() ([]entities.OutboxEntry, error) {
	return e.store.PendingOutbox()
}

func (e *Engine) OutboxStats() (store.OutboxStats, error) {
	return e.store.OutboxStats()
}

// Idle blocks until every dispatched operation has settled.
func (e *Engine) Idle(ctx context.Context) error {
	return e.queue.WaitIdle(ctx)
}

// Stop cancels queued operations and waits for running ones. Canceled
// mutations stay in the outbox.
func (e *Engine) Stop(ctx context.Context) error {
	return e.queue.Stop(ctx)
}
