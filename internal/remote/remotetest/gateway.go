// Package remotetest provides an in-memory remote.Gateway for tests.
package remotetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/remote"
)

// Call records one gateway invocation.
type Call struct {
	Method         string
	Token          string
	Kind           entities.MutationKind
	Action         remote.ArchiveAction
	RemoteID       string
	URL            string
	Cursor         string
	IdempotencyKey string
}

// Gateway keeps the server's view of the list in memory.
type Gateway struct {
	// PageSize caps list pages when the request does not. Default: 2
	PageSize int
	// Before runs at the start of every call. A non-nil error is returned
	// as the call's result, which lets tests block or fail calls.
	Before func(ctx context.Context, method string) error

	mu       sync.Mutex
	calls    []Call
	items    []entities.RemoteSavedItem
	archive  []entities.ArchivedItem
	lineups  map[string]entities.SlateLineup
	slates   map[string]entities.Slate
	failures map[string]error
	nextID   int
}

func New() *Gateway {
	return &Gateway{
		PageSize: 2,
		lineups:  make(map[string]entities.SlateLineup),
		slates:   make(map[string]entities.Slate),
		failures: make(map[string]error),
	}
}

// AddItem puts an item on the server's list.
func (g *Gateway) AddItem(rec entities.RemoteSavedItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = append(g.items, rec)
}

func (g *Gateway) AddArchived(item entities.ArchivedItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.archive = append(g.archive, item)
}

func (g *Gateway) AddLineup(lineup entities.SlateLineup) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lineups[lineup.ID] = lineup
	for _, s := range lineup.Slates {
		g.slates[s.ID] = s
	}
}

// Fail makes every later call to method return err. A nil err clears it.
func (g *Gateway) Fail(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, method)
		return
	}
	g.failures[method] = err
}

func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallsTo filters Calls by method name.
func (g *Gateway) CallsTo(method string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Item returns the server's record for remoteID.
func (g *Gateway) Item(remoteID string) (entities.RemoteSavedItem, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, it := range g.items {
		if it.RemoteID == remoteID {
			return it, true
		}
	}
	return entities.RemoteSavedItem{}, false
}

func (g *Gateway) begin(ctx context.Context, c Call) error {
	g.mu.Lock()
	g.calls = append(g.calls, c)
	err := g.failures[c.Method]
	before := g.Before
	g.mu.Unlock()

	if before != nil {
		if err := before(ctx, c.Method); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}

func (g *Gateway) FetchList(ctx context.Context, req remote.ListRequest) (*remote.ListPage, error) {
	if err := g.begin(ctx, Call{Method: "FetchList", Token: req.Token, Cursor: req.Cursor}); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var visible []entities.RemoteSavedItem
	for _, it := range g.items {
		if !it.IsArchived && !it.IsDeleted {
			visible = append(visible, it)
		}
	}

	size := req.PageSize
	if size <= 0 || (g.PageSize > 0 && size > g.PageSize) {
		size = g.PageSize
	}
	start, _ := strconv.Atoi(req.Cursor)
	if start > len(visible) {
		start = len(visible)
	}
	end := start + size
	if size <= 0 || end > len(visible) {
		end = len(visible)
	}

	page := &remote.ListPage{Items: append([]entities.RemoteSavedItem(nil), visible[start:end]...)}
	if end < len(visible) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (g *Gateway) MutateItem(ctx context.Context, req remote.MutationRequest) error {
	err := g.begin(ctx, Call{
		Method:         "MutateItem",
		Token:          req.Token,
		Kind:           req.Kind,
		RemoteID:       req.RemoteID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.items {
		it := &g.items[i]
		if it.RemoteID != req.RemoteID {
			continue
		}
		switch req.Kind {
		case entities.MutationFavorite:
			it.IsFavorite = true
		case entities.MutationUnfavorite:
			it.IsFavorite = false
		case entities.MutationArchive:
			it.IsArchived = true
			g.archive = append(g.archive, entities.ArchivedItem{
				RemoteID:   it.RemoteID,
				URL:        it.URL,
				IsFavorite: it.IsFavorite,
				Timestamp:  it.Timestamp,
				Item:       it.Item,
			})
		case entities.MutationDelete:
			it.IsDeleted = true
		default:
			return fmt.Errorf("unsupported mutation %q", req.Kind)
		}
		return nil
	}
	return remote.ErrNotFound
}

func (g *Gateway) SaveItem(ctx context.Context, req remote.SaveRequest) (*remote.SaveResponse, error) {
	err := g.begin(ctx, Call{Method: "SaveItem", Token: req.Token, URL: req.URL, IdempotencyKey: req.IdempotencyKey})
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, it := range g.items {
		if it.URL == req.URL && !it.IsDeleted {
			item := it.Item
			return &remote.SaveResponse{RemoteID: it.RemoteID, Item: &item}, nil
		}
	}

	g.nextID++
	rec := entities.RemoteSavedItem{
		RemoteID:  fmt.Sprintf("r-%d", g.nextID),
		URL:       req.URL,
		Timestamp: time.Now().UTC(),
		Item: entities.UnmanagedItem{
			ID:       fmt.Sprintf("i-%d", g.nextID),
			GivenURL: req.URL,
			Title:    "Title of " + req.URL,
		},
	}
	g.items = append(g.items, rec)
	item := rec.Item
	return &remote.SaveResponse{RemoteID: rec.RemoteID, Item: &item}, nil
}

func (g *Gateway) FetchSlateLineup(ctx context.Context, token, lineupID string) (*entities.SlateLineup, error) {
	if err := g.begin(ctx, Call{Method: "FetchSlateLineup", Token: token, RemoteID: lineupID}); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	lineup, ok := g.lineups[lineupID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &lineup, nil
}

func (g *Gateway) FetchSlate(ctx context.Context, token, slateID string) (*entities.Slate, error) {
	if err := g.begin(ctx, Call{Method: "FetchSlate", Token: token, RemoteID: slateID}); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	slate, ok := g.slates[slateID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &slate, nil
}

func (g *Gateway) FetchArchive(ctx context.Context, req remote.ArchiveRequest) (*remote.ArchivePage, error) {
	if err := g.begin(ctx, Call{Method: "FetchArchive", Token: req.Token, Cursor: req.Cursor}); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return &remote.ArchivePage{Items: append([]entities.ArchivedItem(nil), g.archive...)}, nil
}

func (g *Gateway) MutateArchived(ctx context.Context, req remote.ArchiveMutationRequest) error {
	err := g.begin(ctx, Call{Method: "MutateArchived", Token: req.Token, Action: req.Action, RemoteID: req.RemoteID})
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.archive {
		a := &g.archive[i]
		if a.RemoteID != req.RemoteID {
			continue
		}
		switch req.Action {
		case remote.ArchiveFavorite:
			a.IsFavorite = true
		case remote.ArchiveUnfavorite:
			a.IsFavorite = false
		case remote.ArchiveDelete:
			g.archive = append(g.archive[:i], g.archive[i+1:]...)
		case remote.ArchiveReAdd:
			removed := *a
			g.archive = append(g.archive[:i], g.archive[i+1:]...)
			g.readd(removed)
		}
		return nil
	}
	return remote.ErrNotFound
}

// readd must be called with g.mu held.
func (g *Gateway) readd(a entities.ArchivedItem) {
	for i := range g.items {
		if g.items[i].RemoteID == a.RemoteID {
			g.items[i].IsArchived = false
			g.items[i].IsDeleted = false
			g.items[i].Timestamp = time.Now().UTC()
			return
		}
	}
	g.items = append(g.items, entities.RemoteSavedItem{
		RemoteID:   a.RemoteID,
		URL:        a.URL,
		IsFavorite: a.IsFavorite,
		Timestamp:  time.Now().UTC(),
		Item:       a.Item,
	})
}

var _ remote.Gateway = (*Gateway)(nil)
