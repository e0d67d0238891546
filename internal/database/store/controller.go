package store

import (
	"log"
	"sync"

	"github.com/mrlokans/readinglist/internal/entities"
)

// ResultsController is a live view over a query. After PerformFetch it
// re-runs the query on every commit and publishes the difference to its
// subscribers.
type ResultsController struct {
	store *Store
	query Query

	mu      sync.Mutex
	items   []entities.SavedItem
	fetched bool
	closed  bool
	subs    map[int]func(ChangeBatch)
	nextSub int
}

func (s *Store) NewResultsController(q Query) *ResultsController {
	c := &ResultsController{
		store: s,
		query: q,
		subs:  make(map[int]func(ChangeBatch)),
	}
	s.register(c)
	return c
}

// PerformFetch loads the current results. It does not notify subscribers.
func (c *ResultsController) PerformFetch() error {
	items, err := c.store.Fetch(c.query)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.fetched = true
	return nil
}

// FetchedObjects returns a copy of the current results.
func (c *ResultsController) FetchedObjects() []entities.SavedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.items)
}

// Subscribe registers fn to receive change batches. The returned func removes it.
func (c *ResultsController) Subscribe(fn func(ChangeBatch)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops the controller from tracking further commits.
func (c *ResultsController) Close() {
	c.mu.Lock()
	c.closed = true
	c.subs = make(map[int]func(ChangeBatch))
	c.mu.Unlock()
	c.store.unregister(c)
}

func (c *ResultsController) refresh() {
	c.mu.Lock()
	if !c.fetched || c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	items, err := c.store.Fetch(c.query)
	if err != nil {
		log.Printf("[STORE] Failed to refresh results: %v", err)
		return
	}

	c.mu.Lock()
	changes := Diff(c.items, items)
	c.items = items
	subs := make([]func(ChangeBatch), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	for _, fn := range subs {
		fn(ChangeBatch{Changes: changes, Items: cloneAll(items)})
	}
}

func cloneAll(items []entities.SavedItem) []entities.SavedItem {
	out := make([]entities.SavedItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
