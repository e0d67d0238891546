// Package store is the local, transactional cache of the user's saved items.
//
// Writes go through Perform, which runs one SQLite transaction while holding
// the store's write lock. Readers use the connection pool directly and see
// the last committed state. After every commit the registered results
// controllers re-run their queries and publish change batches.
//
// # Usage
//
//	s := store.New(db.DB)
//	err := s.Perform(func(tx *store.Tx) error {
//		_, _, err := tx.SaveURL("https://example.com/article")
//		return err
//	})
package store

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB

	writeMu sync.Mutex
	version atomic.Uint64

	publishMu   sync.Mutex
	publishing  bool
	dirty       bool
	controllers map[*ResultsController]struct{}

	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		controllers: make(map[*ResultsController]struct{}),
		now:         time.Now,
	}
}

// Version is incremented by every successful commit.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Perform runs fn inside a single transaction. Either every change made
// through tx is committed or none is. Observers are notified after commit.
func (s *Store) Perform(fn func(tx *Tx) error) error {
	if err := s.write(fn); err != nil {
		return err
	}
	s.publish()
	return nil
}

// write commits without notifying observers. Used for bookkeeping that does
// not change any saved item (the outbox).
func (s *Store) write(fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{db: gtx, now: s.now().UTC()})
	})
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

// publish refreshes every registered controller. Concurrent or re-entrant
// calls coalesce into the publisher that is already running, so batches are
// delivered one at a time and in commit order.
func (s *Store) publish() {
	s.publishMu.Lock()
	s.dirty = true
	if s.publishing {
		s.publishMu.Unlock()
		return
	}
	s.publishing = true

	for s.dirty {
		s.dirty = false
		controllers := make([]*ResultsController, 0, len(s.controllers))
		for c := range s.controllers {
			controllers = append(controllers, c)
		}
		s.publishMu.Unlock()

		for _, c := range controllers {
			c.refresh()
		}

		s.publishMu.Lock()
	}

	s.publishing = false
	s.publishMu.Unlock()
}

func (s *Store) register(c *ResultsController) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.controllers[c] = struct{}{}
}

func (s *Store) unregister(c *ResultsController) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	delete(s.controllers, c)
}

// NormalizeURL validates a URL used as a saved item key.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}
