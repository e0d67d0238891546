package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readinglist/internal/database"
	"github.com/mrlokans/readinglist/internal/entities"
)

// setupTestStore opens a store on a fresh database with a clock that ticks one
// second per commit, so list order is deterministic.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "store.db"), database.Options{LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db.DB)
	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func saveURL(t *testing.T, s *Store, u string) *entities.SavedItem {
	t.Helper()
	var saved *entities.SavedItem
	require.NoError(t, s.Perform(func(tx *Tx) error {
		var err error
		saved, _, err = tx.SaveURL(u)
		return err
	}))
	return saved
}

func TestSaveURL(t *testing.T) {
	s := setupTestStore(t)

	t.Run("creates placeholder item", func(t *testing.T) {
		saved := saveURL(t, s, "https://example.com/a")
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "https://example.com/a", saved.URL)
		require.NotNil(t, saved.Item)
		assert.Equal(t, "https://example.com/a", saved.Item.GivenURL)
		assert.Empty(t, saved.Item.Title)
	})

	t.Run("same URL twice yields one row", func(t *testing.T) {
		first := saveURL(t, s, "https://example.com/b")
		second := saveURL(t, s, "https://example.com/b")
		assert.Equal(t, first.ID, second.ID)

		items, err := s.FetchSavedItems()
		require.NoError(t, err)
		count := 0
		for _, it := range items {
			if it.URL == "https://example.com/b" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("rejects invalid URL", func(t *testing.T) {
		err := s.Perform(func(tx *Tx) error {
			_, _, err := tx.SaveURL("not a url")
			return err
		})
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestPerformRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	before := s.Version()

	err := s.Perform(func(tx *Tx) error {
		if _, _, err := tx.SaveURL("https://example.com/rollback"); err != nil {
			return err
		}
		_, err := tx.SetFavorite("missing", true)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, s.Version())

	_, err = s.FetchSavedItemByURL("https://example.com/rollback")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchOrdering(t *testing.T) {
	s := setupTestStore(t)

	older := saveURL(t, s, "https://example.com/older")
	newer := saveURL(t, s, "https://example.com/newer")

	items, err := s.FetchSavedItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Equal(t, older.ID, items[1].ID)
}

func TestFetchOrderingTiesByTitle(t *testing.T) {
	s := setupTestStore(t)
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Perform(func(tx *Tx) error {
		for _, title := range []string{"Zebra", "Apple", "Mango"} {
			if _, err := tx.SaveUnmanaged(entities.UnmanagedItem{
				ID:       "item-" + title,
				GivenURL: "https://example.com/" + title,
				Title:    title,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	items, err := s.FetchSavedItems()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Apple", items[0].Title())
	assert.Equal(t, "Mango", items[1].Title())
	assert.Equal(t, "Zebra", items[2].Title())
}

func TestArchiveAndDeleteHideItems(t *testing.T) {
	s := setupTestStore(t)

	archived := saveURL(t, s, "https://example.com/archived")
	deleted := saveURL(t, s, "https://example.com/deleted")
	kept := saveURL(t, s, "https://example.com/kept")

	require.NoError(t, s.Perform(func(tx *Tx) error {
		if _, err := tx.Archive(archived.ID); err != nil {
			return err
		}
		_, err := tx.Delete(deleted.ID)
		return err
	}))

	items, err := s.FetchSavedItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)

	_, err = s.FetchSavedItem(archived.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FetchSavedItemByURL("https://example.com/deleted")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.FetchAllSavedItems()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemovedItemsRejectMutations(t *testing.T) {
	s := setupTestStore(t)
	archived := saveURL(t, s, "https://example.com/archived")
	deleted := saveURL(t, s, "https://example.com/deleted")
	require.NoError(t, s.Perform(func(tx *Tx) error {
		if _, err := tx.Archive(archived.ID); err != nil {
			return err
		}
		_, err := tx.Delete(deleted.ID)
		return err
	}))

	for _, id := range []string{archived.ID, deleted.ID} {
		err := s.Perform(func(tx *Tx) error {
			_, err := tx.SetFavorite(id, true)
			return err
		})
		assert.ErrorIs(t, err, ErrNotFound)
	}

	all, err := s.FetchAllSavedItems()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsFavorite)
}

func TestSaveURLRevivesArchivedItem(t *testing.T) {
	s := setupTestStore(t)

	saved := saveURL(t, s, "https://example.com/revive")
	require.NoError(t, s.Perform(func(tx *Tx) error {
		_, err := tx.Archive(saved.ID)
		return err
	}))

	revived := saveURL(t, s, "https://example.com/revive")
	assert.Equal(t, saved.ID, revived.ID)
	assert.True(t, revived.IsActive())

	got, err := s.FetchSavedItem(saved.ID)
	require.NoError(t, err)
	assert.False(t, got.IsArchived)
}

func TestSaveUnmanagedStoresMetadata(t *testing.T) {
	s := setupTestStore(t)
	ttr := 7

	var saved *entities.SavedItem
	require.NoError(t, s.Perform(func(tx *Tx) error {
		var err error
		saved, err = tx.SaveUnmanaged(entities.UnmanagedItem{
			ID:             "item-1",
			GivenURL:       "https://example.com/given",
			ResolvedURL:    "https://example.com/resolved",
			Title:          "Resolved",
			Language:       "en",
			TopImageURL:    "https://example.com/top.png",
			TimeToRead:     &ttr,
			Excerpt:        "excerpt",
			Domain:         "example.com",
			DomainMetadata: &entities.DomainMetadata{Name: "Example", Logo: "https://example.com/logo.png"},
			Authors: []entities.Author{
				{AuthorID: "a-1", Name: "First"},
				{AuthorID: "a-2", Name: "Second"},
			},
			Article: []entities.ArticleComponent{
				{Type: entities.ComponentHeading, Content: "Title", Level: 1},
				{Type: entities.ComponentBulletedList, Items: []string{"one", "two"}},
			},
		})
		return err
	}))
	assert.Equal(t, "https://example.com/resolved", saved.URL)

	got, err := s.FetchSavedItemByItemRemoteID("item-1")
	require.NoError(t, err)
	require.NotNil(t, got.Item)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Resolved", got.Item.Title)
	assert.Equal(t, "en", got.Item.Language)
	assert.Equal(t, "excerpt", got.Item.Excerpt)
	require.NotNil(t, got.Item.TimeToRead)
	assert.Equal(t, 7, *got.Item.TimeToRead)
	assert.Equal(t, "Example", got.Item.DomainMetadata.Name)
	require.Len(t, got.Item.Authors, 2)
	assert.Equal(t, "First", got.Item.Authors[0].Name)
	assert.Equal(t, "Second", got.Item.Authors[1].Name)
	require.Len(t, got.Item.Article, 2)
	assert.Equal(t, []string{"one", "two"}, got.Item.Article[1].Items)
}

func TestUpsertRemote(t *testing.T) {
	s := setupTestStore(t)

	t.Run("creates rows for new records", func(t *testing.T) {
		var result UpsertResult
		require.NoError(t, s.Perform(func(tx *Tx) error {
			var err error
			result, _, err = tx.UpsertRemote(entities.RemoteSavedItem{
				RemoteID:   "r-1",
				URL:        "https://example.com/remote-1",
				IsFavorite: true,
				Item:       entities.UnmanagedItem{ID: "i-1", GivenURL: "https://example.com/remote-1", Title: "Remote"},
			}, false)
			return err
		}))
		assert.Equal(t, UpsertCreated, result)

		got, err := s.FetchSavedItemByRemoteID("r-1")
		require.NoError(t, err)
		assert.True(t, got.IsFavorite)
		assert.Equal(t, "Remote", got.Title())
	})

	t.Run("skips archived records it does not have", func(t *testing.T) {
		var result UpsertResult
		require.NoError(t, s.Perform(func(tx *Tx) error {
			var err error
			result, _, err = tx.UpsertRemote(entities.RemoteSavedItem{
				RemoteID:   "r-2",
				URL:        "https://example.com/remote-2",
				IsArchived: true,
			}, false)
			return err
		}))
		assert.Equal(t, UpsertSkipped, result)
	})

	t.Run("keeps local flags on merge", func(t *testing.T) {
		local := saveURL(t, s, "https://example.com/local")
		require.NoError(t, s.Perform(func(tx *Tx) error {
			_, err := tx.SetFavorite(local.ID, true)
			return err
		}))

		var result UpsertResult
		require.NoError(t, s.Perform(func(tx *Tx) error {
			var err error
			result, _, err = tx.UpsertRemote(entities.RemoteSavedItem{
				RemoteID:   "r-3",
				URL:        "https://example.com/local",
				IsFavorite: false,
				Item:       entities.UnmanagedItem{ID: "i-3", GivenURL: "https://example.com/local", Title: "Hydrated"},
			}, false)
			return err
		}))
		assert.Equal(t, UpsertMerged, result)

		got, err := s.FetchSavedItem(local.ID)
		require.NoError(t, err)
		assert.True(t, got.IsFavorite)
		assert.Equal(t, "r-3", got.RemoteID)
		assert.Equal(t, "Hydrated", got.Title())
	})

	t.Run("does not resurrect a locally archived item", func(t *testing.T) {
		local := saveURL(t, s, "https://example.com/gone")
		require.NoError(t, s.Perform(func(tx *Tx) error {
			_, err := tx.Archive(local.ID)
			return err
		}))
		require.NoError(t, s.Perform(func(tx *Tx) error {
			_, _, err := tx.UpsertRemote(entities.RemoteSavedItem{
				RemoteID: "r-4",
				URL:      "https://example.com/gone",
			}, false)
			return err
		}))

		_, err := s.FetchSavedItemByURL("https://example.com/gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server flags win when requested", func(t *testing.T) {
		local := saveURL(t, s, "https://example.com/override")
		require.NoError(t, s.Perform(func(tx *Tx) error {
			_, err := tx.Archive(local.ID)
			return err
		}))
		require.NoError(t, s.Perform(func(tx *Tx) error {
			_, _, err := tx.UpsertRemote(entities.RemoteSavedItem{
				RemoteID:   "r-5",
				URL:        "https://example.com/override",
				IsFavorite: true,
			}, true)
			return err
		}))

		got, err := s.FetchSavedItemByURL("https://example.com/override")
		require.NoError(t, err)
		assert.True(t, got.IsFavorite)
	})
}

func TestBackfillSaveUpdatesOutbox(t *testing.T) {
	s := setupTestStore(t)

	var saved *entities.SavedItem
	var entry *entities.OutboxEntry
	require.NoError(t, s.Perform(func(tx *Tx) error {
		var err error
		if saved, _, err = tx.SaveURL("https://example.com/backfill"); err != nil {
			return err
		}
		if _, err = tx.Enqueue(entities.MutationSave, saved); err != nil {
			return err
		}
		entry, err = tx.Enqueue(entities.MutationFavorite, saved)
		return err
	}))
	assert.Empty(t, entry.RemoteID)

	require.NoError(t, s.Perform(func(tx *Tx) error {
		return tx.BackfillSave(saved.ID, "r-9", &entities.UnmanagedItem{
			ID:       "i-9",
			GivenURL: "https://example.com/backfill",
			Title:    "Backfilled",
		})
	}))

	got, err := s.FetchSavedItem(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "r-9", got.RemoteID)
	assert.Equal(t, "Backfilled", got.Title())

	stored, err := s.OutboxEntry(entry.OperationID)
	require.NoError(t, err)
	assert.Equal(t, "r-9", stored.RemoteID)

	remoteID, err := s.ResolveRemoteID(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "r-9", remoteID)
}

func TestOutboxLifecycle(t *testing.T) {
	s := setupTestStore(t)
	saved := saveURL(t, s, "https://example.com/outbox")

	var first, second *entities.OutboxEntry
	require.NoError(t, s.Perform(func(tx *Tx) error {
		var err error
		if first, err = tx.Enqueue(entities.MutationSave, saved); err != nil {
			return err
		}
		second, err = tx.Enqueue(entities.MutationFavorite, saved)
		return err
	}))

	pending, err := s.PendingOutbox()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.OperationID, pending[0].OperationID)
	assert.Equal(t, second.OperationID, pending[1].OperationID)

	require.NoError(t, s.FailOutbox(second.OperationID, assert.AnError))
	require.NoError(t, s.FailOutbox(second.OperationID, assert.AnError))

	stats, err := s.OutboxStats()
	require.NoError(t, err)
	assert.Equal(t, OutboxStats{Pending: 1, Failed: 1}, stats)

	failed, err := s.OutboxEntry(second.OperationID)
	require.NoError(t, err)
	assert.Equal(t, 2, failed.Attempts)
	assert.Equal(t, assert.AnError.Error(), failed.LastError)

	head, err := s.OutboxHead(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OperationID, head.OperationID)
	hasSave, err := s.HasPendingSave(saved.ID)
	require.NoError(t, err)
	assert.True(t, hasSave)

	require.NoError(t, s.CompleteOutbox(first.OperationID))
	head, err = s.OutboxHead(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, second.OperationID, head.OperationID)
	hasSave, err = s.HasPendingSave(saved.ID)
	require.NoError(t, err)
	assert.False(t, hasSave)

	require.NoError(t, s.DropOutbox([]uint{failed.Seq}))
	_, err = s.OutboxHead(saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err = s.PendingOutbox()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPurgeRemoved(t *testing.T) {
	s := setupTestStore(t)

	gone := saveURL(t, s, "https://example.com/purge")
	waiting := saveURL(t, s, "https://example.com/waiting")
	require.NoError(t, s.Perform(func(tx *Tx) error {
		if _, err := tx.Delete(gone.ID); err != nil {
			return err
		}
		saved, err := tx.Archive(waiting.ID)
		if err != nil {
			return err
		}
		_, err = tx.Enqueue(entities.MutationArchive, saved)
		return err
	}))

	n, err := s.PurgeRemoved(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remoteID, err := s.ResolveRemoteID(gone.ID)
	require.NoError(t, err)
	assert.Empty(t, remoteID)

	all, err := s.FetchAllSavedItems()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, waiting.ID, all[0].ID)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://example.com/a", want: "https://example.com/a"},
		{in: "  http://example.com  ", want: "http://example.com"},
		{in: "ftp://example.com", wantErr: true},
		{in: "example.com", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
