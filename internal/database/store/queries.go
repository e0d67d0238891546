package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/readinglist/internal/entities"
)

// Query selects saved items. The zero value is the user's list: items that
// are neither archived nor deleted, newest first.
type Query struct {
	IncludeArchived bool
	FavoritesOnly   bool
	Limit           int
}

// FavoritesQuery is the list filtered to favorites.
var FavoritesQuery = Query{FavoritesOnly: true}

func withItem(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Item").
		Preload("Item.Authors", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (q Query) apply(db *gorm.DB) *gorm.DB {
	db = withItem(db).
		Model(&entities.SavedItem{}).
		Select("saved_items.*").
		Joins("LEFT JOIN items ON items.id = saved_items.item_id").
		Where("saved_items.deleted_at IS NULL")
	if !q.IncludeArchived {
		db = db.Where("saved_items.is_archived = ?", false)
	}
	if q.FavoritesOnly {
		db = db.Where("saved_items.is_favorite = ?", true)
	}
	db = db.Order("saved_items.timestamp DESC").
		Order("items.title ASC").
		Order("saved_items.id ASC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

// Fetch returns saved items matching q in list order.
func (s *Store) Fetch(q Query) ([]entities.SavedItem, error) {
	var items []entities.SavedItem
	if err := q.apply(s.db).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetch saved items: %w", err)
	}
	return items, nil
}

// FetchSavedItems returns the user's list.
func (s *Store) FetchSavedItems() ([]entities.SavedItem, error) {
	return s.Fetch(Query{})
}

// FetchAllSavedItems includes archived items. Deleted items are never returned.
func (s *Store) FetchAllSavedItems() ([]entities.SavedItem, error) {
	return s.Fetch(Query{IncludeArchived: true})
}

func (s *Store) FetchSavedItem(id string) (*entities.SavedItem, error) {
	return s.fetchOne("saved_items.id = ?", id)
}

// FetchSavedItemByURL looks up by the normalized URL.
func (s *Store) FetchSavedItemByURL(rawURL string) (*entities.SavedItem, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.fetchOne("saved_items.url = ?", u)
}

func (s *Store) FetchSavedItemByRemoteID(remoteID string) (*entities.SavedItem, error) {
	if remoteID == "" {
		return nil, fmt.Errorf("%w: empty remote id", ErrNotFound)
	}
	return s.fetchOne("saved_items.remote_id = ?", remoteID)
}

// FetchSavedItemByItemRemoteID finds the saved item whose Item carries the
// given remote item ID. Used to map a recommendation back to its saved row.
func (s *Store) FetchSavedItemByItemRemoteID(itemRemoteID string) (*entities.SavedItem, error) {
	if itemRemoteID == "" {
		return nil, fmt.Errorf("%w: empty item id", ErrNotFound)
	}
	return s.fetchOne("items.remote_id = ?", itemRemoteID)
}

// ResolveRemoteID returns the remote ID of a saved item whether or not it is
// still visible. The empty string means the server has not assigned one yet.
func (s *Store) ResolveRemoteID(savedItemID string) (string, error) {
	var saved entities.SavedItem
	err := s.db.Select("id", "remote_id").First(&saved, "id = ?", savedItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve remote id for %s: %w", savedItemID, err)
	}
	return saved.RemoteID, nil
}

// CountSavedItems returns the number of items in the user's list.
func (s *Store) CountSavedItems() (int64, error) {
	var n int64
	err := s.db.Model(&entities.SavedItem{}).
		Where("deleted_at IS NULL AND is_archived = ?", false).
		Count(&n).Error
	return n, err
}

func (s *Store) fetchOne(cond string, arg any) (*entities.SavedItem, error) {
	var saved entities.SavedItem
	err := withItem(s.db).
		Model(&entities.SavedItem{}).
		Select("saved_items.*").
		Joins("LEFT JOIN items ON items.id = saved_items.item_id").
		Where("saved_items.deleted_at IS NULL AND saved_items.is_archived = ?", false).
		Where(cond, arg).
		Order("saved_items.timestamp DESC").
		Take(&saved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
