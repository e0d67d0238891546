package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readinglist/internal/entities"
)

// Tx is the write side of the store, valid only inside Perform.
type Tx struct {
	db  *gorm.DB
	now time.Time
}

// UpsertResult reports what UpsertRemote did with a server record.
type UpsertResult int

const (
	UpsertSkipped UpsertResult = iota
	UpsertCreated
	UpsertMerged
)

// SaveURL creates a saved item with a placeholder item for url. Saving a URL
// that is already in the list returns the existing row with changed false;
// saving one that was archived or deleted revives it.
func (tx *Tx) SaveURL(rawURL string) (saved *entities.SavedItem, changed bool, err error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, false, err
	}

	existing, err := tx.findByURL(u)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.IsActive() {
			return existing, false, nil
		}
		tx.revive(existing)
		if err := tx.update(existing); err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	saved, err = tx.create(u, &entities.Item{GivenURL: u}, false)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

// SaveUnmanaged persists an item that so far only existed remotely, keyed by
// its best URL. An existing row for that URL gets the new item and is revived.
func (tx *Tx) SaveUnmanaged(item entities.UnmanagedItem) (*entities.SavedItem, error) {
	u, err := NormalizeURL(item.BestURL())
	if err != nil {
		return nil, err
	}

	existing, err := tx.findByURL(u)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return tx.create(u, item.ToItem(), false)
	}

	if err := tx.replaceItem(existing, item.ToItem()); err != nil {
		return nil, err
	}
	tx.revive(existing)
	if err := tx.update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (tx *Tx) SetFavorite(savedItemID string, favorite bool) (*entities.SavedItem, error) {
	saved, err := tx.load(savedItemID)
	if err != nil {
		return nil, err
	}
	saved.IsFavorite = favorite
	if err := tx.update(saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// Archive hides the item from every default query.
func (tx *Tx) Archive(savedItemID string) (*entities.SavedItem, error) {
	saved, err := tx.load(savedItemID)
	if err != nil {
		return nil, err
	}
	saved.IsArchived = true
	saved.DeletedAt = nil
	if err := tx.update(saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete marks the item deleted. The row is physically removed by PurgeRemoved.
func (tx *Tx) Delete(savedItemID string) (*entities.SavedItem, error) {
	saved, err := tx.load(savedItemID)
	if err != nil {
		return nil, err
	}
	deletedAt := tx.now
	saved.DeletedAt = &deletedAt
	saved.IsArchived = false
	if err := tx.update(saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// UpsertRemote merges one server record into the store, matching by URL and
// then by remote ID. A new row takes the server's flags. An existing row gets
// the server's item but keeps its local favorite and archive flags, unless
// takeServerFlags is set (reconciliation after an exhausted outbox entry).
func (tx *Tx) UpsertRemote(rec entities.RemoteSavedItem, takeServerFlags bool) (UpsertResult, *entities.SavedItem, error) {
	u, err := NormalizeURL(rec.URL)
	if err != nil {
		if u, err = NormalizeURL(rec.Item.BestURL()); err != nil {
			return UpsertSkipped, nil, nil
		}
	}

	existing, err := tx.findByURL(u)
	if err != nil {
		return UpsertSkipped, nil, err
	}
	if existing == nil && rec.RemoteID != "" {
		if existing, err = tx.findByRemoteID(rec.RemoteID); err != nil {
			return UpsertSkipped, nil, err
		}
	}

	if existing == nil {
		if rec.IsArchived || rec.IsDeleted {
			return UpsertSkipped, nil, nil
		}
		saved, err := tx.create(u, rec.Item.ToItem(), rec.IsFavorite)
		if err != nil {
			return UpsertSkipped, nil, err
		}
		saved.RemoteID = rec.RemoteID
		if !rec.Timestamp.IsZero() {
			saved.Timestamp = rec.Timestamp.UTC()
		}
		if err := tx.db.Omit(clause.Associations).Save(saved).Error; err != nil {
			return UpsertSkipped, nil, fmt.Errorf("update remote fields: %w", err)
		}
		return UpsertCreated, saved, nil
	}

	existing.RemoteID = rec.RemoteID
	if err := tx.replaceItem(existing, rec.Item.ToItem()); err != nil {
		return UpsertSkipped, nil, err
	}
	if takeServerFlags {
		existing.IsFavorite = rec.IsFavorite
		existing.IsArchived = rec.IsArchived
		existing.DeletedAt = nil
		if rec.IsDeleted {
			deletedAt := tx.now
			existing.DeletedAt = &deletedAt
			existing.IsArchived = false
		}
	}
	if err := tx.update(existing); err != nil {
		return UpsertSkipped, nil, err
	}
	return UpsertMerged, existing, nil
}

// BackfillSave records the outcome of a remote save: the server-assigned ID
// and, when provided, the server's item. A row that has since been purged is
// ignored. Pending outbox entries for the item learn the remote ID too.
func (tx *Tx) BackfillSave(savedItemID, remoteID string, item *entities.UnmanagedItem) error {
	var saved entities.SavedItem
	err := tx.preloaded().First(&saved, "saved_items.id = ?", savedItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load saved item %s: %w", savedItemID, err)
	}

	saved.RemoteID = remoteID
	if item != nil {
		if err := tx.replaceItem(&saved, item.ToItem()); err != nil {
			return err
		}
	}
	if err := tx.update(&saved); err != nil {
		return err
	}

	return tx.db.Model(&entities.OutboxEntry{}).
		Where("saved_item_id = ? AND remote_id = ?", savedItemID, "").
		Update("remote_id", remoteID).Error
}

// Enqueue records a remote mutation in the outbox as part of this transaction.
func (tx *Tx) Enqueue(kind entities.MutationKind, saved *entities.SavedItem) (*entities.OutboxEntry, error) {
	entry := &entities.OutboxEntry{
		OperationID: uuid.NewString(),
		Kind:        kind,
		SavedItemID: saved.ID,
		URL:         saved.URL,
		RemoteID:    saved.RemoteID,
		Status:      entities.OutboxStatusPending,
	}
	if err := tx.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s for %s: %w", kind, saved.ID, err)
	}
	return entry, nil
}

func (tx *Tx) create(u string, item *entities.Item, favorite bool) (*entities.SavedItem, error) {
	saved := &entities.SavedItem{
		ID:         uuid.NewString(),
		URL:        u,
		IsFavorite: favorite,
		Timestamp:  tx.now,
		Revision:   1,
	}
	if err := tx.replaceItem(saved, item); err != nil {
		return nil, err
	}
	if err := tx.db.Omit(clause.Associations).Create(saved).Error; err != nil {
		return nil, fmt.Errorf("create saved item %s: %w", u, err)
	}
	return saved, nil
}

func (tx *Tx) revive(saved *entities.SavedItem) {
	saved.IsArchived = false
	saved.DeletedAt = nil
	saved.Timestamp = tx.now
}

func (tx *Tx) update(saved *entities.SavedItem) error {
	saved.Revision++
	if err := tx.db.Omit(clause.Associations).Save(saved).Error; err != nil {
		return fmt.Errorf("update saved item %s: %w", saved.ID, err)
	}
	return nil
}

// replaceItem swaps the saved item's Item for a new row. Authors go with it.
// The old row is removed only after the saved item points at the new one.
func (tx *Tx) replaceItem(saved *entities.SavedItem, item *entities.Item) error {
	oldID := saved.ItemID

	item.ID = 0
	for i := range item.Authors {
		item.Authors[i].ID = 0
		item.Authors[i].ItemID = 0
		item.Authors[i].Position = i
	}
	if err := tx.db.Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	itemID := item.ID
	saved.ItemID = &itemID
	saved.Item = item
	if oldID == nil {
		return nil
	}

	err := tx.db.Model(&entities.SavedItem{}).
		Where("id = ?", saved.ID).
		Update("item_id", itemID).Error
	if err != nil {
		return fmt.Errorf("relink item: %w", err)
	}
	if err := tx.db.Where("item_id = ?", *oldID).Delete(&entities.Author{}).Error; err != nil {
		return fmt.Errorf("delete authors: %w", err)
	}
	if err := tx.db.Delete(&entities.Item{}, *oldID).Error; err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// load returns an active saved item. Archived and deleted rows are
// terminal and only come back through SaveURL.
func (tx *Tx) load(savedItemID string) (*entities.SavedItem, error) {
	var saved entities.SavedItem
	err := tx.preloaded().
		Where("saved_items.deleted_at IS NULL AND saved_items.is_archived = ?", false).
		First(&saved, "saved_items.id = ?", savedItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, savedItemID)
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// findByURL looks at every row, tombstones included, since URL is unique.
func (tx *Tx) findByURL(u string) (*entities.SavedItem, error) {
	var saved entities.SavedItem
	err := tx.preloaded().Where("saved_items.url = ?", u).First(&saved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by url: %w", err)
	}
	return &saved, nil
}

func (tx *Tx) findByRemoteID(remoteID string) (*entities.SavedItem, error) {
	var saved entities.SavedItem
	err := tx.preloaded().Where("saved_items.remote_id = ?", remoteID).First(&saved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by remote id: %w", err)
	}
	return &saved, nil
}

func (tx *Tx) preloaded() *gorm.DB {
	return withItem(tx.db)
}
