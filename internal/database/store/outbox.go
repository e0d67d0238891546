package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readinglist/internal/entities"
)

// OutboxStats summarizes unconfirmed mutations.
type OutboxStats struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

// PendingOutbox returns every unconfirmed entry in the order it was recorded.
func (s *Store) PendingOutbox() ([]entities.OutboxEntry, error) {
	var entries []entities.OutboxEntry
	if err := s.db.Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load outbox: %w", err)
	}
	return entries, nil
}

// OutboxHead returns the oldest unconfirmed entry for a saved item. Entries
// of one item are sent strictly in this order.
func (s *Store) OutboxHead(savedItemID string) (*entities.OutboxEntry, error) {
	var entry entities.OutboxEntry
	err := s.db.Where("saved_item_id = ?", savedItemID).Order("seq ASC").Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: outbox head for %s", ErrNotFound, savedItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("load outbox head for %s: %w", savedItemID, err)
	}
	return &entry, nil
}

// HasPendingSave reports whether the item's remote save is still unconfirmed.
func (s *Store) HasPendingSave(savedItemID string) (bool, error) {
	var n int64
	err := s.db.Model(&entities.OutboxEntry{}).
		Where("saved_item_id = ? AND kind = ?", savedItemID, entities.MutationSave).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check pending save for %s: %w", savedItemID, err)
	}
	return n > 0, nil
}

// OutboxEntry returns a single entry by operation ID.
func (s *Store) OutboxEntry(operationID string) (*entities.OutboxEntry, error) {
	var entry entities.OutboxEntry
	err := s.db.Where("operation_id = ?", operationID).Take(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("%w: outbox entry %s", ErrNotFound, operationID)
	}
	return &entry, nil
}

// CompleteOutbox removes an entry the server has confirmed.
func (s *Store) CompleteOutbox(operationID string) error {
	return s.write(func(tx *Tx) error {
		return tx.db.Where("operation_id = ?", operationID).Delete(&entities.OutboxEntry{}).Error
	})
}

// FailOutbox records a failed attempt. The entry stays for the next replay.
func (s *Store) FailOutbox(operationID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.write(func(tx *Tx) error {
		var entry entities.OutboxEntry
		if err := tx.db.Where("operation_id = ?", operationID).Take(&entry).Error; err != nil {
			return nil
		}
		entry.Attempts++
		entry.Status = entities.OutboxStatusFailed
		entry.LastError = msg
		return tx.db.Save(&entry).Error
	})
}

// DropOutbox discards entries by sequence number.
func (s *Store) DropOutbox(seqs []uint) error {
	if len(seqs) == 0 {
		return nil
	}
	return s.write(func(tx *Tx) error {
		return tx.db.Where("seq IN ?", seqs).Delete(&entities.OutboxEntry{}).Error
	})
}

func (s *Store) OutboxStats() (OutboxStats, error) {
	var stats OutboxStats
	if err := s.db.Model(&entities.OutboxEntry{}).
		Where("status = ?", entities.OutboxStatusPending).
		Count(&stats.Pending).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&entities.OutboxEntry{}).
		Where("status = ?", entities.OutboxStatusFailed).
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// PurgeRemoved physically deletes archived and deleted rows last touched
// before cutoff, unless an outbox entry still refers to them. It returns the
// number of saved items removed.
func (s *Store) PurgeRemoved(cutoff time.Time) (int, error) {
	var purged int
	err := s.write(func(tx *Tx) error {
		var victims []entities.SavedItem
		err := tx.db.
			Where("(is_archived = ? OR deleted_at IS NOT NULL) AND updated_at < ?", true, cutoff).
			Where("id NOT IN (?)", tx.db.Model(&entities.OutboxEntry{}).Select("saved_item_id")).
			Find(&victims).Error
		if err != nil {
			return err
		}

		for _, v := range victims {
			if err := tx.db.Delete(&entities.SavedItem{}, "id = ?", v.ID).Error; err != nil {
				return err
			}
			if v.ItemID == nil {
				continue
			}
			if err := tx.db.Where("item_id = ?", *v.ItemID).Delete(&entities.Author{}).Error; err != nil {
				return err
			}
			if err := tx.db.Delete(&entities.Item{}, *v.ItemID).Error; err != nil {
				return err
			}
		}
		purged = len(victims)
		return nil
	})
	return purged, err
}
