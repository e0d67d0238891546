// Package settings provides key/value storage for engine state that is not
// part of the reading list itself: the refresh watermark and the sealed
// access token.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	last := settings.NewLastRefresh(repo)
//	since := last.LastRefreshAt()
package settings

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readinglist/internal/entities"
)

var ErrSettingNotFound = errors.New("setting not found")

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// LastRefresh tracks when the reading list was last fetched successfully.
type LastRefresh struct {
	repo *Repository
}

func NewLastRefresh(repo *Repository) *LastRefresh {
	return &LastRefresh{repo: repo}
}

// LastRefreshAt returns the watermark, or nil if no refresh has completed.
func (l *LastRefresh) LastRefreshAt() *time.Time {
	setting, err := l.repo.GetSetting(entities.SettingKeyLastRefreshAt)
	if err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, setting.Value)
	if err != nil {
		log.Printf("[SYNC] Ignoring malformed refresh watermark %q: %v", setting.Value, err)
		return nil
	}
	return &t
}

// Refreshed moves the watermark to at.
func (l *LastRefresh) Refreshed(at time.Time) error {
	return l.repo.SetSetting(entities.SettingKeyLastRefreshAt, at.UTC().Format(time.RFC3339Nano))
}

// Reset forgets the watermark so the next refresh fetches everything.
func (l *LastRefresh) Reset() error {
	return l.repo.DeleteSetting(entities.SettingKeyLastRefreshAt)
}
