package entities

import "time"

// SavedItem is the user's local saved-state wrapper around an Item.
//
// URL is unique across the table. Archived and deleted rows stay behind as
// tombstones until the purge job removes them; every default query hides them.
type SavedItem struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	RemoteID   string     `gorm:"index;size:64" json:"remote_id,omitempty"`
	URL        string     `gorm:"uniqueIndex;size:2048;not null" json:"url"`
	IsFavorite bool       `json:"is_favorite"`
	IsArchived bool       `gorm:"index" json:"is_archived"`
	DeletedAt  *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	Timestamp  time.Time  `gorm:"index" json:"timestamp"`
	Revision   uint       `json:"revision"`
	ItemID     *uint      `gorm:"index" json:"-"`
	Item       *Item      `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (SavedItem) TableName() string {
	return "saved_items"
}

// IsActive reports whether the item belongs in the user's list.
func (s *SavedItem) IsActive() bool {
	return !s.IsArchived && s.DeletedAt == nil
}

func (s *SavedItem) IsRemoved() bool {
	return s.IsArchived || s.DeletedAt != nil
}

// Title returns the hydrated item's title, or an empty string for a placeholder.
func (s *SavedItem) Title() string {
	if s.Item == nil {
		return ""
	}
	return s.Item.Title
}

func (s SavedItem) Clone() SavedItem {
	c := s
	if s.DeletedAt != nil {
		v := *s.DeletedAt
		c.DeletedAt = &v
	}
	if s.ItemID != nil {
		v := *s.ItemID
		c.ItemID = &v
	}
	c.Item = s.Item.Clone()
	return c
}
