package entities

import "time"

// MutationKind names a remote mutation that can be recorded in the outbox.
type MutationKind string

const (
	MutationSave       MutationKind = "save"
	MutationFavorite   MutationKind = "favorite"
	MutationUnfavorite MutationKind = "unfavorite"
	MutationArchive    MutationKind = "archive"
	MutationDelete     MutationKind = "delete"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxEntry is a remote mutation that has been applied locally but not yet
// confirmed by the server. Entries are replayed in Seq order.
type OutboxEntry struct {
	Seq         uint         `gorm:"primaryKey;autoIncrement" json:"seq"`
	OperationID string       `gorm:"uniqueIndex;size:36" json:"operation_id"`
	Kind        MutationKind `gorm:"size:20;index" json:"kind"`
	SavedItemID string       `gorm:"index;size:36" json:"saved_item_id"`
	URL         string       `gorm:"size:2048" json:"url,omitempty"`
	RemoteID    string       `gorm:"size:64" json:"remote_id,omitempty"`
	Status      OutboxStatus `gorm:"size:20;index" json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}
