package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncAction string

const (
	SyncCreate SyncAction = "create"
	SyncCancel SyncAction = "cancel"
)

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "done"
	SyncFailed  SyncStatus = "failed"
)

// ChannelSyncTask is an outbox row written in the same transaction as the
// booking change it mirrors.
type ChannelSyncTask struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     int64      `gorm:"not null;index" json:"booking_id"`
	Action        SyncAction `gorm:"type:varchar(16);not null" json:"action"`
	Status        SyncStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts      int        `gorm:"not null" json:"attempts"`
	NextAttemptAt time.Time  `gorm:"not null;index" json:"next_attempt_at"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (ChannelSyncTask) TableName() string { return "channel_sync_tasks" }

func (t *ChannelSyncTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
