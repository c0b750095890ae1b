package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hotelbooking/internal/domain"
)

type SyncTaskRepository struct {
	db *gorm.DB
}

func NewSyncTaskRepository(db *gorm.DB) *SyncTaskRepository {
	return &SyncTaskRepository{db: db}
}

// ListDue returns pending tasks whose next attempt is due, oldest first.
func (r *SyncTaskRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ChannelSyncTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var tasks []domain.ChannelSyncTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.SyncPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *SyncTaskRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.ChannelSyncTask, error) {
	var tasks []domain.ChannelSyncTask
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *SyncTaskRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChannelSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.SyncDone,
			"last_error": "",
		}).Error
}

func (r *SyncTaskRepository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChannelSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
		}).Error
}

func (r *SyncTaskRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChannelSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.SyncFailed,
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
}

// PurgeDone deletes delivered tasks last touched before the cutoff.
// Failed tasks are kept for inspection.
func (r *SyncTaskRepository) PurgeDone(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.SyncDone, before).
		Delete(&domain.ChannelSyncTask{})
	return res.RowsAffected, res.Error
}
