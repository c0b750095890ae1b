package repository

import (
	"context"

	"gorm.io/gorm"

	"hotelbooking/internal/domain"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateExternalRef
		}
		return err
	}
	return nil
}

func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	res := r.db.WithContext(ctx).Save(room)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return ErrDuplicateExternalRef
		}
		return res.Error
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (r *RoomRepository) GetByExternalID(ctx context.Context, externalRoomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Where("external_room_id = ?", externalRoomID).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (r *RoomRepository) List(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	q := r.db.WithContext(ctx).Model(&domain.Room{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rooms []domain.Room
	if err := q.Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// SumUnitsOfType returns the pooled unit count of all active rooms of a type.
func (r *RoomRepository) SumUnitsOfType(ctx context.Context, typeKey string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Select("COALESCE(SUM(total_units), 0)").
		Where("type_key = ? AND is_active = ?", typeKey, true).
		Scan(&total).Error
	return total, err
}

func (r *RoomRepository) SumActiveUnits(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Select("COALESCE(SUM(total_units), 0)").
		Where("is_active = ?", true).
		Scan(&total).Error
	return total, err
}

// Delete removes a room that no booking references.
func (r *RoomRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&domain.Booking{}).Where("room_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrRoomInUse
		}
		res := tx.Delete(&domain.Room{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
