package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotelbooking/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// StaySpan is the occupied interval of one non-cancelled booking.
type StaySpan struct {
	CheckIn  time.Time
	CheckOut time.Time
}

type BookingFilter struct {
	Status domain.BookingStatus
	RoomID int64
	Email  string
	// From/To select stays overlapping [From, To).
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// CreateOptions controls the side rows written with a new booking.
type CreateOptions struct {
	Action      string
	Actor       string
	Note        string
	EnqueueSync bool
	// IntentID marks the payment intent materialized in the same transaction.
	IntentID string
}

type CancelUpdate struct {
	FromStatus    domain.BookingStatus
	PaymentStatus domain.PaymentStatus
	Reason        string
	AdminNotes    string
	RefundAmount  *float64
	RefundRef     string
	CancelledAt   time.Time
	Actor         string
	EnqueueSync   bool
}

type TransitionUpdate struct {
	From   domain.BookingStatus
	To     domain.BookingStatus
	Fields map[string]interface{}
	Action string
	Actor  string
	Note   string
}

type BulkStatusUpdate struct {
	IDs         []int64
	To          domain.BookingStatus
	AllowedFrom []domain.BookingStatus
	// SkipPaidCard leaves captured card bookings out; they need a refund.
	SkipPaidCard bool
	Actor        string
	At           time.Time
}

// Create inserts the booking together with its number, night claims, audit
// entry and optional outbox task. Everything commits or nothing does.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking, opts CreateOptions) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.CheckIn = domain.NormalizeDate(b.CheckIn)
	b.CheckOut = domain.NormalizeDate(b.CheckOut)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextBookingNumber(tx, b.CreatedAt.Year())
		if err != nil {
			return err
		}
		b.BookingNumber = number

		if err := tx.Omit(clause.Associations).Create(b).Error; err != nil {
			if isUniqueConstraintError(err) {
				switch {
				case b.ExternalBookingID != nil:
					return ErrDuplicateExternalRef
				case b.PaymentIntentID != nil:
					return ErrIntentConsumed
				}
			}
			return err
		}

		if err := claimNights(tx, b); err != nil {
			return err
		}

		if opts.IntentID != "" {
			res := tx.Model(&domain.PaymentIntent{}).
				Where("intent_id = ? AND status = ?", opts.IntentID, domain.IntentCreated).
				Updates(map[string]interface{}{
					"status":     domain.IntentMaterialized,
					"booking_id": b.ID,
					"charge_ref": b.ChargeRef,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrIntentConsumed
			}
		}

		action := opts.Action
		if action == "" {
			action = domain.HistoryCreated
		}
		entry := domain.BookingHistory{
			BookingID: b.ID,
			Action:    action,
			ToStatus:  b.Status,
			Actor:     opts.Actor,
			Note:      opts.Note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if opts.EnqueueSync {
			return enqueueSync(tx, b.ID, domain.SyncCreate)
		}
		return nil
	})
}

func nextBookingNumber(tx *gorm.DB, year int) (string, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.BookingCounter{Year: year, Seq: 0}).Error; err != nil {
		return "", err
	}
	if err := tx.Model(&domain.BookingCounter{}).
		Where("year = ?", year).
		UpdateColumn("seq", gorm.Expr("seq + 1")).Error; err != nil {
		return "", err
	}
	var counter domain.BookingCounter
	if err := tx.Where("year = ?", year).First(&counter).Error; err != nil {
		return "", err
	}
	return domain.FormatBookingNumber(year, counter.Seq), nil
}

const nightBatchSize = 100

func claimNights(tx *gorm.DB, b *domain.Booking) error {
	dates := domain.NightsBetween(b.CheckIn, b.CheckOut)
	if len(dates) == 0 {
		return nil
	}
	nights := make([]domain.RoomNight, 0, len(dates))
	for _, d := range dates {
		nights = append(nights, domain.RoomNight{RoomID: b.RoomID, Night: d, BookingID: b.ID})
	}
	if err := tx.CreateInBatches(&nights, nightBatchSize).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrNightsTaken
		}
		return err
	}
	return nil
}

func enqueueSync(tx *gorm.DB, bookingID int64, action domain.SyncAction) error {
	task := domain.ChannelSyncTask{
		BookingID:     bookingID,
		Action:        action,
		Status:        domain.SyncPending,
		NextAttemptAt: time.Now().UTC(),
	}
	return tx.Create(&task).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&b, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("booking_number = ?", number).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByExternalRef(ctx context.Context, externalBookingID string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Where("external_booking_id = ?", externalBookingID).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("payment_intent_id = ?", intentID).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RoomID > 0 {
		q = q.Where("room_id = ?", f.RoomID)
	}
	if f.Email != "" {
		q = q.Where("guest_email = ?", f.Email)
	}
	if f.To != nil {
		q = q.Where("check_in < ?", domain.NormalizeDate(*f.To))
	}
	if f.From != nil {
		q = q.Where("check_out > ?", domain.NormalizeDate(*f.From))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []domain.Booking
	err := q.Preload("Room").
		Order("check_in ASC, id ASC").
		Limit(limit).
		Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountOverlapping counts non-cancelled bookings of the room that share at
// least one night with [checkIn, checkOut).
func (r *BookingRepository) CountOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("room_id = ?", roomID).
		Where("status <> ?", domain.BookingCancelled).
		Where("check_in < ? AND check_out > ?", domain.NormalizeDate(checkOut), domain.NormalizeDate(checkIn))
	if excludeBookingID > 0 {
		q = q.Where("id <> ?", excludeBookingID)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *BookingRepository) CountOverlappingOfType(ctx context.Context, typeKey string, checkIn, checkOut time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Joins("JOIN rooms ON rooms.id = bookings.room_id").
		Where("rooms.type_key = ? AND rooms.is_active = ?", typeKey, true).
		Where("bookings.status <> ?", domain.BookingCancelled).
		Where("bookings.check_in < ? AND bookings.check_out > ?", domain.NormalizeDate(checkOut), domain.NormalizeDate(checkIn)).
		Count(&cnt).Error
	return cnt, err
}

// ListActiveSpans returns the stays of non-cancelled bookings touching [from, to).
func (r *BookingRepository) ListActiveSpans(ctx context.Context, from, to time.Time) ([]StaySpan, error) {
	var spans []StaySpan
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select("check_in, check_out").
		Where("status <> ?", domain.BookingCancelled).
		Where("check_in < ? AND check_out > ?", domain.NormalizeDate(to), domain.NormalizeDate(from)).
		Scan(&spans).Error
	return spans, err
}

// Cancel moves the booking from u.FromStatus to CANCELLED and releases its
// nights. ErrStaleStatus means another writer changed the status first.
func (r *BookingRepository) Cancel(ctx context.Context, id int64, u CancelUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", id, u.FromStatus).
			Updates(map[string]interface{}{
				"status":              domain.BookingCancelled,
				"payment_status":      u.PaymentStatus,
				"cancellation_reason": u.Reason,
				"admin_notes":         u.AdminNotes,
				"cancelled_at":        u.CancelledAt,
				"refund_amount":       u.RefundAmount,
				"refund_ref":          u.RefundRef,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if err := tx.Where("booking_id = ?", id).Delete(&domain.RoomNight{}).Error; err != nil {
			return err
		}

		entry := domain.BookingHistory{
			BookingID:  id,
			Action:     domain.HistoryCancelled,
			FromStatus: u.FromStatus,
			ToStatus:   domain.BookingCancelled,
			Actor:      u.Actor,
			Note:       u.Reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if u.EnqueueSync {
			return enqueueSync(tx, id, domain.SyncCancel)
		}
		return nil
	})
}

// Transition applies a guarded status change: the row is only updated while
// it still has status u.From.
func (r *BookingRepository) Transition(ctx context.Context, id int64, u TransitionUpdate) error {
	fields := map[string]interface{}{"status": u.To}
	for k, v := range u.Fields {
		fields[k] = v
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", id, u.From).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		action := u.Action
		if action == "" {
			action = domain.HistoryStatusChanged
		}
		return tx.Create(&domain.BookingHistory{
			BookingID:  id,
			Action:     action,
			FromStatus: u.From,
			ToStatus:   u.To,
			Actor:      u.Actor,
			Note:       u.Note,
		}).Error
	})
}

// BulkUpdateStatus moves every listed booking whose current status allows it
// and returns the affected bookings as they were before the update.
func (r *BookingRepository) BulkUpdateStatus(ctx context.Context, u BulkStatusUpdate) ([]domain.Booking, error) {
	if len(u.IDs) == 0 || len(u.AllowedFrom) == 0 {
		return nil, nil
	}
	at := u.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var targets []domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND status IN ?", u.IDs, u.AllowedFrom)
		if u.SkipPaidCard {
			q = q.Where("NOT (payment_method = ? AND payment_status = ?)", domain.PaymentCard, domain.PaymentPaid)
		}
		if err := q.Find(&targets).Error; err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(targets))
		for _, b := range targets {
			ids = append(ids, b.ID)
		}

		fields := map[string]interface{}{"status": u.To}
		switch u.To {
		case domain.BookingCheckedIn:
			fields["checked_in_at"] = at
		case domain.BookingCheckedOut:
			fields["checked_out_at"] = at
		case domain.BookingCancelled:
			fields["cancelled_at"] = at
			fields["cancellation_reason"] = "bulk status update"
		}
		if err := tx.Model(&domain.Booking{}).Where("id IN ?", ids).Updates(fields).Error; err != nil {
			return err
		}

		if u.To == domain.BookingCancelled {
			if err := tx.Where("booking_id IN ?", ids).Delete(&domain.RoomNight{}).Error; err != nil {
				return err
			}
		}

		history := make([]domain.BookingHistory, 0, len(targets))
		for _, b := range targets {
			history = append(history, domain.BookingHistory{
				BookingID:  b.ID,
				Action:     domain.HistoryStatusChanged,
				FromStatus: b.Status,
				ToStatus:   u.To,
				Actor:      u.Actor,
				Note:       "bulk",
			})
			if u.To == domain.BookingCancelled && b.ExternalBookingID != nil {
				if err := enqueueSync(tx, b.ID, domain.SyncCancel); err != nil {
					return err
				}
			}
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// BulkDelete physically removes bookings with their nights, history and
// outbox rows. It returns the removed bookings.
func (r *BookingRepository) BulkDelete(ctx context.Context, ids []int64) ([]domain.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var targets []domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Find(&targets).Error; err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}
		found := make([]int64, 0, len(targets))
		for _, b := range targets {
			found = append(found, b.ID)
		}
		if err := tx.Where("booking_id IN ?", found).Delete(&domain.RoomNight{}).Error; err != nil {
			return err
		}
		if err := tx.Where("booking_id IN ?", found).Delete(&domain.BookingHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("booking_id IN ?", found).Delete(&domain.ChannelSyncTask{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", found).Delete(&domain.Booking{}).Error
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *BookingRepository) SetExternalRef(ctx context.Context, id int64, externalBookingID string) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Update("external_booking_id", externalBookingID).Error
	if isUniqueConstraintError(err) {
		return ErrDuplicateExternalRef
	}
	return err
}

// ListReminderCandidates returns confirmed bookings arriving in [from, to)
// that have not been reminded yet.
func (r *BookingRepository) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	var items []domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("status = ?", domain.BookingConfirmed).
		Where("reminder_sent_at IS NULL").
		Where("check_in >= ? AND check_in < ?", domain.NormalizeDate(from), domain.NormalizeDate(to)).
		Order("check_in ASC").
		Find(&items).Error
	return items, err
}

// ClaimReminder stamps reminder_sent_at once. It returns false when another
// run already claimed the booking.
func (r *BookingRepository) ClaimReminder(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
