package repository

import (
	"context"

	"gorm.io/gorm"

	"hotelbooking/internal/domain"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func (r *PaymentIntentRepository) Create(ctx context.Context, pi *domain.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(pi).Error
}

func (r *PaymentIntentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	var pi domain.PaymentIntent
	if err := r.db.WithContext(ctx).Where("intent_id = ?", intentID).First(&pi).Error; err != nil {
		return nil, notFound(err)
	}
	return &pi, nil
}

// MarkRefunded closes an intent whose capture was returned to the guest.
func (r *PaymentIntentRepository) MarkRefunded(ctx context.Context, intentID, chargeRef, refundRef, reason string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, domain.IntentCreated).
		Updates(map[string]interface{}{
			"status":      domain.IntentRefunded,
			"charge_ref":  chargeRef,
			"refund_ref":  refundRef,
			"fail_reason": reason,
		}).Error
}

// MarkFailed records a captured intent that could neither be booked nor
// refunded. It needs manual settlement.
func (r *PaymentIntentRepository) MarkFailed(ctx context.Context, intentID, chargeRef, reason string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, domain.IntentCreated).
		Updates(map[string]interface{}{
			"status":      domain.IntentFailed,
			"charge_ref":  chargeRef,
			"fail_reason": reason,
		}).Error
}
