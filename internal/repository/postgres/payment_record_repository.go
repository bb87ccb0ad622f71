package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRecordRepository хранилище подтвержденных платежей
type PaymentRecordRepository struct {
	q   querier
	log *logger.Logger
}

// Create сохраняет запись. Повтор платежа или подписки дает domain.DuplicateError.
func (r *PaymentRecordRepository) Create(ctx context.Context, record *domain.PaymentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := r.q.Exec(ctx,
		`INSERT INTO payment_records (id, gateway_payment_id, gateway_subscription_id, signature, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.GatewayPaymentID, record.GatewaySubscriptionID, record.Signature, record.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			r.log.Warnw("Duplicate payment record", "constraint", pgErr.ConstraintName, "paymentID", record.GatewayPaymentID)
			if pgErr.ConstraintName == "payment_records_gateway_subscription_id_key" {
				return domain.NewDuplicateError("payment_record", "razorpay_subscription_id", record.GatewaySubscriptionID)
			}
			return domain.NewDuplicateError("payment_record", "razorpay_payment_id", record.GatewayPaymentID)
		}
		r.log.Errorw("Failed to create payment record", "error", err, "paymentID", record.GatewayPaymentID)
		return fmt.Errorf("create payment record: %w", err)
	}

	r.log.Debugw("Payment record created", "id", record.ID, "paymentID", record.GatewayPaymentID)
	return nil
}

// GetBySubscriptionID ищет запись по ID подписки шлюза
func (r *PaymentRecordRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	err := r.q.QueryRow(ctx,
		`SELECT id, gateway_payment_id, gateway_subscription_id, signature, created_at
		 FROM payment_records WHERE gateway_subscription_id = $1`,
		subscriptionID,
	).Scan(&rec.ID, &rec.GatewayPaymentID, &rec.GatewaySubscriptionID, &rec.Signature, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("payment_record", subscriptionID)
		}
		r.log.Errorw("Failed to get payment record", "error", err, "subscriptionID", subscriptionID)
		return nil, fmt.Errorf("get payment record: %w", err)
	}
	return &rec, nil
}

// Delete удаляет запись по ID
func (r *PaymentRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM payment_records WHERE id = $1`, id)
	if err != nil {
		r.log.Errorw("Failed to delete payment record", "error", err, "id", id)
		return fmt.Errorf("delete payment record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("payment_record", id.String())
	}
	return nil
}
