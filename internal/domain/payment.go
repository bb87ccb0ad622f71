package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefundSpeed скорость возврата на стороне шлюза
type RefundSpeed string

const (
	RefundSpeedNormal  RefundSpeed = "normal"
	RefundSpeedOptimum RefundSpeed = "optimum"
)

// PaymentRecord подтвержденный платеж по подписке.
// CreatedAt является точкой отсчета окна возврата.
type PaymentRecord struct {
	ID                    uuid.UUID `json:"id"`
	GatewayPaymentID      string    `json:"razorpay_payment_id"`
	GatewaySubscriptionID string    `json:"razorpay_subscription_id"`
	Signature             string    `json:"razorpay_signature"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewPaymentRecord создает запись платежа с новым идентификатором
func NewPaymentRecord(paymentID, subscriptionID, signature string, now time.Time) *PaymentRecord {
	return &PaymentRecord{
		ID:                    uuid.New(),
		GatewayPaymentID:      paymentID,
		GatewaySubscriptionID: subscriptionID,
		Signature:             signature,
		CreatedAt:             now.UTC(),
	}
}

// Refund результат возврата на стороне шлюза
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Speed     string `json:"speed_processed,omitempty"`
}
