package models

import "time"

// Payment status values, driven by the payments reconciler.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment is one push-payment attempt against an order. A row exists only
// when the gateway accepted the push; rejected pushes never create one.
// CheckoutRequestID is the gateway's reference and is the idempotency key
// for settlement callbacks.
type Payment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderID           uint      `gorm:"index;not null" json:"order_id"`
	Order             Order     `json:"-"`
	Phone             string    `gorm:"not null" json:"phone"`
	Amount            float64   `gorm:"not null" json:"amount"`
	CheckoutRequestID string    `gorm:"uniqueIndex;not null" json:"checkout_request_id"`
	MerchantRequestID string    `json:"merchant_request_id"`
	Status            string    `gorm:"not null;default:'pending'" json:"status"`
	ReceiptNumber     string    `json:"receipt_number,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
