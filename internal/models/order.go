package models

import "time"

// Order status values. Transitions are owned by the orders package; nothing
// else writes Status directly.
const (
	OrderStatusPending          = "pending"
	OrderStatusPaymentSubmitted = "payment_submitted"
	OrderStatusPaid             = "paid"
	OrderStatusPaymentFailed    = "payment_failed"
	OrderStatusCancelled        = "cancelled"
)

type Order struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CustomerID  uint      `gorm:"index;not null" json:"user_id"`
	Customer    Customer  `json:"-"`
	Name        string    `json:"name"`
	County      string    `json:"county"`
	Street      string    `json:"street"`
	TotalAmount float64   `gorm:"not null" json:"total_amount"`
	Status      string    `gorm:"not null;default:'pending'" json:"status"`
	OrderDate   time.Time `gorm:"autoCreateTime" json:"order_date"`
}

// IsTerminal reports whether no further payment activity is possible.
func IsTerminal(status string) bool {
	switch status {
	case OrderStatusPaid, OrderStatusPaymentFailed, OrderStatusCancelled:
		return true
	}
	return false
}
