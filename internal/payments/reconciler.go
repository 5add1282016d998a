package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmwangi/cdj-storefront/internal/models"
	"github.com/jmwangi/cdj-storefront/internal/mpesa"
	"github.com/jmwangi/cdj-storefront/internal/orders"
)

var ErrUnknownReference = errors.New("unknown checkout request reference")

// Reconciler persists payment outcomes and applies settlement callbacks.
type Reconciler struct {
	db        *gorm.DB
	lifecycle *orders.Manager
}

func NewReconciler(db *gorm.DB, lifecycle *orders.Manager) *Reconciler {
	return &Reconciler{db: db, lifecycle: lifecycle}
}

// RecordAcceptance creates the payment attempt row once the gateway has
// synchronously accepted the push. amount is the rounded value actually sent
// to the gateway, never the caller's original figure.
func (r *Reconciler) RecordAcceptance(ctx context.Context, orderID uint, phone string, amount float64, outcome *mpesa.Outcome) (*models.Payment, error) {
	payment := models.Payment{
		OrderID:           orderID,
		Phone:             phone,
		Amount:            amount,
		CheckoutRequestID: outcome.CheckoutRequestID,
		MerchantRequestID: outcome.MerchantRequestID,
		Status:            models.PaymentStatusPending,
	}

	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}

	return &payment, nil
}

// RecordRejection handles a synchronous gateway decline: no payment row is
// created and the order moves straight to payment_failed.
func (r *Reconciler) RecordRejection(ctx context.Context, orderID uint) error {
	return r.lifecycle.MarkFailed(ctx, orderID)
}

// Settle applies the out-of-band settlement verdict. Idempotent on the
// gateway's CheckoutRequestID: replays of an already-settled reference are
// acknowledged without touching anything.
func (r *Reconciler) Settle(ctx context.Context, data mpesa.CallbackData) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", data.CheckoutRequestID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, data.CheckoutRequestID)
		}
		return nil, fmt.Errorf("look up payment: %w", err)
	}

	if payment.Status != models.PaymentStatusPending {
		return &payment, nil
	}

	status := models.PaymentStatusSuccess
	if !data.Succeeded() {
		status = models.PaymentStatusFailed
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":         status,
				"receipt_number": data.ReceiptNumber(),
			})
		if res.Error != nil {
			return fmt.Errorf("settle payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent callback got here first.
			return nil
		}

		return orders.NewManager(tx).MarkSettled(ctx, payment.OrderID, data.Succeeded())
	})
	if err != nil {
		return nil, err
	}

	payment.Status = status
	payment.ReceiptNumber = data.ReceiptNumber()
	return &payment, nil
}

func (r *Reconciler) List(ctx context.Context) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}
