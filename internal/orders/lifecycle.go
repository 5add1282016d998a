package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmwangi/cdj-storefront/internal/models"
)

var (
	ErrInvalidAmount     = errors.New("total amount must be a positive value")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// Manager owns every write to Order.Status. All transitions are conditional
// single-statement updates, so two concurrent callers can never both win the
// same transition.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) Create(ctx context.Context, customerID uint, name, county, street string, amount float64) (*models.Order, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	order := models.Order{
		CustomerID:  customerID,
		Name:        name,
		County:      county,
		Street:      street,
		TotalAmount: amount,
		Status:      models.OrderStatusPending,
	}

	if err := m.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &order, nil
}

func (m *Manager) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := m.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (m *Manager) ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := m.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// MarkSubmitted claims the order for a payment attempt. The compare-and-set
// on the pending status is what guarantees at most one in-flight push per
// order: the loser of a race gets ErrInvalidTransition before any network
// call is made.
func (m *Manager) MarkSubmitted(ctx context.Context, orderID uint) error {
	return m.transition(ctx, orderID, []string{models.OrderStatusPending}, models.OrderStatusPaymentSubmitted)
}

// ReleaseSubmission undoes a claim when the push never reached the gateway
// (transport failure, credential failure). The order goes back to pending so
// the customer can retry.
func (m *Manager) ReleaseSubmission(ctx context.Context, orderID uint) error {
	return m.transition(ctx, orderID, []string{models.OrderStatusPaymentSubmitted}, models.OrderStatusPending)
}

// MarkFailed records a synchronous gateway rejection. Terminal.
func (m *Manager) MarkFailed(ctx context.Context, orderID uint) error {
	return m.transition(ctx, orderID, []string{models.OrderStatusPaymentSubmitted}, models.OrderStatusPaymentFailed)
}

// MarkSettled records the out-of-band settlement verdict for an order that
// is awaiting customer approval.
func (m *Manager) MarkSettled(ctx context.Context, orderID uint, approved bool) error {
	to := models.OrderStatusPaid
	if !approved {
		to = models.OrderStatusPaymentFailed
	}
	return m.transition(ctx, orderID, []string{models.OrderStatusPaymentSubmitted}, to)
}

// Cancel is the administrative override: reachable from any non-terminal
// state, and the only way out of the normal flow.
func (m *Manager) Cancel(ctx context.Context, orderID uint) error {
	return m.transition(ctx, orderID, []string{
		models.OrderStatusPending,
		models.OrderStatusPaymentSubmitted,
	}, models.OrderStatusCancelled)
}

func (m *Manager) transition(ctx context.Context, orderID uint, from []string, to string) error {
	res := m.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := m.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return fmt.Errorf("check order existence: %w", err)
		}
		if count == 0 {
			return ErrOrderNotFound
		}
		return ErrInvalidTransition
	}

	return nil
}

// Update applies a partial update restricted to the delivery fields. Status
// and amount are deliberately not updatable here; status belongs to the
// transition methods above.
type Update struct {
	Name   *string `json:"name"`
	County *string `json:"county"`
	Street *string `json:"street"`
}

func (m *Manager) Update(ctx context.Context, orderID uint, upd Update) (*models.Order, error) {
	fields := map[string]interface{}{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.County != nil {
		fields["county"] = *upd.County
	}
	if upd.Street != nil {
		fields["street"] = *upd.Street
	}

	if len(fields) > 0 {
		res := m.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrOrderNotFound
		}
	}

	return m.Get(ctx, orderID)
}

func (m *Manager) Delete(ctx context.Context, orderID uint) error {
	res := m.db.WithContext(ctx).Delete(&models.Order{}, orderID)
	if res.Error != nil {
		return fmt.Errorf("delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
