package payments_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmwangi/cdj-storefront/internal/models"
	"github.com/jmwangi/cdj-storefront/internal/mpesa"
	"github.com/jmwangi/cdj-storefront/internal/orders"
	"github.com/jmwangi/cdj-storefront/internal/payments"
)

func setupReconcilerTest(t *testing.T) (*payments.Reconciler, *orders.Manager, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect test database: %v", err)
	}

	if err := testDB.AutoMigrate(&models.Customer{}, &models.Order{}, &models.Payment{}); err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}

	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)

	manager := orders.NewManager(testDB)
	return payments.NewReconciler(testDB, manager), manager, testDB
}

func submittedOrder(t *testing.T, manager *orders.Manager, testDB *gorm.DB) *models.Order {
	customer := models.Customer{
		Firstname:    "Test",
		Lastname:     "Customer",
		Phone:        "0712345678",
		Email:        fmt.Sprintf("%s@example.com", t.Name()),
		PasswordHash: "x",
	}
	if err := testDB.Create(&customer).Error; err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}

	order, err := manager.Create(context.Background(), customer.ID, "Jackson", "Nairobi", "Moi Avenue", 100)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	if err := manager.MarkSubmitted(context.Background(), order.ID); err != nil {
		t.Fatalf("failed to mark order submitted: %v", err)
	}
	return order
}

func successCallback(checkoutID string) mpesa.CallbackData {
	raw := fmt.Sprintf(`{
		"MerchantRequestID": "29115-34620561-1",
		"CheckoutRequestID": %q,
		"ResultCode": 0,
		"ResultDesc": "The service request is processed successfully.",
		"CallbackMetadata": {
			"Item": [
				{"Name": "Amount", "Value": 100},
				{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
				{"Name": "PhoneNumber", "Value": 254712345678}
			]
		}
	}`, checkoutID)

	var data mpesa.CallbackData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		panic(err)
	}
	return data
}

func TestRecordAcceptance(t *testing.T) {
	reconciler, manager, testDB := setupReconcilerTest(t)
	order := submittedOrder(t, manager, testDB)

	outcome := &mpesa.Outcome{
		Accepted:          true,
		MerchantRequestID: "m-1",
		CheckoutRequestID: "ws_CO_1",
	}

	payment, err := reconciler.RecordAcceptance(context.Background(), order.ID, "0712345678", 100, outcome)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "ws_CO_1", payment.CheckoutRequestID)

	var count int64
	testDB.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRecordRejectionCreatesNoPayment(t *testing.T) {
	reconciler, manager, testDB := setupReconcilerTest(t)
	order := submittedOrder(t, manager, testDB)

	assert.NoError(t, reconciler.RecordRejection(context.Background(), order.ID))

	got, err := manager.Get(context.Background(), order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentFailed, got.Status)

	var count int64
	testDB.Model(&models.Payment{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSettleSuccess(t *testing.T) {
	reconciler, manager, testDB := setupReconcilerTest(t)
	order := submittedOrder(t, manager, testDB)

	outcome := &mpesa.Outcome{Accepted: true, CheckoutRequestID: "ws_CO_2", MerchantRequestID: "m-2"}
	_, err := reconciler.RecordAcceptance(context.Background(), order.ID, "0712345678", 100, outcome)
	assert.NoError(t, err)

	payment, err := reconciler.Settle(context.Background(), successCallback("ws_CO_2"))
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "NLJ7RT61SV", payment.ReceiptNumber)

	got, _ := manager.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
}

func TestSettleFailure(t *testing.T) {
	reconciler, manager, testDB := setupReconcilerTest(t)
	order := submittedOrder(t, manager, testDB)

	outcome := &mpesa.Outcome{Accepted: true, CheckoutRequestID: "ws_CO_3", MerchantRequestID: "m-3"}
	_, err := reconciler.RecordAcceptance(context.Background(), order.ID, "0712345678", 100, outcome)
	assert.NoError(t, err)

	data := successCallback("ws_CO_3")
	data.ResultCode = 1032 // request cancelled by user
	data.ResultDesc = "Request cancelled by user"

	payment, err := reconciler.Settle(context.Background(), data)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	got, _ := manager.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPaymentFailed, got.Status)
}

func TestSettleIsIdempotent(t *testing.T) {
	reconciler, manager, testDB := setupReconcilerTest(t)
	order := submittedOrder(t, manager, testDB)

	outcome := &mpesa.Outcome{Accepted: true, CheckoutRequestID: "ws_CO_4", MerchantRequestID: "m-4"}
	_, err := reconciler.RecordAcceptance(context.Background(), order.ID, "0712345678", 100, outcome)
	assert.NoError(t, err)

	first, err := reconciler.Settle(context.Background(), successCallback("ws_CO_4"))
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, first.Status)

	// Replay with a contradictory verdict: the first settlement stands.
	replay := successCallback("ws_CO_4")
	replay.ResultCode = 1032
	second, err := reconciler.Settle(context.Background(), replay)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, second.Status)

	got, _ := manager.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
}

func TestSettleUnknownReference(t *testing.T) {
	reconciler, _, _ := setupReconcilerTest(t)

	_, err := reconciler.Settle(context.Background(), successCallback("ws_CO_unknown"))
	assert.ErrorIs(t, err, payments.ErrUnknownReference)
}
