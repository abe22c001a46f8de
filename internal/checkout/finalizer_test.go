package checkout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
)

type recordingPublisher struct {
	events []map[string]any
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.events = append(p.events, event.(map[string]any))
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.CartProduct{},
		&models.Order{}, &models.OrderItem{},
	))
	return db
}

func newTestFinalizer(t *testing.T) (*Finalizer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return &Finalizer{DB: newTestDB(t), Events: pub}, pub
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	u := models.User{Name: "test_user", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func confirmedPayment(userID uuid.UUID) PaymentConfirmed {
	return PaymentConfirmed{
		PaymentID: "pi_" + uuid.NewString(),
		UserID:    userID,
		Items: []PaymentItem{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: 10, ProductName: "shirt"},
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: 5, ProductName: "socks"},
		},
		Shipping: ShippingDetails{
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
			Phone:      "555-0100",
		},
		TotalPrice: 25,
	}
}

func TestFinalizeCreatesOrder(t *testing.T) {
	f, pub := newTestFinalizer(t)
	user := createUser(t, f.DB)
	ev := confirmedPayment(user.ID)

	order, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)

	require.Equal(t, user.ID, order.UserID)
	require.Equal(t, ev.PaymentID, order.PaymentID)
	require.Equal(t, models.StatusPending, order.Status)
	require.Equal(t, []models.OrderStatus{models.StatusPending}, order.StatusHistory)
	require.Equal(t, 25.0, order.TotalPrice)
	require.Equal(t, "1 Main St", order.ShippingAddress)
	require.Len(t, order.Items, 2)
	require.WithinDuration(t, time.Now(), order.DateOrdered, time.Minute)

	var stored models.Order
	require.NoError(t, f.DB.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, "shirt", stored.Items[0].ProductName)
	require.Equal(t, 2, stored.Items[0].Quantity)

	require.Len(t, pub.events, 1)
	require.Equal(t, "order_created", pub.events[0]["type"])
}

func TestFinalizeComputesTotalWhenMissing(t *testing.T) {
	f, _ := newTestFinalizer(t)
	user := createUser(t, f.DB)
	ev := confirmedPayment(user.ID)
	ev.TotalPrice = 0

	order, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, 25.0, order.TotalPrice)
}

func TestFinalizeDuplicatePayment(t *testing.T) {
	f, pub := newTestFinalizer(t)
	user := createUser(t, f.DB)
	ev := confirmedPayment(user.ID)

	_, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)

	_, err = f.Finalize(context.Background(), ev)
	require.ErrorIs(t, err, ErrDuplicate)

	var count int64
	require.NoError(t, f.DB.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.Len(t, pub.events, 1, "a duplicate must not publish a second event")
}

func TestFinalizeDetachesConsumedReservations(t *testing.T) {
	f, _ := newTestFinalizer(t)
	user := createUser(t, f.DB)

	product := models.Product{Name: "shirt", Price: 10, CountInStock: 0}
	require.NoError(t, f.DB.Create(&product).Error)
	line := models.CartProduct{
		UserID:            user.ID,
		ProductID:         product.ID,
		Quantity:          2,
		ProductName:       product.Name,
		ProductPrice:      product.Price,
		Reserved:          true,
		ReservationExpiry: time.Now().Add(-time.Minute),
	}
	require.NoError(t, f.DB.Create(&line).Error)

	ev := confirmedPayment(user.ID)
	ev.Items = []PaymentItem{{
		CartProductID: line.ID,
		ProductID:     product.ID,
		Quantity:      2,
		UnitPrice:     10,
		ProductName:   product.Name,
	}}
	ev.TotalPrice = 20

	_, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)

	// The consumed line is gone, so even an already-expired reservation can
	// never hand its quantity back.
	err = f.DB.First(&models.CartProduct{}, "id = ?", line.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var p models.Product
	require.NoError(t, f.DB.First(&p, "id = ?", product.ID).Error)
	require.Equal(t, 0, p.CountInStock, "finalization never touches the shelf")
}

func TestFinalizeLearnsBillingCustomerID(t *testing.T) {
	f, _ := newTestFinalizer(t)
	user := createUser(t, f.DB)

	ev := confirmedPayment(user.ID)
	ev.BillingCustomerID = "cus_123"
	_, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)

	var got models.User
	require.NoError(t, f.DB.First(&got, "id = ?", user.ID).Error)
	require.Equal(t, "cus_123", got.PaymentCustomerID)

	// A later payment with a different billing id does not overwrite it.
	second := confirmedPayment(user.ID)
	second.BillingCustomerID = "cus_456"
	_, err = f.Finalize(context.Background(), second)
	require.NoError(t, err)

	require.NoError(t, f.DB.First(&got, "id = ?", user.ID).Error)
	require.Equal(t, "cus_123", got.PaymentCustomerID)
}

func TestFinalizeValidation(t *testing.T) {
	f, _ := newTestFinalizer(t)
	user := createUser(t, f.DB)

	ev := confirmedPayment(user.ID)
	ev.PaymentID = ""
	_, err := f.Finalize(context.Background(), ev)
	require.ErrorIs(t, err, ErrValidation)

	ev = confirmedPayment(user.ID)
	ev.Items = nil
	_, err = f.Finalize(context.Background(), ev)
	require.ErrorIs(t, err, ErrValidation)
}

func TestFinalizeUnknownUser(t *testing.T) {
	f, _ := newTestFinalizer(t)

	_, err := f.Finalize(context.Background(), confirmedPayment(uuid.New()))
	require.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, f.DB.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestFinalizeStorageFailureStaysRetryable(t *testing.T) {
	f, pub := newTestFinalizer(t)
	user := createUser(t, f.DB)
	ev := confirmedPayment(user.ID)

	// A storage failure must not look like success or like a duplicate:
	// the provider has to keep redelivering until the order is durable.
	require.NoError(t, f.DB.Migrator().DropTable(&models.Order{}))
	_, err := f.Finalize(context.Background(), ev)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDuplicate)
	require.Empty(t, pub.events)

	require.NoError(t, f.DB.AutoMigrate(&models.Order{}))
	order, err := f.Finalize(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, ev.PaymentID, order.PaymentID)

	_, err = f.Finalize(context.Background(), ev)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestHandleCommitsTerminalFailures(t *testing.T) {
	f, _ := newTestFinalizer(t)
	user := createUser(t, f.DB)

	// Malformed payloads are logged and dropped, not redelivered.
	require.NoError(t, f.Handle(context.Background(), kafka.Message{Value: []byte("{not json")}))

	// A payment for an unknown user can never succeed on retry.
	body, err := json.Marshal(confirmedPayment(uuid.New()))
	require.NoError(t, err)
	require.NoError(t, f.Handle(context.Background(), kafka.Message{Value: body}))

	// Redelivery of an already finalized payment acks quietly.
	ev := confirmedPayment(user.ID)
	body, err = json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, f.Handle(context.Background(), kafka.Message{Value: body}))
	require.NoError(t, f.Handle(context.Background(), kafka.Message{Value: body}))

	var count int64
	require.NoError(t, f.DB.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
