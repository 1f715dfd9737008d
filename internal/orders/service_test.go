package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/products"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

type stubRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubRepo) FindByQuotationID(_ context.Context, quotationID uuid.UUID) (*models.Order, error) {
	for _, order := range s.orders {
		if order.QuotationID != nil && *order.QuotationID == quotationID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListByCustomer(_ context.Context, _ uuid.UUID, _ pagination.Params, _ ListFilters) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubRepo) ListByVendor(_ context.Context, _ uuid.UUID, _ pagination.Params, _ ListFilters) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	if ps, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		order.PaymentStatus = ps
	}
	if reason, ok := updates["cancel_reason"].(string); ok {
		order.CancelReason = &reason
	}
	return true, nil
}

func (s *stubRepo) FindPendingBefore(_ context.Context, cutoff time.Time, _ int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.Status == enums.OrderStatusPending &&
			order.PaymentStatus == enums.PaymentStatusPending &&
			order.CreatedAt.Before(cutoff) {
			out = append(out, *order)
		}
	}
	return out, nil
}

type stubQuotations struct {
	quotations map[uuid.UUID]*models.Quotation
}

func (s *stubQuotations) FindByID(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
	q, ok := s.quotations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

type stubInventory struct {
	stock      map[uuid.UUID]int
	decrements map[uuid.UUID]int
	increments map[uuid.UUID]int
}

func newStubInventory() *stubInventory {
	return &stubInventory{
		stock:      map[uuid.UUID]int{},
		decrements: map[uuid.UUID]int{},
		increments: map[uuid.UUID]int{},
	}
}

func (s *stubInventory) DecrementStock(_ context.Context, variantID uuid.UUID, qty int) error {
	if s.stock[variantID] < qty {
		return products.ErrInsufficientStock
	}
	s.stock[variantID] -= qty
	s.decrements[variantID] += qty
	return nil
}

func (s *stubInventory) IncrementStock(_ context.Context, variantID uuid.UUID, qty int) error {
	s.stock[variantID] += qty
	s.increments[variantID] += qty
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc        *Service
	repo       *stubRepo
	quotations *stubQuotations
	inventory  *stubInventory
	outbox     *stubOutbox
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRepo()
	quotations := &stubQuotations{quotations: map[uuid.UUID]*models.Quotation{}}
	inventory := newStubInventory()
	ob := &stubOutbox{}

	svc, err := NewService(repo, quotations,
		func(*gorm.DB) Inventory { return inventory }, stubTx{}, ob, nil)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, quotations: quotations, inventory: inventory, outbox: ob, now: now}
}

func (f *fixture) seedQuotation(status enums.QuotationStatus) (*models.Quotation, uuid.UUID) {
	variantID := uuid.New()
	start := f.now.AddDate(0, 0, 7)
	q := &models.Quotation{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		VendorID:   uuid.New(),
		Status:     status,
		Currency:   enums.CurrencyINR,
		Subtotal:   decimal.RequireFromString("900"),
		TaxRate:    decimal.RequireFromString("0.18"),
		TaxAmount:  decimal.RequireFromString("162"),
		Total:      decimal.RequireFromString("1062"),
		ExpiresAt:  f.now.Add(72 * time.Hour),
		Items: []models.QuotationItem{{
			ID:               uuid.New(),
			QuotationID:      uuid.New(),
			ProductVariantID: variantID,
			ProductName:      "Floor Sander",
			VariantName:      "Standard",
			Quantity:         2,
			RentalStart:      start,
			RentalEnd:        start.AddDate(0, 0, 3),
			RateUnit:         enums.RateUnitDaily,
			UnitPrice:        decimal.RequireFromString("450"),
			LineTotal:        decimal.RequireFromString("900"),
		}},
	}
	f.quotations.quotations[q.ID] = q
	f.inventory.stock[variantID] = 5
	return q, variantID
}

func TestCreateFromQuotation(t *testing.T) {
	f := newFixture(t)
	q, variantID := f.seedQuotation(enums.QuotationStatusApproved)

	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID:  q.CustomerID,
		QuotationID: q.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("1062")))
	require.NotNil(t, order.QuotationID)
	assert.Equal(t, q.ID, *order.QuotationID)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "Floor Sander", order.LineItems[0].ProductName)

	assert.Equal(t, 2, f.inventory.decrements[variantID])
	assert.Equal(t, 3, f.inventory.stock[variantID])

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderCreated, f.outbox.events[0].EventType)
}

func TestCreateFromQuotationRequiresApproval(t *testing.T) {
	f := newFixture(t)

	pending, _ := f.seedQuotation(enums.QuotationStatusPending)
	_, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: pending.CustomerID, QuotationID: pending.ID,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition))

	expired, _ := f.seedQuotation(enums.QuotationStatusExpired)
	_, err = f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: expired.CustomerID, QuotationID: expired.ID,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeQuotationExpired))
}

func TestCreateFromQuotationWrongCustomer(t *testing.T) {
	f := newFixture(t)
	q, _ := f.seedQuotation(enums.QuotationStatusApproved)

	_, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: uuid.New(), QuotationID: q.ID,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestCreateFromQuotationOnlyOnce(t *testing.T) {
	f := newFixture(t)
	q, _ := f.seedQuotation(enums.QuotationStatusApproved)
	input := CreateInput{CustomerID: q.CustomerID, QuotationID: q.ID}

	_, err := f.svc.CreateFromQuotation(context.Background(), input)
	require.NoError(t, err)

	_, err = f.svc.CreateFromQuotation(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateFromQuotationInsufficientStock(t *testing.T) {
	f := newFixture(t)
	q, variantID := f.seedQuotation(enums.QuotationStatusApproved)
	f.inventory.stock[variantID] = 1

	_, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Empty(t, f.outbox.events)
}

func TestMarkPaidConfirmsOrder(t *testing.T) {
	f := newFixture(t)
	q, _ := f.seedQuotation(enums.QuotationStatusApproved)
	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrderID:     order.ID,
		VendorID:    q.VendorID,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, paid.Status)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)

	last := f.outbox.events[len(f.outbox.events)-1]
	assert.Equal(t, enums.EventOrderConfirmed, last.EventType)

	// a second mark-paid is rejected
	_, err = f.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrderID: order.ID, VendorID: q.VendorID, ActorUserID: uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestConfirmPaymentSkipsVendorScope(t *testing.T) {
	f := newFixture(t)
	q, _ := f.seedQuotation(enums.QuotationStatusApproved)
	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.NoError(t, err)

	paid, err := f.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, paid.Status)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)

	last := f.outbox.events[len(f.outbox.events)-1]
	assert.Equal(t, enums.EventOrderConfirmed, last.EventType)

	_, err = f.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID, ActorUserID: uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	q, variantID := f.seedQuotation(enums.QuotationStatusApproved)
	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.NoError(t, err)

	reason := "plans changed"
	cancelled, err := f.svc.Cancel(context.Background(), CancelInput{
		OrderID:     order.ID,
		ActorUserID: q.CustomerID,
		Reason:      &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 2, f.inventory.increments[variantID])
	assert.Equal(t, 5, f.inventory.stock[variantID])

	last := f.outbox.events[len(f.outbox.events)-1]
	assert.Equal(t, enums.EventOrderCancelled, last.EventType)
}

func TestCancelConfirmedOrderRejected(t *testing.T) {
	f := newFixture(t)
	q, _ := f.seedQuotation(enums.QuotationStatusApproved)
	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrderID: order.ID, VendorID: q.VendorID, ActorUserID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID, ActorUserID: q.CustomerID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestCancelStalePending(t *testing.T) {
	f := newFixture(t)
	q, variantID := f.seedQuotation(enums.QuotationStatusApproved)
	order, err := f.svc.CreateFromQuotation(context.Background(), CreateInput{
		CustomerID: q.CustomerID, QuotationID: q.ID,
	})
	require.NoError(t, err)
	f.repo.orders[order.ID].CreatedAt = f.now.Add(-300 * time.Hour)

	count, err := f.svc.CancelStalePending(context.Background(), f.now.Add(-240*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, enums.OrderStatusCancelled, f.repo.orders[order.ID].Status)
	assert.Equal(t, 2, f.inventory.increments[variantID])
}
