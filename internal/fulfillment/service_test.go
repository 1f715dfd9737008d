package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/orders"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

type stubRecords struct {
	records []*models.RentalRecord
}

func (s *stubRecords) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubRecords) Create(_ context.Context, record *models.RentalRecord) (*models.RentalRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *stubRecords) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.RentalRecord, error) {
	var out []models.RentalRecord
	for _, r := range s.records {
		if r.OrderID == orderID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func (s *stubOrderRepo) WithTx(_ *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderRepo) FindByQuotationID(_ context.Context, _ uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListByCustomer(_ context.Context, _ uuid.UUID, _ pagination.Params, _ orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderRepo) ListByVendor(_ context.Context, _ uuid.UUID, _ pagination.Params, _ orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	if fee, ok := updates["late_fee"].(decimal.Decimal); ok {
		order.LateFee = fee
	}
	if total, ok := updates["total"].(decimal.Decimal); ok {
		order.Total = total
	}
	return true, nil
}

func (s *stubOrderRepo) FindPendingBefore(_ context.Context, _ time.Time, _ int) ([]models.Order, error) {
	return nil, nil
}

type stubCatalog struct {
	variants map[uuid.UUID]models.ProductVariant
}

func (s *stubCatalog) FindVariantsByIDs(_ context.Context, ids []uuid.UUID) ([]models.ProductVariant, error) {
	var out []models.ProductVariant
	for _, id := range ids {
		if v, ok := s.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubSettings struct{}

func (stubSettings) LateFeePercent(context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.20"), nil
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
	svc       *Service
	records   *stubRecords
	orderRepo *stubOrderRepo
	catalog   *stubCatalog
	outbox    *stubOutbox
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records := &stubRecords{}
	orderRepo := &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
	catalog := &stubCatalog{variants: map[uuid.UUID]models.ProductVariant{}}
	ob := &stubOutbox{}

	svc, err := NewService(records, orderRepo, catalog, stubSettings{}, stubTx{}, ob, nil)
	require.NoError(t, err)

	now := time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, records: records, orderRepo: orderRepo, catalog: catalog, outbox: ob, now: now}
}

func (f *fixture) seedOrder(status enums.OrderStatus, scheduledEnd time.Time) (*models.Order, uuid.UUID) {
	daily := decimal.RequireFromString("1000")
	variantID := uuid.New()
	f.catalog.variants[variantID] = models.ProductVariant{ID: variantID, DailyRate: &daily}

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "RV-20240105-TEST01",
		CustomerID:    uuid.New(),
		VendorID:      uuid.New(),
		Status:        status,
		PaymentStatus: enums.PaymentStatusPaid,
		Currency:      enums.CurrencyINR,
		Subtotal:      decimal.RequireFromString("5000"),
		TaxRate:       decimal.RequireFromString("0.18"),
		TaxAmount:     decimal.RequireFromString("900"),
		LateFee:       decimal.Zero,
		Total:         decimal.RequireFromString("5900"),
		LineItems: []models.OrderLineItem{{
			ID:               uuid.New(),
			ProductVariantID: variantID,
			ProductName:      "Excavator",
			VariantName:      "Mini",
			Quantity:         1,
			RentalStart:      scheduledEnd.AddDate(0, 0, -5),
			RentalEnd:        scheduledEnd,
			RateUnit:         enums.RateUnitDaily,
			UnitPrice:        decimal.RequireFromString("5000"),
			LineTotal:        decimal.RequireFromString("5000"),
		}},
	}
	f.orderRepo.orders[order.ID] = order
	return order, variantID
}

func TestRecordPickup(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(enums.OrderStatusConfirmed, f.now.AddDate(0, 0, 3))

	record, err := f.svc.RecordPickup(context.Background(), PickupInput{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RentalEventPickup, record.EventType)
	assert.True(t, record.OccurredAt.Equal(f.now))
	assert.Equal(t, enums.OrderStatusPickedUp, f.orderRepo.orders[order.ID].Status)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderPickedUp, f.outbox.events[0].EventType)
}

func TestRecordPickupRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(enums.OrderStatusPending, f.now.AddDate(0, 0, 3))

	_, err := f.svc.RecordPickup(context.Background(), PickupInput{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		ActorUserID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestPreviewReturnLate(t *testing.T) {
	f := newFixture(t)
	scheduled := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	order, _ := f.seedOrder(enums.OrderStatusPickedUp, scheduled)

	preview, err := f.svc.PreviewReturn(context.Background(), PreviewInput{
		OrderID:    order.ID,
		VendorID:   order.VendorID,
		ProposedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, preview.Lines, 1)
	assert.Equal(t, 2, preview.Lines[0].DaysLate)
	// 2 days * 1000 daily * 0.20
	assert.True(t, preview.TotalLateFee.Equal(decimal.RequireFromString("400")), "fee %s", preview.TotalLateFee)
	assert.True(t, preview.NewTotal.Equal(decimal.RequireFromString("6300")), "total %s", preview.NewTotal)

	// preview persists nothing
	assert.Empty(t, f.records.records)
	assert.Equal(t, enums.OrderStatusPickedUp, f.orderRepo.orders[order.ID].Status)
}

func TestPreviewReturnOnTime(t *testing.T) {
	f := newFixture(t)
	scheduled := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	order, _ := f.seedOrder(enums.OrderStatusPickedUp, scheduled)

	preview, err := f.svc.PreviewReturn(context.Background(), PreviewInput{
		OrderID:    order.ID,
		VendorID:   order.VendorID,
		ProposedAt: scheduled.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	assert.True(t, preview.TotalLateFee.IsZero())
	assert.True(t, preview.NewTotal.Equal(order.Total))
}

func TestRecordReturnAppliesLateFee(t *testing.T) {
	f := newFixture(t)
	scheduled := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	order, _ := f.seedOrder(enums.OrderStatusPickedUp, scheduled)

	record, err := f.svc.RecordReturn(context.Background(), ReturnInput{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		ActorUserID: uuid.New(),
		OccurredAt:  time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalEventReturn, record.EventType)
	assert.Equal(t, 2, record.LateDays)
	assert.True(t, record.LateFee.Equal(decimal.RequireFromString("400")), "fee %s", record.LateFee)

	stored := f.orderRepo.orders[order.ID]
	assert.Equal(t, enums.OrderStatusReturned, stored.Status)
	assert.True(t, stored.LateFee.Equal(decimal.RequireFromString("400")))
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("6300")))

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderReturned, f.outbox.events[0].EventType)
}

func TestRecordReturnRequiresPickedUp(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(enums.OrderStatusConfirmed, f.now)

	_, err := f.svc.RecordReturn(context.Background(), ReturnInput{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		ActorUserID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestCompleteFinalizesReturnedOrder(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(enums.OrderStatusReturned, f.now)

	completed, err := f.svc.Complete(context.Background(), CompleteInput{
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderCompleted, f.outbox.events[0].EventType)
}

func TestVendorOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(enums.OrderStatusConfirmed, f.now)

	_, err := f.svc.RecordPickup(context.Background(), PickupInput{
		OrderID:     order.ID,
		VendorID:    uuid.New(),
		ActorUserID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestDailyBasisFallsBackToLineTotal(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	item := models.OrderLineItem{
		Quantity:    2,
		RentalStart: start,
		RentalEnd:   start.AddDate(0, 0, 4),
		LineTotal:   decimal.RequireFromString("800"),
	}

	basis, err := dailyBasis(item, nil)
	require.NoError(t, err)
	// 800 / 2 units / 4 days
	assert.True(t, basis.Equal(decimal.RequireFromString("100")), "basis %s", basis)
}
