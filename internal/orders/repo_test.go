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

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

func seedOrder(t *testing.T, repo Repository, mutate func(*models.Order)) *models.Order {
	t.Helper()
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(time.Now()),
		CustomerID:    uuid.New(),
		VendorID:      uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      enums.CurrencyINR,
		Subtotal:      decimal.RequireFromString("900"),
		TaxRate:       decimal.RequireFromString("0.18"),
		TaxAmount:     decimal.RequireFromString("162"),
		LateFee:       decimal.Zero,
		Total:         decimal.RequireFromString("1062"),
		LineItems: []models.OrderLineItem{{
			ID:               uuid.New(),
			ProductVariantID: uuid.New(),
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
	if mutate != nil {
		mutate(order)
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestCreateAndFindOrder(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	quotationID := uuid.New()
	order := seedOrder(t, repo, func(o *models.Order) {
		o.QuotationID = &quotationID
	})

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, "Floor Sander", found.LineItems[0].ProductName)

	byQuotation, err := repo.FindByQuotationID(context.Background(), quotationID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byQuotation.ID)

	_, err = repo.FindByQuotationID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransitionStatusGuard(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	order := seedOrder(t, repo, nil)

	ok, err := repo.TransitionStatus(context.Background(), order.ID,
		enums.OrderStatusPending, enums.OrderStatusConfirmed, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
		})
	require.NoError(t, err)
	assert.True(t, ok)

	// second transition from pending must miss
	ok, err = repo.TransitionStatus(context.Background(), order.ID,
		enums.OrderStatusPending, enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
}

func TestFindPendingBefore(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	old := seedOrder(t, repo, nil)
	paid := seedOrder(t, repo, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
	})
	recent := seedOrder(t, repo, nil)

	cutoff := time.Now().Add(time.Minute)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", old.ID).
		UpdateColumn("created_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id IN ?", []uuid.UUID{paid.ID, recent.ID}).
		UpdateColumn("created_at", time.Now().Add(time.Hour)).Error)

	stale, err := repo.FindPendingBefore(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestListByVendorStatusFilter(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	vendorID := uuid.New()

	seedOrder(t, repo, func(o *models.Order) { o.VendorID = vendorID })
	seedOrder(t, repo, func(o *models.Order) {
		o.VendorID = vendorID
		o.Status = enums.OrderStatusCancelled
	})
	seedOrder(t, repo, nil)

	status := enums.OrderStatusPending.String()
	list, err := repo.ListByVendor(context.Background(), vendorID, pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, enums.OrderStatusPending, list.Orders[0].Status)
	assert.Nil(t, list.NextCursor)
}
