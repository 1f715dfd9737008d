package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.RentalRecord{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func TestCreateAndListRecords(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	orderID := uuid.New()
	base := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	_, err := repo.Create(context.Background(), &models.RentalRecord{
		ID:         uuid.New(),
		OrderID:    orderID,
		EventType:  enums.RentalEventPickup,
		OccurredAt: base,
		RecordedBy: uuid.New(),
		LateFee:    decimal.Zero,
	})
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), &models.RentalRecord{
		ID:         uuid.New(),
		OrderID:    orderID,
		EventType:  enums.RentalEventReturn,
		OccurredAt: base.AddDate(0, 0, 5),
		RecordedBy: uuid.New(),
		LateDays:   2,
		LateFee:    decimal.RequireFromString("400"),
	})
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), &models.RentalRecord{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		EventType:  enums.RentalEventPickup,
		OccurredAt: base,
		RecordedBy: uuid.New(),
		LateFee:    decimal.Zero,
	})
	require.NoError(t, err)

	records, err := repo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, enums.RentalEventPickup, records[0].EventType)
	assert.Equal(t, enums.RentalEventReturn, records[1].EventType)
	assert.Equal(t, 2, records[1].LateDays)
}
