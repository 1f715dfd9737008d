package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

func seedProduct(t *testing.T, repo *Repository, vendorID uuid.UUID, stock int) *models.Product {
	t.Helper()
	daily := decimal.RequireFromString("150")
	product, err := repo.CreateProduct(context.Background(), &models.Product{
		ID:         uuid.New(),
		VendorID:   vendorID,
		Name:       "Scaffolding Tower",
		Slug:       "scaffolding-tower-" + uuid.NewString()[:8],
		Category:   "construction",
		IsRentable: true,
		IsActive:   true,
		Variants: []models.ProductVariant{
			{
				ID:            uuid.New(),
				SKU:           "SKU-" + uuid.NewString()[:8],
				Name:          "6m",
				DailyRate:     &daily,
				StockQuantity: stock,
				IsActive:      true,
			},
		},
	})
	require.NoError(t, err)
	return product
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	vendorID := uuid.New()
	product := seedProduct(t, repo, vendorID, 4)

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, vendorID, found.VendorID)
	require.Len(t, found.Variants, 1)
	assert.Equal(t, 4, found.Variants[0].StockQuantity)

	bySlug, err := repo.FindBySlug(context.Background(), product.Slug)
	require.NoError(t, err)
	assert.Equal(t, product.ID, bySlug.ID)
}

func TestRepositoryDecrementStock(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	product := seedProduct(t, repo, uuid.New(), 3)
	variantID := product.Variants[0].ID
	ctx := context.Background()

	require.NoError(t, repo.DecrementStock(ctx, variantID, 2))

	variant, err := repo.FindVariantByID(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 1, variant.StockQuantity)

	err = repo.DecrementStock(ctx, variantID, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	require.NoError(t, repo.IncrementStock(ctx, variantID, 2))
	variant, err = repo.FindVariantByID(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 3, variant.StockQuantity)
}

func TestRepositoryListFiltersInactive(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	vendorID := uuid.New()

	active := seedProduct(t, repo, vendorID, 1)
	archived := seedProduct(t, repo, vendorID, 1)
	require.NoError(t, repo.UpdateProduct(ctx, archived.ID, map[string]any{"is_active": false}))

	list, err := repo.List(ctx, pagination.Params{Limit: 10}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, active.ID, list.Products[0].ID)

	vendorList, err := repo.ListByVendor(ctx, vendorID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, vendorList.Products, 2)
}
