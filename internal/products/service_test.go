package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

type stubRepo struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
	created  []*models.Product
	updates  map[uuid.UUID]map[string]any
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		products: map[uuid.UUID]*models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
		updates:  map[uuid.UUID]map[string]any{},
	}
}

func (s *stubRepo) CreateProduct(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	s.created = append(s.created, product)
	return product, nil
}

func (s *stubRepo) UpdateProduct(_ context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubRepo) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	for _, p := range s.products {
		if p.Slug == slug && p.IsActive {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) List(_ context.Context, _ pagination.Params, _ ListFilters) (*ProductList, error) {
	return &ProductList{}, nil
}

func (s *stubRepo) ListByVendor(_ context.Context, _ uuid.UUID, _ pagination.Params) (*ProductList, error) {
	return &ProductList{}, nil
}

func (s *stubRepo) CreateVariant(_ context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	s.variants[variant.ID] = variant
	return variant, nil
}

func (s *stubRepo) UpdateVariant(_ context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	return nil
}

func (s *stubRepo) FindVariantByID(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := s.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return variant, nil
}

func dailyRate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestServiceCreateRequiresRateTier(t *testing.T) {
	svc, err := NewService(newStubRepo(), nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), uuid.New(), CreateProductInput{
		Name:     "Ladder",
		Category: "construction",
		Variants: []CreateVariantInput{{SKU: "LAD-1", Name: "3m", StockQuantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestServiceCreateProduct(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	vendorID := uuid.New()

	product, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		Name:     "Scissor Lift",
		Category: "access",
		Variants: []CreateVariantInput{{
			SKU:           "sl-19",
			Name:          "19ft",
			DailyRate:     dailyRate("150"),
			StockQuantity: 5,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, vendorID, product.VendorID)
	assert.True(t, product.IsActive)
	assert.True(t, product.IsRentable)
	assert.Contains(t, product.Slug, "scissor-lift-")
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "SL-19", product.Variants[0].SKU)
}

func TestServiceUpdateRejectsOtherVendor(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	owner := uuid.New()
	product, err := svc.Create(context.Background(), owner, CreateProductInput{
		Name:     "Generator",
		Category: "power",
		Variants: []CreateVariantInput{{SKU: "GEN-1", Name: "5kW", DailyRate: dailyRate("90"), StockQuantity: 1}},
	})
	require.NoError(t, err)

	name := "Diesel Generator"
	_, err = svc.Update(context.Background(), uuid.New(), product.ID, UpdateProductInput{Name: &name})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestServiceUpdateVariantKeepsRateTier(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	vendorID := uuid.New()
	product, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		Name:     "Pressure Washer",
		Category: "cleaning",
		Variants: []CreateVariantInput{{SKU: "PW-1", Name: "2000psi", DailyRate: dailyRate("60"), StockQuantity: 2}},
	})
	require.NoError(t, err)
	variant := &product.Variants[0]
	variant.ID = uuid.New()
	variant.ProductID = product.ID
	repo.variants[variant.ID] = variant

	var cleared *decimal.Decimal
	_, err = svc.UpdateVariant(context.Background(), vendorID, variant.ID, UpdateVariantInput{
		DailyRate: &cleared,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestServiceArchive(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	vendorID := uuid.New()
	product, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		Name:     "Excavator",
		Category: "earthmoving",
		Variants: []CreateVariantInput{{SKU: "EX-1", Name: "1.5t", DailyRate: dailyRate("400"), StockQuantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), vendorID, product.ID))
	assert.Equal(t, false, repo.updates[product.ID]["is_active"])
}
