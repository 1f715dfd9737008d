package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/quotations"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
)

type stubRequester struct {
	received []quotations.RequestItemInput
	result   []models.Quotation
	err      error
}

func (s *stubRequester) Request(_ context.Context, _ uuid.UUID, items []quotations.RequestItemInput, _ *string) ([]models.Quotation, error) {
	s.received = items
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubCatalog struct {
	variants map[uuid.UUID]models.ProductVariant
	products map[uuid.UUID]models.Product
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		variants: map[uuid.UUID]models.ProductVariant{},
		products: map[uuid.UUID]models.Product{},
	}
}

func (s *stubCatalog) FindVariantByID(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	v, ok := s.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (s *stubCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *stubCatalog) add(stock int) models.ProductVariant {
	product := models.Product{
		ID:         uuid.New(),
		VendorID:   uuid.New(),
		Name:       "Scaffolding Tower",
		IsRentable: true,
		IsActive:   true,
	}
	variant := models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     product.ID,
		Name:          "6m",
		StockQuantity: stock,
		IsActive:      true,
	}
	s.products[product.ID] = product
	s.variants[variant.ID] = variant
	return variant
}

func newCartService(t *testing.T) (*Service, *stubCatalog, *stubRequester) {
	t.Helper()
	requester := &stubRequester{}
	catalog := newStubCatalog()
	svc, err := NewService(NewMemoryStore(), catalog, requester, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, catalog, requester
}

func window() (time.Time, time.Time) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 3)
}

func TestAddItemSnapshotsProduct(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()

	snapshot, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID:   variant.ID,
		Quantity:    2,
		RentalStart: start,
		RentalEnd:   end,
	})
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)

	item := snapshot.Items[0]
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 10, item.StockAvailable)
	assert.Equal(t, variant.ProductID, item.ProductID)
	assert.Equal(t, "Scaffolding Tower", item.ProductName)
	assert.Equal(t, "6m", item.VariantName)
	assert.Equal(t, catalog.products[variant.ProductID].VendorID, item.VendorID)

	loaded, err := svc.Get(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, variant.ID, loaded.Items[0].VariantID)
}

func TestAddItemMergesSameWindow(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()
	input := AddItemInput{VariantID: variant.ID, Quantity: 1, RentalStart: start, RentalEnd: end}

	_, err := svc.AddItem(context.Background(), customerID, input)
	require.NoError(t, err)
	snapshot, err := svc.AddItem(context.Background(), customerID, input)
	require.NoError(t, err)

	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, 2, snapshot.Items[0].Quantity)
}

func TestAddItemDifferentWindowAddsLine(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 3, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)

	newStart := start.AddDate(0, 0, 7)
	snapshot, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1, RentalStart: newStart, RentalEnd: newStart.AddDate(0, 0, 2),
	})
	require.NoError(t, err)

	// same variant, two windows, two lines; the first line is untouched
	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, 3, snapshot.Items[0].Quantity)
	assert.True(t, snapshot.Items[0].RentalStart.Equal(start))
	assert.Equal(t, 1, snapshot.Items[1].Quantity)
	assert.True(t, snapshot.Items[1].RentalStart.Equal(newStart))
}

func TestAddItemValidation(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 0, RentalStart: start, RentalEnd: end,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMissingRentalWindow))

	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1, RentalStart: end, RentalEnd: start,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidDateRange))

	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: uuid.New(), Quantity: 1, RentalStart: start, RentalEnd: end,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestAddItemInsufficientStock(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(3)
	start, end := window()

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 4, RentalStart: start, RentalEnd: end,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	// merging over the stock ceiling fails too
	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
}

func TestUpdateItem(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)

	qty := 5
	snapshot, err := svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start,
		RentalEnd:   end,
		Quantity:    &qty,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Items[0].Quantity)

	// a line is addressed by variant plus window, not variant alone
	_, err = svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start.AddDate(0, 0, 30),
		RentalEnd:   end.AddDate(0, 0, 30),
		Quantity:    &qty,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	badEnd := start.Add(-time.Hour)
	_, err = svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start,
		RentalEnd:   end,
		NewEnd:      &badEnd,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidDateRange))

	tooMany := 11
	_, err = svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start,
		RentalEnd:   end,
		Quantity:    &tooMany,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)

	zero := 0
	snapshot, err := svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start,
		RentalEnd:   end,
		Quantity:    &zero,
	})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)

	loaded, err := svc.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestUpdateItemRekeysWindow(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()
	otherStart := start.AddDate(0, 0, 7)
	otherEnd := otherStart.AddDate(0, 0, 2)

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 3, RentalStart: otherStart, RentalEnd: otherEnd,
	})
	require.NoError(t, err)

	// moving the first line onto the second line's window merges them
	snapshot, err := svc.UpdateItem(context.Background(), customerID, UpdateItemInput{
		VariantID:   variant.ID,
		RentalStart: start,
		RentalEnd:   end,
		NewStart:    &otherStart,
		NewEnd:      &otherEnd,
	})
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, 5, snapshot.Items[0].Quantity)
	assert.True(t, snapshot.Items[0].RentalStart.Equal(otherStart))
}

func TestRemoveItemTargetsOneLine(t *testing.T) {
	svc, catalog, _ := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()
	otherStart := start.AddDate(0, 0, 7)
	otherEnd := otherStart.AddDate(0, 0, 2)

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 1, RentalStart: otherStart, RentalEnd: otherEnd,
	})
	require.NoError(t, err)

	snapshot, err := svc.RemoveItem(context.Background(), customerID, variant.ID, start, end)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.True(t, snapshot.Items[0].RentalStart.Equal(otherStart))

	snapshot, err = svc.RemoveItem(context.Background(), customerID, variant.ID, otherStart, otherEnd)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)

	loaded, err := svc.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestRequestQuotationClearsCartOnSuccess(t *testing.T) {
	svc, catalog, requester := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()
	requester.result = []models.Quotation{{ID: uuid.New()}}

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)

	created, err := svc.RequestQuotation(context.Background(), customerID, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Len(t, requester.received, 1)
	assert.Equal(t, variant.ID, requester.received[0].VariantID)

	loaded, err := svc.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestRequestQuotationKeepsCartOnFailure(t *testing.T) {
	svc, catalog, requester := newCartService(t)
	customerID := uuid.New()
	variant := catalog.add(10)
	start, end := window()
	requester.err = pkgerrors.New(pkgerrors.CodeStockUnavailable, "out of stock")

	_, err := svc.AddItem(context.Background(), customerID, AddItemInput{
		VariantID: variant.ID, Quantity: 2, RentalStart: start, RentalEnd: end,
	})
	require.NoError(t, err)

	_, err = svc.RequestQuotation(context.Background(), customerID, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockUnavailable))

	loaded, err := svc.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 1)
}

func TestRequestQuotationEmptyCart(t *testing.T) {
	svc, _, _ := newCartService(t)

	_, err := svc.RequestQuotation(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))
}
