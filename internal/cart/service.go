package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/quotations"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
)

const maxCartItems = 50

type quotationRequester interface {
	Request(ctx context.Context, customerID uuid.UUID, items []quotations.RequestItemInput, notes *string) ([]models.Quotation, error)
}

type catalogLoader interface {
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput describes a variant being added to the cart.
type AddItemInput struct {
	VariantID   uuid.UUID
	Quantity    int
	RentalStart time.Time
	RentalEnd   time.Time
}

// UpdateItemInput addresses one cart line by variant plus its current window
// and carries the requested changes.
type UpdateItemInput struct {
	VariantID   uuid.UUID
	RentalStart time.Time
	RentalEnd   time.Time
	Quantity    *int
	NewStart    *time.Time
	NewEnd      *time.Time
}

// Service manages cart snapshots and converts them into quotation requests.
type Service struct {
	store      Store
	catalog    catalogLoader
	quotations quotationRequester
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the cart service.
func NewService(store Store, catalog catalogLoader, requester quotationRequester, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if requester == nil {
		return nil, fmt.Errorf("quotation requester required")
	}
	return &Service{store: store, catalog: catalog, quotations: requester, logg: logg, now: time.Now}, nil
}

// Get returns the customer's cart, empty if none exists yet.
func (s *Service) Get(ctx context.Context, customerID uuid.UUID) (*Snapshot, error) {
	snapshot, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// AddItem puts a variant with its rental window into the cart. Adding the
// same variant+window again merges quantities; a different window becomes its
// own line. Stock is checked optimistically against the catalog at add time.
func (s *Service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*Snapshot, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.RentalStart.IsZero() || input.RentalEnd.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeMissingRentalWindow, "rental start and end are required")
	}
	if !input.RentalEnd.After(input.RentalStart) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDateRange, "rental end must be after start")
	}

	variant, product, err := s.lookup(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if idx := snapshot.findLine(input.VariantID, input.RentalStart, input.RentalEnd); idx >= 0 {
		item := &snapshot.Items[idx]
		merged := item.Quantity + input.Quantity
		if merged > variant.StockQuantity {
			return nil, insufficientStock(variant.StockQuantity, item.VariantName)
		}
		item.Quantity = merged
		item.StockAvailable = variant.StockQuantity
		return snapshot, s.save(ctx, customerID, snapshot)
	}

	if len(snapshot.Items) >= maxCartItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart is limited to %d items", maxCartItems))
	}
	if input.Quantity > variant.StockQuantity {
		return nil, insufficientStock(variant.StockQuantity, variant.Name)
	}

	snapshot.Items = append(snapshot.Items, Item{
		VariantID:      variant.ID,
		ProductID:      product.ID,
		VendorID:       product.VendorID,
		ProductName:    product.Name,
		VariantName:    variant.Name,
		Quantity:       input.Quantity,
		StockAvailable: variant.StockQuantity,
		RentalStart:    input.RentalStart,
		RentalEnd:      input.RentalEnd,
		AddedAt:        s.now(),
	})
	return snapshot, s.save(ctx, customerID, snapshot)
}

// UpdateItem changes quantity or window on an existing line. A quantity below
// one removes the line. Changing the window re-keys the line and merges it
// into an existing line with the same variant and window.
func (s *Service) UpdateItem(ctx context.Context, customerID uuid.UUID, input UpdateItemInput) (*Snapshot, error) {
	snapshot, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	idx := snapshot.findLine(input.VariantID, input.RentalStart, input.RentalEnd)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	item := &snapshot.Items[idx]

	if input.Quantity != nil {
		if *input.Quantity < 1 {
			snapshot.removeItem(idx)
			return snapshot, s.persist(ctx, customerID, snapshot)
		}
		if *input.Quantity > item.StockAvailable {
			return nil, insufficientStock(item.StockAvailable, item.VariantName)
		}
		item.Quantity = *input.Quantity
	}

	newStart, newEnd := item.RentalStart, item.RentalEnd
	if input.NewStart != nil {
		newStart = *input.NewStart
	}
	if input.NewEnd != nil {
		newEnd = *input.NewEnd
	}
	if !newEnd.After(newStart) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDateRange, "rental end must be after start")
	}

	if target := snapshot.findLine(item.VariantID, newStart, newEnd); target >= 0 && target != idx {
		merged := snapshot.Items[target].Quantity + item.Quantity
		if merged > snapshot.Items[target].StockAvailable {
			return nil, insufficientStock(snapshot.Items[target].StockAvailable, item.VariantName)
		}
		snapshot.Items[target].Quantity = merged
		snapshot.removeItem(idx)
	} else {
		item.RentalStart = newStart
		item.RentalEnd = newEnd
	}

	return snapshot, s.save(ctx, customerID, snapshot)
}

// RemoveItem drops the line matching the variant and window.
func (s *Service) RemoveItem(ctx context.Context, customerID, variantID uuid.UUID, start, end time.Time) (*Snapshot, error) {
	snapshot, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	idx := snapshot.findLine(variantID, start, end)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	snapshot.removeItem(idx)
	return snapshot, s.persist(ctx, customerID, snapshot)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, customerID uuid.UUID) error {
	return s.clear(ctx, customerID)
}

// RequestQuotation turns the cart into per-vendor quotation requests. The cart
// is cleared only after the request succeeds, so validation failures leave it
// intact for the customer to fix.
func (s *Service) RequestQuotation(ctx context.Context, customerID uuid.UUID, notes *string) ([]models.Quotation, error) {
	snapshot, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	items := make([]quotations.RequestItemInput, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, quotations.RequestItemInput{
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			RentalStart: item.RentalStart,
			RentalEnd:   item.RentalEnd,
		})
	}

	created, err := s.quotations.Request(ctx, customerID, items, notes)
	if err != nil {
		return nil, err
	}

	if err := s.clear(ctx, customerID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "customer_id", customerID.String()), "clearing cart after quotation request failed")
	}
	return created, nil
}

func (s *Service) lookup(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, *models.Product, error) {
	variant, err := s.catalog.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading variant")
	}
	if !variant.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is no longer available")
	}
	product, err := s.catalog.FindByID(ctx, variant.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading product")
	}
	if !product.IsActive || !product.IsRentable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer rentable")
	}
	return variant, product, nil
}

func insufficientStock(available int, name string) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("only %d of %s in stock", available, name))
}

func (s *Service) load(ctx context.Context, customerID uuid.UUID) (*Snapshot, error) {
	snapshot, err := s.store.Load(ctx, identity(customerID))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading cart")
	}
	if snapshot == nil {
		snapshot = &Snapshot{CustomerID: customerID}
	}
	return snapshot, nil
}

// persist saves the snapshot, or clears the stored cart when it became empty.
func (s *Service) persist(ctx context.Context, customerID uuid.UUID, snapshot *Snapshot) error {
	if len(snapshot.Items) == 0 {
		return s.clear(ctx, customerID)
	}
	return s.save(ctx, customerID, snapshot)
}

func (s *Service) save(ctx context.Context, customerID uuid.UUID, snapshot *Snapshot) error {
	snapshot.CustomerID = customerID
	snapshot.UpdatedAt = s.now()
	if err := s.store.Save(ctx, identity(customerID), snapshot); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "saving cart")
	}
	return nil
}

func (s *Service) clear(ctx context.Context, customerID uuid.UUID) error {
	if err := s.store.Clear(ctx, identity(customerID)); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "clearing cart")
	}
	return nil
}

func identity(customerID uuid.UUID) string {
	return customerID.String()
}
