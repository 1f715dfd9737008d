package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/rentiva/rentiva-backend/pkg/db"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

type repository interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ProductList, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

// Service exposes vendor catalog management and public browsing.
type Service struct {
	repo repository
	logg *logger.Logger
}

// NewService builds the product service.
func NewService(repo repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Create validates and persists a listing with its variants.
func (s *Service) Create(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product category is required")
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}

	variants := make([]models.ProductVariant, 0, len(input.Variants))
	for _, v := range input.Variants {
		variant, err := buildVariant(v)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *variant)
	}

	product := &models.Product{
		VendorID:    vendorID,
		Name:        strings.TrimSpace(input.Name),
		Slug:        newSlug(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		IsRentable:  true,
		IsActive:    true,
		Variants:    variants,
	}
	if input.IsRentable != nil {
		product.IsRentable = *input.IsRentable
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeConflict, "product slug or variant sku already exists")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating product")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID.String()), "product created")
	}
	return created, nil
}

// Update applies partial edits after verifying vendor ownership.
func (s *Service) Update(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product category cannot be empty")
		}
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.IsRentable != nil {
		updates["is_rentable"] = *input.IsRentable
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.UpdateProduct(ctx, productID, updates); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "updating product")
	}
	return s.repo.FindByID(ctx, productID)
}

// Archive deactivates a listing so it disappears from the public catalog.
func (s *Service) Archive(ctx context.Context, vendorID, productID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, productID, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "archiving product")
	}
	return nil
}

// AddVariant attaches a new rentable unit to an owned product.
func (s *Service) AddVariant(ctx context.Context, vendorID, productID uuid.UUID, input CreateVariantInput) (*models.ProductVariant, error) {
	if _, err := s.ownedProduct(ctx, vendorID, productID); err != nil {
		return nil, err
	}

	variant, err := buildVariant(input)
	if err != nil {
		return nil, err
	}
	variant.ProductID = productID

	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeConflict, "variant sku already exists")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating variant")
	}
	return created, nil
}

// UpdateVariant applies partial edits to an owned variant while keeping at
// least one rate tier in place.
func (s *Service) UpdateVariant(ctx context.Context, vendorID, variantID uuid.UUID, input UpdateVariantInput) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, notFoundOrInternal(err, "variant not found")
	}
	if _, err := s.ownedProduct(ctx, vendorID, variant.ProductID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	next := *variant
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Attributes != nil {
		updates["attributes"] = *input.Attributes
	}
	applyRate(updates, &next.HourlyRate, "hourly_rate", input.HourlyRate)
	applyRate(updates, &next.DailyRate, "daily_rate", input.DailyRate)
	applyRate(updates, &next.WeeklyRate, "weekly_rate", input.WeeklyRate)
	applyRate(updates, &next.MonthlyRate, "monthly_rate", input.MonthlyRate)
	if input.SecurityDeposit != nil {
		if input.SecurityDeposit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "security deposit cannot be negative")
		}
		updates["security_deposit"] = *input.SecurityDeposit
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		updates["stock_quantity"] = *input.StockQuantity
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if !next.HasRateTier() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant must keep at least one rate tier")
	}
	if err := validateRates(next.HourlyRate, next.DailyRate, next.WeeklyRate, next.MonthlyRate); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return variant, nil
	}
	if err := s.repo.UpdateVariant(ctx, variantID, updates); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "updating variant")
	}
	return s.repo.FindVariantByID(ctx, variantID)
}

// GetBySlug serves the public product detail page.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOrInternal(err, "product not found")
	}
	return product, nil
}

// GetVendorProduct loads a product for its owning vendor.
func (s *Service) GetVendorProduct(ctx context.Context, vendorID, productID uuid.UUID) (*models.Product, error) {
	return s.ownedProduct(ctx, vendorID, productID)
}

// ListPublic pages through the active catalog.
func (s *Service) ListPublic(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing products")
	}
	return list, nil
}

// ListVendor pages through the vendor's own listings.
func (s *Service) ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ProductList, error) {
	list, err := s.repo.ListByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing vendor products")
	}
	return list, nil
}

func (s *Service) ownedProduct(ctx context.Context, vendorID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOrInternal(err, "product not found")
	}
	if product.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}
	return product, nil
}

func buildVariant(input CreateVariantInput) (*models.ProductVariant, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	if err := validateRates(input.HourlyRate, input.DailyRate, input.WeeklyRate, input.MonthlyRate); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		SKU:           strings.ToUpper(strings.TrimSpace(input.SKU)),
		Name:          strings.TrimSpace(input.Name),
		Attributes:    input.Attributes,
		HourlyRate:    input.HourlyRate,
		DailyRate:     input.DailyRate,
		WeeklyRate:    input.WeeklyRate,
		MonthlyRate:   input.MonthlyRate,
		StockQuantity: input.StockQuantity,
		IsActive:      true,
	}
	if input.SecurityDeposit != nil {
		if input.SecurityDeposit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "security deposit cannot be negative")
		}
		variant.SecurityDeposit = *input.SecurityDeposit
	}
	if !variant.HasRateTier() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant requires at least one rate tier")
	}
	return variant, nil
}

func validateRates(rates ...*decimal.Decimal) error {
	for _, rate := range rates {
		if rate != nil && !rate.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "rate tiers must be positive")
		}
	}
	return nil
}

func applyRate(updates map[string]any, target **decimal.Decimal, column string, value **decimal.Decimal) {
	if value == nil {
		return
	}
	*target = *value
	updates[column] = *value
}

func notFoundOrInternal(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(err, pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeInternal, msg)
}

func newSlug(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	suffix := uuid.NewString()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
