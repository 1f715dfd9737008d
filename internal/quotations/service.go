package quotations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/pricing"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

const expiryBatchSize = 500

type catalogLoader interface {
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settingsProvider interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
	QuotationValidity(ctx context.Context) (time.Duration, error)
	Currency(ctx context.Context) (enums.Currency, error)
}

// QuotationEvent is the outbox payload for quotation lifecycle changes.
type QuotationEvent struct {
	QuotationID uuid.UUID             `json:"quotation_id"`
	CustomerID  uuid.UUID             `json:"customer_id"`
	VendorID    uuid.UUID             `json:"vendor_id"`
	Status      enums.QuotationStatus `json:"status"`
	Total       decimal.Decimal       `json:"total"`
}

// Service owns the quotation lifecycle from request to decision or expiry.
type Service struct {
	repo     Repository
	catalog  catalogLoader
	tx       txRunner
	outbox   outboxPublisher
	settings settingsProvider
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the quotation service.
func NewService(repo Repository, catalog catalogLoader, tx txRunner, ob outboxPublisher, settings settingsProvider, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quotations repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		tx:       tx,
		outbox:   ob,
		settings: settings,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Request prices the items, splits them per vendor, and persists one pending
// quotation per vendor in a single transaction.
func (s *Service) Request(ctx context.Context, customerID uuid.UUID, items []RequestItemInput, notes *string) ([]models.Quotation, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot request a quotation for an empty cart")
	}

	now := s.now()
	lines, vendorOf, err := s.resolveLines(ctx, items, now)
	if err != nil {
		return nil, err
	}

	taxRate, err := s.settings.TaxRate(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading tax rate")
	}
	validity, err := s.settings.QuotationValidity(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading quotation validity")
	}
	currency, err := s.settings.Currency(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading currency")
	}

	calc, err := NewCalculator(taxRate)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "building calculator")
	}

	groups := map[uuid.UUID][]CalcLine{}
	for i, line := range lines {
		vendorID := vendorOf[items[i].VariantID]
		groups[vendorID] = append(groups[vendorID], line)
	}

	vendorIDs := make([]uuid.UUID, 0, len(groups))
	for vendorID := range groups {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Slice(vendorIDs, func(i, j int) bool { return vendorIDs[i].String() < vendorIDs[j].String() })

	var created []models.Quotation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, vendorID := range vendorIDs {
			result, err := calc.Price(groups[vendorID])
			if err != nil {
				return err
			}

			quotation := &models.Quotation{
				CustomerID: customerID,
				VendorID:   vendorID,
				Status:     enums.QuotationStatusPending,
				Currency:   currency,
				Subtotal:   result.Subtotal,
				TaxRate:    result.TaxRate,
				TaxAmount:  result.TaxAmount,
				Total:      result.Total,
				Notes:      notes,
				ExpiresAt:  now.Add(validity),
				Items:      result.Items,
			}
			if _, err := txRepo.Create(ctx, quotation); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating quotation")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventQuotationRequested,
				AggregateType: enums.AggregateQuotation,
				AggregateID:   quotation.ID,
				Actor:         &outbox.ActorRef{UserID: customerID, Role: enums.UserRoleCustomer.String()},
				Data: QuotationEvent{
					QuotationID: quotation.ID,
					CustomerID:  customerID,
					VendorID:    vendorID,
					Status:      quotation.Status,
					Total:       quotation.Total,
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}

			created = append(created, *quotation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "quotation_count", len(created)), "quotations requested")
	}
	return created, nil
}

func (s *Service) resolveLines(ctx context.Context, items []RequestItemInput, now time.Time) ([]CalcLine, map[uuid.UUID]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		ids = append(ids, item.VariantID)
	}

	variants, err := s.catalog.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading variants")
	}
	byID := make(map[uuid.UUID]models.ProductVariant, len(variants))
	productIDs := make([]uuid.UUID, 0, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
		productIDs = append(productIDs, v.ProductID)
	}
	products, err := s.catalog.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading products")
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	lines := make([]CalcLine, 0, len(items))
	vendorOf := make(map[uuid.UUID]uuid.UUID, len(items))
	for _, item := range items {
		variant, ok := byID[item.VariantID]
		if !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		if !variant.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is no longer available")
		}
		product, ok := products[variant.ProductID]
		if !ok || !product.IsActive || !product.IsRentable {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer rentable")
		}
		if item.Quantity > variant.StockQuantity {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStockUnavailable,
				fmt.Sprintf("only %d of %s in stock", variant.StockQuantity, variant.Name))
		}

		window, err := pricing.NewWindow(item.RentalStart, item.RentalEnd)
		if err != nil {
			return nil, nil, err
		}
		if window.Start.Before(today) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidDateRange, "rental start cannot be in the past")
		}

		lines = append(lines, CalcLine{
			Variant:     variant,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Window:      window,
		})
		vendorOf[item.VariantID] = product.VendorID
	}
	return lines, vendorOf, nil
}

// GetForCustomer loads a quotation owned by the customer, expiring it lazily.
func (s *Service) GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*models.Quotation, error) {
	quotation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation belongs to another customer")
	}
	return quotation, nil
}

// GetForVendor loads a quotation addressed to the vendor, expiring it lazily.
func (s *Service) GetForVendor(ctx context.Context, vendorID, id uuid.UUID) (*models.Quotation, error) {
	quotation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation belongs to another vendor")
	}
	return quotation, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	quotation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "quotation not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading quotation")
	}
	if err := s.lazyExpire(ctx, quotation); err != nil {
		return nil, err
	}
	return quotation, nil
}

// lazyExpire flips a pending quotation whose validity lapsed. Reads repair
// state so the cron sweep is a backstop, not a dependency.
func (s *Service) lazyExpire(ctx context.Context, quotation *models.Quotation) error {
	if quotation.Status != enums.QuotationStatusPending || s.now().Before(quotation.ExpiresAt) {
		return nil
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, quotation.ID, enums.QuotationStatusExpired, nil)
		if err != nil {
			return err
		}
		if !ok {
			// lost the race to a decision or another expiry; reads still win
			return nil
		}
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventQuotationExpired, quotation, enums.QuotationStatusExpired, nil))
	})
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "expiring quotation")
	}
	quotation.Status = enums.QuotationStatusExpired
	return nil
}

// ListForCustomer pages the customer's quotations, repairing expired rows.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error) {
	list, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing quotations")
	}
	s.lazyExpireAll(ctx, list.Quotations)
	return list, nil
}

// ListForVendor pages the vendor's quotations, repairing expired rows.
func (s *Service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*QuotationList, error) {
	list, err := s.repo.ListByVendor(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing quotations")
	}
	s.lazyExpireAll(ctx, list.Quotations)
	return list, nil
}

func (s *Service) lazyExpireAll(ctx context.Context, quotations []models.Quotation) {
	for i := range quotations {
		if err := s.lazyExpire(ctx, &quotations[i]); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "quotation_id", quotations[i].ID.String()), "lazy expiry failed")
		}
	}
}

// Approve moves a pending quotation to approved on behalf of the vendor.
func (s *Service) Approve(ctx context.Context, input DecisionInput) (*models.Quotation, error) {
	return s.decide(ctx, input, enums.QuotationStatusApproved, enums.EventQuotationApproved)
}

// Reject moves a pending quotation to rejected with an optional reason.
func (s *Service) Reject(ctx context.Context, input DecisionInput) (*models.Quotation, error) {
	return s.decide(ctx, input, enums.QuotationStatusRejected, enums.EventQuotationRejected)
}

func (s *Service) decide(ctx context.Context, input DecisionInput, to enums.QuotationStatus, eventType enums.OutboxEventType) (*models.Quotation, error) {
	quotation, err := s.GetForVendor(ctx, input.VendorID, input.QuotationID)
	if err != nil {
		return nil, err
	}

	switch quotation.Status {
	case enums.QuotationStatusPending:
	case enums.QuotationStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeQuotationExpired, "quotation has expired")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("quotation is already %s", quotation.Status))
	}

	now := s.now()
	updates := map[string]any{
		"decided_at": now,
		"decided_by": input.ActorUserID,
	}
	if to == enums.QuotationStatusRejected && input.Reason != nil {
		updates["rejection_reason"] = *input.Reason
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, quotation.ID, to, updates)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "quotation was decided concurrently")
		}
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(eventType, quotation, to, &input.ActorUserID))
	})
	if err != nil {
		return nil, err
	}

	quotation.Status = to
	quotation.DecidedAt = &now
	quotation.DecidedBy = &input.ActorUserID
	if to == enums.QuotationStatusRejected {
		quotation.RejectionReason = input.Reason
	}
	return quotation, nil
}

// ExpireDue bulk-expires pending quotations past their validity. Used by the
// scheduled sweep; returns how many were flipped.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.repo.FindDueForExpiry(ctx, s.now(), expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		q := due[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, q.ID, enums.QuotationStatusExpired, nil)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			expired++
			return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventQuotationExpired, &q, enums.QuotationStatusExpired, nil))
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (s *Service) lifecycleEvent(eventType enums.OutboxEventType, quotation *models.Quotation, status enums.QuotationStatus, actorID *uuid.UUID) outbox.DomainEvent {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateQuotation,
		AggregateID:   quotation.ID,
		Data: QuotationEvent{
			QuotationID: quotation.ID,
			CustomerID:  quotation.CustomerID,
			VendorID:    quotation.VendorID,
			Status:      status,
			Total:       quotation.Total,
		},
		Version: 1,
	}
	if actorID != nil {
		event.Actor = &outbox.ActorRef{UserID: *actorID, VendorID: &quotation.VendorID, Role: enums.UserRoleVendor.String()}
	}
	return event
}
