package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/products"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
	"github.com/rentiva/rentiva-backend/pkg/pagination"
)

const stalePendingBatchSize = 200

// Inventory adjusts variant stock. Implemented by the products repository.
type Inventory interface {
	DecrementStock(ctx context.Context, variantID uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, variantID uuid.UUID, qty int) error
}

// InventoryFactory binds an Inventory to the transaction an order mutation
// runs in, so stock and order rows commit or roll back together.
type InventoryFactory func(tx *gorm.DB) Inventory

type quotationLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderEvent is the outbox payload for order lifecycle changes.
type OrderEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
}

// Service owns order creation from approved quotations and the payment and
// cancellation edges of the lifecycle. Pickup and return edges live in the
// fulfillment service.
type Service struct {
	repo       Repository
	quotations quotationLoader
	inventory  InventoryFactory
	tx         txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the order service.
func NewService(repo Repository, quotations quotationLoader, inventory InventoryFactory, tx txRunner, ob outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if quotations == nil {
		return nil, fmt.Errorf("quotation loader required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory factory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		repo:       repo,
		quotations: quotations,
		inventory:  inventory,
		tx:         tx,
		outbox:     ob,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// CreateFromQuotation places an order for an approved quotation. Stock is
// decremented inside the same transaction, so an out-of-stock line aborts the
// whole order.
func (s *Service) CreateFromQuotation(ctx context.Context, input CreateInput) (*models.Order, error) {
	quotation, err := s.quotations.FindByID(ctx, input.QuotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "quotation not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading quotation")
	}
	if quotation.CustomerID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation belongs to another customer")
	}

	switch quotation.Status {
	case enums.QuotationStatusApproved:
	case enums.QuotationStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeQuotationExpired, "quotation has expired")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot place an order for a %s quotation", quotation.Status))
	}

	if _, err := s.repo.FindByQuotationID(ctx, input.QuotationID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an order already exists for this quotation")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "checking existing order")
	}

	now := s.now()
	order := &models.Order{
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      quotation.CustomerID,
		VendorID:        quotation.VendorID,
		QuotationID:     &quotation.ID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Currency:        quotation.Currency,
		Subtotal:        quotation.Subtotal,
		TaxRate:         quotation.TaxRate,
		TaxAmount:       quotation.TaxAmount,
		LateFee:         decimal.Zero,
		Total:           quotation.Total,
		DeliveryAddress: input.DeliveryAddress,
		Notes:           input.Notes,
		LineItems:       lineItemsFromQuotation(quotation.Items),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv := s.inventory(tx)
		for _, item := range quotation.Items {
			if err := inv.DecrementStock(ctx, item.ProductVariantID, item.Quantity); err != nil {
				if errors.Is(err, products.ErrInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeInsufficientStock,
						fmt.Sprintf("%s is out of stock", item.VariantName))
				}
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reserving stock")
			}
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating order")
		}

		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderCreated, order, &input.CustomerID, enums.UserRoleCustomer))
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order created")
	}
	return order, nil
}

func lineItemsFromQuotation(items []models.QuotationItem) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderLineItem{
			ProductVariantID: item.ProductVariantID,
			ProductName:      item.ProductName,
			VariantName:      item.VariantName,
			Quantity:         item.Quantity,
			RentalStart:      item.RentalStart,
			RentalEnd:        item.RentalEnd,
			RateUnit:         item.RateUnit,
			UnitPrice:        item.UnitPrice,
			LineTotal:        item.LineTotal,
		})
	}
	return out
}

// GetForCustomer loads an order owned by the customer.
func (s *Service) GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return order, nil
}

// GetForVendor loads an order addressed to the vendor.
func (s *Service) GetForVendor(ctx context.Context, vendorID, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another vendor")
	}
	return order, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading order")
	}
	return order, nil
}

// ListForCustomer pages the customer's orders.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing orders")
	}
	return list, nil
}

// ListForVendor pages the vendor's orders.
func (s *Service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.ListByVendor(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing orders")
	}
	return list, nil
}

// MarkPaid records an offline payment and confirms the order.
func (s *Service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Order, error) {
	order, err := s.GetForVendor(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	return s.confirmPaid(ctx, order, input.ActorUserID, enums.UserRoleVendor)
}

// ConfirmPayment applies an out-of-band payment signal to an order. Admin
// scoped, so it resolves the order without a vendor filter.
func (s *Service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error) {
	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	return s.confirmPaid(ctx, order, input.ActorUserID, enums.UserRoleAdmin)
}

func (s *Service) confirmPaid(ctx context.Context, order *models.Order, actorUserID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot confirm a %s order", order.Status))
	}

	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusConfirmed, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order state changed concurrently")
		}
		order.Status = enums.OrderStatusConfirmed
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderConfirmed, order, &actorUserID, role))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel aborts a pending order on behalf of the customer and restores the
// reserved stock.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	order, err := s.GetForCustomer(ctx, input.ActorUserID, input.OrderID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order, input.Reason, &input.ActorUserID, enums.UserRoleCustomer)
}

func (s *Service) cancel(ctx context.Context, order *models.Order, reason *string, actorID *uuid.UUID, role enums.UserRole) (*models.Order, error) {
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot cancel a %s order", order.Status))
	}

	now := s.now()
	updates := map[string]any{"cancelled_at": now}
	if reason != nil {
		updates["cancel_reason"] = *reason
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled, updates)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order state changed concurrently")
		}

		inv := s.inventory(tx)
		for _, item := range order.LineItems {
			if err := inv.IncrementStock(ctx, item.ProductVariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "restoring stock")
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		order.CancelReason = reason
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderCancelled, order, actorID, role))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelStalePending cancels unpaid pending orders created before the cutoff.
// Used by the scheduled sweep; returns how many were cancelled.
func (s *Service) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindPendingBefore(ctx, cutoff, stalePendingBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing stale orders")
	}

	reason := "payment not received in time"
	cancelled := 0
	for i := range stale {
		order := stale[i]
		if _, err := s.cancel(ctx, &order, &reason, nil, enums.UserRoleAdmin); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition) {
				// order moved since the listing; leave it alone
				continue
			}
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

func (s *Service) lifecycleEvent(eventType enums.OutboxEventType, order *models.Order, actorID *uuid.UUID, role enums.UserRole) outbox.DomainEvent {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: OrderEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			VendorID:      order.VendorID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Total:         order.Total,
		},
		Version: 1,
	}
	if actorID != nil {
		event.Actor = &outbox.ActorRef{UserID: *actorID, Role: role.String()}
	}
	return event
}
