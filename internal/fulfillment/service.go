package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/orders"
	"github.com/rentiva/rentiva-backend/internal/pricing"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
)

type catalogLoader interface {
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
}

type settingsProvider interface {
	LateFeePercent(ctx context.Context) (decimal.Decimal, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PickupInput records equipment handover to the customer.
type PickupInput struct {
	OrderID     uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
	OccurredAt  time.Time
	Notes       *string
}

// ReturnInput records equipment coming back, possibly late.
type ReturnInput struct {
	OrderID     uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
	OccurredAt  time.Time
	Notes       *string
}

// PreviewInput asks what a return at the proposed time would cost.
type PreviewInput struct {
	OrderID    uuid.UUID
	VendorID   uuid.UUID
	ProposedAt time.Time
}

// CompleteInput finalizes a returned order.
type CompleteInput struct {
	OrderID     uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
}

// PreviewLine is the advisory late fee for one order line.
type PreviewLine struct {
	ProductVariantID uuid.UUID       `json:"product_variant_id"`
	VariantName      string          `json:"variant_name"`
	ScheduledEnd     time.Time       `json:"scheduled_end"`
	DaysLate         int             `json:"days_late"`
	LateFee          decimal.Decimal `json:"late_fee"`
}

// Preview is the advisory outcome of returning an order at a proposed time.
// Nothing is persisted; vendors recompute it while editing the return date.
type Preview struct {
	OrderID      uuid.UUID       `json:"order_id"`
	ProposedAt   time.Time       `json:"proposed_at"`
	Lines        []PreviewLine   `json:"lines"`
	TotalLateFee decimal.Decimal `json:"total_late_fee"`
	NewTotal     decimal.Decimal `json:"new_total"`
}

// Service moves orders through pickup and return and applies late fees.
type Service struct {
	records  Repository
	orders   orders.Repository
	catalog  catalogLoader
	settings settingsProvider
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the fulfillment service.
func NewService(records Repository, orderRepo orders.Repository, catalog catalogLoader, settings settingsProvider, tx txRunner, ob outboxPublisher, logg *logger.Logger) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("rental record repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		records:  records,
		orders:   orderRepo,
		catalog:  catalog,
		settings: settings,
		tx:       tx,
		outbox:   ob,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// RecordPickup marks a confirmed order as picked up and appends the record.
func (s *Service) RecordPickup(ctx context.Context, input PickupInput) (*models.RentalRecord, error) {
	order, err := s.loadVendorOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusPickedUp) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot record pickup on a %s order", order.Status))
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	record := &models.RentalRecord{
		OrderID:    order.ID,
		EventType:  enums.RentalEventPickup,
		OccurredAt: occurredAt,
		RecordedBy: input.ActorUserID,
		Notes:      input.Notes,
		LateFee:    decimal.Zero,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusPickedUp, nil)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order state changed concurrently")
		}
		if _, err := s.records.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "recording pickup")
		}
		order.Status = enums.OrderStatusPickedUp
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderPickedUp, order, input.ActorUserID))
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// PreviewReturn computes late fees for a return at the proposed time without
// persisting anything.
func (s *Service) PreviewReturn(ctx context.Context, input PreviewInput) (*Preview, error) {
	order, err := s.loadVendorOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPickedUp {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot preview a return on a %s order", order.Status))
	}

	proposedAt := input.ProposedAt
	if proposedAt.IsZero() {
		proposedAt = s.now()
	}
	return s.buildPreview(ctx, order, proposedAt)
}

func (s *Service) buildPreview(ctx context.Context, order *models.Order, at time.Time) (*Preview, error) {
	percent, err := s.settings.LateFeePercent(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading late fee percentage")
	}

	variantIDs := make([]uuid.UUID, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		variantIDs = append(variantIDs, item.ProductVariantID)
	}
	variants, err := s.catalog.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading variants")
	}
	dailyRates := make(map[uuid.UUID]*decimal.Decimal, len(variants))
	for _, v := range variants {
		dailyRates[v.ID] = v.DailyRate
	}

	preview := &Preview{
		OrderID:      order.ID,
		ProposedAt:   at,
		TotalLateFee: decimal.Zero,
	}
	for _, item := range order.LineItems {
		basis, err := dailyBasis(item, dailyRates[item.ProductVariantID])
		if err != nil {
			return nil, err
		}
		fee := ComputeLateFee(item.RentalEnd, at, basis, item.Quantity, percent)
		preview.Lines = append(preview.Lines, PreviewLine{
			ProductVariantID: item.ProductVariantID,
			VariantName:      item.VariantName,
			ScheduledEnd:     item.RentalEnd,
			DaysLate:         fee.DaysLate,
			LateFee:          fee.Fee,
		})
		preview.TotalLateFee = preview.TotalLateFee.Add(fee.Fee)
	}
	preview.NewTotal = order.Total.Add(preview.TotalLateFee)
	return preview, nil
}

// dailyBasis is the per-unit per-day price the late fee is charged against.
// Falls back to the line's effective daily cost when no daily tier exists.
func dailyBasis(item models.OrderLineItem, dailyRate *decimal.Decimal) (decimal.Decimal, error) {
	if dailyRate != nil && dailyRate.IsPositive() {
		return *dailyRate, nil
	}
	window, err := pricing.NewWindow(item.RentalStart, item.RentalEnd)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "deriving daily basis")
	}
	days := decimal.NewFromInt(int64(window.Days()))
	qty := decimal.NewFromInt(int64(item.Quantity))
	return item.LineTotal.Div(qty).Div(days).Round(2), nil
}

// RecordReturn marks a picked-up order as returned and applies any late fee
// to the order total.
func (s *Service) RecordReturn(ctx context.Context, input ReturnInput) (*models.RentalRecord, error) {
	order, err := s.loadVendorOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusReturned) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot record a return on a %s order", order.Status))
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	preview, err := s.buildPreview(ctx, order, occurredAt)
	if err != nil {
		return nil, err
	}
	maxDaysLate := 0
	for _, line := range preview.Lines {
		if line.DaysLate > maxDaysLate {
			maxDaysLate = line.DaysLate
		}
	}

	record := &models.RentalRecord{
		OrderID:    order.ID,
		EventType:  enums.RentalEventReturn,
		OccurredAt: occurredAt,
		RecordedBy: input.ActorUserID,
		Notes:      input.Notes,
		LateDays:   maxDaysLate,
		LateFee:    preview.TotalLateFee,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusReturned, map[string]any{
			"late_fee": preview.TotalLateFee,
			"total":    preview.NewTotal,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order state changed concurrently")
		}
		if _, err := s.records.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "recording return")
		}
		order.Status = enums.OrderStatusReturned
		order.LateFee = preview.TotalLateFee
		order.Total = preview.NewTotal
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderReturned, order, input.ActorUserID))
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && record.LateFee.IsPositive() {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"late_fee": record.LateFee.String(),
		}), "late fee applied on return")
	}
	return record, nil
}

// Complete finalizes a returned order.
func (s *Service) Complete(ctx context.Context, input CompleteInput) (*models.Order, error) {
	order, err := s.loadVendorOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCompleted) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot complete a %s order", order.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusCompleted, nil)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order state changed concurrently")
		}
		order.Status = enums.OrderStatusCompleted
		return s.outbox.Emit(ctx, tx, s.lifecycleEvent(enums.EventOrderCompleted, order, input.ActorUserID))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// History lists pickup and return records for an order the vendor owns.
func (s *Service) History(ctx context.Context, vendorID, orderID uuid.UUID) ([]models.RentalRecord, error) {
	if _, err := s.loadVendorOrder(ctx, vendorID, orderID); err != nil {
		return nil, err
	}
	records, err := s.records.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing rental records")
	}
	return records, nil
}

func (s *Service) loadVendorOrder(ctx context.Context, vendorID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading order")
	}
	if order.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another vendor")
	}
	return order, nil
}

func (s *Service) lifecycleEvent(eventType enums.OutboxEventType, order *models.Order, actorID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, VendorID: &order.VendorID, Role: enums.UserRoleVendor.String()},
		Data: orders.OrderEvent{
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
}
