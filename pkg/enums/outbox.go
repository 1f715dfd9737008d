package enums

import "fmt"

// OutboxEventType names the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventQuotationRequested OutboxEventType = "quotation.requested"
	EventQuotationApproved  OutboxEventType = "quotation.approved"
	EventQuotationRejected  OutboxEventType = "quotation.rejected"
	EventQuotationExpired   OutboxEventType = "quotation.expired"
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderConfirmed     OutboxEventType = "order.confirmed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventOrderPickedUp      OutboxEventType = "order.picked_up"
	EventOrderReturned      OutboxEventType = "order.returned"
	EventOrderCompleted     OutboxEventType = "order.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuotationRequested,
	EventQuotationApproved,
	EventQuotationRejected,
	EventQuotationExpired,
	EventOrderCreated,
	EventOrderConfirmed,
	EventOrderCancelled,
	EventOrderPickedUp,
	EventOrderReturned,
	EventOrderCompleted,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateQuotation OutboxAggregateType = "quotation"
	AggregateOrder     OutboxAggregateType = "order"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateQuotation,
	AggregateOrder,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
