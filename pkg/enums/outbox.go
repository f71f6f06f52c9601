package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column on outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateEscrow  OutboxAggregateType = "escrow"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateEscrow,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column on outbox_events.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order_created"
	EventOrderPaid        OutboxEventType = "order_paid"
	EventOrderShipped     OutboxEventType = "order_shipped"
	EventOrderDelivered   OutboxEventType = "order_delivered"
	EventOrderCompleted   OutboxEventType = "order_completed"
	EventOrderCancelled   OutboxEventType = "order_cancelled"
	EventOrderDisputed    OutboxEventType = "order_disputed"
	EventOrderRefunded    OutboxEventType = "order_refunded"
	EventOrderExpired     OutboxEventType = "order_expired"
	EventEscrowHeld       OutboxEventType = "escrow_held"
	EventEscrowReleased   OutboxEventType = "escrow_released"
	EventEscrowRefunded   OutboxEventType = "escrow_refunded"
	EventPaymentSucceeded OutboxEventType = "payment_succeeded"
	EventPaymentFailed    OutboxEventType = "payment_failed"
	EventPaymentAbandoned OutboxEventType = "payment_abandoned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderShipped,
	EventOrderDelivered,
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderDisputed,
	EventOrderRefunded,
	EventOrderExpired,
	EventEscrowHeld,
	EventEscrowReleased,
	EventEscrowRefunded,
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventPaymentAbandoned,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
