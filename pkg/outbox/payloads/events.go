package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout fanned out into one or more orders.
type OrderCreatedEvent struct {
	CheckoutID  uuid.UUID `json:"checkout_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SellerID    uuid.UUID `json:"seller_id"`
	TotalCents  int64     `json:"total_cents"`
}

// OrderStateChangedEvent is emitted on every state machine transition.
type OrderStateChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Reason      string            `json:"reason,omitempty"`
}

// EscrowMovementEvent reports a ledger append.
type EscrowMovementEvent struct {
	OrderID     uuid.UUID             `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	Kind        enums.EscrowEntryKind `json:"kind"`
	AmountCents int64                 `json:"amount_cents"`
}

// PaymentSettledEvent is emitted when the gateway confirms a charge.
type PaymentSettledEvent struct {
	CheckoutID  uuid.UUID `json:"checkout_id"`
	Reference   string    `json:"reference"`
	AmountCents int64     `json:"amount_cents"`
	Channel     string    `json:"channel,omitempty"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderExpiredEvent is emitted when an unpaid order passes its payment window.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ExpiredAt   time.Time `json:"expired_at"`
}
