package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/delivery"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// Order is the marketplace aggregate: one product, one buyer, one seller.
// A multi-line checkout fans out into several orders sharing a CheckoutID.
// BuyerID is nullable so a guest checkout can complete before the buyer
// creates an account.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string             `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	CheckoutID       uuid.UUID          `gorm:"column:checkout_id;type:uuid;not null;index"`
	BuyerID          *uuid.UUID         `gorm:"column:buyer_id;type:uuid;index"`
	BuyerEmail       string             `gorm:"column:buyer_email;not null"`
	SellerID         uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID        uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	ProductName      string             `gorm:"column:product_name;not null"`
	Quantity         int                `gorm:"column:quantity;not null"`
	UnitPriceCents   money.Money        `gorm:"column:unit_price_cents;not null"`
	SubtotalCents    money.Money        `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents money.Money        `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       money.Money        `gorm:"column:total_cents;not null"`
	DeliveryLocation string             `gorm:"column:delivery_location;not null"`
	DeliveryTier     delivery.Tier      `gorm:"column:delivery_tier;type:text;not null"`
	Status           enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	EscrowStatus     enums.EscrowStatus `gorm:"column:escrow_status;type:text;not null;default:'none'"`
	PaymentRef       *string            `gorm:"column:payment_ref;type:text"`
	TrackingNumber   *string            `gorm:"column:tracking_number"`
	ProofOfDelivery  *string            `gorm:"column:proof_of_delivery"`
	CancelReason     *string            `gorm:"column:cancel_reason"`
	DisputeReason    *string            `gorm:"column:dispute_reason"`
	PaidAt           *time.Time         `gorm:"column:paid_at"`
	ShippedAt        *time.Time         `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time         `gorm:"column:delivered_at"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CancelledAt      *time.Time         `gorm:"column:cancelled_at"`
	ExpiresAt        *time.Time         `gorm:"column:expires_at;index"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOwnedBy reports whether the order belongs to the given buyer account.
func (o Order) IsOwnedBy(buyerID uuid.UUID) bool {
	return o.BuyerID != nil && *o.BuyerID == buyerID
}
