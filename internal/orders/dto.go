package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/delivery"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
)

// OrderDTO is the full order payload returned to its buyer or seller.
type OrderDTO struct {
	ID               uuid.UUID          `json:"id"`
	OrderNumber      string             `json:"order_number"`
	CheckoutID       uuid.UUID          `json:"checkout_id"`
	BuyerEmail       string             `json:"buyer_email,omitempty"`
	SellerID         uuid.UUID          `json:"seller_id"`
	ProductID        uuid.UUID          `json:"product_id"`
	ProductName      string             `json:"product_name"`
	Quantity         int                `json:"quantity"`
	UnitPriceCents   int64              `json:"unit_price_cents"`
	SubtotalCents    int64              `json:"subtotal_cents"`
	DeliveryFeeCents int64              `json:"delivery_fee_cents"`
	TotalCents       int64              `json:"total_cents"`
	DeliveryLocation string             `json:"delivery_location,omitempty"`
	DeliveryTier     delivery.Tier      `json:"delivery_tier"`
	Status           enums.OrderStatus  `json:"status"`
	EscrowStatus     enums.EscrowStatus `json:"escrow_status"`
	PaymentRef       *string            `json:"payment_ref,omitempty"`
	TrackingNumber   *string            `json:"tracking_number,omitempty"`
	ProofOfDelivery  *string            `json:"proof_of_delivery,omitempty"`
	CancelReason     *string            `json:"cancel_reason,omitempty"`
	DisputeReason    *string            `json:"dispute_reason,omitempty"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	ShippedAt        *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// OrderListResult is a cursor page of orders.
type OrderListResult struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToOrderDTO maps the row to its owner-facing payload.
func ToOrderDTO(m models.Order) OrderDTO {
	return OrderDTO{
		ID:               m.ID,
		OrderNumber:      m.OrderNumber,
		CheckoutID:       m.CheckoutID,
		BuyerEmail:       m.BuyerEmail,
		SellerID:         m.SellerID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		Quantity:         m.Quantity,
		UnitPriceCents:   int64(m.UnitPriceCents),
		SubtotalCents:    int64(m.SubtotalCents),
		DeliveryFeeCents: int64(m.DeliveryFeeCents),
		TotalCents:       int64(m.TotalCents),
		DeliveryLocation: m.DeliveryLocation,
		DeliveryTier:     m.DeliveryTier,
		Status:           m.Status,
		EscrowStatus:     m.EscrowStatus,
		PaymentRef:       m.PaymentRef,
		TrackingNumber:   m.TrackingNumber,
		ProofOfDelivery:  m.ProofOfDelivery,
		CancelReason:     m.CancelReason,
		DisputeReason:    m.DisputeReason,
		PaidAt:           m.PaidAt,
		ShippedAt:        m.ShippedAt,
		DeliveredAt:      m.DeliveredAt,
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
	}
}

// ToPublicOrderDTO redacts contact and payment detail for anonymous
// order-number lookups: enough for a tracking page, nothing more.
func ToPublicOrderDTO(m models.Order) OrderDTO {
	return OrderDTO{
		ID:           m.ID,
		OrderNumber:  m.OrderNumber,
		CheckoutID:   m.CheckoutID,
		SellerID:     m.SellerID,
		ProductID:    m.ProductID,
		ProductName:  m.ProductName,
		Quantity:     m.Quantity,
		TotalCents:   int64(m.TotalCents),
		DeliveryTier: m.DeliveryTier,
		Status:       m.Status,
		EscrowStatus: m.EscrowStatus,
		ShippedAt:    m.ShippedAt,
		DeliveredAt:  m.DeliveredAt,
		CreatedAt:    m.CreatedAt,
	}
}
