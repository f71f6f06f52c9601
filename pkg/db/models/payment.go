package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// Payment tracks a single gateway transaction covering every order in a
// checkout. Reference is the gateway reference; its unique index is what makes
// MarkPaid safe to replay from duplicate webhooks.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutID       uuid.UUID           `gorm:"column:checkout_id;type:uuid;not null;index"`
	Reference        string              `gorm:"column:reference;type:text;not null;uniqueIndex"`
	Email            string              `gorm:"column:email;not null"`
	AmountCents      money.Money         `gorm:"column:amount_cents;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'initialized'"`
	AuthorizationURL *string             `gorm:"column:authorization_url"`
	Channel          *string             `gorm:"column:channel"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
