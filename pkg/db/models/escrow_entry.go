package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// EscrowEntry is one row of the append-only escrow ledger. Rows are never
// updated or deleted; money movement is derived by summing entries.
//
// Two uniqueness rules guard the ledger:
//   - IdempotencyKey dedupes replays of the same cause (a payment reference
//     for holds, an order-scoped key for release/refund).
//   - TerminalKey is the order ID for release and refund entries and NULL for
//     holds, so at most one terminal entry can ever exist per order. The
//     losing side of a concurrent settle sees a unique violation.
type EscrowEntry struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Kind           enums.EscrowEntryKind `gorm:"column:kind;type:text;not null"`
	AmountCents    money.Money           `gorm:"column:amount_cents;not null"`
	IdempotencyKey string                `gorm:"column:idempotency_key;type:text;not null;uniqueIndex:idx_escrow_idempotency"`
	TerminalKey    *string               `gorm:"column:terminal_key;type:text;uniqueIndex:idx_escrow_terminal"`
	Note           *string               `gorm:"column:note"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
