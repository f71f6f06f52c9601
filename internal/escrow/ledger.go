package escrow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/kofiasante/kasuwa-backend/pkg/db"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// ErrAlreadySettled is returned (wrapped in a typed error) when a terminal
// entry already exists for the order. Callers treat it as an idempotent
// success: the money has already moved.
var ErrAlreadySettled = pkgerrors.New(pkgerrors.CodeConflict, "escrow already settled for order")

// Projection summarizes an order's ledger entries.
type Projection struct {
	Held     money.Money
	Released money.Money
	Refunded money.Money
}

// Net returns the amount still held in escrow.
func (p Projection) Net() money.Money {
	net := int64(p.Held) - int64(p.Released) - int64(p.Refunded)
	if net < 0 {
		return 0
	}
	return money.Money(net)
}

// Status derives the order-level escrow state from the ledger.
func (p Projection) Status() enums.EscrowStatus {
	switch {
	case p.Refunded > 0:
		return enums.EscrowStatusRefunded
	case p.Released > 0:
		return enums.EscrowStatusReleased
	case p.Held > 0:
		return enums.EscrowStatusHeld
	default:
		return enums.EscrowStatusNone
	}
}

// Ledger appends and sums escrow entries. All writes run inside the caller's
// transaction; the ledger itself never opens one.
type Ledger interface {
	Hold(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, paymentRef string) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money) error
	Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, note string) error
	Project(ctx context.Context, db *gorm.DB, orderID uuid.UUID) (Projection, error)
}

type ledger struct{}

// NewLedger builds the escrow ledger.
func NewLedger() Ledger {
	return ledger{}
}

// Hold appends a hold entry keyed by the payment reference. Replaying the
// same reference is a no-op, so duplicate webhooks cannot double-hold.
func (ledger) Hold(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, paymentRef string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "hold amount must be positive")
	}
	if paymentRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	entry := models.EscrowEntry{
		ID:             uuid.New(),
		OrderID:        orderID,
		Kind:           enums.EscrowEntryHold,
		AmountCents:    amount,
		IdempotencyKey: fmt.Sprintf("hold:%s:%s", orderID, paymentRef),
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append hold entry")
	}
	return nil
}

// Release appends the terminal release entry. When another terminal entry
// already exists the unique index fires and ErrAlreadySettled is returned.
func (ledger) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money) error {
	return appendTerminal(ctx, tx, orderID, enums.EscrowEntryRelease, amount, nil)
}

// Refund appends the terminal refund entry, subject to the same uniqueness.
func (ledger) Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, note string) error {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	return appendTerminal(ctx, tx, orderID, enums.EscrowEntryRefund, amount, notePtr)
}

func appendTerminal(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, kind enums.EscrowEntryKind, amount money.Money, note *string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "settlement amount must be positive")
	}

	terminalKey := orderID.String()
	entry := models.EscrowEntry{
		ID:             uuid.New(),
		OrderID:        orderID,
		Kind:           kind,
		AmountCents:    amount,
		IdempotencyKey: fmt.Sprintf("%s:%s", kind, orderID),
		TerminalKey:    &terminalKey,
		Note:           note,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return ErrAlreadySettled
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append terminal entry")
	}
	return nil
}

// Project sums the ledger for one order.
func (ledger) Project(ctx context.Context, db *gorm.DB, orderID uuid.UUID) (Projection, error) {
	if db == nil {
		return Projection{}, pkgerrors.New(pkgerrors.CodeInternal, "db handle required")
	}

	var rows []models.EscrowEntry
	if err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return Projection{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow entries")
	}

	var projection Projection
	for _, row := range rows {
		switch row.Kind {
		case enums.EscrowEntryHold:
			projection.Held += row.AmountCents
		case enums.EscrowEntryRelease:
			projection.Released += row.AmountCents
		case enums.EscrowEntryRefund:
			projection.Refunded += row.AmountCents
		}
	}
	return projection, nil
}
