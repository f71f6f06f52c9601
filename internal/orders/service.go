package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/internal/escrow"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/metrics"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type escrowLedger interface {
	Hold(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, paymentRef string) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money) error
	Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount money.Money, note string) error
}

// StockRestorer returns reserved stock when an order dies before shipment.
type StockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	MarkPaid(ctx context.Context, checkoutID uuid.UUID, paymentRef string, paidAt time.Time) error
	MarkShipped(ctx context.Context, sellerID uuid.UUID, orderNumber, trackingNumber string) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, sellerID uuid.UUID, orderNumber string) (*OrderDTO, error)
	ConfirmReceipt(ctx context.Context, buyerID uuid.UUID, orderNumber, proof string) (*OrderDTO, error)
	Cancel(ctx context.Context, buyerID uuid.UUID, orderNumber, reason string) (*OrderDTO, error)
	ReportDispute(ctx context.Context, buyerID uuid.UUID, orderNumber, reason string) (*OrderDTO, error)
	ResolveDisputeWithRefund(ctx context.Context, orderNumber, note string) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderNumber string, viewer *Viewer) (*OrderDTO, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error)
	AutoCompleteDelivered(ctx context.Context, cutoff time.Time, batchSize int) (int, error)
}

// Viewer identifies the authenticated caller on read paths. A nil viewer is
// an anonymous tracking lookup and gets the redacted payload.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  escrowLedger
	stock   StockRestorer
	outbox  outboxPublisher
	metrics *metrics.OrderMetrics
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, ledger escrowLedger, stock StockRestorer, publisher outboxPublisher, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("escrow ledger required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger, stock: stock, outbox: publisher, metrics: m}, nil
}

// MarkPaid moves every pending order in the checkout to escrow_held and
// appends the matching hold entries. Safe to replay per payment reference:
// orders that already left pending are skipped and the ledger dedupes holds.
func (s *service) MarkPaid(ctx context.Context, checkoutID uuid.UUID, paymentRef string, paidAt time.Time) error {
	if checkoutID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout id required")
	}
	if strings.TrimSpace(paymentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.FindByCheckoutID(ctx, checkoutID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no orders for checkout")
		}

		for _, order := range rows {
			if order.Status != enums.OrderStatusPending {
				// Replayed webhook or verify after the first settle.
				continue
			}
			moved, err := repo.UpdateWhereStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{
				"status":        enums.OrderStatusEscrowHeld,
				"escrow_status": enums.EscrowStatusHeld,
				"payment_ref":   paymentRef,
				"paid_at":       paidAt,
				"expires_at":    nil,
			})
			if err != nil {
				return err
			}
			if !moved {
				continue
			}
			if err := s.ledger.Hold(ctx, tx, order.ID, order.TotalCents, paymentRef); err != nil {
				return err
			}
			s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusEscrowHeld))
			s.metrics.IncEscrowEntry(string(enums.EscrowEntryHold))

			if err := s.emitStateChange(ctx, tx, order, enums.OrderStatusEscrowHeld, enums.EventOrderPaid, "payment settled"); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventEscrowHeld,
				AggregateType: enums.AggregateEscrow,
				AggregateID:   order.ID,
				Data: payloads.EscrowMovementEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					Kind:        enums.EscrowEntryHold,
					AmountCents: int64(order.TotalCents),
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkShipped records the seller handing the parcel to a carrier.
func (s *service) MarkShipped(ctx context.Context, sellerID uuid.UUID, orderNumber, trackingNumber string) (*OrderDTO, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		if err := GuardTransition(order.Status, enums.OrderStatusShipped); err != nil {
			return err
		}

		now := time.Now()
		moved, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, map[string]any{
			"status":          enums.OrderStatusShipped,
			"tracking_number": trackingNumber,
			"shipped_at":      now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state concurrently")
		}
		s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusShipped))
		if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusShipped, enums.EventOrderShipped, ""); err != nil {
			return err
		}

		order.Status = enums.OrderStatusShipped
		order.TrackingNumber = &trackingNumber
		order.ShippedAt = &now
		dto := ToOrderDTO(*order)
		result = &dto
		return nil
	})
	return result, err
}

// MarkDelivered is first-write-wins: replaying it against a delivered order
// returns the order unchanged.
func (s *service) MarkDelivered(ctx context.Context, sellerID uuid.UUID, orderNumber string) (*OrderDTO, error) {
	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		if order.Status == enums.OrderStatusDelivered {
			dto := ToOrderDTO(*order)
			result = &dto
			return nil
		}
		if err := GuardTransition(order.Status, enums.OrderStatusDelivered); err != nil {
			return err
		}

		now := time.Now()
		moved, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		})
		if err != nil {
			return err
		}
		if !moved {
			// Lost the race; reload and hand back whatever won.
			fresh, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return err
			}
			if fresh.Status != enums.OrderStatusDelivered {
				return GuardTransition(fresh.Status, enums.OrderStatusDelivered)
			}
			dto := ToOrderDTO(*fresh)
			result = &dto
			return nil
		}
		s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusDelivered))
		if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusDelivered, enums.EventOrderDelivered, ""); err != nil {
			return err
		}

		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now
		dto := ToOrderDTO(*order)
		result = &dto
		return nil
	})
	return result, err
}

// ConfirmReceipt completes the order and releases the escrow to the seller.
// A concurrent duplicate sees the ledger's terminal-entry uniqueness and
// returns the completed order instead of failing.
func (s *service) ConfirmReceipt(ctx context.Context, buyerID uuid.UUID, orderNumber, proof string) (*OrderDTO, error) {
	proof = strings.TrimSpace(proof)
	if proof == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof of delivery required")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(buyerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if order.Status == enums.OrderStatusCompleted {
			dto := ToOrderDTO(*order)
			result = &dto
			return nil
		}
		if err := GuardTransition(order.Status, enums.OrderStatusCompleted); err != nil {
			return err
		}

		if err := s.ledger.Release(ctx, tx, order.ID, order.TotalCents); err != nil {
			if errors.Is(err, escrow.ErrAlreadySettled) {
				fresh, ferr := repo.FindByID(ctx, order.ID)
				if ferr != nil {
					return ferr
				}
				dto := ToOrderDTO(*fresh)
				result = &dto
				return nil
			}
			return err
		}

		now := time.Now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":            enums.OrderStatusCompleted,
			"escrow_status":     enums.EscrowStatusReleased,
			"proof_of_delivery": proof,
			"completed_at":      now,
		}); err != nil {
			return err
		}
		s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusCompleted))
		s.metrics.IncEscrowEntry(string(enums.EscrowEntryRelease))
		if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusCompleted, enums.EventOrderCompleted, "buyer confirmed receipt"); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowReleased,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   order.ID,
			Data: payloads.EscrowMovementEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Kind:        enums.EscrowEntryRelease,
				AmountCents: int64(order.TotalCents),
			},
		}); err != nil {
			return err
		}

		order.Status = enums.OrderStatusCompleted
		order.EscrowStatus = enums.EscrowStatusReleased
		order.ProofOfDelivery = &proof
		order.CompletedAt = &now
		dto := ToOrderDTO(*order)
		result = &dto
		return nil
	})
	return result, err
}

// Cancel lets the buyer back out before shipment. Paid orders are refunded
// through the ledger; unpaid ones just die. Reserved stock returns either way.
func (s *service) Cancel(ctx context.Context, buyerID uuid.UUID, orderNumber, reason string) (*OrderDTO, error) {
	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(buyerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if err := GuardTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		dto, err := s.cancelLocked(ctx, tx, repo, order, reason, enums.EventOrderCancelled)
		if err != nil {
			return err
		}
		result = dto
		return nil
	})
	return result, err
}

// cancelLocked performs the shared cancellation path for buyer cancels and
// cron expiry. The caller has already checked the transition is legal.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, reason string, eventType enums.OutboxEventType) (*OrderDTO, error) {
	wasPaid := order.Status == enums.OrderStatusEscrowHeld

	moved, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, map[string]any{
		"status":        enums.OrderStatusCancelled,
		"cancel_reason": reason,
		"cancelled_at":  time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state concurrently")
	}

	if wasPaid {
		if err := s.ledger.Refund(ctx, tx, order.ID, order.TotalCents, reason); err != nil && !errors.Is(err, escrow.ErrAlreadySettled) {
			return nil, err
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"escrow_status": enums.EscrowStatusRefunded,
		}); err != nil {
			return nil, err
		}
		s.metrics.IncEscrowEntry(string(enums.EscrowEntryRefund))
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowRefunded,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   order.ID,
			Data: payloads.EscrowMovementEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Kind:        enums.EscrowEntryRefund,
				AmountCents: int64(order.TotalCents),
			},
		}); err != nil {
			return nil, err
		}
	}

	if err := s.stock.Restore(ctx, tx, order.ProductID, order.Quantity); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusCancelled))
	if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusCancelled, eventType, reason); err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusCancelled
	if wasPaid {
		order.EscrowStatus = enums.EscrowStatusRefunded
	}
	order.CancelReason = &reason
	dto := ToOrderDTO(*order)
	return &dto, nil
}

// ReportDispute freezes the escrow until resolution.
func (s *service) ReportDispute(ctx context.Context, buyerID uuid.UUID, orderNumber, reason string) (*OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(buyerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if err := GuardTransition(order.Status, enums.OrderStatusDisputed); err != nil {
			return err
		}

		moved, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, map[string]any{
			"status":         enums.OrderStatusDisputed,
			"dispute_reason": reason,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state concurrently")
		}
		s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusDisputed))
		if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusDisputed, enums.EventOrderDisputed, reason); err != nil {
			return err
		}

		order.Status = enums.OrderStatusDisputed
		order.DisputeReason = &reason
		dto := ToOrderDTO(*order)
		result = &dto
		return nil
	})
	return result, err
}

// ResolveDisputeWithRefund settles a disputed order in the buyer's favor.
func (s *service) ResolveDisputeWithRefund(ctx context.Context, orderNumber, note string) (*OrderDTO, error) {
	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusRefunded {
			dto := ToOrderDTO(*order)
			result = &dto
			return nil
		}
		if err := GuardTransition(order.Status, enums.OrderStatusRefunded); err != nil {
			return err
		}

		if err := s.ledger.Refund(ctx, tx, order.ID, order.TotalCents, note); err != nil {
			if errors.Is(err, escrow.ErrAlreadySettled) {
				fresh, ferr := repo.FindByID(ctx, order.ID)
				if ferr != nil {
					return ferr
				}
				dto := ToOrderDTO(*fresh)
				result = &dto
				return nil
			}
			return err
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":        enums.OrderStatusRefunded,
			"escrow_status": enums.EscrowStatusRefunded,
		}); err != nil {
			return err
		}
		s.metrics.IncTransition(string(order.Status), string(enums.OrderStatusRefunded))
		s.metrics.IncEscrowEntry(string(enums.EscrowEntryRefund))
		if err := s.emitStateChange(ctx, tx, *order, enums.OrderStatusRefunded, enums.EventOrderRefunded, note); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowRefunded,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   order.ID,
			Data: payloads.EscrowMovementEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Kind:        enums.EscrowEntryRefund,
				AmountCents: int64(order.TotalCents),
			},
		}); err != nil {
			return err
		}

		order.Status = enums.OrderStatusRefunded
		order.EscrowStatus = enums.EscrowStatusRefunded
		dto := ToOrderDTO(*order)
		result = &dto
		return nil
	})
	return result, err
}

// GetOrder returns the full payload for the order's buyer or seller and the
// redacted tracking payload for anyone else.
func (s *service) GetOrder(ctx context.Context, orderNumber string, viewer *Viewer) (*OrderDTO, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if viewer != nil {
		owns := order.IsOwnedBy(viewer.UserID)
		sells := order.SellerID == viewer.UserID
		if owns || sells || viewer.Role == enums.UserRoleAdmin {
			dto := ToOrderDTO(*order)
			return &dto, nil
		}
	}
	dto := ToPublicOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, err
	}
	return toListResult(rows, next), nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, err
	}
	return toListResult(rows, next), nil
}

// ExpirePending cancels unpaid orders whose payment window lapsed, restoring
// their reserved stock. Returns how many orders were expired.
func (s *service) ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	expired := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.FindExpiredPending(ctx, now, batchSize)
		if err != nil {
			return err
		}
		for i := range rows {
			order := rows[i]
			if _, err := s.cancelLocked(ctx, tx, repo, &order, "payment window expired", enums.EventOrderExpired); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	return expired, err
}

// AutoCompleteDelivered releases escrow for delivered orders the buyer never
// confirmed within the confirmation window.
func (s *service) AutoCompleteDelivered(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	completed := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.FindDeliveredBefore(ctx, cutoff, batchSize)
		if err != nil {
			return err
		}
		for i := range rows {
			order := rows[i]
			if err := s.ledger.Release(ctx, tx, order.ID, order.TotalCents); err != nil {
				if errors.Is(err, escrow.ErrAlreadySettled) {
					continue
				}
				return err
			}
			if err := repo.Update(ctx, order.ID, map[string]any{
				"status":        enums.OrderStatusCompleted,
				"escrow_status": enums.EscrowStatusReleased,
				"completed_at":  time.Now(),
			}); err != nil {
				return err
			}
			s.metrics.IncTransition(string(enums.OrderStatusDelivered), string(enums.OrderStatusCompleted))
			s.metrics.IncEscrowEntry(string(enums.EscrowEntryRelease))
			if err := s.emitStateChange(ctx, tx, order, enums.OrderStatusCompleted, enums.EventOrderCompleted, "confirmation window elapsed"); err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	return completed, err
}

func (s *service) emitStateChange(ctx context.Context, tx *gorm.DB, order models.Order, to enums.OrderStatus, eventType enums.OutboxEventType, reason string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderStateChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        order.Status,
			To:          to,
			OccurredAt:  time.Now(),
			Reason:      reason,
		},
	})
}

func toListResult(rows []models.Order, next string) *OrderListResult {
	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToOrderDTO(row))
	}
	return &OrderListResult{Items: items, NextCursor: next}
}
