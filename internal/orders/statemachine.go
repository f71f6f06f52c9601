package orders

import (
	"fmt"

	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

// transitions is the single source of truth for the order lifecycle. Any
// (from, to) pair absent from this table is rejected.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusEscrowHeld,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusEscrowHeld: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
		enums.OrderStatusDisputed,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered,
		enums.OrderStatusDisputed,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusCompleted,
		enums.OrderStatusDisputed,
	},
	enums.OrderStatusDisputed: {
		enums.OrderStatusRefunded,
	},
}

// CanTransition reports whether the state machine admits from → to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// GuardTransition returns a state-conflict error when from → to is not
// admitted by the transition table.
func GuardTransition(from, to enums.OrderStatus) error {
	if !from.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown order status %q", from))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown order status %q", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", from, to),
		).WithDetails(map[string]any{"from": from, "to": to})
	}
	return nil
}
