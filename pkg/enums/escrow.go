package enums

import "fmt"

// EscrowStatus is the order-level projection of the escrow ledger.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = "none"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusNone,
	EscrowStatusHeld,
	EscrowStatusReleased,
	EscrowStatusRefunded,
}

// String implements fmt.Stringer.
func (e EscrowStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowStatus.
func (e EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEscrowStatus converts raw input into an EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}

// EscrowEntryKind classifies a row in the append-only escrow ledger.
type EscrowEntryKind string

const (
	EscrowEntryHold    EscrowEntryKind = "hold"
	EscrowEntryRelease EscrowEntryKind = "release"
	EscrowEntryRefund  EscrowEntryKind = "refund"
)

var validEscrowEntryKinds = []EscrowEntryKind{
	EscrowEntryHold,
	EscrowEntryRelease,
	EscrowEntryRefund,
}

// String implements fmt.Stringer.
func (e EscrowEntryKind) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowEntryKind.
func (e EscrowEntryKind) IsValid() bool {
	for _, candidate := range validEscrowEntryKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the entry settles the order's escrow balance.
func (e EscrowEntryKind) IsTerminal() bool {
	return e == EscrowEntryRelease || e == EscrowEntryRefund
}

// ParseEscrowEntryKind converts raw input into an EscrowEntryKind.
func ParseEscrowEntryKind(value string) (EscrowEntryKind, error) {
	for _, candidate := range validEscrowEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow entry kind %q", value)
}
