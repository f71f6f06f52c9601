package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics tracks order lifecycle, escrow ledger writes and gateway calls.
type OrderMetrics struct {
	ordersCreated *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	escrowEntries *prometheus.CounterVec
	gatewayCalls  *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created through checkout.",
	}, []string{"delivery_tier"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order state machine transitions.",
	}, []string{"from", "to"})
	escrowEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_entries_total",
		Help: "Rows appended to the escrow ledger.",
	}, []string{"kind"})
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Payment gateway requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(ordersCreated, transitions, escrowEntries, gatewayCalls)
	return &OrderMetrics{
		ordersCreated: ordersCreated,
		transitions:   transitions,
		escrowEntries: escrowEntries,
		gatewayCalls:  gatewayCalls,
	}
}

// IncOrderCreated increments the created counter for the delivery tier.
func (m *OrderMetrics) IncOrderCreated(tier string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(tier)).Inc()
}

// IncTransition records a completed state machine transition.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncEscrowEntry records a ledger append of the given kind.
func (m *OrderMetrics) IncEscrowEntry(kind string) {
	if m == nil || m.escrowEntries == nil {
		return
	}
	m.escrowEntries.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncGatewayCall records a gateway request outcome ("ok" or "error").
func (m *OrderMetrics) IncGatewayCall(operation, outcome string) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
