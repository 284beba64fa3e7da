package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics counts blood request transitions by outcome.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	created     prometheus.Counter
}

// NewLifecycleMetrics registers request lifecycle metrics on reg.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_request_transitions_total",
		Help: "Blood request status transitions by target status and outcome.",
	}, []string{"target", "outcome"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_requests_created_total",
		Help: "Blood requests created.",
	})
	reg.MustRegister(transitions, created)
	return &LifecycleMetrics{transitions: transitions, created: created}
}

// IncCreated counts a newly stored request.
func (m *LifecycleMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// ObserveTransition records a transition attempt; outcome is "ok" or an error code.
func (m *LifecycleMetrics) ObserveTransition(target, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(target), normalizeLabel(outcome)).Inc()
}

// LedgerMetrics tracks inventory adjustments and current stock.
type LedgerMetrics struct {
	adjustments *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	units       *prometheus.GaugeVec
}

// NewLedgerMetrics registers inventory ledger metrics on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_inventory_adjustments_total",
		Help: "Applied inventory adjustments by reason.",
	}, []string{"reason"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_inventory_adjustments_rejected_total",
		Help: "Inventory adjustments refused by the ledger.",
	}, []string{"code"})
	units := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bloodlink_inventory_units",
		Help: "Current units on hand per bank and blood type.",
	}, []string{"bank_id", "blood_type"})
	reg.MustRegister(adjustments, rejected, units)
	return &LedgerMetrics{adjustments: adjustments, rejected: rejected, units: units}
}

// ObserveAdjustment records an applied adjustment and the resulting stock.
func (m *LedgerMetrics) ObserveAdjustment(bankID, bloodType, reason string, resulting int) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(reason)).Inc()
	m.units.WithLabelValues(bankID, bloodType).Set(float64(resulting))
}

// IncRejected counts an adjustment refused with the given error code.
func (m *LedgerMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

// DispatcherMetrics tracks the notification queue.
type DispatcherMetrics struct {
	enqueued  prometheus.Counter
	dropped   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	depth     prometheus.Gauge
}

// NewDispatcherMetrics registers notification dispatcher metrics on reg.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	enqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_notifications_enqueued_total",
		Help: "Notifications accepted onto the dispatch queue.",
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_notifications_dropped_total",
		Help: "Notifications dropped before delivery.",
	}, []string{"reason"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_notifications_delivered_total",
		Help: "Notifications delivered per channel.",
	}, []string{"channel"})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bloodlink_notifications_queue_depth",
		Help: "Notifications waiting in the dispatch queue.",
	})
	reg.MustRegister(enqueued, dropped, delivered, depth)
	return &DispatcherMetrics{enqueued: enqueued, dropped: dropped, delivered: delivered, depth: depth}
}

func (m *DispatcherMetrics) IncEnqueued() {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.Inc()
}

func (m *DispatcherMetrics) IncDropped(reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *DispatcherMetrics) IncDelivered(channel string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *DispatcherMetrics) SetDepth(n int) {
	if m == nil || m.depth == nil {
		return
	}
	m.depth.Set(float64(n))
}
