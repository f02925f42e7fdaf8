package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"nftledger/core/events"
)

// LedgerMetrics aggregates the prometheus instruments exposed by the ledger
// service.
type LedgerMetrics struct {
	rpcRequests *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	settlements *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Metrics returns the lazily-initialised ledger metrics registry.
func Metrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftledger",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftledger",
				Subsystem: "transfer_call",
				Name:      "resolutions_total",
				Help:      "Transfer-call resolutions segmented by outcome and reason.",
			}, []string{"outcome", "reason"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftledger",
				Subsystem: "storage",
				Name:      "settlements_total",
				Help:      "Storage-cost settlements segmented by direction.",
			}, []string{"direction"}),
		}
		prometheus.MustRegister(ledgerRegistry.rpcRequests, ledgerRegistry.resolutions, ledgerRegistry.settlements)
	})
	return ledgerRegistry
}

// ObserveRPC records one JSON-RPC request.
func (m *LedgerMetrics) ObserveRPC(method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

// Emitter wraps the supplied emitter so that ledger events also feed the
// prometheus counters. A nil next emitter discards the events after counting.
func (m *LedgerMetrics) Emitter(next events.Emitter) events.Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &countingEmitter{metrics: m, next: next}
}

type countingEmitter struct {
	metrics *LedgerMetrics
	next    events.Emitter
}

func (c *countingEmitter) Emit(event events.Event) {
	switch e := event.(type) {
	case events.NFTTransferCallResolved:
		c.metrics.resolutions.WithLabelValues(e.Outcome, e.Reason).Inc()
	case events.NFTStorageSettled:
		direction := "charge"
		if e.Refund {
			direction = "refund"
		}
		c.metrics.settlements.WithLabelValues(direction).Inc()
	}
	c.next.Emit(event)
}
