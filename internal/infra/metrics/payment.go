package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersInitiated,
		callbacksTotal,
		grantsTotal,
		gatewayLatencyMs,
		reconcilerRuns,
	)
}

var (
	ordersInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_initiated_total",
			Help: "Count of initiated payment orders per plan.",
		},
		[]string{"plan"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callback outcomes.",
		},
		[]string{"result"}, // success, invalid_mac, malformed, recovered, error
	)

	grantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_grants_total",
			Help: "Entitlement grant outcomes.",
		},
		[]string{"outcome"}, // granted, duplicate, error
	)

	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_ms",
			Help:    "Outbound gateway call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)

	reconcilerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciler_settled_total",
			Help: "Transactions finalized by the reconciliation sweep.",
		},
		[]string{"outcome"}, // paid, failed, skipped
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncOrderInitiated(plan string) {
	ordersInitiated.WithLabelValues(norm(plan)).Inc()
}

func IncCallback(result string) {
	callbacksTotal.WithLabelValues(norm(result)).Inc()
}

func IncGrant(outcome string) {
	grantsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveGatewayCall(op string, latencyMs int64, success bool) {
	gatewayLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).Observe(float64(latencyMs))
}

func IncReconciled(outcome string) {
	reconcilerRuns.WithLabelValues(norm(outcome)).Inc()
}
