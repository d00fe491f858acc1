package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	PaymentOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_outcomes_total",
		Help: "Payment attempts by integration mode and outcome.",
	}, []string{"mode", "outcome"})

	TransportRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_gateway_transport_requests_total",
		Help: "Outbound gateway requests by transport strategy and result.",
	}, []string{"strategy", "result"})

	TransportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_gateway_transport_duration_seconds",
		Help:    "Outbound gateway request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	CartRestorations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_cart_restorations_total",
		Help: "Cart restoration attempts after failed payments by result.",
	}, []string{"result"})

	HookErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_transaction_hook_errors_total",
		Help: "Failed-transaction notifications that could not be delivered, by sink.",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		PaymentOutcomes,
		TransportRequests,
		TransportDuration,
		CartRestorations,
		HookErrors,
	)
}
