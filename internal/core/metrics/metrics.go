package metrics

import "github.com/prometheus/client_golang/prometheus"

const ns = "needboard"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"},
	)
)

// 业务指标
var (
	Unlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "unlocks_total", Help: "Unlock attempts by result"},
		[]string{"result"},
	)
	CreditsPurchased = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: ns, Name: "credits_purchased_total", Help: "Credits added from payment codes"},
	)
	NeedsPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "needs_posted_total", Help: "Needs posted by category"},
		[]string{"category"},
	)
	NeedsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: ns, Name: "needs_expired_total", Help: "Needs removed by the expiry sweeper"},
	)
	Refunds = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: ns, Name: "refunds_total", Help: "Unlock transactions refunded"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, Unlocks, CreditsPurchased, NeedsPosted, NeedsExpired, Refunds)
}
