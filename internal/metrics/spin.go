package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spin_requests_total",
			Help: "Total spin ledger operations by result and op",
		},
		[]string{"result", "op"},
	)

	spinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spin_request_duration_ms",
			Help:    "Spin ledger operation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "op"},
	)

	walletCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_calls_total",
			Help: "Outbound wallet port calls by op and result",
		},
		[]string{"op", "result"},
	)
)

// RecordSpin records business metrics for a spin ledger call.
// result should be "success" or "fail"; op is place|settle|rollback|close.
func RecordSpin(result, op string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	o := strings.ToLower(op)
	spinTotal.WithLabelValues(res, o).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	spinDuration.WithLabelValues(res, o).Observe(durMs)
}

// RecordWalletCall 记录一次钱包出站调用结果
func RecordWalletCall(op string, err error) {
	res := "success"
	if err != nil {
		res = "fail"
	}
	walletCallTotal.WithLabelValues(op, res).Inc()
}
