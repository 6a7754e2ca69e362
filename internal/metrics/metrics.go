package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubscriptionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meterwatch_subscription_requests_total",
			Help: "Subscription API requests by mode and business code",
		},
		[]string{"mode", "code"},
	)

	MailDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meterwatch_mail_dispatch_total",
			Help: "Email dispatch attempts by kind and result",
		},
		[]string{"kind", "result"}, // sent, failed, quota, timeout
	)

	MailDispatchSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meterwatch_mail_dispatch_seconds",
			Help:    "Time spent sending one email through the provider",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	AlertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meterwatch_alerts_sent_total",
			Help: "Threshold alerts sent by source",
		},
		[]string{"source"}, // checker, monitor
	)

	MirrorRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meterwatch_mirror_rows_total",
			Help: "Rows written by the portal mirror job by table",
		},
		[]string{"table"},
	)
)

// RecordSubscriptionRequest records one subscription API response
func RecordSubscriptionRequest(mode string, code int) {
	SubscriptionRequestsTotal.WithLabelValues(mode, strconv.Itoa(code)).Inc()
}

// RecordMailDispatch records one dispatch outcome and its latency
func RecordMailDispatch(kind, result string, elapsed time.Duration) {
	MailDispatchTotal.WithLabelValues(kind, result).Inc()
	if elapsed > 0 {
		MailDispatchSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func RecordAlertSent(source string) {
	AlertsSentTotal.WithLabelValues(source).Inc()
}

func RecordMirrorRows(table string, n int) {
	MirrorRowsTotal.WithLabelValues(table).Add(float64(n))
}
