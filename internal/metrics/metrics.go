package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smswallet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WalletMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_wallet_mutations_total",
			Help: "Balance changes booked to wallets",
		},
		[]string{"kind", "direction"},
	)

	WalletVolume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_wallet_volume",
			Help: "Absolute amount moved through wallets",
		},
		[]string{"kind"},
	)

	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_orders_total",
			Help: "Number rentals by outcome",
		},
		[]string{"outcome"},
	)

	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_deposits_total",
			Help: "PIX deposits by outcome",
		},
		[]string{"outcome"},
	)

	CouponRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_coupon_redemptions_total",
			Help: "Coupon redemption attempts by result",
		},
		[]string{"result"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smswallet_provider_requests_total",
			Help: "Calls to external providers by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ReconcilerInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smswallet_reconciler_tasks_in_flight",
			Help: "Poll tasks queued or running in the reconciler",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordWalletMutation(kind string, delta decimal.Decimal) {
	direction := "credit"
	if delta.IsNegative() {
		direction = "debit"
	}
	WalletMutationsTotal.WithLabelValues(kind, direction).Inc()
	WalletVolume.WithLabelValues(kind).Add(delta.Abs().InexactFloat64())
}

func RecordOrder(outcome string) {
	OrdersTotal.WithLabelValues(outcome).Inc()
}

func RecordDeposit(outcome string) {
	DepositsTotal.WithLabelValues(outcome).Inc()
}

func RecordCouponRedemption(result string) {
	CouponRedemptionsTotal.WithLabelValues(result).Inc()
}

func RecordProviderRequest(provider, outcome string) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// Middleware records request counts and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, path, strconv.Itoa(status), time.Since(start).Seconds())
	})
}
