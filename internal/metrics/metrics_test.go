package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/user/balance", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/user/balance", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordWalletMutation(t *testing.T) {
	WalletMutationsTotal.Reset()
	WalletVolume.Reset()

	RecordWalletMutation("purchase", decimal.RequireFromString("-15"))
	RecordWalletMutation("refund", decimal.RequireFromString("15"))
	RecordWalletMutation("purchase", decimal.RequireFromString("-5.5"))

	assert.Equal(t, float64(2), testutil.ToFloat64(WalletMutationsTotal.WithLabelValues("purchase", "debit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WalletMutationsTotal.WithLabelValues("refund", "credit")))
	assert.Equal(t, 20.5, testutil.ToFloat64(WalletVolume.WithLabelValues("purchase")))
}

func TestOutcomeCounters(t *testing.T) {
	OrdersTotal.Reset()
	DepositsTotal.Reset()
	CouponRedemptionsTotal.Reset()
	ProviderRequestsTotal.Reset()

	RecordOrder("fulfilled")
	RecordDeposit("approved")
	RecordCouponRedemption("exhausted")
	RecordProviderRequest("sms24h", "ok")
	RecordProviderRequest("sms24h", "ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(OrdersTotal.WithLabelValues("fulfilled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(DepositsTotal.WithLabelValues("approved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CouponRedemptionsTotal.WithLabelValues("exhausted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("sms24h", "ok")))
}

func TestMiddleware(t *testing.T) {
	HTTPRequestsTotal.Reset()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/orders/{id}", "404")))
}
