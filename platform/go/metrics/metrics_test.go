package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	t.Parallel()

	m := New("storefront")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/stores/{tenantId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/abc", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, float64(2), testutil.ToFloat64(m.RequestCount.WithLabelValues(http.MethodGet, "/stores/{tenantId}", "200")))
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := New("storefront")
	m.OrderCreated()
	m.OrderTransition("Pending", "Paid", false)
	m.OrderTransition("Pending", "HasToBePaid", true)
	m.NotificationFailed()
	m.Registered("customer")
	m.AdmissionDenied("trial-expired")

	require.Equal(t, float64(1), testutil.ToFloat64(m.OrdersCreated))
	require.Equal(t, float64(1), testutil.ToFloat64(m.OrderTransitions.WithLabelValues("Pending", "Paid", "rejected")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Registrations.WithLabelValues("customer")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "storefront_orders_created_total 1"))
}
