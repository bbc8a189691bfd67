package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/products", 200, 25*time.Millisecond)
	m.ObserveRequest("GET", "/products", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", "", 500, time.Millisecond)

	if got := testutil.ToFloat64(m.total.WithLabelValues("GET", "/products", "200")); got != 2 {
		t.Fatalf("expected 2 GET /products requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.total.WithLabelValues("POST", "unknown", "500")); got != 1 {
		t.Fatalf("expected empty route to be normalized, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.IncInFlight()
	m.DecInFlight()

	empty := NewHTTPMetrics(nil)
	empty.ObserveRequest("GET", "/", 200, time.Millisecond)
}

func TestInFlightGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()

	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Fatalf("expected 1 in-flight request, got %v", got)
	}
}
