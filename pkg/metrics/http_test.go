package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsCountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("POST", "/api/orders", 201, 20*time.Millisecond)
	m.Observe("POST", "/api/orders", 201, 10*time.Millisecond)
	m.Observe("POST", "/api/orders", 409, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	fam := findMetricFamily(mfs, "bazaar_http_requests_total")
	if fam == nil {
		t.Fatalf("requests family missing")
	}
	var created float64
	for _, metric := range fam.GetMetric() {
		if matchesLabel(metric.GetLabel(), "status", "201") && matchesLabel(metric.GetLabel(), "route", "/api/orders") {
			created = metric.GetCounter().GetValue()
		}
	}
	if created != 2 {
		t.Fatalf("expected 2 created requests, got %v", created)
	}
}

func TestNilHTTPMetricsIsNoop(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/health/live", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("GET", "", 200, time.Millisecond)
}
