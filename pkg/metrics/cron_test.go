package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsSplitsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("order-expiry")
	m.IncSuccess("order-expiry")
	m.IncFailure("order-expiry")
	m.IncFailure("")
	m.ObserveDuration("order-expiry", 300*time.Millisecond)
	m.IncSkipped()

	cases := []struct {
		pairs []string
		want  float64
	}{
		{[]string{"job", "order-expiry", "outcome", CronSucceeded}, 2},
		{[]string{"job", "order-expiry", "outcome", CronFailed}, 1},
		{[]string{"job", "unknown", "outcome", CronFailed}, 1},
	}
	for _, tc := range cases {
		metric, err := sample(reg, "bazaar_cron_job_runs_total", tc.pairs...)
		if err != nil {
			t.Fatal(err)
		}
		if got := metric.GetCounter().GetValue(); got != tc.want {
			t.Fatalf("%v: got %v want %v", tc.pairs, got, tc.want)
		}
	}

	hist, err := sample(reg, "bazaar_cron_job_duration_seconds", "job", "order-expiry")
	if err != nil {
		t.Fatal(err)
	}
	if hist.GetHistogram().GetSampleCount() != 1 || hist.GetHistogram().GetSampleSum() < 0.3 {
		t.Fatalf("unexpected histogram %v", hist.GetHistogram())
	}

	skipped, err := sample(reg, "bazaar_cron_cycle_skipped_total")
	if err != nil {
		t.Fatal(err)
	}
	if skipped.GetCounter().GetValue() != 1 {
		t.Fatalf("expected one skipped cycle")
	}
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	if m != nil {
		t.Fatal("nil registerer should yield nil metrics")
	}
	m.IncSuccess("x")
	m.IncFailure("x")
	m.IncSkipped()
	m.ObserveDuration("x", time.Second)
}
