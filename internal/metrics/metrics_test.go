package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRead(t *testing.T) {
	m := New()
	m.ObserveRead("ticks", time.Now(), nil)
	m.ObserveRead("ticks", time.Now(), errors.New("boom"))
	m.ObserveRead("slot0", time.Now(), nil)

	if got := testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("ticks", "error")); got != 1 {
		t.Fatalf("ticks errors: %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("ticks", "ok")); got != 1 {
		t.Fatalf("ticks ok: %v", got)
	}
}

func TestObserveEvent(t *testing.T) {
	m := New()
	m.ObserveEvent("Swap", 100)
	m.ObserveEvent("Swap", 101)

	if got := testutil.ToFloat64(m.WatchedEvents.WithLabelValues("Swap")); got != 2 {
		t.Fatalf("swap events: %v", got)
	}
	if got := testutil.ToFloat64(m.WatchedBlock); got != 101 {
		t.Fatalf("last block: %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveRead("ticks", time.Now(), nil)
	m.ObserveRequest("/tvl", 200, time.Now())
	m.ObserveCurve(3)
	m.ObserveImpact("ok")
	m.ObserveEvent("Mint", 1)
	if m.Handler() == nil {
		t.Fatalf("nil metrics should still serve a handler")
	}
}
