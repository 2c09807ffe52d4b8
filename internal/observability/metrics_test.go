package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/v1/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/v1/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/v1/tickets/:id/take", "POST", "CONFLICT")
	m.RecordTransition("external", "take")
	m.RecordNotification("sent")

	snap := m.Snapshot()
	if snap.Requests["/v1/tickets|GET|200"] != 2 {
		t.Errorf("requests = %v", snap.Requests)
	}
	if snap.Errors["/v1/tickets/:id/take|POST|CONFLICT"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
	if snap.Transitions["external|take"] != 1 || snap.Notifications["sent"] != 1 {
		t.Errorf("transitions=%v notifications=%v", snap.Transitions, snap.Notifications)
	}
	if snap.AvgLatencyMillis != 20 {
		t.Errorf("avg latency = %v", snap.AvgLatencyMillis)
	}

	m.RecordTransition("external", "take")
	if snap.Transitions["external|take"] != 1 {
		t.Error("snapshot must not alias live counters")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordTransition("external", "take")
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatal("nil metrics should yield empty snapshot")
	}
}
