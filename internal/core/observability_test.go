package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "submit_check_in", true, 2*time.Millisecond)
	rec.Observe(ctx, "submit_check_in", true, 3*time.Millisecond)
	rec.Observe(ctx, "submit_check_in", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // dropped

	snap := rec.Snapshot()
	if got := snap.DurationsMS["submit_check_in"]; got != 6 {
		t.Errorf("expected 6ms total, got %v", got)
	}
	if snap.Results["submit_check_in"]["success"] != 2 || snap.Results["submit_check_in"]["error"] != 1 {
		t.Errorf("unexpected result counters: %+v", snap.Results)
	}
	if len(snap.DurationsMS) != 1 {
		t.Errorf("empty operation names must be ignored: %+v", snap.DurationsMS)
	}
	if !strings.HasPrefix(rec.Name(), "wellbeing_service_metrics_") {
		t.Errorf("generated name has wrong prefix: %s", rec.Name())
	}
}

func TestExpvarMetricsSnapshotIsDetached(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "login", true, time.Millisecond)

	snap := rec.Snapshot()
	snap.DurationsMS["login"] = 999
	snap.Results["login"]["success"] = 999

	fresh := rec.Snapshot()
	if fresh.DurationsMS["login"] == 999 || fresh.Results["login"]["success"] == 999 {
		t.Error("snapshot must not alias recorder state")
	}
}

func TestJSONTraceTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "resolve_report")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "resolve_report")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[0].Error != "" {
		t.Errorf("first span should be a clean success: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Errorf("second span should carry the error: %+v", entries[1])
	}
	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if lines != 2 {
		t.Errorf("expected 2 JSON lines, got %d: %q", lines, buf.String())
	}
}

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()

	rec.Observe(ctx, "send_message", true, 5*time.Millisecond)
	rec.Observe(ctx, "send_message", true, 5*time.Millisecond)
	rec.Observe(ctx, "send_message", false, 5*time.Millisecond)

	success := testutil.ToFloat64(rec.operations.WithLabelValues("send_message", "success"))
	if success != 2 {
		t.Errorf("expected 2 successes, got %v", success)
	}
	failure := testutil.ToFloat64(rec.operations.WithLabelValues("send_message", "error"))
	if failure != 1 {
		t.Errorf("expected 1 error, got %v", failure)
	}
}
