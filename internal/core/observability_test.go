package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"creaturecore/pkg/domain"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "breed", true, 20*time.Millisecond)
	rec.Observe(ctx, "breed", true, 30*time.Millisecond)
	rec.Observe(ctx, "breed", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["breed"]; got != 55 {
		t.Fatalf("duration total = %v", got)
	}
	if snap.Results["breed"]["success"] != 2 || snap.Results["breed"]["error"] != 1 {
		t.Fatalf("result counters = %+v", snap.Results)
	}
	if rec.Name() == "" {
		t.Fatal("generated name must not be empty")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "transfer")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "breed")
	span.End(domain.ErrPaused)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Operation != "transfer" || entries[0].Status != "success" {
		t.Fatalf("first span: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("second span: %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"breed"`) {
		t.Fatalf("encoded output missing span: %s", buf.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "give_birth", true, 10*time.Millisecond)
	rec.Observe(ctx, "give_birth", false, 10*time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("give_birth", "success")); got != 1 {
		t.Fatalf("success counter = %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("give_birth", "error")); got != 1 {
		t.Fatalf("error counter = %v", got)
	}

	// Registering the same collectors twice must fail.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}

func TestServiceInstrumentationEmitsSpansAndMetrics(t *testing.T) {
	clock := &fakeClock{}
	tracer := NewJSONTracer(nil)
	rec := NewExpvarMetricsRecorder("")
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithTickSource(clock.now),
		WithTracer(tracer),
		WithMetrics(rec),
	)
	ctx := context.Background()
	if _, err := svc.SetAuthority(ctx, NullAddress, Authority{CEO: ceo, CFO: cfo, COO: coo}); err != nil {
		t.Fatalf("authority: %v", err)
	}
	c, _, err := svc.CreatePromoCreature(ctx, coo, domain.GenesFromUint64(1), alice)
	if err != nil {
		t.Fatalf("promo: %v", err)
	}
	if _, err := svc.Transfer(ctx, bob, alice, c.ID); err == nil {
		t.Fatal("expected unauthorized transfer to fail")
	}

	var sawSuccess, sawError bool
	for _, e := range tracer.Entries() {
		switch {
		case e.Operation == "create_promo_creature" && e.Status == "success":
			sawSuccess = true
		case e.Operation == "transfer" && e.Status == "error":
			sawError = true
		}
	}
	if !sawSuccess || !sawError {
		t.Fatalf("span coverage incomplete: %+v", tracer.Entries())
	}
	snap := rec.Snapshot()
	if snap.Results["transfer"]["error"] != 1 {
		t.Fatalf("transfer error not recorded: %+v", snap.Results)
	}
}
