package journal

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"creaturecore/internal/blob"
	"creaturecore/pkg/domain"
)

type staticSource []domain.Event

func (s staticSource) Events(fromSeq uint64) []domain.Event {
	var out []domain.Event
	for _, e := range s {
		if e.Seq >= fromSeq {
			out = append(out, e)
		}
	}
	return out
}

func sampleEvents() staticSource {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return staticSource{
		{Seq: 1, Kind: domain.EventBirth, At: at, Tick: 10, CreatureID: 1, Owner: "acct:alice", Genes: domain.GenesFromUint64(7)},
		{Seq: 2, Kind: domain.EventPregnant, At: at.Add(time.Minute), Tick: 14, MatronID: 1, SireID: 2, CooldownEndTick: 18},
		{Seq: 3, Kind: domain.EventTransfer, At: at.Add(2 * time.Minute), Tick: 20, CreatureID: 1, From: "acct:alice", To: "acct:bob"},
	}
}

func waitForExport(t *testing.T, w *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.GetExport(id)
		if !ok {
			t.Fatalf("export %s vanished", id)
		}
		if record.Status == ExportStatusSucceeded || record.Status == ExportStatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s never completed", id)
	return ExportRecord{}
}

func TestExportJSONSegment(t *testing.T) {
	store := blob.NewMemory()
	audit := &MemoryAuditLog{}
	w := NewWorker(sampleEvents(), store, audit)
	w.Start()
	defer func() {
		if err := w.Stop(context.Background()); err != nil {
			t.Fatalf("stop worker: %v", err)
		}
	}()

	queued, err := w.EnqueueExport(context.Background(), ExportInput{
		FromSeq:     1,
		RequestedBy: "ops",
		Reason:      "nightly archive",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != ExportStatusQueued || queued.Format != FormatJSON {
		t.Fatalf("queued record: %+v", queued)
	}

	record := waitForExport(t, w, queued.ID)
	if record.Status != ExportStatusSucceeded {
		t.Fatalf("export failed: %s", record.Error)
	}
	if record.Key != "journal/1-3.json" || record.Events != 3 {
		t.Fatalf("record: %+v", record)
	}
	if record.CompletedAt == nil {
		t.Fatal("completion timestamp missing")
	}

	info, rc, err := store.Get(context.Background(), record.Key)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	defer rc.Close()
	if info.Metadata["events"] != "3" || info.ContentType != "application/json" {
		t.Fatalf("segment info: %+v", info)
	}
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	var decoded []domain.Event
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode segment: %v", err)
	}
	if len(decoded) != 3 || decoded[2].Kind != domain.EventTransfer {
		t.Fatalf("decoded events: %+v", decoded)
	}

	// Queued, running, succeeded.
	entries := audit.Entries()
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d", len(entries))
	}
	if entries[0].Action != "journal_export" || entries[0].Actor != "ops" {
		t.Fatalf("audit entry: %+v", entries[0])
	}
	if entries[2].Status != ExportStatusSucceeded {
		t.Fatalf("final audit status: %s", entries[2].Status)
	}
}

func TestExportCSVSegment(t *testing.T) {
	store := blob.NewMemory()
	w := NewWorker(sampleEvents(), store, nil)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	queued, err := w.EnqueueExport(context.Background(), ExportInput{Format: FormatCSV, FromSeq: 2})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForExport(t, w, queued.ID)
	if record.Status != ExportStatusSucceeded || record.Key != "journal/2-3.csv" {
		t.Fatalf("record: %+v", record)
	}

	_, rc, err := store.Get(context.Background(), record.Key)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	defer rc.Close()
	rows, err := csv.NewReader(rc).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 { // header + two events
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "seq" || rows[1][0] != "2" || rows[1][1] != "pregnant" {
		t.Fatalf("csv content: %v", rows[:2])
	}
}

func TestEnqueueValidation(t *testing.T) {
	store := blob.NewMemory()
	w := NewWorker(sampleEvents(), store, nil)

	if _, err := w.EnqueueExport(context.Background(), ExportInput{Format: "parquet"}); err == nil {
		t.Fatal("unknown format accepted")
	}
	empty := NewWorker(nil, store, nil)
	if _, err := empty.EnqueueExport(context.Background(), ExportInput{}); err == nil {
		t.Fatal("missing source accepted")
	}
	noStore := NewWorker(sampleEvents(), nil, nil)
	if _, err := noStore.EnqueueExport(context.Background(), ExportInput{}); err == nil {
		t.Fatal("missing store accepted")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	store := blob.NewMemory()
	// The worker is never started, so the queue only drains at capacity.
	w := NewWorker(sampleEvents(), store, nil)
	var err error
	for i := 0; i < 64; i++ {
		if _, err = w.EnqueueExport(context.Background(), ExportInput{}); err != nil {
			break
		}
	}
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("expected queue saturation, got %v", err)
	}
}

func TestExportFailureRecordsError(t *testing.T) {
	store := blob.NewMemory()
	w := NewWorker(sampleEvents(), store, nil)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	// The second export writes the same immutable key and must fail.
	first, err := w.EnqueueExport(context.Background(), ExportInput{FromSeq: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if record := waitForExport(t, w, first.ID); record.Status != ExportStatusSucceeded {
		t.Fatalf("first export: %+v", record)
	}
	second, err := w.EnqueueExport(context.Background(), ExportInput{FromSeq: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForExport(t, w, second.ID)
	if record.Status != ExportStatusFailed || record.Error == "" {
		t.Fatalf("second export: %+v", record)
	}
}

func TestGetExportUnknownID(t *testing.T) {
	w := NewWorker(sampleEvents(), blob.NewMemory(), nil)
	if _, ok := w.GetExport("missing"); ok {
		t.Fatal("unknown id resolved")
	}
}
