// Package journal exports committed ledger events to blob storage as
// immutable archive segments.
package journal

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"creaturecore/internal/blob"
	"creaturecore/pkg/domain"
)

// Format selects the archive encoding for an export.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Format      Format
	FromSeq     uint64
	RequestedBy string
	Reason      string
}

// ExportRecord tracks an export request and its resulting archive segment.
type ExportRecord struct {
	ID          string       `json:"id"`
	Format      Format       `json:"format"`
	FromSeq     uint64       `json:"from_seq"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Key         string       `json:"key,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	Events      int          `json:"events"`
	RequestedBy string       `json:"requested_by"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// EventSource supplies journal records for archiving. The core service
// satisfies it.
type EventSource interface {
	Events(fromSeq uint64) []domain.Event
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for journal exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Worker archives journal segments asynchronously.
type Worker struct {
	source EventSource
	store  blob.Store
	audit  AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs a journal export worker.
func NewWorker(source EventSource, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.source == nil {
		return ExportRecord{}, fmt.Errorf("event source not configured")
	}
	if w.store == nil {
		return ExportRecord{}, fmt.Errorf("blob store not configured")
	}
	format := input.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Format:      format,
		FromSeq:     input.FromSeq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record
	w.mu.Unlock()

	w.recordAudit(ctx, id, ExportStatusQueued, nil)

	input.Format = format
	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return *record, true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning, "")

	events := w.source.Events(task.input.FromSeq)
	payload, contentType, err := materialize(task.input.Format, events)
	if err != nil {
		w.fail(task.id, err.Error())
		return
	}

	key := segmentKey(task.input.Format, task.input.FromSeq, events)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"events": strconv.Itoa(len(events))},
	})
	if err != nil {
		w.fail(task.id, fmt.Sprintf("store segment failed: %v", err))
		return
	}

	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[task.id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Key = info.Key
		record.SizeBytes = info.Size
		record.Events = len(events)
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, task.id, ExportStatusSucceeded, map[string]any{"key": info.Key, "events": len(events)})
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, status, nil)
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusFailed, map[string]any{"error": reason})
}

func (w *Worker) recordAudit(ctx context.Context, id string, status ExportStatus, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, reason string
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		reason = record.Reason
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "journal_export",
		Actor:      actor,
		Status:     status,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

func segmentKey(format Format, fromSeq uint64, events []domain.Event) string {
	last := fromSeq
	if len(events) > 0 {
		last = events[len(events)-1].Seq
	}
	return fmt.Sprintf("journal/%d-%d.%s", fromSeq, last, format)
}

func materialize(format Format, events []domain.Event) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(events)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		header := []string{"seq", "kind", "at", "tick", "creature_id", "matron_id", "sire_id", "genes", "cooldown_end_tick", "owner", "from", "to", "operator", "approved", "role"}
		if err := writer.Write(header); err != nil {
			return nil, "", err
		}
		for _, e := range events {
			row := []string{
				strconv.FormatUint(e.Seq, 10),
				string(e.Kind),
				e.At.UTC().Format(time.RFC3339Nano),
				strconv.FormatUint(e.Tick, 10),
				strconv.FormatUint(e.CreatureID, 10),
				strconv.FormatUint(e.MatronID, 10),
				strconv.FormatUint(e.SireID, 10),
				e.Genes.String(),
				strconv.FormatUint(e.CooldownEndTick, 10),
				string(e.Owner),
				string(e.From),
				string(e.To),
				string(e.Operator),
				strconv.FormatBool(e.Approved),
				e.Role,
			}
			if err := writer.Write(row); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
