package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"creaturecore/internal/infra/persistence/memory"
	"creaturecore/pkg/domain"
)

func writeSnapshot(t *testing.T, snap memory.Snapshot) string {
	t.Helper()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func healthySnapshot(t *testing.T) memory.Snapshot {
	t.Helper()
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		a, err := tx.MintCreature(domain.Creature{Genes: domain.GenesFromUint64(1)}, "acct:alice")
		if err != nil {
			return err
		}
		tx.AppendEvent(domain.Event{Kind: domain.EventBirth, CreatureID: a.ID, Owner: "acct:alice"})
		b, err := tx.MintCreature(domain.Creature{Genes: domain.GenesFromUint64(2)}, "acct:bob")
		if err != nil {
			return err
		}
		tx.AppendEvent(domain.Event{Kind: domain.EventBirth, CreatureID: b.ID, Owner: "acct:bob"})
		return nil
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return store.ExportState()
}

func TestCLIHealthySnapshot(t *testing.T) {
	path := writeSnapshot(t, healthySnapshot(t))
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-snapshot", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ledger ok: 2 creatures, 2 journal records") {
		t.Fatalf("stdout: %s", stdout.String())
	}
}

func TestCLIReportsRuleViolations(t *testing.T) {
	snap := healthySnapshot(t)
	// Orphan creature 1: owned by nobody.
	delete(snap.Owners, 1)
	snap.Owned["acct:alice"] = nil
	path := writeSnapshot(t, snap)

	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-snapshot", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "ledger_integrity") {
		t.Fatalf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "violation(s) found") {
		t.Fatalf("stderr: %s", stderr.String())
	}
}

func TestCLIReportsJournalGap(t *testing.T) {
	snap := healthySnapshot(t)
	snap.Events = snap.Events[1:] // journal now starts at seq 2
	path := writeSnapshot(t, snap)

	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-snapshot", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "journal_continuity") {
		t.Fatalf("stderr: %s", stderr.String())
	}
}

func TestCLIFlagValidation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d for missing flags", code)
	}
	if code := cli([]string{"-snapshot", "a", "-sqlite", "b"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d for conflicting flags", code)
	}
	if code := cli([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d for unknown flag", code)
	}
}

func TestCLIMissingSnapshotFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "absent.json")
	if code := cli([]string{"-snapshot", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
}

func TestCLIMalformedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-snapshot", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "load ledger") {
		t.Fatalf("stderr: %s", stderr.String())
	}
}
