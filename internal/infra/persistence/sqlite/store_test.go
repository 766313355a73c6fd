package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"creaturecore/pkg/domain"
)

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	var minted domain.Creature
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		minted, err = tx.MintCreature(domain.Creature{Genes: domain.GenesFromUint64(7)}, "alice")
		if err != nil {
			return err
		}
		tx.AppendEvent(domain.Event{Kind: domain.EventBirth, CreatureID: minted.ID, Owner: "alice"})
		return tx.AddCredit("alice", 42)
	}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	c, ok := reopened.GetCreature(minted.ID)
	if !ok {
		t.Fatal("creature lost across reopen")
	}
	if c.Genes != domain.GenesFromUint64(7) {
		t.Fatalf("genes = %s, want %s", c.Genes, domain.GenesFromUint64(7))
	}
	if owner, _ := reopened.OwnerOf(minted.ID); owner != "alice" {
		t.Fatalf("owner = %q, want alice", owner)
	}
	if reopened.Credit("alice") != 42 {
		t.Fatal("credit lost across reopen")
	}
	if events := reopened.Events(0); len(events) != 1 || events[0].Kind != domain.EventBirth {
		t.Fatalf("journal lost across reopen: %+v", events)
	}

	// Ids keep ascending after reload.
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		next, err := tx.MintCreature(domain.Creature{}, "bob")
		if err != nil {
			return err
		}
		if next.ID != minted.ID+1 {
			t.Errorf("next id = %d, want %d", next.ID, minted.ID+1)
		}
		return nil
	}); err != nil {
		t.Fatalf("second mint: %v", err)
	}
}

func TestSQLiteStoreDefaultsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "nested", "dir", "ledger.db"), nil)
	if err != nil {
		t.Fatalf("open with nested dirs: %v", err)
	}
	if store.Path() == "" {
		t.Fatal("path not recorded")
	}
	_ = store.Close()
}
