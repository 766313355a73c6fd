package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"creaturecore/internal/infra/persistence/memory"
	"creaturecore/pkg/domain"
)

// mintForRules commits a creature through an engine-less store so the tests
// can corrupt state afterwards without tripping commit-time evaluation.
func mintForRules(t *testing.T, store *memory.Store, owner Address, c Creature) Creature {
	t.Helper()
	var minted Creature
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		minted, err = tx.MintCreature(c, owner)
		return err
	})
	if err != nil {
		t.Fatalf("mint creature: %v", err)
	}
	return minted
}

func evaluateRule(t *testing.T, store *memory.Store, rule domain.Rule) domain.Result {
	t.Helper()
	var res domain.Result
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		var evalErr error
		res, evalErr = rule.Evaluate(context.Background(), v, nil)
		return evalErr
	})
	if err != nil {
		t.Fatalf("evaluate %s: %v", rule.Name(), err)
	}
	return res
}

func TestLedgerIntegrityCleanStore(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})
	mintForRules(t, store, bob, Creature{Genes: domain.GenesFromUint64(2)})

	if res := evaluateRule(t, store, LedgerIntegrityRule()); len(res.Violations) != 0 {
		t.Fatalf("clean store flagged: %+v", res.Violations)
	}
}

func TestLedgerIntegrityOrphanedCreature(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	snap := store.ExportState()
	delete(snap.Owners, 1)
	delete(snap.Owned, alice)
	store.ImportState(snap)

	res := evaluateRule(t, store, LedgerIntegrityRule())
	if len(res.Violations) == 0 {
		t.Fatal("expected violation for ownerless creature")
	}
	if !strings.Contains(res.Violations[0].Message, "no owner") {
		t.Fatalf("unexpected message: %s", res.Violations[0].Message)
	}
}

func TestLedgerIntegrityEnumerationOwnerMismatch(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	// The creature is recorded under bob's enumeration while alice owns it.
	snap := store.ExportState()
	snap.Owned = map[Address][]uint64{bob: {1}}
	store.ImportState(snap)

	if res := evaluateRule(t, store, LedgerIntegrityRule()); len(res.Violations) == 0 {
		t.Fatal("expected violation for enumeration and ownership disagreement")
	}
}

func TestLedgerIntegrityGlobalEnumerationGap(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(2)})

	snap := store.ExportState()
	snap.AllIDs = []uint64{1}
	store.ImportState(snap)

	if res := evaluateRule(t, store, LedgerIntegrityRule()); len(res.Violations) == 0 {
		t.Fatal("expected violation for incomplete global enumeration")
	}
}

func TestLedgerIntegritySentinelAndDuplicateIDs(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	snap := store.ExportState()
	snap.AllIDs = []uint64{0, 1, 1}
	store.ImportState(snap)

	res := evaluateRule(t, store, LedgerIntegrityRule())
	var sentinel, duplicate bool
	for _, v := range res.Violations {
		if strings.Contains(v.Message, "sentinel") {
			sentinel = true
		}
		if strings.Contains(v.Message, "twice") {
			duplicate = true
		}
	}
	if !sentinel || !duplicate {
		t.Fatalf("expected sentinel and duplicate violations, got %+v", res.Violations)
	}
}

func TestLedgerIntegrityBlocksCorruptingCommit(t *testing.T) {
	// With the full engine attached the violation surfaces at commit time and
	// the transaction is discarded.
	store := memory.NewStore(NewDefaultRulesEngine())
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		minted, err := tx.MintCreature(Creature{Genes: domain.GenesFromUint64(1)}, alice)
		if err != nil {
			return err
		}
		_, err = tx.UpdateCreature(minted.ID, func(c *Creature) error {
			c.SiringWithID = minted.ID
			return nil
		})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected blocking rule violation, got %v", err)
	}
	if store.TotalSupply() != 0 {
		t.Fatalf("blocked commit leaked state: supply %d", store.TotalSupply())
	}
}

func TestLedgerIntegrityRuleName(t *testing.T) {
	if got := LedgerIntegrityRule().Name(); got != "ledger_integrity" {
		t.Fatalf("unexpected rule name: %s", got)
	}
}
