package core

import (
	"context"
	"strings"
	"testing"

	"creaturecore/internal/infra/persistence/memory"
	"creaturecore/pkg/domain"
)

func TestBreedingIntegrityCleanState(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	matron := mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})
	sire := mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(2)})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateCreature(matron.ID, func(c *Creature) error {
			c.SiringWithID = sire.ID
			return nil
		}); err != nil {
			return err
		}
		return tx.AdjustPregnant(1)
	})
	if err != nil {
		t.Fatalf("set gestation: %v", err)
	}
	if res := evaluateRule(t, store, BreedingIntegrityRule()); len(res.Violations) != 0 {
		t.Fatalf("clean state flagged: %+v", res.Violations)
	}
}

func TestBreedingIntegrityCooldownIndexOutOfRange(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	c := mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateCreature(c.ID, func(c *Creature) error {
			c.CooldownIndex = domain.CooldownSlots + 3
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("corrupt cooldown index: %v", err)
	}
	res := evaluateRule(t, store, BreedingIntegrityRule())
	if len(res.Violations) == 0 || !strings.Contains(res.Violations[0].Message, "cooldown index") {
		t.Fatalf("expected cooldown index violation, got %+v", res.Violations)
	}
}

func TestBreedingIntegritySelfGestation(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	c := mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateCreature(c.ID, func(c *Creature) error {
			c.SiringWithID = c.ID
			return nil
		}); err != nil {
			return err
		}
		return tx.AdjustPregnant(1)
	})
	if err != nil {
		t.Fatalf("corrupt gestation: %v", err)
	}
	if res := evaluateRule(t, store, BreedingIntegrityRule()); len(res.Violations) == 0 {
		t.Fatal("expected violation for self-gestation")
	}
}

func TestBreedingIntegrityMissingSire(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	c := mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateCreature(c.ID, func(c *Creature) error {
			c.SiringWithID = 404
			return nil
		}); err != nil {
			return err
		}
		return tx.AdjustPregnant(1)
	})
	if err != nil {
		t.Fatalf("corrupt gestation: %v", err)
	}
	if res := evaluateRule(t, store, BreedingIntegrityRule()); len(res.Violations) == 0 {
		t.Fatal("expected violation for unresolvable sire reference")
	}
}

func TestBreedingIntegrityPregnancyCounterDrift(t *testing.T) {
	store := memory.NewStore(domain.NewRulesEngine())
	mintForRules(t, store, alice, Creature{Genes: domain.GenesFromUint64(1)})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.AdjustPregnant(1)
	})
	if err != nil {
		t.Fatalf("drift counter: %v", err)
	}
	res := evaluateRule(t, store, BreedingIntegrityRule())
	if len(res.Violations) == 0 || !strings.Contains(res.Violations[0].Message, "pregnancy counter") {
		t.Fatalf("expected counter drift violation, got %+v", res.Violations)
	}
}

func TestBreedingIntegrityRuleName(t *testing.T) {
	if got := BreedingIntegrityRule().Name(); got != "breeding_integrity" {
		t.Fatalf("unexpected rule name: %s", got)
	}
}
