package core

import "creaturecore/pkg/domain"

// NewDefaultRulesEngine wires the standard integrity rule set. Every store
// transaction is evaluated against it; a blocking violation discards the
// commit.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LedgerIntegrityRule())
	engine.Register(BreedingIntegrityRule())
	engine.Register(LineageIntegrityRule())
	return engine
}
