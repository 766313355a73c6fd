package core

import (
	"context"
	"fmt"

	"creaturecore/pkg/domain"
)

// BreedingIntegrityRule enforces breeding-state consistency: cooldown indices
// stay inside the table, gestation references resolve, and the global
// pregnancy counter matches the number of gestating creatures.
func BreedingIntegrityRule() domain.Rule {
	return breedingIntegrityRule{}
}

type breedingIntegrityRule struct{}

func (breedingIntegrityRule) Name() string { return "breeding_integrity" }

func (breedingIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	var gestating uint64
	for _, c := range view.ListCreatures() {
		if c.CooldownIndex > domain.CooldownSlots-1 {
			res.Violations = append(res.Violations, breedingViolation(c.ID, fmt.Sprintf("creature %d cooldown index %d exceeds table", c.ID, c.CooldownIndex)))
		}
		if !c.Gestating() {
			continue
		}
		gestating++
		if c.SiringWithID == c.ID {
			res.Violations = append(res.Violations, breedingViolation(c.ID, fmt.Sprintf("creature %d gestates by itself", c.ID)))
			continue
		}
		sire, ok := view.FindCreature(c.SiringWithID)
		if !ok || !sire.Exists() {
			res.Violations = append(res.Violations, breedingViolation(c.ID, fmt.Sprintf("creature %d gestates by missing sire %d", c.ID, c.SiringWithID)))
		}
	}

	if counted := view.Counters().Pregnant; counted != gestating {
		res.Violations = append(res.Violations, breedingViolation(0, fmt.Sprintf("pregnancy counter %d disagrees with %d gestating creatures", counted, gestating)))
	}

	return res, nil
}

func breedingViolation(entityID uint64, message string) domain.Violation {
	return domain.Violation{
		Rule:     "breeding_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCreature,
		EntityID: entityID,
	}
}
