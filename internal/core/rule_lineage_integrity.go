package core

import (
	"context"
	"fmt"

	"creaturecore/pkg/domain"
)

// LineageIntegrityRule enforces parentage constraints: parents either both
// recorded or both absent, parents minted before the child, no self-parents,
// and a child generation strictly beyond both parents'.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return "lineage_integrity" }

func (lineageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, child := range view.ListCreatures() {
		if child.MatronID == 0 && child.SireID == 0 {
			if child.Generation != 0 {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d has generation %d without parents", child.ID, child.Generation)))
			}
			continue
		}
		if child.MatronID == 0 || child.SireID == 0 {
			res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d records only one parent", child.ID)))
			continue
		}
		highest := uint16(0)
		for _, parentID := range []uint64{child.MatronID, child.SireID} {
			if parentID == child.ID {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d references itself as a parent", child.ID)))
				continue
			}
			if parentID > child.ID {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d references parent %d minted after it", child.ID, parentID)))
				continue
			}
			parent, ok := view.FindCreature(parentID)
			if !ok || !parent.Exists() {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d references missing parent %d", child.ID, parentID)))
				continue
			}
			if parent.Generation > highest {
				highest = parent.Generation
			}
		}
		if child.Generation <= highest {
			res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("creature %d generation %d does not exceed its parents", child.ID, child.Generation)))
		}
	}

	return res, nil
}

func lineageViolation(entityID uint64, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lineage_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCreature,
		EntityID: entityID,
	}
}
