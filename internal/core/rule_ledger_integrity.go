package core

import (
	"context"
	"fmt"

	"creaturecore/pkg/domain"
)

// LedgerIntegrityRule enforces ownership and enumeration consistency: every
// minted creature has exactly one owner, per-owner holdings agree with
// balances, and the global enumeration covers the full population without
// duplicates.
func LedgerIntegrityRule() domain.Rule {
	return ledgerIntegrityRule{}
}

type ledgerIntegrityRule struct{}

func (ledgerIntegrityRule) Name() string { return "ledger_integrity" }

func (ledgerIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	creatures := view.ListCreatures()
	for _, c := range creatures {
		owner, ok := view.OwnerOf(c.ID)
		if !ok || owner.IsNull() {
			res.Violations = append(res.Violations, ledgerViolation(c.ID, fmt.Sprintf("creature %d has no owner", c.ID)))
		}
	}

	var totalOwned int
	for _, owner := range view.Owners() {
		owned := view.OwnedIDs(owner)
		if len(owned) != view.BalanceOf(owner) {
			res.Violations = append(res.Violations, ledgerViolation(0, fmt.Sprintf("owner %q balance %d disagrees with %d held ids", string(owner), view.BalanceOf(owner), len(owned))))
		}
		for _, id := range owned {
			actual, ok := view.OwnerOf(id)
			if !ok || actual != owner {
				res.Violations = append(res.Violations, ledgerViolation(id, fmt.Sprintf("creature %d listed under %q but owned by %q", id, string(owner), string(actual))))
			}
		}
		totalOwned += len(owned)
	}

	all := view.AllIDs()
	if len(all) != len(creatures) {
		res.Violations = append(res.Violations, ledgerViolation(0, fmt.Sprintf("global enumeration holds %d ids for %d creatures", len(all), len(creatures))))
	}
	if totalOwned != len(creatures) {
		res.Violations = append(res.Violations, ledgerViolation(0, fmt.Sprintf("per-owner enumerations hold %d ids for %d creatures", totalOwned, len(creatures))))
	}
	seen := make(map[uint64]struct{}, len(all))
	for _, id := range all {
		if id == 0 {
			res.Violations = append(res.Violations, ledgerViolation(0, "sentinel id 0 appears in the global enumeration"))
			continue
		}
		if _, dup := seen[id]; dup {
			res.Violations = append(res.Violations, ledgerViolation(id, fmt.Sprintf("creature %d appears twice in the global enumeration", id)))
			continue
		}
		seen[id] = struct{}{}
	}

	return res, nil
}

func ledgerViolation(entityID uint64, message string) domain.Violation {
	return domain.Violation{
		Rule:     "ledger_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityOwnership,
		EntityID: entityID,
	}
}
