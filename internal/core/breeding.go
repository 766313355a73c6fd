package core

import (
	"context"
	"errors"
	"math"

	"creaturecore/pkg/domain"
)

// GetCreature fetches a creature record by id.
func (s *Service) GetCreature(id uint64) (Creature, error) {
	c, ok := s.store.GetCreature(id)
	if !ok {
		return Creature{}, domain.ErrNotFound{ID: id}
	}
	return c, nil
}

// IsReadyToBreed reports whether id is neither gestating nor cooling down.
func (s *Service) IsReadyToBreed(id uint64) (bool, error) {
	c, ok := s.store.GetCreature(id)
	if !ok {
		return false, domain.ErrNotFound{ID: id}
	}
	return c.ReadyToBreedAt(s.tick()), nil
}

// IsPregnant reports whether id carries an outstanding siring.
func (s *Service) IsPregnant(id uint64) (bool, error) {
	c, ok := s.store.GetCreature(id)
	if !ok {
		return false, domain.ErrNotFound{ID: id}
	}
	return c.Gestating(), nil
}

// PregnantCreatures returns the number of creatures currently gestating.
func (s *Service) PregnantCreatures() uint64 {
	return s.store.Counters().Pregnant
}

// validPair checks lineage restrictions for a matron/sire combination. It
// deliberately says nothing about readiness or cooldowns.
func validPair(matron, sire Creature) error {
	reject := func(reason string) error {
		return domain.ErrInvalidPair{MatronID: matron.ID, SireID: sire.ID, Reason: reason}
	}
	if matron.ID == sire.ID {
		return reject("creature cannot breed with itself")
	}
	// Parent and child may not mate, in either direction.
	if matron.MatronID == sire.ID || matron.SireID == sire.ID {
		return reject("sire is the matron's parent")
	}
	if sire.MatronID == matron.ID || sire.SireID == matron.ID {
		return reject("matron is the sire's parent")
	}
	// Generation-0 creatures have no recorded parents, so the sibling
	// check cannot apply.
	if matron.MatronID == 0 || sire.MatronID == 0 {
		return nil
	}
	if sire.MatronID == matron.MatronID || sire.MatronID == matron.SireID {
		return reject("shared parent")
	}
	if sire.SireID == matron.MatronID || sire.SireID == matron.SireID {
		return reject("shared parent")
	}
	return nil
}

// siringPermitted reports whether the matron's owner may use sireID: either
// the same address owns both creatures, or a standing siring approval names
// the matron's owner.
func siringPermitted(view interface {
	OwnerOf(id uint64) (Address, bool)
	SiringApproval(sireID uint64) (Address, bool)
}, matronOwner Address, sireID uint64) bool {
	sireOwner, ok := view.OwnerOf(sireID)
	if !ok {
		return false
	}
	if sireOwner == matronOwner {
		return true
	}
	grantee, ok := view.SiringApproval(sireID)
	return ok && grantee == matronOwner
}

// CanBreedWith reports whether the pair passes lineage restrictions and
// siring permission. Readiness is checked separately by Breed.
func (s *Service) CanBreedWith(matronID, sireID uint64) (bool, error) {
	if matronID == 0 || sireID == 0 {
		return false, domain.ErrNotFound{ID: 0}
	}
	var ok bool
	err := s.store.View(context.Background(), func(view TransactionView) error {
		matron, found := view.FindCreature(matronID)
		if !found {
			return domain.ErrNotFound{ID: matronID}
		}
		sire, found := view.FindCreature(sireID)
		if !found {
			return domain.ErrNotFound{ID: sireID}
		}
		if err := validPair(matron, sire); err != nil {
			ok = false
			return nil
		}
		matronOwner, _ := view.OwnerOf(matronID)
		ok = siringPermitted(view, matronOwner, sireID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ApproveSiring grants grantee standing permission to use the caller's sire.
// A new grant replaces any previous one; the null grantee revokes.
func (s *Service) ApproveSiring(ctx context.Context, caller, grantee Address, sireID uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "approve_siring", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			owner, ok := tx.OwnerOf(sireID)
			if !ok {
				return domain.ErrNotFound{ID: sireID}
			}
			if caller != owner {
				return domain.ErrUnauthorized{Caller: caller, Op: "approve siring"}
			}
			return tx.SetSiringApproval(sireID, grantee)
		})
		return err
	})
	return res, err
}

// triggerCooldown puts c to rest: its cooldown ends CooldownTicks(index)
// ticks from now, and the index advances toward the final, saturating slot.
func (s *Service) triggerCooldown(c *Creature, nowTick uint64) {
	c.CooldownEndTick = nowTick + s.cfg.CooldownTicks(c.CooldownIndex)
	if c.CooldownIndex < domain.CooldownSlots-1 {
		c.CooldownIndex++
	}
}

// Breed mates the caller's matron with sireID. The caller must own the
// matron and either own the sire or hold its siring approval; both creatures
// must be ready; the pair must pass lineage restrictions; payment must cover
// the current auto-birth fee. On success the matron becomes pregnant, both
// parents enter cooldown, and the full payment is escrowed for the eventual
// birth reward.
func (s *Service) Breed(ctx context.Context, caller Address, matronID, sireID uint64, payment uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "breed", func(ctx context.Context) error {
		s.mu.RLock()
		fee := s.birthFee
		s.mu.RUnlock()
		nowTick := s.tick()
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			if payment < fee {
				return domain.ErrPaymentInsufficient{Required: fee, Provided: payment}
			}
			matronOwner, ok := tx.OwnerOf(matronID)
			if !ok {
				return domain.ErrNotFound{ID: matronID}
			}
			if caller != matronOwner {
				return domain.ErrUnauthorized{Caller: caller, Op: "breed matron"}
			}
			matron, _ := tx.FindCreature(matronID)
			sire, ok := tx.FindCreature(sireID)
			if !ok {
				return domain.ErrNotFound{ID: sireID}
			}
			if !siringPermitted(tx, matronOwner, sireID) {
				return domain.ErrUnauthorized{Caller: caller, Op: "use sire"}
			}
			if !matron.ReadyToBreedAt(nowTick) {
				return domain.ErrNotReady{ID: matronID, Reason: notReadyReason(matron, nowTick)}
			}
			if !sire.ReadyToBreedAt(nowTick) {
				return domain.ErrNotReady{ID: sireID, Reason: notReadyReason(sire, nowTick)}
			}
			if err := validPair(matron, sire); err != nil {
				return err
			}
			return s.breedLocked(tx, matronID, sireID, payment, nowTick)
		})
		return err
	})
	return res, err
}

func notReadyReason(c Creature, tick uint64) string {
	if c.Gestating() {
		return "gestating"
	}
	if !c.ReadyAt(tick) {
		return "cooling down"
	}
	return "not ready"
}

// breedLocked applies the effects of a validated mating inside tx.
func (s *Service) breedLocked(tx Transaction, matronID, sireID uint64, payment, nowTick uint64) error {
	// A consumed siring approval never survives the mating it enabled, and
	// a standing grant on the matron dies with the mating too.
	if err := tx.SetSiringApproval(sireID, NullAddress); err != nil {
		return err
	}
	if err := tx.SetSiringApproval(matronID, NullAddress); err != nil {
		return err
	}
	var matronCooldownEnd uint64
	if _, err := tx.UpdateCreature(matronID, func(c *Creature) error {
		c.SiringWithID = sireID
		s.triggerCooldown(c, nowTick)
		matronCooldownEnd = c.CooldownEndTick
		return nil
	}); err != nil {
		return err
	}
	if _, err := tx.UpdateCreature(sireID, func(c *Creature) error {
		s.triggerCooldown(c, nowTick)
		return nil
	}); err != nil {
		return err
	}
	if err := tx.AdjustPregnant(1); err != nil {
		return err
	}
	if payment > 0 {
		if err := tx.AddCredit(feePoolAddress, payment); err != nil {
			return err
		}
	}
	owner, _ := tx.OwnerOf(matronID)
	tx.AppendEvent(Event{
		Kind: domain.EventPregnant, Tick: nowTick, Owner: owner,
		MatronID: matronID, SireID: sireID, CooldownEndTick: matronCooldownEnd,
	})
	return nil
}

// GiveBirth delivers the matron's gestating child once her cooldown has
// elapsed. Anyone may call it; the caller earns the escrowed birth reward.
// The gene oracle is consulted inside the transaction, after every internal
// check, so an oracle failure leaves the pregnancy untouched.
func (s *Service) GiveBirth(ctx context.Context, caller Address, matronID uint64) (Creature, Result, error) {
	var child Creature
	var res Result
	err := s.instrument(ctx, "give_birth", func(ctx context.Context) error {
		s.mu.RLock()
		oracle := s.oracle
		fee := s.birthFee
		s.mu.RUnlock()
		if oracle == nil {
			return errors.New("gene oracle not configured")
		}
		nowTick := s.tick()
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			matron, ok := tx.FindCreature(matronID)
			if !ok {
				return domain.ErrNotFound{ID: matronID}
			}
			if !matron.Gestating() {
				return domain.ErrNotReady{ID: matronID, Reason: "not gestating"}
			}
			if !matron.ReadyAt(nowTick) {
				return domain.ErrNotReady{ID: matronID, Reason: "gestation not complete"}
			}
			sire, ok := tx.FindCreature(matron.SiringWithID)
			if !ok {
				return domain.ErrNotFound{ID: matron.SiringWithID}
			}
			gen := uint64(matron.Generation)
			if uint64(sire.Generation) > gen {
				gen = uint64(sire.Generation)
			}
			gen++
			if gen > math.MaxUint16 {
				return domain.ErrOverflow{What: "generation"}
			}
			// Seeding from the gestation deadline keeps the genome
			// stable no matter when the birth is triggered.
			genes, err := oracle.MixGenes(ctx, matron.Genes, sire.Genes, matron.CooldownEndTick-1)
			if err != nil {
				return err
			}
			owner, _ := tx.OwnerOf(matronID)
			child, err = s.mintLocked(tx, Creature{
				Genes:         genes,
				MatronID:      matron.ID,
				SireID:        sire.ID,
				Generation:    uint16(gen),
				CooldownIndex: newbornCooldownIndex(uint16(gen)),
			}, owner, nowTick)
			if err != nil {
				return err
			}
			if _, err := tx.UpdateCreature(matronID, func(c *Creature) error {
				c.SiringWithID = 0
				return nil
			}); err != nil {
				return err
			}
			if err := tx.AdjustPregnant(-1); err != nil {
				return err
			}
			// The reward is capped by what the pool actually holds, so a
			// fee raised mid-gestation cannot overdraw it.
			reward := fee
			if pool := tx.Credit(feePoolAddress); pool < reward {
				reward = pool
			}
			if reward > 0 && !caller.IsNull() {
				if err := tx.DebitCredit(feePoolAddress, reward); err != nil {
					return err
				}
				if err := tx.AddCredit(caller, reward); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Creature{}, res, err
	}
	return child, res, nil
}

// newbornCooldownIndex derives the starting cooldown slot from generation:
// later generations start with longer rests, saturating at the final slot.
func newbornCooldownIndex(generation uint16) uint8 {
	idx := generation / 2
	if idx > domain.CooldownSlots-1 {
		idx = domain.CooldownSlots - 1
	}
	return uint8(idx)
}

// mintLocked creates a creature inside tx and journals its birth.
func (s *Service) mintLocked(tx Transaction, c Creature, owner Address, nowTick uint64) (Creature, error) {
	minted, err := tx.MintCreature(c, owner)
	if err != nil {
		return Creature{}, err
	}
	tx.AppendEvent(Event{
		Kind: domain.EventBirth, Tick: nowTick,
		CreatureID: minted.ID, MatronID: minted.MatronID, SireID: minted.SireID,
		Genes: minted.Genes, Owner: owner,
	})
	return minted, nil
}

// CreatePromoCreature mints a generation-0 creature with the given genome
// outside the auction flow. COO only, capped by the promo creation limit.
// A null owner defaults to the COO.
func (s *Service) CreatePromoCreature(ctx context.Context, caller Address, genes Genes, owner Address) (Creature, Result, error) {
	var minted Creature
	var res Result
	err := s.instrument(ctx, "create_promo_creature", func(ctx context.Context) error {
		nowTick := s.tick()
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			authority := tx.Authority()
			if caller.IsNull() || caller != authority.COO {
				return domain.ErrUnauthorized{Caller: caller, Op: "create promo creature"}
			}
			if tx.Counters().PromoMinted >= s.cfg.PromoCreationLimit {
				return domain.ErrOverflow{What: "promo creation count"}
			}
			if owner.IsNull() {
				owner = authority.COO
			}
			var err error
			minted, err = s.mintLocked(tx, Creature{Genes: genes}, owner, nowTick)
			if err != nil {
				return err
			}
			return tx.IncPromoMinted()
		})
		return err
	})
	if err != nil {
		return Creature{}, res, err
	}
	return minted, res, nil
}
