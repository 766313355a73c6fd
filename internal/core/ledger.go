package core

import (
	"context"
	"fmt"

	"creaturecore/pkg/domain"
)

// BalanceOf reports how many creatures owner holds. The null address always
// holds zero.
func (s *Service) BalanceOf(owner Address) int {
	if owner.IsNull() {
		return 0
	}
	return s.store.BalanceOf(owner)
}

// OwnerOf resolves the owner of id.
func (s *Service) OwnerOf(id uint64) (Address, error) {
	owner, ok := s.store.OwnerOf(id)
	if !ok {
		return NullAddress, domain.ErrNotFound{ID: id}
	}
	return owner, nil
}

// TotalSupply counts minted creatures, excluding the id-0 sentinel.
func (s *Service) TotalSupply() uint64 {
	return s.store.TotalSupply()
}

// TokenByIndex returns the id at position index of the global creation-order
// enumeration.
func (s *Service) TokenByIndex(index uint64) (uint64, error) {
	all := s.store.AllIDs()
	if index >= uint64(len(all)) {
		return 0, fmt.Errorf("global index %d out of range (supply %d)", index, len(all))
	}
	return all[index], nil
}

// TokenOfOwnerByIndex returns the id at position index of owner's holdings.
// Positions are not stable across transfers.
func (s *Service) TokenOfOwnerByIndex(owner Address, index uint64) (uint64, error) {
	owned := s.store.OwnedIDs(owner)
	if index >= uint64(len(owned)) {
		return 0, fmt.Errorf("owner index %d out of range (balance %d)", index, len(owned))
	}
	return owned[index], nil
}

// TokensOfOwner snapshots every id owner currently holds.
func (s *Service) TokensOfOwner(owner Address) []uint64 {
	return s.store.OwnedIDs(owner)
}

// Transfer moves id from the caller to the given destination. The caller must
// own the creature; the destination must not be the null address or the sale
// or siring gateway address, which only ever receive creatures via escrow.
func (s *Service) Transfer(ctx context.Context, caller, to Address, id uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "transfer", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return s.transferLocked(tx, caller, caller, to, id)
		})
		return err
	})
	return res, err
}

// TransferFrom moves id from -> to on behalf of the caller, who must be the
// owner, the approved address, or an approved operator.
func (s *Service) TransferFrom(ctx context.Context, caller, from, to Address, id uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "transfer_from", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := canOperate(tx, caller, id); err != nil {
				return err
			}
			return s.transferLocked(tx, caller, from, to, id)
		})
		return err
	})
	return res, err
}

// SafeTransferFrom behaves like TransferFrom but, when the destination has a
// registered receiver callback, invokes it inside the transaction and
// requires the acknowledgement magic. A rejecting or erroring receiver
// discards the whole transfer.
func (s *Service) SafeTransferFrom(ctx context.Context, caller, from, to Address, id uint64, data []byte) (Result, error) {
	var res Result
	err := s.instrument(ctx, "safe_transfer_from", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := canOperate(tx, caller, id); err != nil {
				return err
			}
			if err := s.transferLocked(tx, caller, from, to, id); err != nil {
				return err
			}
			receiver, ok := s.receiverFor(to)
			if !ok {
				return nil
			}
			ack, err := receiver.OnCreatureReceived(ctx, caller, from, id, data)
			if err != nil {
				return fmt.Errorf("receiver %q: %w", string(to), err)
			}
			if ack != domain.ReceiverAckValue {
				return fmt.Errorf("receiver %q did not acknowledge creature %d", string(to), id)
			}
			return nil
		})
		return err
	})
	return res, err
}

// transferLocked applies common transfer validation and effects inside tx.
// caller is recorded only for error reporting; from must be the current
// owner, which Transaction.Transfer enforces.
func (s *Service) transferLocked(tx Transaction, caller, from, to Address, id uint64) error {
	if err := requireNotPaused(tx); err != nil {
		return err
	}
	if to.IsNull() {
		return domain.ErrUnauthorized{Caller: caller, Op: "transfer to null address"}
	}
	s.mu.RLock()
	sale, siring := s.sale, s.siring
	s.mu.RUnlock()
	if sale != nil && to == sale.Address() {
		return domain.ErrUnauthorized{Caller: caller, Op: "direct transfer to sale gateway"}
	}
	if siring != nil && to == siring.Address() {
		return domain.ErrUnauthorized{Caller: caller, Op: "direct transfer to siring gateway"}
	}
	if err := tx.Transfer(from, to, id); err != nil {
		return err
	}
	tx.AppendEvent(Event{Kind: domain.EventTransfer, Tick: s.tick(), CreatureID: id, From: from, To: to})
	return nil
}

// Approve grants (or, with the null address, revokes) the single transfer
// approval for id. Caller must own the creature or be one of the owner's
// operators.
func (s *Service) Approve(ctx context.Context, caller, approved Address, id uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "approve", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			owner, ok := tx.OwnerOf(id)
			if !ok {
				return domain.ErrNotFound{ID: id}
			}
			if caller != owner && !tx.IsOperator(owner, caller) {
				return domain.ErrUnauthorized{Caller: caller, Op: "approve transfer"}
			}
			if err := tx.SetApproval(id, approved); err != nil {
				return err
			}
			tx.AppendEvent(Event{Kind: domain.EventApproval, Tick: s.tick(), CreatureID: id, Owner: owner, To: approved})
			return nil
		})
		return err
	})
	return res, err
}

// GetApproved reports the approved transfer address for id, or false when no
// approval stands.
func (s *Service) GetApproved(id uint64) (Address, bool) {
	return s.store.ApprovedFor(id)
}

// SetApprovalForAll grants or revokes operator over every creature the caller
// owns, now and in the future.
func (s *Service) SetApprovalForAll(ctx context.Context, caller, operator Address, approved bool) (Result, error) {
	var res Result
	err := s.instrument(ctx, "set_approval_for_all", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			if caller.IsNull() || operator.IsNull() || caller == operator {
				return domain.ErrUnauthorized{Caller: caller, Op: "set operator"}
			}
			if err := tx.SetOperator(caller, operator, approved); err != nil {
				return err
			}
			tx.AppendEvent(Event{
				Kind: domain.EventApprovalForAll, Tick: s.tick(),
				Owner: caller, Operator: operator, Approved: approved,
			})
			return nil
		})
		return err
	})
	return res, err
}

// IsApprovedForAll reports whether operator holds blanket approval from owner.
func (s *Service) IsApprovedForAll(owner, operator Address) bool {
	return s.store.IsOperator(owner, operator)
}
