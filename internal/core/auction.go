package core

import (
	"context"
	"errors"
	"time"

	"creaturecore/pkg/domain"
)

// registryAddress is the ledger address the service itself acts under when it
// mints and sells generation-0 creatures. Gen-0 auction proceeds accrue here.
const registryAddress = Address("sink:registry")

// SetSaleGateway binds the sale-auction collaborator. CEO only. The candidate
// must pass its capability probe; on rejection any previous binding stays in
// place.
func (s *Service) SetSaleGateway(ctx context.Context, caller Address, gw SaleGateway) error {
	return s.instrument(ctx, "set_sale_gateway", func(ctx context.Context) error {
		if err := s.requireCEO(caller, "set sale gateway"); err != nil {
			return err
		}
		if gw == nil || !gw.IsSaleGateway() {
			return domain.ErrCapabilityRejected{Role: "sale gateway"}
		}
		s.mu.Lock()
		s.sale = gw
		s.mu.Unlock()
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tx.AppendEvent(Event{Kind: domain.EventGatewayConfigured, Tick: s.tick(), Role: "sale", To: gw.Address()})
			return nil
		})
		return err
	})
}

// SetSiringGateway binds the siring-auction collaborator. CEO only, probed
// like the sale gateway.
func (s *Service) SetSiringGateway(ctx context.Context, caller Address, gw SiringGateway) error {
	return s.instrument(ctx, "set_siring_gateway", func(ctx context.Context) error {
		if err := s.requireCEO(caller, "set siring gateway"); err != nil {
			return err
		}
		if gw == nil || !gw.IsSiringGateway() {
			return domain.ErrCapabilityRejected{Role: "siring gateway"}
		}
		s.mu.Lock()
		s.siring = gw
		s.mu.Unlock()
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tx.AppendEvent(Event{Kind: domain.EventGatewayConfigured, Tick: s.tick(), Role: "siring", To: gw.Address()})
			return nil
		})
		return err
	})
}

// SetGeneOracle binds the gene-mixing collaborator. CEO only, probed.
func (s *Service) SetGeneOracle(ctx context.Context, caller Address, oracle GeneOracle) error {
	return s.instrument(ctx, "set_gene_oracle", func(ctx context.Context) error {
		if err := s.requireCEO(caller, "set gene oracle"); err != nil {
			return err
		}
		if oracle == nil || !oracle.IsGeneOracle() {
			return domain.ErrCapabilityRejected{Role: "gene oracle"}
		}
		s.mu.Lock()
		s.oracle = oracle
		s.mu.Unlock()
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tx.AppendEvent(Event{Kind: domain.EventOracleConfigured, Tick: s.tick()})
			return nil
		})
		return err
	})
}

func (s *Service) requireCEO(caller Address, op string) error {
	authority := s.store.Authority()
	if caller.IsNull() || caller != authority.CEO {
		return domain.ErrUnauthorized{Caller: caller, Op: op}
	}
	return nil
}

func (s *Service) saleGateway() (SaleGateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sale == nil {
		return nil, errors.New("sale gateway not configured")
	}
	return s.sale, nil
}

func (s *Service) siringGateway() (SiringGateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.siring == nil {
		return nil, errors.New("siring gateway not configured")
	}
	return s.siring, nil
}

// CreateSaleAuction escrows the caller's creature with the sale gateway and
// opens a declining-price auction. Pregnant creatures cannot be listed; the
// auction would outlive the gestation and strand the birth.
func (s *Service) CreateSaleAuction(ctx context.Context, caller Address, id uint64, startPrice, endPrice uint64, duration time.Duration) (Result, error) {
	var res Result
	err := s.instrument(ctx, "create_sale_auction", func(ctx context.Context) error {
		sale, err := s.saleGateway()
		if err != nil {
			return err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			owner, ok := tx.OwnerOf(id)
			if !ok {
				return domain.ErrNotFound{ID: id}
			}
			if caller != owner {
				return domain.ErrUnauthorized{Caller: caller, Op: "list creature for sale"}
			}
			c, _ := tx.FindCreature(id)
			if c.Gestating() {
				return domain.ErrNotReady{ID: id, Reason: "gestating"}
			}
			if err := tx.Transfer(owner, sale.Address(), id); err != nil {
				return err
			}
			tx.AppendEvent(Event{Kind: domain.EventTransfer, Tick: s.tick(), CreatureID: id, From: owner, To: sale.Address()})
			// The gateway call runs last; a gateway failure unwinds the
			// escrow along with the rest of the transaction.
			return sale.CreateAuction(ctx, id, startPrice, endPrice, duration, owner)
		})
		return err
	})
	return res, err
}

// CreateSiringAuction escrows the caller's sire with the siring gateway. The
// sire must currently be ready to breed; a listing that could never be
// serviced is refused outright.
func (s *Service) CreateSiringAuction(ctx context.Context, caller Address, id uint64, startPrice, endPrice uint64, duration time.Duration) (Result, error) {
	var res Result
	err := s.instrument(ctx, "create_siring_auction", func(ctx context.Context) error {
		siring, err := s.siringGateway()
		if err != nil {
			return err
		}
		nowTick := s.tick()
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
			}
			owner, ok := tx.OwnerOf(id)
			if !ok {
				return domain.ErrNotFound{ID: id}
			}
			if caller != owner {
				return domain.ErrUnauthorized{Caller: caller, Op: "list sire for siring"}
			}
			c, _ := tx.FindCreature(id)
			if !c.ReadyToBreedAt(nowTick) {
				return domain.ErrNotReady{ID: id, Reason: notReadyReason(c, nowTick)}
			}
			if err := tx.Transfer(owner, siring.Address(), id); err != nil {
				return err
			}
			tx.AppendEvent(Event{Kind: domain.EventTransfer, Tick: s.tick(), CreatureID: id, From: owner, To: siring.Address()})
			return siring.CreateAuction(ctx, id, startPrice, endPrice, duration, owner)
		})
		return err
	})
	return res, err
}

// BidOnSiringAuction completes a siring auction: the caller pays the current
// auction price plus the auto-birth fee, the escrowed sire returns to its
// seller, and the caller's matron immediately becomes pregnant by it.
func (s *Service) BidOnSiringAuction(ctx context.Context, caller Address, sireID, matronID uint64, payment uint64) (Result, error) {
	var res Result
	err := s.instrument(ctx, "bid_on_siring_auction", func(ctx context.Context) error {
		siring, err := s.siringGateway()
		if err != nil {
			return err
		}
		s.mu.RLock()
		fee := s.birthFee
		s.mu.RUnlock()
		nowTick := s.tick()
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := requireNotPaused(tx); err != nil {
				return err
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
			if !matron.ReadyToBreedAt(nowTick) {
				return domain.ErrNotReady{ID: matronID, Reason: notReadyReason(matron, nowTick)}
			}
			if !sire.ReadyToBreedAt(nowTick) {
				return domain.ErrNotReady{ID: sireID, Reason: notReadyReason(sire, nowTick)}
			}
			if err := validPair(matron, sire); err != nil {
				return err
			}
			price, err := siring.CurrentPrice(ctx, sireID)
			if err != nil {
				return err
			}
			required := price + fee
			if required < price {
				return domain.ErrOverflow{What: "bid total"}
			}
			if payment < required {
				return domain.ErrPaymentInsufficient{Required: required, Provided: payment}
			}
			// The fee stays behind for the birth reward; the rest goes to
			// the gateway, which reports the seller owed the escrowed sire.
			// Bid settles on the gateway's side immediately. If the commit
			// is later discarded the gateway stays settled; the trusted
			// gateway contract puts reconciling that on the gateway.
			seller, err := siring.Bid(ctx, sireID, caller, payment-fee)
			if err != nil {
				return err
			}
			if err := tx.Transfer(siring.Address(), seller, sireID); err != nil {
				return err
			}
			tx.AppendEvent(Event{Kind: domain.EventTransfer, Tick: nowTick, CreatureID: sireID, From: siring.Address(), To: seller})
			return s.breedLocked(tx, matronID, sireID, fee, nowTick)
		})
		return err
	})
	return res, err
}

// CreateGen0Auction mints a fresh generation-0 creature and immediately lists
// it with the sale gateway on behalf of the registry. COO only, capped by
// the generation-0 creation limit.
func (s *Service) CreateGen0Auction(ctx context.Context, caller Address, genes Genes) (Creature, Result, error) {
	var minted Creature
	var res Result
	err := s.instrument(ctx, "create_gen0_auction", func(ctx context.Context) error {
		sale, err := s.saleGateway()
		if err != nil {
			return err
		}
		startPrice, err := s.nextGen0Price(ctx, sale)
		if err != nil {
			return err
		}
		nowTick := s.tick()
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			authority := tx.Authority()
			if caller.IsNull() || caller != authority.COO {
				return domain.ErrUnauthorized{Caller: caller, Op: "create gen0 auction"}
			}
			if tx.Counters().Gen0Minted >= s.cfg.Gen0CreationLimit {
				return domain.ErrOverflow{What: "gen0 creation count"}
			}
			minted, err = s.mintLocked(tx, Creature{Genes: genes}, registryAddress, nowTick)
			if err != nil {
				return err
			}
			if err := tx.IncGen0Minted(); err != nil {
				return err
			}
			if err := tx.Transfer(registryAddress, sale.Address(), minted.ID); err != nil {
				return err
			}
			tx.AppendEvent(Event{Kind: domain.EventTransfer, Tick: nowTick, CreatureID: minted.ID, From: registryAddress, To: sale.Address()})
			return sale.CreateAuction(ctx, minted.ID, startPrice, 0, time.Duration(s.cfg.Gen0AuctionDuration), registryAddress)
		})
		return err
	})
	if err != nil {
		return Creature{}, res, err
	}
	return minted, res, nil
}

// nextGen0Price opens each gen-0 auction at the recent average sale price
// plus half, floored at the configured starting price.
func (s *Service) nextGen0Price(ctx context.Context, sale SaleGateway) (uint64, error) {
	avg, err := sale.AverageRecentSalePrice(ctx)
	if err != nil {
		return 0, err
	}
	price := avg + avg/2
	if price < s.cfg.Gen0StartingPrice {
		price = s.cfg.Gen0StartingPrice
	}
	return price, nil
}

// WithdrawGatewayBalances sweeps accumulated proceeds out of both gateways.
// Any control address may trigger the sweep.
func (s *Service) WithdrawGatewayBalances(ctx context.Context, caller Address) error {
	return s.instrument(ctx, "withdraw_gateway_balances", func(ctx context.Context) error {
		if !s.isAuthority(s.store.Authority(), caller) {
			return domain.ErrUnauthorized{Caller: caller, Op: "withdraw gateway balances"}
		}
		s.mu.RLock()
		sale, siring := s.sale, s.siring
		s.mu.RUnlock()
		if sale != nil {
			if err := sale.WithdrawBalance(ctx); err != nil {
				return err
			}
		}
		if siring != nil {
			if err := siring.WithdrawBalance(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
