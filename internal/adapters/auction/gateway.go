// Package auction provides reference implementations of the sale and siring
// auction gateways. Prices decline linearly from start to end over the
// auction duration; proceeds accrue inside the gateway until withdrawn.
package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"creaturecore/pkg/domain"
)

// basisPoints is the denominator for the gateway's fee cut.
const basisPoints = 10_000

type listing struct {
	assetID    uint64
	seller     domain.Address
	startPrice uint64
	endPrice   uint64
	duration   time.Duration
	startedAt  time.Time
}

// house carries the state shared by both gateway flavors.
type house struct {
	addr  domain.Address
	cut   uint64 // fee in basis points, taken from each settlement
	nowFn func() time.Time

	mu       sync.Mutex
	listings map[uint64]listing
	balances map[domain.Address]uint64
	fees     uint64
}

func newHouse(addr domain.Address, cutBasisPoints uint64) house {
	return house{
		addr:     addr,
		cut:      cutBasisPoints,
		nowFn:    time.Now,
		listings: make(map[uint64]listing),
		balances: make(map[domain.Address]uint64),
	}
}

// SetNowFunc overrides the clock used for price interpolation. Tests only.
func (h *house) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		h.nowFn = fn
	}
}

// Address is the gateway's ledger address; escrowed creatures live here for
// the lifetime of an auction.
func (h *house) Address() domain.Address { return h.addr }

// CreateAuction opens a declining-price listing for an escrowed asset.
func (h *house) CreateAuction(_ context.Context, assetID uint64, startPrice, endPrice uint64, duration time.Duration, seller domain.Address) error {
	if duration < time.Minute {
		return fmt.Errorf("auction duration %s below one minute", duration)
	}
	if seller.IsNull() {
		return fmt.Errorf("auction requires a seller")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.listings[assetID]; exists {
		return fmt.Errorf("asset %d already listed", assetID)
	}
	h.listings[assetID] = listing{
		assetID:    assetID,
		seller:     seller,
		startPrice: startPrice,
		endPrice:   endPrice,
		duration:   duration,
		startedAt:  h.nowFn(),
	}
	return nil
}

// CurrentPrice reports the listing's interpolated price at the current time.
func (h *house) CurrentPrice(_ context.Context, assetID uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.listings[assetID]
	if !ok {
		return 0, fmt.Errorf("asset %d not listed", assetID)
	}
	return l.priceAt(h.nowFn()), nil
}

// priceAt interpolates linearly between start and end price, clamping at the
// end price once the duration elapses.
func (l listing) priceAt(now time.Time) uint64 {
	elapsed := now.Sub(l.startedAt)
	if elapsed >= l.duration {
		return l.endPrice
	}
	if elapsed <= 0 {
		return l.startPrice
	}
	delta := int64(l.endPrice) - int64(l.startPrice)
	offset := delta * int64(elapsed) / int64(l.duration)
	return uint64(int64(l.startPrice) + offset)
}

// settle completes a listing: validates the bid, splits proceeds between the
// seller's balance and the gateway's fee cut, and removes the listing.
func (h *house) settle(assetID uint64, amount uint64) (listing, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.listings[assetID]
	if !ok {
		return listing{}, fmt.Errorf("asset %d not listed", assetID)
	}
	price := l.priceAt(h.nowFn())
	if amount < price {
		return listing{}, domain.ErrPaymentInsufficient{Required: price, Provided: amount}
	}
	fee := price * h.cut / basisPoints
	h.balances[l.seller] += price - fee
	h.fees += fee
	delete(h.listings, assetID)
	return l, nil
}

// CancelAuction removes a listing and reports the seller owed the escrowed
// asset. The caller is responsible for returning the escrow.
func (h *house) CancelAuction(_ context.Context, assetID uint64) (domain.Address, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.listings[assetID]
	if !ok {
		return domain.NullAddress, fmt.Errorf("asset %d not listed", assetID)
	}
	delete(h.listings, assetID)
	return l.seller, nil
}

// SellerBalance reports the withdrawable proceeds accrued for addr.
func (h *house) SellerBalance(addr domain.Address) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balances[addr]
}

// WithdrawBalance sweeps the gateway's accumulated fee cut.
func (h *house) WithdrawBalance(_ context.Context) error {
	h.mu.Lock()
	h.fees = 0
	h.mu.Unlock()
	return nil
}

// SaleHouse implements domain.SaleGateway with a ring of recent settled
// prices feeding the generation-0 price oracle.
type SaleHouse struct {
	house

	priceMu      sync.Mutex
	recentPrices [5]uint64
	recentCount  int
	recentNext   int
}

// NewSaleHouse constructs a sale gateway at addr taking cutBasisPoints of
// each settlement.
func NewSaleHouse(addr domain.Address, cutBasisPoints uint64) *SaleHouse {
	return &SaleHouse{house: newHouse(addr, cutBasisPoints)}
}

// IsSaleGateway marks the capability probe.
func (s *SaleHouse) IsSaleGateway() bool { return true }

// Buy settles a sale listing at the current price and reports the seller,
// so the caller can release the escrowed creature to the buyer.
func (s *SaleHouse) Buy(_ context.Context, assetID uint64, buyer domain.Address, amount uint64) (domain.Address, error) {
	if buyer.IsNull() {
		return domain.NullAddress, fmt.Errorf("buy requires a bidder")
	}
	l, err := s.settle(assetID, amount)
	if err != nil {
		return domain.NullAddress, err
	}
	price := amount
	if p := l.priceAt(s.nowFn()); p < price {
		price = p
	}
	s.priceMu.Lock()
	s.recentPrices[s.recentNext] = price
	s.recentNext = (s.recentNext + 1) % len(s.recentPrices)
	if s.recentCount < len(s.recentPrices) {
		s.recentCount++
	}
	s.priceMu.Unlock()
	return l.seller, nil
}

// AverageRecentSalePrice reports the mean of the last settled sale prices,
// zero before any sale completes.
func (s *SaleHouse) AverageRecentSalePrice(_ context.Context) (uint64, error) {
	s.priceMu.Lock()
	defer s.priceMu.Unlock()
	if s.recentCount == 0 {
		return 0, nil
	}
	var sum uint64
	for i := 0; i < s.recentCount; i++ {
		sum += s.recentPrices[i]
	}
	return sum / uint64(s.recentCount), nil
}

// SiringHouse implements domain.SiringGateway.
type SiringHouse struct {
	house
}

// NewSiringHouse constructs a siring gateway at addr taking cutBasisPoints
// of each settlement.
func NewSiringHouse(addr domain.Address, cutBasisPoints uint64) *SiringHouse {
	return &SiringHouse{house: newHouse(addr, cutBasisPoints)}
}

// IsSiringGateway marks the capability probe.
func (s *SiringHouse) IsSiringGateway() bool { return true }

// Bid settles a siring listing at the current price and reports the seller
// owed the escrowed sire.
func (s *SiringHouse) Bid(_ context.Context, assetID uint64, bidder domain.Address, amount uint64) (domain.Address, error) {
	if bidder.IsNull() {
		return domain.NullAddress, fmt.Errorf("bid requires a bidder")
	}
	l, err := s.settle(assetID, amount)
	if err != nil {
		return domain.NullAddress, err
	}
	return l.seller, nil
}
