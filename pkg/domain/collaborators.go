package domain

import (
	"context"
	"time"
)

// ReceiverAck is the acknowledgement a CreatureReceiver must return from
// OnCreatureReceived for a safe transfer to commit. Any other value, or an
// error, aborts the transfer atomically.
type ReceiverAck [4]byte

// ReceiverAckValue is the expected acknowledgement constant.
var ReceiverAckValue = ReceiverAck{0x15, 0x0b, 0x7a, 0x02}

// CreatureReceiver is implemented by contract-capable transfer destinations.
// The ledger invokes it during safe transfers before committing.
type CreatureReceiver interface {
	OnCreatureReceived(ctx context.Context, operator, from Address, id uint64, data []byte) (ReceiverAck, error)
}

// AuctionGateway is the escrow surface shared by the sale and siring
// marketplaces. Implementations hold escrowed creatures as their own ledger
// address; their pricing internals are outside the core's scope.
type AuctionGateway interface {
	// Address is the gateway's ledger address; escrowed creatures are
	// transferred to it for the lifetime of an auction.
	Address() Address
	// CreateAuction escrows assetID for seller at a declining price band.
	CreateAuction(ctx context.Context, assetID uint64, startPrice, endPrice uint64, duration time.Duration, seller Address) error
	// CurrentPrice reports the live price for an open auction.
	CurrentPrice(ctx context.Context, assetID uint64) (uint64, error)
	// WithdrawBalance sweeps gateway-held fees back to the core.
	WithdrawBalance(ctx context.Context) error
}

// SaleGateway sells creatures outright. IsSaleGateway is the configuration-time
// capability probe; it must return true for the binding to be accepted.
type SaleGateway interface {
	AuctionGateway
	IsSaleGateway() bool
	// AverageRecentSalePrice reports the trailing mean of completed gen-0
	// sales, used to seed the next gen-0 auction's starting price.
	AverageRecentSalePrice(ctx context.Context) (uint64, error)
}

// SiringGateway auctions temporary siring rights. Bid settles an open siring
// auction and returns the seller's address so the core can release the
// escrowed sire in the same transaction; the core then breeds the bidder's
// matron with the sire.
type SiringGateway interface {
	AuctionGateway
	IsSiringGateway() bool
	Bid(ctx context.Context, assetID uint64, bidder Address, amount uint64) (Address, error)
}

// GeneOracle derives offspring genetic material. The core trusts the returned
// value unconditionally; IsGeneOracle is the configuration-time capability
// probe.
type GeneOracle interface {
	IsGeneOracle() bool
	MixGenes(ctx context.Context, matron, sire Genes, seedTick uint64) (Genes, error)
}
