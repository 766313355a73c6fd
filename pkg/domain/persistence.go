package domain

import "context"

// Transaction exposes the ledger operations that a persistence implementation
// must support within an atomic scope. Mutations are visible only inside the
// transaction until commit; a returned error discards every change.
type Transaction interface {
	Snapshot() TransactionView

	// MintCreature assigns the next id, records ownership and enumeration
	// entries for owner, and stamps the birth time. The id-0 sentinel is
	// created at store initialization, never through MintCreature.
	MintCreature(c Creature, owner Address) (Creature, error)
	// UpdateCreature mutates a creature's breeding fields. Identity fields
	// (id, genes, parents, generation, birth time) are restored after the
	// mutator runs.
	UpdateCreature(id uint64, mutator func(*Creature) error) (Creature, error)
	// Transfer reassigns ownership of id from -> to, updating balances and
	// enumeration records and clearing the creature's transfer approval.
	Transfer(from, to Address, id uint64) error

	SetApproval(id uint64, approved Address) error
	SetOperator(owner, operator Address, approved bool) error
	SetSiringApproval(sireID uint64, grantee Address) error

	SetPaused(paused bool)
	SetAuthority(a Authority)

	AddCredit(addr Address, amount uint64) error
	DebitCredit(addr Address, amount uint64) error

	AdjustPregnant(delta int) error
	IncPromoMinted() error
	IncGen0Minted() error

	AppendEvent(e Event)

	FindCreature(id uint64) (Creature, bool)
	OwnerOf(id uint64) (Address, bool)
	BalanceOf(owner Address) int
	ApprovedFor(id uint64) (Address, bool)
	IsOperator(owner, operator Address) bool
	SiringApproval(sireID uint64) (Address, bool)
	Counters() Counters
	Paused() bool
	Authority() Authority
	Credit(addr Address) uint64
}

// TransactionView provides read-only access to snapshot data for rules and
// queries.
type TransactionView interface {
	RuleView
	ApprovedFor(id uint64) (Address, bool)
	IsOperator(owner, operator Address) bool
	SiringApproval(sireID uint64) (Address, bool)
	Paused() bool
	Authority() Authority
	Credit(addr Address) uint64
	Events(fromSeq uint64) []Event
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCreature(id uint64) (Creature, bool)
	ListCreatures() []Creature
	OwnerOf(id uint64) (Address, bool)
	BalanceOf(owner Address) int
	OwnedIDs(owner Address) []uint64
	AllIDs() []uint64
	TotalSupply() uint64
	ApprovedFor(id uint64) (Address, bool)
	IsOperator(owner, operator Address) bool
	SiringApproval(sireID uint64) (Address, bool)
	Counters() Counters
	Paused() bool
	Authority() Authority
	Credit(addr Address) uint64
	Events(fromSeq uint64) []Event
}
