// Package memory provides the in-memory transactional implementation of the
// core ledger store. All other persistence backends wrap it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"creaturecore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Creature aliases domain.Creature for in-memory persistence operations.
	Creature = domain.Creature
	// Address aliases domain.Address.
	Address = domain.Address
	// Authority aliases domain.Authority.
	Authority = domain.Authority
	// Counters aliases domain.Counters.
	Counters = domain.Counters
	// Event aliases domain.Event captured in the journal.
	Event = domain.Event
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	creatures  map[uint64]Creature
	owners     map[uint64]Address
	balances   map[Address]int
	approvals  map[uint64]Address
	operators  map[Address]map[Address]bool
	siring     map[uint64]Address
	owned      map[Address][]uint64
	ownedIndex map[uint64]int
	allIDs     []uint64
	allIndex   map[uint64]int
	nextID     uint64
	counters   Counters
	paused     bool
	authority  Authority
	credits    map[Address]uint64
	events     []Event
	nextSeq    uint64
}

// Snapshot captures a point-in-time clone of the store state. Enumeration
// reverse indices are rebuilt on import and therefore omitted.
type Snapshot struct {
	Creatures map[uint64]Creature   `json:"creatures"`
	Owners    map[uint64]Address    `json:"owners"`
	Approvals map[uint64]Address    `json:"approvals"`
	Operators map[Address][]Address `json:"operators"`
	Siring    map[uint64]Address    `json:"siring"`
	Owned     map[Address][]uint64  `json:"owned"`
	AllIDs    []uint64              `json:"all_ids"`
	NextID    uint64                `json:"next_id"`
	Counters  Counters              `json:"counters"`
	Paused    bool                  `json:"paused"`
	Authority Authority             `json:"authority"`
	Credits   map[Address]uint64    `json:"credits"`
	Events    []Event               `json:"events"`
	NextSeq   uint64                `json:"next_seq"`
}

func newMemoryState() memoryState {
	state := memoryState{
		creatures:  make(map[uint64]Creature),
		owners:     make(map[uint64]Address),
		balances:   make(map[Address]int),
		approvals:  make(map[uint64]Address),
		operators:  make(map[Address]map[Address]bool),
		siring:     make(map[uint64]Address),
		owned:      make(map[Address][]uint64),
		ownedIndex: make(map[uint64]int),
		allIndex:   make(map[uint64]int),
		credits:    make(map[Address]uint64),
		nextID:     1,
	}
	// Id 0 is the reserved null-creature sentinel: present, unowned, and
	// never transferred or bred.
	state.creatures[0] = Creature{}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		creatures:  make(map[uint64]Creature, len(s.creatures)),
		owners:     make(map[uint64]Address, len(s.owners)),
		balances:   make(map[Address]int, len(s.balances)),
		approvals:  make(map[uint64]Address, len(s.approvals)),
		operators:  make(map[Address]map[Address]bool, len(s.operators)),
		siring:     make(map[uint64]Address, len(s.siring)),
		owned:      make(map[Address][]uint64, len(s.owned)),
		ownedIndex: make(map[uint64]int, len(s.ownedIndex)),
		allIDs:     append([]uint64(nil), s.allIDs...),
		allIndex:   make(map[uint64]int, len(s.allIndex)),
		nextID:     s.nextID,
		counters:   s.counters,
		paused:     s.paused,
		authority:  s.authority,
		credits:    make(map[Address]uint64, len(s.credits)),
		events:     append([]Event(nil), s.events...),
		nextSeq:    s.nextSeq,
	}
	for k, v := range s.creatures {
		cloned.creatures[k] = v
	}
	for k, v := range s.owners {
		cloned.owners[k] = v
	}
	for k, v := range s.balances {
		cloned.balances[k] = v
	}
	for k, v := range s.approvals {
		cloned.approvals[k] = v
	}
	for owner, ops := range s.operators {
		cp := make(map[Address]bool, len(ops))
		for op, flag := range ops {
			cp[op] = flag
		}
		cloned.operators[owner] = cp
	}
	for k, v := range s.siring {
		cloned.siring[k] = v
	}
	for owner, ids := range s.owned {
		cloned.owned[owner] = append([]uint64(nil), ids...)
	}
	for k, v := range s.ownedIndex {
		cloned.ownedIndex[k] = v
	}
	for k, v := range s.allIndex {
		cloned.allIndex[k] = v
	}
	for k, v := range s.credits {
		cloned.credits[k] = v
	}
	return cloned
}

// Store provides an in-memory transactional ledger store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction timestamp source, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	state   *memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is committed only when fn succeeds and no blocking rule
// violation is raised; otherwise no change is observable.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	tx := &transaction{state: &working, now: s.nowFn()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := transactionView{state: &working}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = working
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &snapshot})
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to rules and callers.
func (tx *transaction) Snapshot() TransactionView {
	return transactionView{state: tx.state}
}

// MintCreature assigns the next id and records ownership plus enumeration
// entries for owner.
func (tx *transaction) MintCreature(c Creature, owner Address) (Creature, error) {
	if owner.IsNull() {
		return Creature{}, domain.ErrUnauthorized{Caller: owner, Op: "mint to null address"}
	}
	id := tx.state.nextID
	if id > domain.MaxCreatureID {
		return Creature{}, domain.ErrOverflow{What: "creature id"}
	}
	c.ID = id
	c.BirthTime = tx.now
	tx.state.nextID++
	tx.state.creatures[id] = c
	tx.assignOwnership(domain.NullAddress, owner, id)
	tx.recordChange(Change{Entity: domain.EntityCreature, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCreature mutates a creature's breeding fields. Identity fields are
// restored after the mutator runs.
func (tx *transaction) UpdateCreature(id uint64, mutator func(*Creature) error) (Creature, error) {
	current, ok := tx.state.creatures[id]
	if !ok || !current.Exists() {
		return Creature{}, domain.ErrNotFound{ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Creature{}, err
	}
	current.ID = before.ID
	current.Genes = before.Genes
	current.BirthTime = before.BirthTime
	current.MatronID = before.MatronID
	current.SireID = before.SireID
	current.Generation = before.Generation
	tx.state.creatures[id] = current
	tx.recordChange(Change{Entity: domain.EntityCreature, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// Transfer reassigns ownership of id, updating balances and enumeration
// records and clearing the creature's transfer approval.
func (tx *transaction) Transfer(from, to Address, id uint64) error {
	if to.IsNull() {
		return domain.ErrUnauthorized{Caller: to, Op: "transfer to null address"}
	}
	owner, ok := tx.state.owners[id]
	if !ok {
		return domain.ErrNotFound{ID: id}
	}
	if owner != from {
		return domain.ErrUnauthorized{Caller: from, Op: fmt.Sprintf("transfer of creature %d", id)}
	}
	delete(tx.state.approvals, id)
	tx.removeFromOwner(from, id)
	tx.assignOwnership(from, to, id)
	tx.recordChange(Change{Entity: domain.EntityOwnership, Action: domain.ActionUpdate, Before: from, After: to})
	return nil
}

// assignOwnership appends id to to's enumeration list and records ownership.
// Newly minted ids are also appended to the global list.
func (tx *transaction) assignOwnership(from, to Address, id uint64) {
	tx.state.owners[id] = to
	tx.state.owned[to] = append(tx.state.owned[to], id)
	tx.state.ownedIndex[id] = len(tx.state.owned[to]) - 1
	tx.state.balances[to]++
	if from.IsNull() {
		tx.state.allIDs = append(tx.state.allIDs, id)
		tx.state.allIndex[id] = len(tx.state.allIDs) - 1
	}
}

// removeFromOwner deletes id from owner's dense list by swapping the last
// element into its slot. The per-owner list order is not stable across
// removals; the O(1) mutation cost is the intended tradeoff.
func (tx *transaction) removeFromOwner(owner Address, id uint64) {
	list := tx.state.owned[owner]
	pos := tx.state.ownedIndex[id]
	last := len(list) - 1
	if pos != last {
		moved := list[last]
		list[pos] = moved
		tx.state.ownedIndex[moved] = pos
	}
	tx.state.owned[owner] = list[:last]
	if last == 0 {
		delete(tx.state.owned, owner)
	}
	delete(tx.state.ownedIndex, id)
	tx.state.balances[owner]--
	if tx.state.balances[owner] == 0 {
		delete(tx.state.balances, owner)
	}
}

// SetApproval records (or clears, with the null address) the single approved
// transfer address for id.
func (tx *transaction) SetApproval(id uint64, approved Address) error {
	if _, ok := tx.state.owners[id]; !ok {
		return domain.ErrNotFound{ID: id}
	}
	if approved.IsNull() {
		delete(tx.state.approvals, id)
	} else {
		tx.state.approvals[id] = approved
	}
	tx.recordChange(Change{Entity: domain.EntityApproval, Action: domain.ActionUpdate, After: approved})
	return nil
}

// SetOperator toggles operator approval for all of owner's creatures.
func (tx *transaction) SetOperator(owner, operator Address, approved bool) error {
	if owner.IsNull() || operator.IsNull() {
		return domain.ErrUnauthorized{Caller: operator, Op: "operator approval for null address"}
	}
	ops := tx.state.operators[owner]
	if approved {
		if ops == nil {
			ops = make(map[Address]bool)
			tx.state.operators[owner] = ops
		}
		ops[operator] = true
	} else if ops != nil {
		delete(ops, operator)
		if len(ops) == 0 {
			delete(tx.state.operators, owner)
		}
	}
	tx.recordChange(Change{Entity: domain.EntityOperator, Action: domain.ActionUpdate, After: approved})
	return nil
}

// SetSiringApproval records the standing siring grantee for sireID. A new
// grant overwrites the previous one; the null address clears it.
func (tx *transaction) SetSiringApproval(sireID uint64, grantee Address) error {
	if _, ok := tx.state.owners[sireID]; !ok {
		return domain.ErrNotFound{ID: sireID}
	}
	if grantee.IsNull() {
		delete(tx.state.siring, sireID)
	} else {
		tx.state.siring[sireID] = grantee
	}
	tx.recordChange(Change{Entity: domain.EntitySiring, Action: domain.ActionUpdate, After: grantee})
	return nil
}

func (tx *transaction) SetPaused(paused bool) {
	tx.state.paused = paused
}

func (tx *transaction) SetAuthority(a Authority) {
	before := tx.state.authority
	tx.state.authority = a
	tx.recordChange(Change{Entity: domain.EntityAuthority, Action: domain.ActionUpdate, Before: before, After: a})
}

// AddCredit accrues withdrawable balance for addr.
func (tx *transaction) AddCredit(addr Address, amount uint64) error {
	if addr.IsNull() {
		return domain.ErrUnauthorized{Caller: addr, Op: "credit to null address"}
	}
	current := tx.state.credits[addr]
	if current+amount < current {
		return domain.ErrOverflow{What: "credit balance"}
	}
	tx.state.credits[addr] = current + amount
	return nil
}

// DebitCredit removes withdrawable balance from addr.
func (tx *transaction) DebitCredit(addr Address, amount uint64) error {
	current := tx.state.credits[addr]
	if current < amount {
		return domain.ErrPaymentInsufficient{Required: amount, Provided: current}
	}
	if current == amount {
		delete(tx.state.credits, addr)
	} else {
		tx.state.credits[addr] = current - amount
	}
	return nil
}

// AdjustPregnant moves the global gestation counter by delta.
func (tx *transaction) AdjustPregnant(delta int) error {
	if delta < 0 && tx.state.counters.Pregnant < uint64(-delta) {
		return domain.ErrOverflow{What: "pregnancy counter"}
	}
	if delta < 0 {
		tx.state.counters.Pregnant -= uint64(-delta)
	} else {
		tx.state.counters.Pregnant += uint64(delta)
	}
	return nil
}

func (tx *transaction) IncPromoMinted() error {
	if tx.state.counters.PromoMinted+1 == 0 {
		return domain.ErrOverflow{What: "promo counter"}
	}
	tx.state.counters.PromoMinted++
	return nil
}

func (tx *transaction) IncGen0Minted() error {
	if tx.state.counters.Gen0Minted+1 == 0 {
		return domain.ErrOverflow{What: "gen0 counter"}
	}
	tx.state.counters.Gen0Minted++
	return nil
}

// AppendEvent assigns the next journal sequence number and records e.
func (tx *transaction) AppendEvent(e Event) {
	tx.state.nextSeq++
	e.Seq = tx.state.nextSeq
	if e.At.IsZero() {
		e.At = tx.now
	}
	tx.state.events = append(tx.state.events, e)
}

func (tx *transaction) FindCreature(id uint64) (Creature, bool) {
	return tx.Snapshot().FindCreature(id)
}

func (tx *transaction) OwnerOf(id uint64) (Address, bool) {
	return tx.Snapshot().OwnerOf(id)
}

func (tx *transaction) BalanceOf(owner Address) int {
	return tx.Snapshot().BalanceOf(owner)
}

func (tx *transaction) ApprovedFor(id uint64) (Address, bool) {
	return tx.Snapshot().ApprovedFor(id)
}

func (tx *transaction) IsOperator(owner, operator Address) bool {
	return tx.Snapshot().IsOperator(owner, operator)
}

func (tx *transaction) SiringApproval(sireID uint64) (Address, bool) {
	return tx.Snapshot().SiringApproval(sireID)
}

func (tx *transaction) Counters() Counters { return tx.state.counters }
func (tx *transaction) Paused() bool       { return tx.state.paused }
func (tx *transaction) Authority() Authority {
	return tx.state.authority
}
func (tx *transaction) Credit(addr Address) uint64 { return tx.state.credits[addr] }

// View methods --------------------------------------------------------------

func (v transactionView) ListCreatures() []Creature {
	out := make([]Creature, 0, len(v.state.creatures))
	for _, c := range v.state.creatures {
		if c.Exists() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) FindCreature(id uint64) (Creature, bool) {
	c, ok := v.state.creatures[id]
	if !ok || !c.Exists() {
		return Creature{}, false
	}
	return c, true
}

func (v transactionView) OwnerOf(id uint64) (Address, bool) {
	owner, ok := v.state.owners[id]
	return owner, ok
}

func (v transactionView) BalanceOf(owner Address) int {
	return v.state.balances[owner]
}

func (v transactionView) OwnedIDs(owner Address) []uint64 {
	return append([]uint64(nil), v.state.owned[owner]...)
}

func (v transactionView) AllIDs() []uint64 {
	return append([]uint64(nil), v.state.allIDs...)
}

func (v transactionView) Owners() []Address {
	out := make([]Address, 0, len(v.state.owned))
	for owner := range v.state.owned {
		out = append(out, owner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v transactionView) Counters() Counters { return v.state.counters }

func (v transactionView) ApprovedFor(id uint64) (Address, bool) {
	addr, ok := v.state.approvals[id]
	return addr, ok
}

func (v transactionView) IsOperator(owner, operator Address) bool {
	return v.state.operators[owner][operator]
}

func (v transactionView) SiringApproval(sireID uint64) (Address, bool) {
	addr, ok := v.state.siring[sireID]
	return addr, ok
}

func (v transactionView) Paused() bool         { return v.state.paused }
func (v transactionView) Authority() Authority { return v.state.authority }

func (v transactionView) Credit(addr Address) uint64 { return v.state.credits[addr] }

func (v transactionView) Events(fromSeq uint64) []Event {
	out := make([]Event, 0)
	for _, e := range v.state.events {
		if e.Seq >= fromSeq {
			out = append(out, e)
		}
	}
	return out
}

// Read helpers --------------------------------------------------------------

// GetCreature retrieves a creature by id from committed state.
func (s *Store) GetCreature(id uint64) (Creature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.creatures[id]
	if !ok || !c.Exists() {
		return Creature{}, false
	}
	return c, true
}

// ListCreatures returns all minted creatures ordered by id.
func (s *Store) ListCreatures() []Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListCreatures()
}

// OwnerOf reports the owner of id, if any.
func (s *Store) OwnerOf(id uint64) (Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.state.owners[id]
	return owner, ok
}

// BalanceOf reports how many creatures owner holds.
func (s *Store) BalanceOf(owner Address) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.balances[owner]
}

// OwnedIDs returns owner's enumeration list.
func (s *Store) OwnedIDs(owner Address) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.state.owned[owner]...)
}

// AllIDs returns the global enumeration list in creation order.
func (s *Store) AllIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.state.allIDs...)
}

// TotalSupply reports the number of minted creatures, excluding the sentinel.
func (s *Store) TotalSupply() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.state.allIDs))
}

// ApprovedFor reports the approved transfer address for id, if any.
func (s *Store) ApprovedFor(id uint64) (Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.state.approvals[id]
	return addr, ok
}

// IsOperator reports whether operator may act for all of owner's creatures.
func (s *Store) IsOperator(owner, operator Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.operators[owner][operator]
}

// SiringApproval reports the standing siring grantee for sireID, if any.
func (s *Store) SiringApproval(sireID uint64) (Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.state.siring[sireID]
	return addr, ok
}

// Counters returns the global counters.
func (s *Store) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.counters
}

// Paused reports the pause flag.
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.paused
}

// Authority returns the configured control addresses.
func (s *Store) Authority() Authority {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.authority
}

// Credit reports addr's withdrawable balance.
func (s *Store) Credit(addr Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.credits[addr]
}

// Events returns journal entries with sequence >= fromSeq.
func (s *Store) Events(fromSeq uint64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.Events(fromSeq)
}

// ExportState captures a serializable snapshot of committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Creatures: make(map[uint64]Creature, len(s.state.creatures)),
		Owners:    make(map[uint64]Address, len(s.state.owners)),
		Approvals: make(map[uint64]Address, len(s.state.approvals)),
		Operators: make(map[Address][]Address, len(s.state.operators)),
		Siring:    make(map[uint64]Address, len(s.state.siring)),
		Owned:     make(map[Address][]uint64, len(s.state.owned)),
		AllIDs:    append([]uint64(nil), s.state.allIDs...),
		NextID:    s.state.nextID,
		Counters:  s.state.counters,
		Paused:    s.state.paused,
		Authority: s.state.authority,
		Credits:   make(map[Address]uint64, len(s.state.credits)),
		Events:    append([]Event(nil), s.state.events...),
		NextSeq:   s.state.nextSeq,
	}
	for k, v := range s.state.creatures {
		snap.Creatures[k] = v
	}
	for k, v := range s.state.owners {
		snap.Owners[k] = v
	}
	for k, v := range s.state.approvals {
		snap.Approvals[k] = v
	}
	for owner, ops := range s.state.operators {
		granted := make([]Address, 0, len(ops))
		for op, flag := range ops {
			if flag {
				granted = append(granted, op)
			}
		}
		sort.Slice(granted, func(i, j int) bool { return granted[i] < granted[j] })
		snap.Operators[owner] = granted
	}
	for k, v := range s.state.siring {
		snap.Siring[k] = v
	}
	for owner, ids := range s.state.owned {
		snap.Owned[owner] = append([]uint64(nil), ids...)
	}
	for k, v := range s.state.credits {
		snap.Credits[k] = v
	}
	return snap
}

// ImportState replaces committed state with the snapshot contents, rebuilding
// enumeration reverse indices and balances.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := newMemoryState()
	for k, v := range snap.Creatures {
		state.creatures[k] = v
	}
	for k, v := range snap.Owners {
		state.owners[k] = v
	}
	for k, v := range snap.Approvals {
		state.approvals[k] = v
	}
	for owner, granted := range snap.Operators {
		if len(granted) == 0 {
			continue
		}
		ops := make(map[Address]bool, len(granted))
		for _, op := range granted {
			ops[op] = true
		}
		state.operators[owner] = ops
	}
	for k, v := range snap.Siring {
		state.siring[k] = v
	}
	for owner, ids := range snap.Owned {
		list := append([]uint64(nil), ids...)
		state.owned[owner] = list
		state.balances[owner] = len(list)
		for pos, id := range list {
			state.ownedIndex[id] = pos
		}
	}
	state.allIDs = append([]uint64(nil), snap.AllIDs...)
	for pos, id := range state.allIDs {
		state.allIndex[id] = pos
	}
	if snap.NextID > 0 {
		state.nextID = snap.NextID
	}
	state.counters = snap.Counters
	state.paused = snap.Paused
	state.authority = snap.Authority
	for k, v := range snap.Credits {
		state.credits[k] = v
	}
	state.events = append([]Event(nil), snap.Events...)
	state.nextSeq = snap.NextSeq

	s.state = state
}
