// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by creaturecore.
package domain

import (
	"encoding/hex"
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCreature identifies an individual creature record.
	EntityCreature EntityType = "creature"
	// EntityOwnership identifies an ownership assignment record.
	EntityOwnership EntityType = "ownership"
	// EntityApproval identifies a per-creature transfer approval record.
	EntityApproval EntityType = "approval"
	// EntityOperator identifies an owner/operator approval record.
	EntityOperator EntityType = "operator"
	// EntitySiring identifies a standing siring approval record.
	EntitySiring EntityType = "siring"
	// EntityAuthority identifies the control-authority record.
	EntityAuthority EntityType = "authority"
)

// Action enumerates mutation kinds captured in Change records.
type Action string

// Canonical change actions recorded by transactions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures a single entity mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Address identifies an account that can own creatures. The empty string is
// the null address: it never owns anything and is an invalid transfer target.
type Address string

// NullAddress is the zero value of Address.
const NullAddress Address = ""

// IsNull reports whether the address is the null address.
func (a Address) IsNull() bool { return a == NullAddress }

// GenesSize is the width of a creature's genetic payload in bytes.
const GenesSize = 32

// Genes holds a creature's opaque 256-bit genetic payload. The value is
// immutable after creation; only the gene oracle interprets it.
type Genes [GenesSize]byte

// GenesFromHex parses a hex-encoded genetic payload. Short input is
// right-aligned (leading bytes zeroed), mirroring big-endian integer layout.
func GenesFromHex(s string) (Genes, error) {
	var g Genes
	if len(s) > 2*GenesSize {
		return g, fmt.Errorf("genes hex too long: %d chars", len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("decode genes: %w", err)
	}
	copy(g[GenesSize-len(raw):], raw)
	return g, nil
}

// GenesFromUint64 builds a genetic payload from a small integer, primarily
// for tests and promotional creatures.
func GenesFromUint64(v uint64) Genes {
	var g Genes
	for i := 0; i < 8; i++ {
		g[GenesSize-1-i] = byte(v >> (8 * i))
	}
	return g
}

// String renders the payload as lowercase hex.
func (g Genes) String() string { return hex.EncodeToString(g[:]) }

// MarshalText implements encoding.TextMarshaler (hex).
func (g Genes) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Genes) UnmarshalText(text []byte) error {
	parsed, err := GenesFromHex(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// IsZero reports whether every gene byte is zero.
func (g Genes) IsZero() bool {
	for _, b := range g {
		if b != 0 {
			return false
		}
	}
	return true
}

// MaxCreatureID caps assignable creature ids. Ids are assigned monotonically
// and never reused; exceeding the cap is an explicit Overflow failure.
const MaxCreatureID = uint64(1)<<32 - 1

// CooldownSlots is the number of entries in the cooldown duration table.
// CooldownIndex saturates at CooldownSlots-1.
const CooldownSlots = 14

// Creature is the core collectible entity. ID, Genes, BirthTime, MatronID,
// SireID and Generation are immutable after creation; CooldownEndTick,
// CooldownIndex and SiringWithID are mutated only by the breeding engine.
type Creature struct {
	ID              uint64    `json:"id"`
	Genes           Genes     `json:"genes"`
	BirthTime       time.Time `json:"birth_time"`
	CooldownEndTick uint64    `json:"cooldown_end_tick"`
	MatronID        uint64    `json:"matron_id"`
	SireID          uint64    `json:"sire_id"`
	SiringWithID    uint64    `json:"siring_with_id"`
	CooldownIndex   uint8     `json:"cooldown_index"`
	Generation      uint16    `json:"generation"`
}

// Exists reports whether the record describes a minted creature. The id-0
// sentinel and absent records have a zero birth time.
func (c Creature) Exists() bool { return !c.BirthTime.IsZero() }

// Gestating reports whether the creature carries an outstanding siring.
func (c Creature) Gestating() bool { return c.SiringWithID != 0 }

// ReadyAt reports whether the creature's cooldown has elapsed at tick.
func (c Creature) ReadyAt(tick uint64) bool { return c.CooldownEndTick <= tick }

// ReadyToBreedAt reports breeding eligibility at tick: not gestating and
// cooldown elapsed.
func (c Creature) ReadyToBreedAt(tick uint64) bool {
	return !c.Gestating() && c.ReadyAt(tick)
}

// Authority names the control addresses for privileged operations.
type Authority struct {
	CEO Address `json:"ceo"`
	CFO Address `json:"cfo"`
	COO Address `json:"coo"`
}

// Counters aggregates the global creation and gestation counters.
type Counters struct {
	Pregnant    uint64 `json:"pregnant"`
	PromoMinted uint64 `json:"promo_minted"`
	Gen0Minted  uint64 `json:"gen0_minted"`
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID uint64
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends the other result's violations.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError wraps a blocking rule result as an error.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("rule %s: %s", v.Rule, v.Message)
		}
	}
	return "rule violation"
}
