package domain

import "time"

// EventKind identifies an append-only journal record type.
type EventKind string

// Journal event kinds emitted by committed operations.
const (
	EventBirth                EventKind = "birth"
	EventTransfer             EventKind = "transfer"
	EventApproval             EventKind = "approval"
	EventApprovalForAll       EventKind = "approval_for_all"
	EventPregnant             EventKind = "pregnant"
	EventPaused               EventKind = "paused"
	EventUnpaused             EventKind = "unpaused"
	EventAuthorityTransferred EventKind = "authority_transferred"
	EventGatewayConfigured    EventKind = "gateway_configured"
	EventOracleConfigured     EventKind = "oracle_configured"
)

// Event is an observable, append-only journal record. Seq is assigned by the
// store at commit time and increases monotonically without gaps. Unused
// fields stay at their zero value for kinds they do not apply to.
type Event struct {
	Seq  uint64    `json:"seq"`
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`
	Tick uint64    `json:"tick"`

	CreatureID      uint64  `json:"creature_id,omitempty"`
	MatronID        uint64  `json:"matron_id,omitempty"`
	SireID          uint64  `json:"sire_id,omitempty"`
	Genes           Genes   `json:"genes,omitempty"`
	CooldownEndTick uint64  `json:"cooldown_end_tick,omitempty"`
	Owner           Address `json:"owner,omitempty"`
	From            Address `json:"from,omitempty"`
	To              Address `json:"to,omitempty"`
	Operator        Address `json:"operator,omitempty"`
	Approved        bool    `json:"approved,omitempty"`
	Role            string  `json:"role,omitempty"`
}
