package core

import "creaturecore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Action             = domain.Action
	Address            = domain.Address
	Genes              = domain.Genes
	Creature           = domain.Creature
	Authority          = domain.Authority
	Counters           = domain.Counters
	Event              = domain.Event
	EventKind          = domain.EventKind
	Change             = domain.Change
	Violation          = domain.Violation
	Severity           = domain.Severity
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
	SaleGateway        = domain.SaleGateway
	SiringGateway      = domain.SiringGateway
	GeneOracle         = domain.GeneOracle
	CreatureReceiver   = domain.CreatureReceiver
)

const (
	EntityCreature  = domain.EntityCreature
	EntityOwnership = domain.EntityOwnership
	EntityApproval  = domain.EntityApproval
	EntityOperator  = domain.EntityOperator
	EntitySiring    = domain.EntitySiring
	EntityAuthority = domain.EntityAuthority
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const NullAddress = domain.NullAddress
