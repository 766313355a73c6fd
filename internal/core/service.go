package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"creaturecore/internal/infra/persistence/memory"
	"creaturecore/pkg/domain"
)

// feePoolAddress accumulates breeding fees until a birth pays them out.
const feePoolAddress = Address("sink:birth-fees")

// Service exposes the unified ledger and breeding operation surface. Every
// mutating operation runs inside a store transaction and either commits fully
// or leaves no observable change.
type Service struct {
	store PersistentStore
	cfg   Config

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	tick    func() uint64

	mu        sync.RWMutex
	sale      SaleGateway
	siring    SiringGateway
	oracle    GeneOracle
	receivers map[Address]CreatureReceiver
	birthFee  uint64
}

// Option customises a Service at construction time.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder observed around every operation.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer installs a tracer opened around every operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithTickSource overrides the monotonic tick counter. The default derives
// ticks from wall-clock seconds and the configured tick ratio; tests install
// a manual counter.
func WithTickSource(tick func() uint64) Option {
	return func(s *Service) {
		if tick != nil {
			s.tick = tick
		}
	}
}

// NewService constructs a service backed by the supplied store. The config is
// normalized; an invalid config is reported as an error.
func NewService(store PersistentStore, cfg Config, opts ...Option) (*Service, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:     store,
		cfg:       normalized,
		logger:    noopLogger{},
		receivers: make(map[Address]CreatureReceiver),
		birthFee:  normalized.AutoBirthFee,
	}
	s.tick = func() uint64 {
		return uint64(time.Now().Unix()) / normalized.SecondsPerTick
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine and default config. It panics only on a broken default config,
// which is a programming error.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	svc, err := NewService(memory.NewStore(engine), DefaultConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Config returns the normalized engine configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// AutoBirthFee reports the current breeding fee.
func (s *Service) AutoBirthFee() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.birthFee
}

// CurrentTick reports the external tick counter's current value.
func (s *Service) CurrentTick() uint64 {
	return s.tick()
}

// instrument wraps fn with tracing, metrics, and logging.
func (s *Service) instrument(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	spanCtx := ctx
	var span TraceSpan
	if s.tracer != nil {
		spanCtx, span = s.tracer.Start(ctx, op)
	}
	err := fn(spanCtx)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("operation failed", "operation", op, "error", err)
	} else {
		s.logger.Debug("operation complete", "operation", op)
	}
	return err
}

func requireNotPaused(tx Transaction) error {
	if tx.Paused() {
		return domain.ErrPaused
	}
	return nil
}

// canOperate reports whether caller may move creature id: owner, the single
// approved address, or an approved operator of the owner.
func canOperate(tx Transaction, caller Address, id uint64) (Address, error) {
	owner, ok := tx.OwnerOf(id)
	if !ok {
		return NullAddress, domain.ErrNotFound{ID: id}
	}
	if caller == owner {
		return owner, nil
	}
	if approved, ok := tx.ApprovedFor(id); ok && approved == caller {
		return owner, nil
	}
	if tx.IsOperator(owner, caller) {
		return owner, nil
	}
	return NullAddress, domain.ErrUnauthorized{Caller: caller, Op: "operate on creature"}
}

// Admin surface -------------------------------------------------------------

func (s *Service) isAuthority(a Authority, caller Address) bool {
	return !caller.IsNull() && (caller == a.CEO || caller == a.CFO || caller == a.COO)
}

// SetAuthority installs the control addresses. Until a CEO is configured the
// call is open (bootstrap); afterwards only the CEO may rotate authority.
func (s *Service) SetAuthority(ctx context.Context, caller Address, next Authority) (Result, error) {
	var res Result
	err := s.instrument(ctx, "set_authority", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			current := tx.Authority()
			if !current.CEO.IsNull() && caller != current.CEO {
				return domain.ErrUnauthorized{Caller: caller, Op: "set authority"}
			}
			if next.CEO.IsNull() {
				return domain.ErrUnauthorized{Caller: caller, Op: "clear chief authority"}
			}
			tx.SetAuthority(next)
			tx.AppendEvent(Event{Kind: domain.EventAuthorityTransferred, Tick: s.tick(), To: next.CEO})
			return nil
		})
		return err
	})
	return res, err
}

// Pause halts mutating operations. Any control address may pause.
func (s *Service) Pause(ctx context.Context, caller Address) (Result, error) {
	var res Result
	err := s.instrument(ctx, "pause", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if !s.isAuthority(tx.Authority(), caller) {
				return domain.ErrUnauthorized{Caller: caller, Op: "pause"}
			}
			if tx.Paused() {
				return errors.New("already paused")
			}
			tx.SetPaused(true)
			tx.AppendEvent(Event{Kind: domain.EventPaused, Tick: s.tick()})
			return nil
		})
		return err
	})
	return res, err
}

// Unpause resumes operations. Only the CEO may unpause, and only once all
// three external collaborators are bound, so a half-configured deployment
// cannot be resumed by accident.
func (s *Service) Unpause(ctx context.Context, caller Address) (Result, error) {
	var res Result
	err := s.instrument(ctx, "unpause", func(ctx context.Context) error {
		s.mu.RLock()
		configured := s.sale != nil && s.siring != nil && s.oracle != nil
		s.mu.RUnlock()
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if caller.IsNull() || caller != tx.Authority().CEO {
				return domain.ErrUnauthorized{Caller: caller, Op: "unpause"}
			}
			if !configured {
				return errors.New("collaborators not fully configured")
			}
			if !tx.Paused() {
				return errors.New("not paused")
			}
			tx.SetPaused(false)
			tx.AppendEvent(Event{Kind: domain.EventUnpaused, Tick: s.tick()})
			return nil
		})
		return err
	})
	return res, err
}

// SetAutoBirthFee adjusts the breeding fee. COO only.
func (s *Service) SetAutoBirthFee(ctx context.Context, caller Address, fee uint64) error {
	return s.instrument(ctx, "set_auto_birth_fee", func(ctx context.Context) error {
		authority := s.store.Authority()
		if caller.IsNull() || caller != authority.COO {
			return domain.ErrUnauthorized{Caller: caller, Op: "set auto birth fee"}
		}
		s.mu.Lock()
		s.birthFee = fee
		s.mu.Unlock()
		return nil
	})
}

// Credits reports addr's withdrawable balance.
func (s *Service) Credits(addr Address) uint64 {
	return s.store.Credit(addr)
}

// WithdrawCredits sweeps the caller's full withdrawable balance and returns
// the amount moved out of the ledger.
func (s *Service) WithdrawCredits(ctx context.Context, caller Address) (uint64, error) {
	var amount uint64
	err := s.instrument(ctx, "withdraw_credits", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			amount = tx.Credit(caller)
			if amount == 0 {
				return nil
			}
			return tx.DebitCredit(caller, amount)
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// WithdrawPool moves the accumulated, unclaimed fee pool to the CFO's
// withdrawable balance. CFO only.
func (s *Service) WithdrawPool(ctx context.Context, caller Address) (uint64, error) {
	var amount uint64
	err := s.instrument(ctx, "withdraw_pool", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if caller.IsNull() || caller != tx.Authority().CFO {
				return domain.ErrUnauthorized{Caller: caller, Op: "withdraw pool"}
			}
			amount = tx.Credit(feePoolAddress)
			if amount == 0 {
				return nil
			}
			if err := tx.DebitCredit(feePoolAddress, amount); err != nil {
				return err
			}
			return tx.AddCredit(caller, amount)
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// RegisterReceiver associates a contract-capable destination with its
// acknowledgement callback, invoked on safe transfers to addr.
func (s *Service) RegisterReceiver(addr Address, receiver CreatureReceiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if receiver == nil {
		delete(s.receivers, addr)
		return
	}
	s.receivers[addr] = receiver
}

func (s *Service) receiverFor(addr Address) (CreatureReceiver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receivers[addr]
	return r, ok
}

// Paused reports the pause flag.
func (s *Service) Paused() bool {
	return s.store.Paused()
}

// Authority returns the configured control addresses.
func (s *Service) Authority() Authority {
	return s.store.Authority()
}

// Events returns journal records with sequence >= fromSeq.
func (s *Service) Events(fromSeq uint64) []Event {
	return s.store.Events(fromSeq)
}
