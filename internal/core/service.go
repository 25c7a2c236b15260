package core

import (
	"context"
	"time"

	"wellbeingcore/internal/infra/persistence/memory"
	"wellbeingcore/pkg/domain"
)

// Logger receives service-level diagnostics: absorbed persistence failures and
// committed warn-severity rule violations. The default is a no-op.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan closes a span with the operation's terminal error, nil on success.
type TraceSpan interface {
	End(err error)
}

// Service exposes the closed action vocabulary as transactional operations on
// the wellbeing store. Every method is a single all-or-nothing transition.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger installs a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer installs a span tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the service clock, propagated to the store when the
// backend supports it. Intended for deterministic tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// clockSettable is implemented by stores whose transaction clock can be
// overridden (the in-memory store and everything embedding it).
type clockSettable interface {
	SetClock(fn func() time.Time)
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: noopLogger{},
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if cs, ok := store.(clockSettable); ok {
		cs.SetClock(s.nowFn)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// default wellbeing rules installed.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(NewDefaultRulesEngine()), opts...)
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(JournalEditWindowRule())
	engine.Register(JournalDayUniqueRule())
	engine.Register(ReportTransitionRule())
	engine.Register(FlagDeescalationRule())
	return engine
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.nowFn() }

// run executes one transaction under observability instrumentation.
func (s *Service) run(ctx context.Context, operation string, fn func(tx domain.Transaction) error) (domain.Result, error) {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
	}
	if span != nil {
		span.End(err)
	}
	if err == nil {
		for _, v := range res.Warnings() {
			s.logger.Warnf("%s: rule %s warned: %s", operation, v.Rule, v.Message)
		}
	}
	return res, err
}

// View executes fn against a read-only snapshot of the current state.
func (s *Service) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}
