// Package service implements the balance ledger: activation, top-up and purchase
// against the worker's cached event configuration, with every balance mutation applied
// through the store's guarded update inside one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cashless/internal/cache"
	"cashless/internal/ledger/models"
	"cashless/internal/outbox"
	"cashless/internal/platform/metrics"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/requestcontext"
)

const (
	defaultPageSize = 30
	maxPageSize     = 500
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindByToken(ctx context.Context, company string, token models.Token) (*models.Balance, error)
	FindByID(ctx context.Context, company, balanceID string) (*models.Balance, error)
	Create(ctx context.Context, b *models.Balance) error
	ApplyDelta(ctx context.Context, company, balanceID string, delta decimal.Decimal) (decimal.Decimal, error)
	Patch(ctx context.Context, company, balanceID string, patch models.BalancePatch) error
	Delete(ctx context.Context, company, balanceID string) error
	DeleteByEvent(ctx context.Context, company, eventID string) (int64, error)
	List(ctx context.Context, company string, f models.Filter) ([]models.Balance, error)

	InsertTopUp(ctx context.Context, t *models.TopUp) error
	InsertTransactions(ctx context.Context, lines []models.Transaction) error
	InsertClient(ctx context.Context, c *models.Client) error
	AddClientSpend(ctx context.Context, company, balanceID string, amount decimal.Decimal) error
	ListTopUps(ctx context.Context, company string, f models.TopUpFilter) ([]models.TopUp, error)
	ListTransactions(ctx context.Context, company string, f models.TransactionFilter) ([]models.Transaction, error)
	CompanyAdmins(ctx context.Context, company string) ([]models.StaffMember, error)
}

// ConfigSource reads the cached configuration of a running event. Absence means the
// event is not running on this worker.
type ConfigSource interface {
	Config(eventID string) (cache.EventConfig, bool)
}

// Outbox records ledger movements in the caller's transaction.
type Outbox interface {
	Append(ctx context.Context, e outbox.Entry) error
}

// Service is the balance ledger.
type Service struct {
	store   Store
	config  ConfigSource
	outbox  Outbox
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(store Store, config ConfigSource, ob Outbox, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if config == nil {
		return nil, errors.New("config source is required")
	}
	if ob == nil {
		return nil, errors.New("outbox is required")
	}
	s := &Service{
		store:  store,
		config: config,
		outbox: ob,
		logger: slog.Default(),
		tracer: otel.Tracer("cashless/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// observe opens a span for op and returns the function that closes it and records
// the outcome. Callers pass a pointer to their named error result.
func (s *Service) observe(ctx context.Context, op string) (context.Context, func(*error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger."+op)
	return ctx, func(errp *error) {
		outcome := "ok"
		if err := *errp; err != nil {
			err = coded(err)
			*errp = err
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		s.metrics.ObserveLedger(op, outcome, started)
		span.End()
	}
}

func actorFrom(ctx context.Context) (requestcontext.Member, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Company == "" {
		return actor, dErrors.New(dErrors.CodeUnauthorized, "authenticated member required")
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (requestcontext.Member, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return actor, err
	}
	if !actor.IsAdmin() {
		return actor, dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}
	return actor, nil
}

// runningEvent reads the cached configuration of eventID. A missing entry means the
// event is inactive or unknown and the request is rejected as not found.
func (s *Service) runningEvent(eventID string) (cache.EventConfig, error) {
	if eventID == "" {
		return cache.EventConfig{}, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	cfg, ok := s.config.Config(eventID)
	if !ok || cfg.Event == nil {
		return cache.EventConfig{}, dErrors.Newf(dErrors.CodeNotFound, "event %s is not running", eventID)
	}
	return cfg, nil
}

// applyDelta maps the guard outcome of a balance update to domain errors.
func (s *Service) applyDelta(ctx context.Context, b *models.Balance, delta decimal.Decimal) (decimal.Decimal, error) {
	next, err := s.store.ApplyDelta(ctx, b.Company, b.BalanceID, delta)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, sentinel.ErrGuardFailed):
		return decimal.Zero, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient amount")
	case errors.Is(err, sentinel.ErrConflict):
		s.logger.WarnContext(ctx, "balance changed during update",
			"balance_id", b.BalanceID,
			"delta", delta,
		)
		return decimal.Zero, dErrors.New(dErrors.CodeConcurrencyConflict, "balance changed concurrently, retry the operation")
	default:
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update balance")
	}
}

func (s *Service) appendOutbox(ctx context.Context, company, aggregateID, eventType string, payload any) error {
	entry, err := outbox.NewEntry(company, aggregateID, eventType, payload, requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build ledger event")
	}
	if err := s.outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ledger event")
	}
	return nil
}

// coded gives errors that escaped translation, such as a failed commit, a code.
func coded(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger operation failed")
	}
}

func translate(err error, notFoundMsg, internalMsg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "tag is already registered")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
	}
}
