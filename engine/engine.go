// Package engine orchestrates the pure tender rules in core against a
// storage.Store. Every operation loads what it needs, applies a core rule
// and persists the result; nothing is cached between calls, so totals,
// scores and edit permissions always reflect the current state.
package engine

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/storage"
	"github.com/cloudx-io/opentender/tenderapi"
)

// Engine evaluates, prices and awards bids held in a store.
type Engine struct {
	store   storage.Store
	clock   core.Clock
	guard   *core.Guard
	pricer  *core.Pricer
	scorer  *core.Scorer
	policy  core.AwardPolicy
	logger  *slog.Logger
	metrics *Metrics
	signer  *tenderapi.KeyManager
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for deadlines and timestamps.
func WithClock(clock core.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithPricer sets the pricer, and with it the tax rate.
func WithPricer(pricer *core.Pricer) Option {
	return func(e *Engine) { e.pricer = pricer }
}

// WithScorer sets the scorer, and with it the scoring weights.
func WithScorer(scorer *core.Scorer) Option {
	return func(e *Engine) { e.scorer = scorer }
}

// WithAwardPolicy sets which tender states accept an award.
func WithAwardPolicy(policy core.AwardPolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithReceiptSigner makes AwardBid return a signed award receipt.
func WithReceiptSigner(km *tenderapi.KeyManager) Option {
	return func(e *Engine) { e.signer = km }
}

// WithIDGenerator overrides how new tender, bid and line item IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New returns an Engine over store. Unset options default to the system
// clock, the default tax rate and weights, closed-only awards and
// slog.Default().
func New(store storage.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: store is required")
	}

	e := &Engine{
		store:  store,
		policy: core.AwardPolicy{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = core.SystemClock{}
	}
	e.guard = core.NewGuard(e.clock)

	if e.pricer == nil {
		pricer, err := core.NewPricer(core.DefaultTaxRate)
		if err != nil {
			return nil, err
		}
		e.pricer = pricer
	}
	if e.scorer == nil {
		scorer, err := core.NewScorer(core.DefaultWeights())
		if err != nil {
			return nil, err
		}
		e.scorer = scorer
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e, nil
}

// Pricer returns the engine's pricer.
func (e *Engine) Pricer() *core.Pricer {
	return e.pricer
}

// Scorer returns the engine's scorer.
func (e *Engine) Scorer() *core.Scorer {
	return e.scorer
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, core.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, core.ErrPersistence):
		return outcomePersistence
	case errors.Is(err, core.ErrIllegalTransition):
		return outcomeIllegal
	default:
		return outcomeInvalid
	}
}
