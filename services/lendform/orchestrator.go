package lendform

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeStatus summarises how a submission ended.
type OutcomeStatus string

const (
	OutcomeSucceeded       OutcomeStatus = "succeeded"
	OutcomeFailed          OutcomeStatus = "failed"
	OutcomeConnectPrompted OutcomeStatus = "connect_prompted"
)

// Outcome describes one submission attempt.
type Outcome struct {
	ID         string        `json:"id"`
	Status     OutcomeStatus `json:"status"`
	Amount     string        `json:"amount"`
	Units      *big.Int      `json:"units,omitempty"`
	Wallet     string        `json:"wallet,omitempty"`
	ApproveTx  string        `json:"approve_tx,omitempty"`
	LendTx     string        `json:"lend_tx,omitempty"`
	Message    string        `json:"message,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Orchestrator runs the approve, confirm, lend sequence for a validated form.
type Orchestrator struct {
	wallet    Wallet
	contract  Contract
	confirmer Confirmer
	spender   common.Address

	decimals uint8
	symbol   string
	timeout  time.Duration

	notifier Notifier
	parse    ErrorParser
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	observe  func(loading bool)
	now      func() time.Time

	loading atomic.Bool
}

// Option customises the orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the toast sink.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithErrorParser replaces ParseErrors.
func WithErrorParser(p ErrorParser) Option {
	return func(o *Orchestrator) { o.parse = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithToken sets the token symbol used in messages and its unit precision.
func WithToken(symbol string, decimals uint8) Option {
	return func(o *Orchestrator) {
		o.symbol = strings.TrimSpace(symbol)
		o.decimals = decimals
	}
}

// WithTimeout bounds the whole approve, confirm, lend sequence.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithLoadingObserver registers a callback invoked on every loading transition.
func WithLoadingObserver(fn func(loading bool)) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithClock sets the function used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.now = clock }
}

// NewOrchestrator wires the collaborators of a lend submission. spender is the
// lending contract that receives the allowance.
func NewOrchestrator(wallet Wallet, contract Contract, confirmer Confirmer, spender common.Address, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		wallet:    wallet,
		contract:  contract,
		confirmer: confirmer,
		spender:   spender,
		decimals:  DefaultDecimals,
		symbol:    "USDT",
		parse:     ParseErrors,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With(slog.String("component", "lendform"))
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	if o.parse == nil {
		o.parse = ParseErrors
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("corefi/services/lendform")
	}
	return o
}

// Loading reports whether a submission is between approve and completion.
func (o *Orchestrator) Loading() bool {
	return o.loading.Load()
}

// Symbol returns the token symbol shown to the user.
func (o *Orchestrator) Symbol() string {
	return o.symbol
}

// Wallet returns the wallet collaborator.
func (o *Orchestrator) Wallet() Wallet {
	return o.wallet
}

// Submit runs the submission for an already validated form. reset is called
// after a successful lend. A submit while another is in flight returns
// ErrSubmissionInFlight without side effects. Transaction failures are
// notified and also returned.
func (o *Orchestrator) Submit(ctx context.Context, state FormState, reset func()) (Outcome, error) {
	if o.loading.Load() {
		return Outcome{}, ErrSubmissionInFlight
	}
	amount := strings.TrimSpace(state.Amount)
	outcome := Outcome{
		ID:        uuid.NewString(),
		Amount:    amount,
		StartedAt: o.now(),
	}

	address, connected := o.address()
	if !connected {
		if o.wallet != nil {
			if err := o.wallet.Open(ctx); err != nil {
				o.logger.Warn("wallet connect prompt failed", slog.String("error", err.Error()))
			}
		}
		outcome.Status = OutcomeConnectPrompted
		outcome.FinishedAt = o.now()
		o.metrics.RecordSubmission(string(outcome.Status))
		return outcome, nil
	}
	outcome.Wallet = address.Hex()

	units, err := ScaleAmount(amount, o.decimals)
	if err != nil {
		return o.fail(outcome, transactionError(StepScale, err))
	}
	outcome.Units = units

	if !o.loading.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmissionInFlight
	}
	o.setLoading(true)
	defer o.setLoading(false)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	ctx, span := o.tracer.Start(ctx, "lendform.submit", trace.WithAttributes(
		attribute.String("lendform.id", outcome.ID),
		attribute.String("lendform.amount", amount),
		attribute.String("lendform.units", units.String()),
	))
	defer span.End()

	if failure := o.run(ctx, &outcome, units); failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		return o.fail(outcome, failure)
	}

	if reset != nil {
		reset()
	}
	outcome.Status = OutcomeSucceeded
	outcome.FinishedAt = o.now()
	o.metrics.RecordSubmission(string(outcome.Status))
	o.logger.Info("lend submitted",
		slog.String("amount", amount),
		slog.String("tx_hash", outcome.LendTx),
		slog.String("wallet", outcome.Wallet),
	)
	o.notifier.Notify(Toast{
		ID:          outcome.ID,
		Title:       "Success!",
		Description: fmt.Sprintf("Your transaction has been successfully completed! You have lent out %s %s.", amount, o.symbol),
		Variant:     VariantDefault,
		RaisedAt:    outcome.FinishedAt,
	})
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, outcome *Outcome, units *big.Int) (failure *Error) {
	current := StepApprove
	defer func() {
		if r := recover(); r != nil {
			failure = transactionError(current, fmt.Errorf("panic: %v", r))
		}
	}()

	var approveTx common.Hash
	if err := o.step(ctx, StepApprove, func(ctx context.Context) error {
		hash, err := o.contract.Approve(ctx, o.spender, units)
		approveTx = hash
		return err
	}); err != nil {
		return err
	}
	outcome.ApproveTx = approveTx.Hex()

	current = StepWait
	if err := o.step(ctx, StepWait, func(ctx context.Context) error {
		return o.confirmer.WaitForTransaction(ctx, approveTx)
	}); err != nil {
		return err
	}

	current = StepLend
	var lendTx common.Hash
	if err := o.step(ctx, StepLend, func(ctx context.Context) error {
		hash, err := o.contract.Lend(ctx, units)
		lendTx = hash
		return err
	}); err != nil {
		return err
	}
	outcome.LendTx = lendTx.Hex()
	return nil
}

func (o *Orchestrator) step(ctx context.Context, step Step, fn func(context.Context) error) *Error {
	ctx, span := o.tracer.Start(ctx, "lendform."+string(step))
	defer span.End()
	start := o.now()
	err := fn(ctx)
	o.metrics.ObserveStep(string(step), o.now().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.RecordStepError(string(step))
		return transactionError(step, err)
	}
	return nil
}

func (o *Orchestrator) fail(outcome Outcome, err *Error) (Outcome, error) {
	outcome.Status = OutcomeFailed
	outcome.FinishedAt = o.now()
	raw := err.Error()
	if err.Err != nil {
		raw = err.Err.Error()
	}
	outcome.Message = o.parse(raw)
	o.metrics.RecordSubmission(string(outcome.Status))
	o.logger.Error("lend submission failed",
		slog.String("step", string(err.Step)),
		slog.String("kind", err.Kind.String()),
		slog.String("error", err.Error()),
		slog.String("tx_hash", outcome.ApproveTx),
	)
	o.notifier.Notify(Toast{
		ID:          outcome.ID,
		Title:       "Error",
		Description: outcome.Message,
		Variant:     VariantDestructive,
		RaisedAt:    outcome.FinishedAt,
	})
	return outcome, err
}

func (o *Orchestrator) address() (common.Address, bool) {
	if o.wallet == nil {
		return common.Address{}, false
	}
	addr, ok := o.wallet.Address()
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// setLoading publishes a transition. The flag itself is flipped by the
// compare-and-swap in Submit when acquiring and here when releasing.
func (o *Orchestrator) setLoading(active bool) {
	if !active {
		o.loading.Store(false)
	}
	o.metrics.SetInFlight(active)
	if o.observe != nil {
		o.observe(active)
	}
}
