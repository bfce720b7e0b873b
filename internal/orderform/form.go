// Package orderform implements the order entry state machine: it collects
// order parameters, validates them locally, requests a risk assessment,
// gates submission behind the trading safeguard, and hands confirmed
// orders to the execution engine.
//
// The lifecycle is
//
//	Editing → Validating → RiskPending → ReadyToSubmit
//	        → Confirming (when the safeguard requires it) → Submitting
//	        → Succeeded | Failed
//
// Validation runs synchronously on every edit; the risk assessment runs in
// the background so the form stays interactive while waiting.
package orderform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/risk"
	"tradedesk/internal/session"
	"tradedesk/internal/validate"
)

// State is the form's lifecycle state.
type State string

const (
	StateEditing       State = "editing"
	StateValidating    State = "validating"
	StateRiskPending   State = "risk_pending"
	StateReadyToSubmit State = "ready_to_submit"
	StateConfirming    State = "confirming"
	StateSubmitting    State = "submitting"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

var (
	// ErrNotReady is returned by Submit while local validation errors
	// remain.
	ErrNotReady = errors.New("order form has validation errors")

	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission has not resolved. Concurrent submissions from
	// one form are never allowed.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrConfirmationResolved is returned when Confirm or Cancel is
	// called on an already-resolved confirmation.
	ErrConfirmationResolved = errors.New("confirmation already resolved")
)

// Inputs are the user-editable order parameters. EstimatedPrice is the
// current quote used for the notional estimate on market orders; it is
// advisory and never submitted.
type Inputs struct {
	Symbol         string
	Side           domain.Side
	Type           domain.OrderType
	Qty            decimal.Decimal
	LimitPrice     *decimal.Decimal
	StopPrice      *decimal.Decimal
	TimeInForce    domain.TimeInForce
	EstimatedPrice decimal.Decimal
}

// Executor submits a finished order request. *engine.Engine implements it.
type Executor interface {
	ExecuteTrade(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error)
}

// Assessor produces a risk assessment for a proposal. *risk.Client
// implements it.
type Assessor interface {
	Assess(ctx context.Context, p risk.Proposal) domain.RiskAssessment
}

// Form is one order entry instance. All methods are safe for concurrent
// use; a Form allows at most one in-flight submission at a time.
type Form struct {
	mu         sync.Mutex
	state      State
	inputs     Inputs
	fieldErrs  map[string]error
	assessment *domain.RiskAssessment
	balance    decimal.Decimal
	lastOrder  *domain.Order
	lastErr    error

	riskSeq  int
	riskDone chan struct{}

	session   *session.Controller
	assessor  Assessor
	executor  Executor
	onSuccess func(*domain.Order)
	log       *slog.Logger
}

// New creates a Form. availableBalance feeds the local insufficient-funds
// estimate; update it via SetBalance as account data refreshes. onSuccess,
// if non-nil, is called with the new order after a successful submission.
func New(s *session.Controller, a Assessor, e Executor, availableBalance decimal.Decimal, onSuccess func(*domain.Order), log *slog.Logger) *Form {
	if log == nil {
		log = slog.Default().With("component", "orderform")
	}
	return &Form{
		state:     StateEditing,
		fieldErrs: map[string]error{},
		balance:   availableBalance,
		session:   s,
		assessor:  a,
		executor:  e,
		onSuccess: onSuccess,
		log:       log,
	}
}

// State returns the current lifecycle state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FieldErrors returns the current validation errors by field.
func (f *Form) FieldErrors() map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]error, len(f.fieldErrs))
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

// Assessment returns the resolved risk assessment, or nil while pending.
func (f *Form) Assessment() *domain.RiskAssessment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assessment
}

// Inputs returns a copy of the current inputs. Entered values survive
// failed submissions so the user can correct and resubmit.
func (f *Form) Inputs() Inputs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs
}

// Result returns the outcome of the last submission.
func (f *Form) Result() (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOrder, f.lastErr
}

// SetBalance updates the balance used for the local funds estimate.
func (f *Form) SetBalance(balance decimal.Decimal) {
	f.mu.Lock()
	f.balance = balance
	f.mu.Unlock()
}

// SetInputs applies an edit. It re-validates synchronously: invalid inputs
// land back in Editing with field errors; valid inputs enter RiskPending
// and kick off a background assessment. The form stays interactive either
// way. Edits are ignored while a confirmation dialog is open or a
// submission is in flight; resolve the dialog first.
func (f *Form) SetInputs(in Inputs) {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))

	f.mu.Lock()
	if f.state == StateSubmitting || f.state == StateConfirming {
		// The outstanding confirmation holds the request it was built
		// from; letting an edit through would let Confirm submit values
		// the user no longer sees.
		f.mu.Unlock()
		return
	}
	f.state = StateValidating
	f.inputs = in
	f.assessment = nil

	req := f.buildRequestLocked()
	f.fieldErrs = validate.OrderRequest(req, f.estimatedPriceLocked(), f.balance)
	if len(f.fieldErrs) > 0 {
		f.state = StateEditing
		f.riskSeq++ // stale assessments no longer apply
		f.mu.Unlock()
		return
	}

	f.state = StateRiskPending
	f.riskSeq++
	seq := f.riskSeq
	done := make(chan struct{})
	f.riskDone = done
	proposal := risk.Proposal{
		Symbol: in.Symbol,
		Side:   in.Side,
		Qty:    in.Qty,
		Price:  f.estimatedPriceLocked(),
	}
	f.mu.Unlock()

	go f.assess(seq, proposal, done)
}

// assess resolves the risk assessment for one edit generation. A stale
// result (the user edited again) is discarded.
func (f *Form) assess(seq int, p risk.Proposal, done chan struct{}) {
	a := f.assessor.Assess(context.Background(), p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.riskSeq || f.state != StateRiskPending {
		return
	}
	f.assessment = &a
	f.state = StateReadyToSubmit
	close(done)
}

// estimatedPriceLocked picks the price used for notional and risk
// estimates: the limit price when present, otherwise the quote.
func (f *Form) estimatedPriceLocked() decimal.Decimal {
	if f.inputs.LimitPrice != nil {
		return *f.inputs.LimitPrice
	}
	return f.inputs.EstimatedPrice
}

// buildRequestLocked assembles the order request from the current inputs.
// Price fields not required by the order type are stripped: a market order
// never submits a limit or stop price.
func (f *Form) buildRequestLocked() *domain.OrderRequest {
	req := &domain.OrderRequest{
		Symbol:      f.inputs.Symbol,
		Side:        f.inputs.Side,
		Type:        f.inputs.Type,
		Qty:         f.inputs.Qty,
		TimeInForce: f.inputs.TimeInForce,
		Mode:        f.session.Mode(),
	}
	if req.Type.NeedsLimitPrice() {
		req.LimitPrice = f.inputs.LimitPrice
	}
	if req.Type.NeedsStopPrice() {
		req.StopPrice = f.inputs.StopPrice
	}
	return req
}

// Outcome is the result of Submit: either the order executed immediately,
// or a Confirmation that must be resolved first.
type Outcome struct {
	Order        *domain.Order
	Confirmation *Confirmation
}

// Submit attempts to submit the current order. If the assessment is still
// pending it waits for it (the assessor bounds the wait). The safeguard
// decides whether a confirmation is required: live mode always confirms,
// as does any elevated (or unknown) risk level. Without confirmation the
// order executes directly.
func (f *Form) Submit(ctx context.Context) (*Outcome, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting, StateConfirming:
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateRiskPending:
		done := f.riskDone
		f.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		f.mu.Lock()
		if f.state != StateReadyToSubmit {
			f.mu.Unlock()
			return nil, ErrNotReady
		}
	case StateReadyToSubmit, StateFailed:
		// Failed keeps the entered values; resubmitting is an explicit
		// user action.
	default:
		f.mu.Unlock()
		return nil, ErrNotReady
	}

	req := f.buildRequestLocked()
	price := f.estimatedPriceLocked()
	level := domain.RiskLevelUnknown
	if f.assessment != nil {
		level = f.assessment.Level
	}

	// Blocked state changes asynchronously; re-check at the moment of
	// submission, not just at form-open time.
	if blocked, reason := f.session.Blocked(); blocked {
		f.mu.Unlock()
		return nil, blockErr(reason)
	}

	if RequiresConfirmation(req.Mode, level) {
		// Claim the transition while still holding the lock so a racing
		// Submit sees Confirming and fails with ErrSubmissionInFlight.
		f.state = StateConfirming
		f.mu.Unlock()
		return &Outcome{Confirmation: f.newConfirmation(req, price, level)}, nil
	}

	f.state = StateSubmitting
	f.mu.Unlock()

	order, err := f.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: order}, nil
}

// execute runs the submission to completion and applies the terminal state
// transition. The caller has already moved the form to Submitting.
// Entered values are retained on failure.
func (f *Form) execute(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	order, err := f.executor.ExecuteTrade(ctx, req)

	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
		f.lastErr = err
		f.lastOrder = nil
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateSucceeded
	f.lastOrder = order
	f.lastErr = nil
	f.inputs = Inputs{}
	f.assessment = nil
	f.fieldErrs = map[string]error{}
	cb := f.onSuccess
	f.mu.Unlock()

	if cb != nil {
		cb(order)
	}
	return order, nil
}

func blockErr(reason string) error {
	if reason != "" {
		return fmt.Errorf("%w: %s", session.ErrTradingBlocked, reason)
	}
	return session.ErrTradingBlocked
}
