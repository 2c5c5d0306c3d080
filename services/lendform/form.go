package lendform

import (
	"context"
	"strings"
	"sync"
)

// FormState is the user-editable content of the lend form.
type FormState struct {
	Amount string `json:"amount"`
}

// Validate applies the amount rule and returns a KindValidation error on failure.
func (s FormState) Validate() error {
	if err := ValidateAmount(s.Amount); err != nil {
		return &Error{Kind: KindValidation, Step: StepValidate, Message: AmountFieldMessage, Err: err}
	}
	return nil
}

// Form owns the amount field and hands validated state to the orchestrator.
type Form struct {
	orchestrator *Orchestrator

	mu         sync.Mutex
	state      FormState
	fieldError string
}

// NewForm returns an empty form bound to the orchestrator.
func NewForm(o *Orchestrator) *Form {
	return &Form{orchestrator: o}
}

// SetAmount records a keystroke and clears any previous field error.
func (f *Form) SetAmount(amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Amount = amount
	f.fieldError = ""
}

// State returns a copy of the current form state.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FieldError returns the validation message shown beneath the field.
func (f *Form) FieldError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldError
}

// Reset restores the initial empty state.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FormState{}
	f.fieldError = ""
}

// Loading reports whether the submit control is disabled.
func (f *Form) Loading() bool {
	return f.orchestrator != nil && f.orchestrator.Loading()
}

// Submit validates the field and, when it passes, runs the orchestrator.
// While a submission is in flight the call is a no-op returning
// ErrSubmissionInFlight.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	if f.Loading() {
		return Outcome{}, ErrSubmissionInFlight
	}
	state := f.State()
	if err := state.Validate(); err != nil {
		f.mu.Lock()
		f.fieldError = MessageOf(err)
		f.mu.Unlock()
		return Outcome{Amount: strings.TrimSpace(state.Amount)}, err
	}
	return f.orchestrator.Submit(ctx, state, f.Reset)
}
