package lendform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a submission did not complete.
type ErrorKind int

const (
	// KindValidation marks input that failed the amount rule.
	KindValidation ErrorKind = iota + 1
	// KindWalletNotConnected marks a submission made without a wallet address.
	KindWalletNotConnected
	// KindTransactionFailed marks a failed approve, confirmation or lend call.
	KindTransactionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindWalletNotConnected:
		return "wallet_not_connected"
	case KindTransactionFailed:
		return "transaction_failed"
	default:
		return "unknown"
	}
}

// Step names the point in the submission sequence an error came from.
type Step string

const (
	StepValidate Step = "validate"
	StepScale    Step = "scale"
	StepApprove  Step = "approve"
	StepWait     Step = "wait"
	StepLend     Step = "lend"
)

// AmountFieldMessage is shown beneath the field for a rejected amount.
const AmountFieldMessage = "Amount must be greater than 0"

// ErrAmountNotPositive is returned for an amount that is not a number above zero.
var ErrAmountNotPositive = errors.New("amount must be greater than 0")

// ErrSubmissionInFlight is returned when a submit arrives while another is running.
var ErrSubmissionInFlight = errors.New("lendform: submission in flight")

// Error carries the kind and human-readable message of a submission failure.
type Error struct {
	Kind    ErrorKind
	Step    Step
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf reports the ErrorKind of err, or zero when err is not an *Error.
func KindOf(err error) ErrorKind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return 0
}

// MessageOf returns the user-facing message carried by err, falling back to
// err.Error() when none is set.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var lerr *Error
	if errors.As(err, &lerr) && lerr.Message != "" {
		return lerr.Message
	}
	return err.Error()
}

func transactionError(step Step, err error) *Error {
	return &Error{Kind: KindTransactionFailed, Step: step, Err: err}
}

// ErrorParser maps raw failure text to something a user can act on.
type ErrorParser func(message string) string

const (
	fallbackErrorMessage = "Something went wrong. Please try again."
	maxParsedLength      = 160
)

var knownFailures = []struct {
	needles []string
	message string
}{
	{[]string{"user rejected", "user denied", "rejected the request"}, "You rejected the transaction in your wallet."},
	{[]string{"insufficient funds"}, "Insufficient funds to pay for this transaction."},
	{[]string{"transfer amount exceeds balance", "exceeds balance"}, "Your token balance is too low for this amount."},
	{[]string{"intrinsic gas too low", "out of gas", "gas required exceeds allowance"}, "The transaction ran out of gas."},
	{[]string{"transfer amount exceeds allowance", "insufficient allowance"}, "The approved allowance is lower than the amount to lend."},
	{[]string{"nonce too low", "replacement transaction underpriced", "already known"}, "A pending transaction is blocking this one. Please wait and try again."},
	{[]string{"context deadline exceeded", "timeout", "timed out"}, "The transaction took too long to confirm. Check your wallet before trying again."},
	{[]string{"wallet locked", "no wallet connected"}, "Connect your wallet and try again."},
}

// ParseErrors is the default ErrorParser. Known wallet and RPC failures map to
// fixed sentences, revert reasons are surfaced as-is, and anything else is
// reduced to its first line.
func ParseErrors(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return fallbackErrorMessage
	}
	lower := strings.ToLower(trimmed)
	if idx := strings.Index(lower, "execution reverted:"); idx >= 0 {
		reason := strings.TrimSpace(trimmed[idx+len("execution reverted:"):])
		if reason != "" {
			return clip(firstLine(reason))
		}
	}
	for _, known := range knownFailures {
		for _, needle := range known.needles {
			if strings.Contains(lower, needle) {
				return known.message
			}
		}
	}
	if strings.Contains(lower, "execution reverted") || strings.Contains(lower, "reverted") {
		return "The transaction was reverted by the contract."
	}
	return clip(firstLine(trimmed))
}

func firstLine(s string) string {
	if line, _, found := strings.Cut(s, "\n"); found {
		return strings.TrimSpace(line)
	}
	return s
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxParsedLength {
		return s
	}
	return string(runes[:maxParsedLength-3]) + "..."
}
