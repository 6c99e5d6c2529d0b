package valuation

import (
	"errors"
	"fmt"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/description"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
)

// Kind classifies a valuation failure.
type Kind string

const (
	KindInsufficientInput       Kind = "InsufficientInput"
	KindIdentifierNotFound      Kind = "IdentifierNotFound"
	KindDescriptionParseFailure Kind = "DescriptionParseFailure"
	KindMaturedInstrument       Kind = "MaturedInstrument"
	KindYieldConvergenceFailure Kind = "YieldConvergenceFailure"
	KindInvalidPrice            Kind = "InvalidPrice"
	KindInvalidYield            Kind = "InvalidYield"
	KindInternal                Kind = "Internal"
)

// Error is the only error type Value returns. For YieldConvergenceFailure
// BestEffort carries the analytics at the best iterate, flagged Converged=false.
type Error struct {
	Kind       Kind
	Op         string
	Err        error
	BestEffort *Result
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that are not *Error are Internal;
// nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindInternal
}

// kindFor maps package sentinels to kinds.
func kindFor(err error) Kind {
	switch {
	case errors.Is(err, resolve.ErrInsufficientInput):
		return KindInsufficientInput
	case errors.Is(err, resolve.ErrIdentifierNotFound):
		return KindIdentifierNotFound
	case errors.Is(err, description.ErrParseFailure):
		return KindDescriptionParseFailure
	case errors.Is(err, schedule.ErrMatured):
		return KindMaturedInstrument
	case errors.Is(err, bond.ErrNoConvergence):
		return KindYieldConvergenceFailure
	case errors.Is(err, bond.ErrInvalidPrice):
		return KindInvalidPrice
	case errors.Is(err, bond.ErrInvalidYield):
		return KindInvalidYield
	default:
		return KindInternal
	}
}

func wrap(op string, err error) *Error {
	return &Error{Kind: kindFor(err), Op: op, Err: err}
}
