package errs

import (
	"errors"
)

// Kind classifies why an operation was rejected, so callers can tell a wrong
// payment apart from a lost race or a missing permission.
type Kind string

const (
	Validation      Kind = "validation"
	Authorization   Kind = "authorization"
	StateConflict   Kind = "state_conflict"
	PaymentMismatch Kind = "payment_mismatch"
	TransferFailure Kind = "transfer_failure"
	Internal        Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// New returns a sentinel error of the given kind. Compare with errors.Is.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
