package sandbox

import (
	"errors"
	"fmt"
)

// ErrRejected matches every *RejectionError via errors.Is.
var ErrRejected = errors.New("sandbox rejection")

// Reason classifies why an expression was rejected.
type Reason string

const (
	// ReasonUnsafeSyntax indicates a construct outside the permitted grammar.
	ReasonUnsafeSyntax Reason = "unsafe_syntax"

	// ReasonParse indicates the expression is not well formed.
	ReasonParse Reason = "parse"

	// ReasonUnknownVariable indicates a reference to an unbound name.
	ReasonUnknownVariable Reason = "unknown_variable"

	// ReasonInvalidBinding indicates a bound value that is neither numeric nor boolean.
	ReasonInvalidBinding Reason = "invalid_binding"

	// ReasonInvalidResult indicates the expression did not produce a boolean or number.
	ReasonInvalidResult Reason = "invalid_result"

	// ReasonArithmetic indicates division by zero or a non-finite power.
	ReasonArithmetic Reason = "arithmetic"

	// ReasonLimit indicates the expression exceeds the configured size or depth.
	ReasonLimit Reason = "limit"
)

// RejectionError is the single failure kind produced by the sandbox.
type RejectionError struct {
	Reason  Reason
	Message string
	// Offset is the byte offset in the expression, or -1 when not applicable.
	Offset int
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("sandbox rejected expression [%s at offset %d]: %s", e.Reason, e.Offset, e.Message)
	}
	return fmt.Sprintf("sandbox rejected expression [%s]: %s", e.Reason, e.Message)
}

// Is reports whether target is ErrRejected.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason Reason, offset int, format string, args ...any) *RejectionError {
	return &RejectionError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
	}
}

// ReasonOf returns the rejection reason carried by err, or "" if err is not
// a sandbox rejection.
func ReasonOf(err error) Reason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}
