package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed verification for the caller
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindGatewayUnavailable ErrorKind = "GATEWAY_UNAVAILABLE"
	KindPaymentNotFound    ErrorKind = "PAYMENT_NOT_FOUND"
	KindVerificationFailed ErrorKind = "VERIFICATION_FAILED"
)

// VerificationError is the typed failure of VerifyPayment. Err carries the
// upstream cause.
type VerificationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func newVerificationError(kind ErrorKind, message string, err error) *VerificationError {
	return &VerificationError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a VerificationError in err's chain, or "" if
// there is none
func KindOf(err error) ErrorKind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}
