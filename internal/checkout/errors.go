package checkout

import "errors"

var (
	ErrValidation       = errors.New("checkout validation failed")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSuperseded       = errors.New("payment session request superseded")
	ErrNotReady         = errors.New("checkout is not ready")
	ErrAlreadyCompleted = errors.New("checkout already completed")
	ErrPaymentFailed    = errors.New("payment failed")
)

// ValidationError blocks submission with a notice the visitor can act on.
type ValidationError struct {
	Notice string
}

func (e *ValidationError) Error() string {
	return e.Notice
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
