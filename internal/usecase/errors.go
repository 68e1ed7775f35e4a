package usecase

import (
	"errors"
	"fmt"

	"lte-sms-manager/internal/modem"
)

type ErrorCode string

const (
	ErrorInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrorConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	ErrorCapabilityMissing    ErrorCode = "CAPABILITY_MISSING"
	ErrorCommunicationFailure ErrorCode = "COMMUNICATION_FAILURE"
	ErrorInternal             ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// modemError maps a modem failure onto the command error taxonomy.
// Capability drift is checked before communication faults because a batch
// that failed only on missing capability is reported as a communication
// error wrapping the capability error.
func modemError(reason string, err error) *Error {
	switch {
	case errors.Is(err, modem.ErrConfigurationMissing):
		return newError(ErrorConfigurationMissing, "configuration_missing", err)
	case errors.Is(err, modem.ErrCapabilityMissing):
		return newError(ErrorCapabilityMissing, reason, err)
	case errors.Is(err, modem.ErrCommunication):
		return newError(ErrorCommunicationFailure, reason, err)
	default:
		return newError(ErrorInternal, reason, err)
	}
}
