package psychometrics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies engine failures so callers can pick between degrading
// to a default and surfacing the failure.
type ErrorCode string

const (
	// CodeInsufficientData is recoverable: fewer samples than a component's minimum.
	CodeInsufficientData ErrorCode = "insufficient_data"
	// CodeCalibrationFailed is recoverable: numerically degenerate calibration input.
	CodeCalibrationFailed ErrorCode = "calibration_failed"
	// CodeDataIntegrity is fatal for the computation: a ledger event failed integrity checks.
	CodeDataIntegrity ErrorCode = "data_integrity"
	// CodeConfiguration is fatal: a required feature or setting is missing or invalid.
	CodeConfiguration ErrorCode = "configuration"
	// CodeNoCandidates means selection was asked to choose from an empty pool.
	CodeNoCandidates ErrorCode = "no_candidates"
	CodeNotFound     ErrorCode = "not_found"
	CodeInternal     ErrorCode = "internal"
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with code. Errors that already carry a code keep it.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) ErrorCode {
	var pErr *Error
	if !errors.As(err, &pErr) {
		return ""
	}
	return pErr.Code
}

func InsufficientData(op string, required, current int) error {
	return NewError(CodeInsufficientData, op, fmt.Sprintf("need %d samples, have %d", required, current), nil)
}

func CalibrationFailed(op, message string) error {
	return NewError(CodeCalibrationFailed, op, message, nil)
}

func DataIntegrity(op, message string) error {
	return NewError(CodeDataIntegrity, op, message, nil)
}

func Configuration(op, message string) error {
	return NewError(CodeConfiguration, op, message, nil)
}
