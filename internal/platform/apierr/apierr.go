package apierr

import (
	"errors"
	"fmt"
	"net/http"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From maps an engine error onto an HTTP status. Errors that already carry
// an *Error pass through; anything untyped becomes fallbackCode with a 500.
func From(err error, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := psy.CodeOf(err)
	if code == "" || code == psy.CodeInternal {
		return New(http.StatusInternalServerError, fallbackCode, err)
	}
	return New(StatusFor(code), string(code), err)
}

func StatusFor(code psy.ErrorCode) int {
	switch code {
	case psy.CodeInsufficientData, psy.CodeCalibrationFailed:
		return http.StatusUnprocessableEntity
	case psy.CodeDataIntegrity:
		return http.StatusConflict
	case psy.CodeConfiguration:
		return http.StatusBadRequest
	case psy.CodeNoCandidates, psy.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
