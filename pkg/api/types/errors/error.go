// Package errors shapes API failures. Every error body is
// {"error": "..."} plus optional flags, and travels through echo's
// standard error handling pipeline (HTTPErrorHandler).
package errors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type ErrorMessage struct {
	Reason string `json:"error"`

	// AlreadyTrained marks the conflict for a label the registry holds,
	// so clients can distinguish it from the busy conflict.
	AlreadyTrained bool `json:"already_trained,omitempty"`

	Cause error `json:"-"`
}

func (e ErrorMessage) String() string {
	if e.Cause != nil {
		return fmt.Sprint(e.Reason, " caused by:", e.Cause.Error())
	}
	return e.Reason
}

func (e ErrorMessage) Error() string {
	return e.String()
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func WithAlreadyTrained() ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		in.AlreadyTrained = true
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}

	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func BadRequest(reason string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusBadRequest, reason, WithError(err))
}

func NotFound(reason string) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, reason)
}

func Conflict(reason string, options ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, options...)
}

func InternalServerError(reason string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, reason, WithError(err))
}

func ServiceUnavailable(reason string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusServiceUnavailable, reason, WithError(err))
}
