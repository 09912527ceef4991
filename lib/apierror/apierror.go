// Package apierror converts the errors of the services into the errors replied by the REST API.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/plan"
	"github.com/tarancss/eosapi/lib/query"
	"github.com/tarancss/eosapi/lib/store"
)

// Stable error codes.
const (
	InvalidQuery        = "INVALID_QUERY"
	ValidationError     = "VALIDATION_ERROR"
	Unauthorized        = "UNAUTHORIZED"
	Forbidden           = "FORBIDDEN"
	NotFound            = "NOT_FOUND"
	Conflict            = "CONFLICT"
	QueryExecutionError = "QUERY_EXECUTION_ERROR"
	Timeout             = "TIMEOUT"
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	InternalError       = "INTERNAL_ERROR"
)

// Locations of a field error.
const (
	LocationQuery = "query"
	LocationBody  = "body"
	LocationPath  = "path"
)

// FieldError lists the violations of one request field.
type FieldError struct {
	Field    string   `json:"field"`
	Location string   `json:"location"`
	Messages []string `json:"messages"`
}

// Error is the body of every error reply.
type Error struct {
	Status  int          `json:"status"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Err     error        `json:"-"` // cause, logged and never replied
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error with no field violations.
func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

// Validation returns a 400 listing the fields that failed validation.
func Validation(fields ...FieldError) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    ValidationError,
		Message: "Validation Error",
		Errors:  fields,
	}
}

// Field returns a single field violation located in the request body.
func Field(field, message string) FieldError {
	return FieldError{Field: field, Location: LocationBody, Messages: []string{message}}
}

// From classifies err. Errors that are already an *Error are returned unchanged.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var qe *query.Error
	if errors.As(err, &qe) {
		return &Error{
			Status:  http.StatusBadRequest,
			Code:    InvalidQuery,
			Message: "Invalid query",
			Errors:  []FieldError{{Field: qe.Param, Location: LocationQuery, Messages: []string{qe.Reason}}},
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return New(http.StatusUnauthorized, Unauthorized, "Unauthorized", err)
	case errors.Is(err, auth.ErrForbidden):
		return New(http.StatusForbidden, Forbidden, "Forbidden", err)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, plan.ErrBadIdentifier):
		return New(http.StatusNotFound, NotFound, "Not found", err)
	case errors.Is(err, store.ErrDuplicate):
		return New(http.StatusConflict, Conflict, "Already exists", err)
	case errors.Is(err, store.ErrTimeout), errors.Is(err, chain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout, Timeout, "Request timed out", err)
	case errors.Is(err, chain.ErrUnavailable):
		return New(http.StatusBadGateway, UpstreamUnavailable, "EOS node unavailable", err)
	case errors.Is(err, store.ErrQueryExecution):
		return New(http.StatusInternalServerError, QueryExecutionError, "Query execution failed", err)
	}

	return New(http.StatusInternalServerError, InternalError, http.StatusText(http.StatusInternalServerError), err)
}
