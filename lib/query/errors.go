package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is matched (errors.Is) by every error returned by the parser.
var ErrInvalidQuery = errors.New("invalid query")

// Error names the offending query parameter and why it was rejected.
type Error struct {
	Param  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidQuery) hold for any *Error.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidQuery
}

func invalid(param, format string, args ...interface{}) error {
	return &Error{Param: param, Reason: fmt.Sprintf(format, args...)}
}
