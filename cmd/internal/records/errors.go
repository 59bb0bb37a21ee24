package records

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned for unknown sort keys, bad paging values
	// and similar client mistakes.
	ErrInvalidQuery = errors.New("invalid query")
	ErrNotFound     = errors.New("not found")
	// ErrUnavailable wraps database failures.
	ErrUnavailable = errors.New("records store unavailable")
)

// OpError carries the failing operation and one of the sentinel kinds.
type OpError struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e OpError) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidQuery(msg string, args ...any) error {
	return OpError{Op: "records.query", Kind: ErrInvalidQuery, Msg: fmt.Sprintf(msg, args...)}
}
