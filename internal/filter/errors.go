package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFilter means a filter with no condition-tree form reached
	// the compiler.
	ErrUnsupportedFilter = errors.New("unsupported filter")

	// ErrMalformedCondition means a condition lacks a required operand.
	ErrMalformedCondition = errors.New("malformed condition")
)

// Error reports where in the filter tree compilation failed.
type Error struct {
	Path string // e.g. "and[1].relation(comments).scalar(title)"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
