package compiler

import (
	"errors"
	"fmt"
)

// Common compile errors. Structured errors unwrap to these sentinels so
// callers can classify failures with errors.Is.
var (
	// ErrSyntax indicates the pattern text is malformed.
	ErrSyntax = errors.New("regex syntax error")

	// ErrLimit indicates a compile-time resource limit was exceeded.
	ErrLimit = errors.New("regex limit exceeded")
)

// SyntaxError reports a malformed pattern together with the byte position
// inside the pattern where parsing stopped.
type SyntaxError struct {
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("regex syntax error at %d: %s", e.Pos, e.Message)
}

// Unwrap returns ErrSyntax.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// LimitError reports which compile-time limit was exceeded.
type LimitError struct {
	Which string
	Limit int
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("regex limit exceeded: %s (limit %d)", e.Which, e.Limit)
}

// Unwrap returns ErrLimit.
func (e *LimitError) Unwrap() error { return ErrLimit }

// Compile-time limits.
const (
	// MaxGroups bounds the number of capturing groups.
	MaxGroups = 1 << 19

	// MaxLookaroundDepth bounds lookaround nesting.
	MaxLookaroundDepth = 16

	// MaxProgramLen bounds the compiled instruction stream, in words.
	MaxProgramLen = 1 << 18

	// MaxCumulativeRepetition bounds the product of nested repetition
	// ranges.
	MaxCumulativeRepetition = 1 << 20
)
