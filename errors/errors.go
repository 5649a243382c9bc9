// Package errors defines the exported error kinds and the structured Error
// type for the plotdisk library.
//
// This is the single source of truth for error values. The top-level
// plotdisk package builds its recoverable errors from here, so IsKind and
// errors.As checks work across package boundaries.
package errors

import "fmt"

// Kind classifies a recoverable plotting error (spec §7).
type Kind int

const (
	// InvalidValue covers out-of-range parameters: k out of range, an
	// explicitly requested bucket count out of range, a stripe size that
	// is too large for the table size, or a CPU missing popcount when
	// bitfield mode is requested.
	InvalidValue Kind = iota
	// InsufficientMemory covers a memory budget too small to proceed:
	// buf_megabytes too small after accounting for thread overhead, or a
	// bucket whose entries do not fit the in-memory sort arena.
	InsufficientMemory
	// InvalidState covers operations invoked in the wrong phase, such as
	// writing to a SortManager or FilteredScratch, or truncating a
	// SortManager to a nonzero size.
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case InvalidValue:
		return "InvalidValue"
	case InsufficientMemory:
		return "InsufficientMemory"
	case InvalidState:
		return "InvalidState"
	default:
		return "Unknown"
	}
}

// Error is a structured error carrying a Kind and a human message, per
// spec §7. Wrap with fmt.Errorf("%w: ...") to add call-site context while
// keeping errors.As and IsKind working against the Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("plotdisk: %s: %s", e.Kind, e.Msg)
}

// New constructs a structured Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf constructs a structured Error of the given kind with a formatted
// message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether the first *Error found in err's single-error
// Unwrap chain has the given Kind. Kind is not an error, so
// errors.Is(err, errors.InvalidValue) style checks are not possible;
// IsKind is the supported check.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

