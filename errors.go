package construct

import (
	"fmt"

	"github.com/pkg/errors"
)

// Path is the dot-separated breadcrumb composites extend as they descend,
// e.g. "(parsing) -> a -> b -> c -> foo". It exists purely for error
// reporting; it is never part of the value model.
type Path string

const rootPath = Path("(unset)")

// Down extends a path with one more named segment, matching how a Struct
// or Sequence tags each child before dispatching into it (spec §4.8).
func (p Path) Down(name string) Path {
	if name == "" {
		return p
	}
	return Path(string(p) + " -> " + name)
}

// Tagged returns the path's mode-tagged root, e.g. "(parsing)" or "(building)".
func Tagged(mode string) Path { return Path("(" + mode + ")") }

// pathError is embedded by every exported error kind; it carries the path
// at the point the error was raised and refuses to be overwritten once set
// (spec §4.8: "already-tagged errors propagate unchanged").
type pathError struct {
	Path    Path
	Message string
	cause   error
}

func (e *pathError) tagged() bool { return e.Path != "" }

func (e *pathError) attach(p Path) {
	if !e.tagged() {
		e.Path = p
	}
}

func (e *pathError) Unwrap() error { return e.cause }

func (e *pathError) errorString(kind string) string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", kind, e.Message)
}

// StreamError reports a short read, a write failure, or an out-of-range seek.
type StreamError struct {
	pathError
	Cause error
}

func (e *StreamError) Error() string { e.cause = e.Cause; return e.errorString("stream error") }
func (e *StreamError) Unwrap() error { return e.Cause }

// FormatError reports an integer out of its declared range, or a non-finite
// float where finiteness is required.
type FormatError struct {
	pathError
}

func (e *FormatError) Error() string { return e.errorString("format error") }

// StringError reports an encode/decode failure, or use of an encoding
// outside the fixed allow-list of §4.4.
type StringError struct {
	pathError
	Cause error
}

func (e *StringError) Error() string { e.cause = e.Cause; return e.errorString("string error") }
func (e *StringError) Unwrap() error { return e.Cause }

// RangeError reports a wrong element count for Array/Sequence, or a
// RepeatUntil predicate that never held.
type RangeError struct {
	pathError
}

func (e *RangeError) Error() string { return e.errorString("range error") }

// MappingError reports an unknown symbol passed to Enum/FlagsEnum.Build.
type MappingError struct {
	pathError
}

func (e *MappingError) Error() string { return e.errorString("mapping error") }

// SelectError reports that every alternative of a Select failed to parse
// or build.
type SelectError struct {
	pathError
	Causes []error
}

func (e *SelectError) Error() string { return e.errorString("select error") }

// TerminatorError reports a missing sentinel for a required NullTerminated.
type TerminatorError struct {
	pathError
}

func (e *TerminatorError) Error() string { return e.errorString("terminator error") }

// PaddingError reports a pattern mismatch inside Padded/Aligned on parse.
type PaddingError struct {
	pathError
}

func (e *PaddingError) Error() string { return e.errorString("padding error") }

// SizeUnknownError reports SizeOf invoked on a context-dependent construct
// without the context needed to resolve it.
type SizeUnknownError struct {
	pathError
}

func (e *SizeUnknownError) Error() string { return e.errorString("size-unknown error") }

// ContextError reports an expression that referenced a missing context key.
type ContextError struct {
	pathError
}

func (e *ContextError) Error() string { return e.errorString("context error") }

// AlignmentError reports a Bitwise region whose total size is not a byte
// multiple, or residual bits at bit-stream close that don't fit the
// required alignment.
type AlignmentError struct {
	pathError
}

func (e *AlignmentError) Error() string { return e.errorString("alignment error") }

// ErrCancelParsing is the distinguished control signal a GreedyRange or
// RepeatUntil processing hook may return to end iteration early. It is
// never wrapped as one of the error kinds above; any consumer that is not
// explicitly a greedy/range loop treats it as an ordinary error via
// errors.Is, per spec §7.
var ErrCancelParsing = errors.New("cancel parsing")

// attachPath tags err with p if err is one of this package's error kinds
// and does not already carry a path. Foreign errors (e.g. a plain
// fmt.Errorf from a Transformed callback) are wrapped in a StreamError so
// every error leaving a composite boundary carries a path, per spec §4.8.
func attachPath(err error, p Path) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelParsing) {
		return err
	}
	if pe := asPathError(err); pe != nil {
		pe.attach(p)
		return err
	}
	return &StreamError{pathError: pathError{Path: p, Message: err.Error()}, Cause: err}
}

func asPathError(err error) *pathError {
	switch e := err.(type) {
	case *StreamError:
		return &e.pathError
	case *FormatError:
		return &e.pathError
	case *StringError:
		return &e.pathError
	case *RangeError:
		return &e.pathError
	case *MappingError:
		return &e.pathError
	case *SelectError:
		return &e.pathError
	case *TerminatorError:
		return &e.pathError
	case *PaddingError:
		return &e.pathError
	case *SizeUnknownError:
		return &e.pathError
	case *ContextError:
		return &e.pathError
	case *AlignmentError:
		return &e.pathError
	default:
		return nil
	}
}
