package fusion

import "fmt"

// ErrorKind classifies the validation failures raised by the scripting
// surface. Error generators in the conformance suite declare the kind they
// expect, and the error-check snippet matches it exactly.
type ErrorKind int

const (
	// KindValue marks argument values outside the operator's valid domain.
	KindValue ErrorKind = iota
	// KindType marks arguments whose type the scripting binding cannot
	// coerce to the declared parameter type.
	KindType
	// KindShape marks rank or dimension mismatches between arguments.
	KindShape
	// KindState marks definition lifecycle misuse.
	KindState
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindValue:
		return "value error"
	case KindType:
		return "type error"
	case KindShape:
		return "shape error"
	case KindState:
		return "state error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the structured error thrown (as a panic) by definition building
// and execution. Use AsError to recover it at a failure boundary.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// CompletedDefinitionMessage is raised by every defining call made after a
// definition transitioned to its completed state.
const CompletedDefinitionMessage = "attempting to add to a completed definition"

// throwf panics with a structured *Error.
func throwf(kind ErrorKind, format string, args ...any) {
	panic(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// AsError returns the *Error inside a recovered panic value, if there is one.
// It accepts the value returned by exceptions.Try.
func AsError(exception any) (*Error, bool) {
	if exception == nil {
		return nil, false
	}
	err, ok := exception.(*Error)
	return err, ok
}
