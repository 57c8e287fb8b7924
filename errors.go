package locator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/locator/internal/graph"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.

var (
	// Resolution errors.
	ErrTypeNil     = errors.New("type cannot be nil")
	ErrNilInstance = errors.New("constructor returned a nil instance")

	// Lifecycle errors.
	ErrLocatorNil    = errors.New("locator cannot be nil")
	ErrLocatorClosed = errors.New("locator has been closed")

	// Registration errors.
	ErrConstructorNil     = errors.New("constructor cannot be nil")
	ErrModuleNil          = errors.New("module cannot be nil")
	ErrModuleNameEmpty    = errors.New("module name cannot be empty")
	ErrModuleNotFound     = errors.New("module not found")
	ErrModuleAlreadyAdded = errors.New("module already registered")
)

var (
	_ error = InvalidTargetError{}
	_ error = NoPublicConstructorError{}
	_ error = UnsupportedParameterShapeError{}
	_ error = NoImplementationError{}
	_ error = AmbiguousImplementationError{}
	_ error = InvalidOperationError{}
	_ error = ConstructorError{}
	_ error = ConstructorPanicError{}
	_ error = RegistrationError{}
	_ error = ValidationError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
	_ error = DisposalError{}
	_ error = CircularDependencyError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// CircularDependencyError reports a type encountered twice on one resolution stack.
// Path lists the active stack oldest ancestor first and Node is the repeated type.
type CircularDependencyError = graph.CircularDependencyError

// InvalidTargetError indicates the requested type is neither a class nor an
// interface or abstract class, for example a func or channel type.
type InvalidTargetError struct {
	Type reflect.Type
}

func (e InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid resolution target %s: expected a pointer to struct or an interface", formatType(e.Type))
}

// NoPublicConstructorError indicates a concrete type exposes no constructor.
type NoPublicConstructorError struct {
	Type reflect.Type
}

func (e NoPublicConstructorError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no public constructor for %s\n\n", formatType(e.Type)))
	b.WriteString("To resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Declare a constructor with locator.Provide(New%s)\n", shortName(e.Type)))
	b.WriteString("  • Remove the locator.NoDefaultConstructor() option from its declaration\n")
	return b.String()
}

// UnsupportedParameterShapeError indicates a constructor parameter is a
// collection other than a slice.
type UnsupportedParameterShapeError struct {
	Type      reflect.Type
	Parameter reflect.Type
	Index     int
}

func (e UnsupportedParameterShapeError) Error() string {
	return fmt.Sprintf("constructor of %s: parameter %d has unsupported shape %s (only slices may receive multiple instances)",
		formatType(e.Type), e.Index, formatType(e.Parameter))
}

// NoImplementationError indicates an interface or abstract class has no
// implementation in the catalog.
type NoImplementationError struct {
	Type reflect.Type
}

func (e NoImplementationError) Error() string {
	return fmt.Sprintf("no implementation of %s found in the catalog", formatType(e.Type))
}

// AmbiguousImplementationError indicates more than one catalog type can serve
// an interface or abstract class.
type AmbiguousImplementationError struct {
	Type       reflect.Type
	Candidates []reflect.Type
}

func (e AmbiguousImplementationError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = formatType(c)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("ambiguous implementation of %s: %d candidates [%s]\n\n",
		formatType(e.Type), len(e.Candidates), strings.Join(names, ", ")))
	b.WriteString("To resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Depend on []%s to receive every implementation\n", formatType(e.Type)))
	b.WriteString("  • Depend on the concrete type directly\n")
	return b.String()
}

// InvalidOperationError indicates an injection point that cannot be assigned.
type InvalidOperationError struct {
	Type     reflect.Type
	Property string
	Reason   string
}

func (e InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid injection point %s.%s: %s", formatType(e.Type), e.Property, e.Reason)
}

// ConstructorError wraps an error returned by a constructor.
type ConstructorError struct {
	Type  reflect.Type
	Cause error
}

func (e ConstructorError) Error() string {
	return fmt.Sprintf("constructor of %s failed: %v", formatType(e.Type), e.Cause)
}

func (e ConstructorError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Type        reflect.Type
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s of %s panicked: %v\n",
		formatType(e.Constructor), formatType(e.Type), e.Panic))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Check for nil pointer dereferences in your constructor\n")
	b.WriteString("  • Move panic-prone initialization to an Initialize() method\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// RegistrationError wraps errors while declaring a type.
type RegistrationError struct {
	Type      reflect.Type
	Operation string // "analyze", "describe", "provide", "register"
	Cause     error
}

func (e RegistrationError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.Type), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a problem found by Validate.
type ValidationError struct {
	Type  reflect.Type
	Cause error
}

func (e ValidationError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("%s: %v", formatType(e.Type), e.Cause)
	}
	return e.Cause.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from a module.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "type assertion", "constructor result", etc.
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// DisposalError aggregates disposal errors
type DisposalError struct {
	Context string
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice:
		prefix := "*"
		if t.Kind() == reflect.Slice {
			prefix = "[]"
		}

		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return prefix + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

func shortName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
