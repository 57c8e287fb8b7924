package locator

import (
	"fmt"
	"reflect"

	"github.com/junioryono/locator/internal/reflection"
)

// Abstract marks a struct as an abstract base when embedded directly.
// Abstract types are never constructed; resolving one resolves its single
// catalog subclass.
//
//	type Storage struct {
//	    locator.Abstract
//	    Root string
//	}
type Abstract = reflection.Abstract

// AlwaysNew marks a struct as opted out of singleton caching when embedded
// directly. Every resolution builds a fresh instance.
type AlwaysNew = reflection.AlwaysNew

// analyzer is shared by every descriptor built in the process.
var analyzer = reflection.New()

// Kind classifies a TypeDescriptor.
type Kind int

const (
	// KindInvalid is a type that can never be resolved (func, channel, map...).
	KindInvalid Kind = iota

	// KindValue is a value kind, string, value struct, or pointer to a basic kind.
	KindValue

	// KindInterface is an interface type.
	KindInterface

	// KindAbstract is a pointer to a struct embedding Abstract.
	KindAbstract

	// KindConcrete is a constructible pointer-to-struct type.
	KindConcrete
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindInterface:
		return "Interface"
	case KindAbstract:
		return "Abstract"
	case KindConcrete:
		return "Concrete"
	default:
		return "Invalid"
	}
}

// TypeDescriptor describes a type known to the catalog: its kind, its
// constructors in declaration order, its injection points and whether it
// opts out of singleton caching.
type TypeDescriptor struct {
	Type         reflect.Type
	Kind         Kind
	Constructors []*Constructor
	Properties   []*Property
	AlwaysNew    bool
}

// Constructor is a public constructor of a type.
type Constructor struct {
	// Func is a function returning the type, optionally followed by an error.
	// It is the zero Value for the implicit default constructor.
	Func reflect.Value

	Params       []reflect.Type
	ReturnsError bool

	// Index is the declaration order, used to break ties between constructors
	// with the same number of parameters.
	Index int

	// Implicit reports the default constructor, which allocates a zero struct.
	Implicit bool
}

// Property is a struct field tagged `inject`, assigned after construction.
type Property struct {
	Name     string
	Index    []int
	Type     reflect.Type
	Settable bool
}

// String returns a short description of the descriptor.
func (d *TypeDescriptor) String() string {
	if d == nil {
		return "TypeDescriptor{<nil>}"
	}
	return fmt.Sprintf("TypeDescriptor{%s, %s, constructors:%d, properties:%d, alwaysNew:%t}",
		formatType(d.Type), d.Kind, len(d.Constructors), len(d.Properties), d.AlwaysNew)
}

// constructible reports whether the catalog should offer d as an implementation.
func (d *TypeDescriptor) constructible() bool {
	return d != nil && d.Kind == KindConcrete && len(d.Constructors) > 0
}

// A DescribeOption modifies how Describe, DescribeType and Provide build a descriptor.
type DescribeOption interface {
	applyDescribeOption(*describeOptions)
}

type describeOptions struct {
	constructors []any
	transient    bool
	noDefault    bool
}

type describeOptionFunc func(*describeOptions)

func (f describeOptionFunc) applyDescribeOption(o *describeOptions) { f(o) }

// Transient opts the type out of singleton caching, like embedding AlwaysNew.
func Transient() DescribeOption {
	return describeOptionFunc(func(o *describeOptions) {
		o.transient = true
	})
}

// NoDefaultConstructor removes the implicit default constructor from a type
// declared without constructors.
func NoDefaultConstructor() DescribeOption {
	return describeOptionFunc(func(o *describeOptions) {
		o.noDefault = true
	})
}

// UseConstructor declares constructors for the type. Each must have the form
// func(deps...) *T or func(deps...) (*T, error). Declaring a constructor
// removes the implicit default one.
func UseConstructor(constructors ...any) DescribeOption {
	return describeOptionFunc(func(o *describeOptions) {
		o.constructors = append(o.constructors, constructors...)
	})
}

// Describe builds the descriptor of T.
//
// Example:
//
//	d, err := locator.Describe[*UserService](locator.UseConstructor(NewUserService))
func Describe[T any](opts ...DescribeOption) (*TypeDescriptor, error) {
	return DescribeType(reflect.TypeFor[T](), opts...)
}

// DescribeType builds the descriptor of t by reflection: its kind from the
// type shape and markers, its injection points from `inject` tags, and its
// constructors from UseConstructor or the implicit default.
func DescribeType(t reflect.Type, opts ...DescribeOption) (*TypeDescriptor, error) {
	if t == nil {
		return nil, ErrTypeNil
	}

	options := &describeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyDescribeOption(options)
		}
	}

	d := &TypeDescriptor{
		Type: t,
		Kind: kindOf(t),
	}

	if d.Kind != KindAbstract && d.Kind != KindConcrete {
		if len(options.constructors) > 0 {
			return nil, RegistrationError{
				Type:      t,
				Operation: "describe",
				Cause:     InvalidTargetError{Type: t},
			}
		}
		return d, nil
	}

	d.AlwaysNew = options.transient || reflection.IsAlwaysNew(t)

	for i, fn := range options.constructors {
		ctor, err := newConstructor(t, fn, i)
		if err != nil {
			return nil, err
		}
		d.Constructors = append(d.Constructors, ctor)
	}

	if len(d.Constructors) == 0 && d.Kind == KindConcrete && !options.noDefault {
		d.Constructors = []*Constructor{{Implicit: true}}
	}

	for _, field := range analyzer.InjectableFields(t) {
		d.Properties = append(d.Properties, &Property{
			Name:     field.Name,
			Index:    field.Index,
			Type:     field.Type,
			Settable: field.Exported,
		})
	}

	return d, nil
}

func newConstructor(t reflect.Type, fn any, index int) (*Constructor, error) {
	if fn == nil {
		return nil, RegistrationError{Type: t, Operation: "describe", Cause: ErrConstructorNil}
	}

	info, err := analyzer.AnalyzeConstructor(fn)
	if err != nil {
		return nil, RegistrationError{Type: t, Operation: "analyze", Cause: err}
	}

	if info.Out != t {
		return nil, RegistrationError{
			Type:      t,
			Operation: "describe",
			Cause: TypeMismatchError{
				Expected: t,
				Actual:   info.Out,
				Context:  "constructor result",
			},
		}
	}

	return &Constructor{
		Func:         info.Value,
		Params:       info.Params,
		ReturnsError: info.HasErrorReturn,
		Index:        index,
	}, nil
}

func kindOf(t reflect.Type) Kind {
	switch reflection.Classify(t) {
	case reflection.ShapeValue:
		return KindValue
	case reflection.ShapeInterface:
		return KindInterface
	case reflection.ShapeClass:
		if reflection.IsAbstract(t) {
			return KindAbstract
		}
		return KindConcrete
	default:
		return KindInvalid
	}
}

// selectConstructor picks the constructor with the fewest parameters, the
// lowest Index winning ties.
func selectConstructor(ctors []*Constructor) *Constructor {
	var selected *Constructor
	for _, c := range ctors {
		if c == nil {
			continue
		}
		if selected == nil ||
			len(c.Params) < len(selected.Params) ||
			(len(c.Params) == len(selected.Params) && c.Index < selected.Index) {
			selected = c
		}
	}
	return selected
}
