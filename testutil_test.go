package locator_test

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/locator"
)

// ============================================================================
// Shared Test Types
// ============================================================================

var errTest = errors.New("test error")

// Plain has a parameterless constructor and no injection points.
type Plain struct {
	ID string
}

func NewPlain() *Plain {
	return &Plain{ID: uuid.NewString()}
}

// Fresh opts out of singleton caching.
type Fresh struct {
	locator.AlwaysNew
	Plain *Plain
}

func NewFresh(p *Plain) *Fresh {
	return &Fresh{Plain: p}
}

// CycleA and CycleB depend on each other through their constructors.
type CycleA struct{ B *CycleB }
type CycleB struct{ A *CycleA }

func NewCycleA(b *CycleB) *CycleA { return &CycleA{B: b} }
func NewCycleB(a *CycleA) *CycleB { return &CycleB{A: a} }

// Greeter has two fixture implementations.
type Greeter interface {
	Greet() string
}

type English struct{}
type French struct{}

func (*English) Greet() string { return "hello" }
func (*French) Greet() string { return "bonjour" }

// Unimplemented has no implementation anywhere.
type Unimplemented interface {
	Unimplemented()
}

// Parent receives its Child after construction; Child's constructor needs Parent.
type Parent struct {
	Child *Child `inject:""`
}

type Child struct {
	Parent *Parent
}

func NewChild(p *Parent) *Child {
	return &Child{Parent: p}
}

// Hooked records whether its injection point was set when Initialize ran.
type Hooked struct {
	Dep         *Plain `inject:""`
	SawDep      bool
	Initialized int
}

func (h *Hooked) Initialize() {
	h.Initialized++
	h.SawDep = h.Dep != nil
}

// Outer builds a Hooked through its constructor.
type Outer struct {
	Hooked *Hooked
}

func NewOuter(h *Hooked) *Outer {
	return &Outer{Hooked: h}
}

// Shape is an abstract base; Circle is its only subclass.
type Shape struct {
	locator.Abstract
	Sides int
}

type Circle struct {
	Shape
}

type Triangle struct {
	Shape
}

// Square embeds the base by pointer.
type Square struct {
	*Shape
}

// Base is a concrete class with two subclasses.
type Base struct{ Name string }
type DerivedOne struct{ Base }
type DerivedTwo struct{ DerivedOne }

// Shape-violating constructors.
type MapConsumer struct{}
type ArrayConsumer struct{}
type ChanConsumer struct{}
type SeqConsumer struct{}

func NewMapConsumer(map[string]*Plain) *MapConsumer { return &MapConsumer{} }
func NewArrayConsumer([2]*Plain) *ArrayConsumer { return &ArrayConsumer{} }
func NewChanConsumer(chan *Plain) *ChanConsumer { return &ChanConsumer{} }
func NewSeqConsumer(iter.Seq[Greeter]) *SeqConsumer { return &SeqConsumer{} }

// Hidden has an injection point that cannot be set.
type Hidden struct {
	plain *Plain `inject:""`
}

// Sealed has no public constructor.
type Sealed struct{}

// Values is built from value-typed parameters.
type Values struct {
	N int
	S string
	B bool
	P *int
	V ValueStruct
}

type ValueStruct struct{ X int }

func NewValues(n int, s string, b bool, p *int, v ValueStruct) *Values {
	return &Values{N: n, S: s, B: b, P: p, V: v}
}

// Constructors failing in every way.
type Failing struct{}
type Panicking struct{}
type NilReturning struct{}

func NewFailing() (*Failing, error) { return nil, errTest }
func NewPanicking() *Panicking { panic("boom") }
func NewNilReturning() *NilReturning { return nil }

// Multi has several constructors.
type Multi struct{ Via string }

func NewMultiWithDep(*Plain) *Multi { return &Multi{Via: "dep"} }
func NewMultiB() *Multi { return &Multi{Via: "b"} }
func NewMultiA() *Multi { return &Multi{Via: "a"} }

// Joiner resolves a dependency through the context it was given.
type Joiner struct {
	Plain *Plain
}

func NewJoiner(ctx context.Context, l *locator.Locator) (*Joiner, error) {
	p, err := l.ResolveContext(ctx, reflect.TypeFor[*Plain]())
	if err != nil {
		return nil, err
	}
	return &Joiner{Plain: p.(*Plain)}, nil
}

// SelfJoiner resolves itself through its context.
type SelfJoiner struct{}

func NewSelfJoiner(ctx context.Context, l *locator.Locator) (*SelfJoiner, error) {
	if _, err := l.ResolveContext(ctx, reflect.TypeFor[*SelfJoiner]()); err != nil {
		return nil, err
	}
	return &SelfJoiner{}, nil
}

// Slow counts its constructions and takes a moment to build.
type Slow struct{}

var slowBuilds atomic.Int64

func NewSlow() *Slow {
	slowBuilds.Add(1)
	time.Sleep(time.Millisecond)
	return &Slow{}
}

// staticModule is a Module with fixed contents, including a failure.
type staticModule struct {
	name     string
	requires []string
	types    []*locator.TypeDescriptor
	err      error
}

func (m *staticModule) Name() string { return m.name }
func (m *staticModule) Requires() []string { return m.requires }
func (m *staticModule) Types() ([]*locator.TypeDescriptor, error) {
	return m.types, m.err
}

// countingLoader serves modules by name and counts loads.
type countingLoader struct {
	mu      sync.Mutex
	modules map[string]locator.Module
	loads   []string
}

func (c *countingLoader) LoadModule(name string) (locator.Module, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loads = append(c.loads, name)
	m, ok := c.modules[name]
	if !ok {
		return nil, locator.ModuleError{Module: name, Cause: locator.ErrModuleNotFound}
	}
	return m, nil
}

func (c *countingLoader) Loads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.loads...)
}

func mustDescribe[T any](opts ...locator.DescribeOption) *locator.TypeDescriptor {
	d, err := locator.Describe[T](opts...)
	if err != nil {
		panic(err)
	}
	return d
}
