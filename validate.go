package locator

import (
	"errors"
	"io"
	"reflect"

	"github.com/junioryono/locator/internal/graph"
	"github.com/junioryono/locator/internal/reflection"
)

// Validate checks the catalog without constructing anything. It reports
// constructor cycles as a CircularDependencyError and, wrapped in
// ValidationError, constructor parameters that can never be resolved.
// Injection points are not considered since they are assigned after
// construction and may legitimately close a cycle.
func (l *Locator) Validate() error {
	if l == nil {
		return ErrLocatorNil
	}

	g, errs := l.dependencyGraph()

	if err := g.DetectCycles(); err != nil {
		return err
	}

	return errors.Join(errs...)
}

// WriteDOT writes the constructor dependency graph of the catalog in
// Graphviz DOT format.
func (l *Locator) WriteDOT(w io.Writer) error {
	if l == nil {
		return ErrLocatorNil
	}

	g, _ := l.dependencyGraph()
	return graph.NewVisualizer(g).WriteDOT(w)
}

// WriteText writes a text representation of the constructor dependency
// graph of the catalog, dependencies first.
func (l *Locator) WriteText(w io.Writer) error {
	if l == nil {
		return ErrLocatorNil
	}

	g, _ := l.dependencyGraph()
	return graph.NewVisualizer(g).WriteText(w)
}

// dependencyGraph links every catalog type to the types its selected
// constructor resolves, expanding interfaces and slices to their candidates.
func (l *Locator) dependencyGraph() (*graph.DependencyGraph, []error) {
	g := graph.NewDependencyGraph()
	var errs []error

	for _, d := range l.catalog().types {
		ctor := selectConstructor(d.Constructors)
		if ctor == nil {
			errs = append(errs, ValidationError{Type: d.Type, Cause: NoPublicConstructorError{Type: d.Type}})
			continue
		}

		var deps []reflect.Type
		for i, param := range ctor.Params {
			targets, err := l.dependencyTargets(d.Type, param, i)
			if err != nil {
				errs = append(errs, ValidationError{Type: d.Type, Cause: err})
				continue
			}
			deps = append(deps, targets...)
		}

		for _, p := range d.Properties {
			if !p.Settable {
				errs = append(errs, ValidationError{
					Type:  d.Type,
					Cause: InvalidOperationError{Type: d.Type, Property: p.Name, Reason: "field is not exported"},
				})
			}
		}

		if err := g.AddNode(d.Type, deps); err != nil {
			errs = append(errs, ValidationError{Type: d.Type, Cause: err})
		}
	}

	return g, errs
}

// dependencyTargets returns the concrete types a constructor parameter
// resolves to.
func (l *Locator) dependencyTargets(owner, param reflect.Type, index int) ([]reflect.Type, error) {
	if reflection.IsContext(param) || param == locatorType {
		return nil, nil
	}

	switch reflection.Classify(param) {
	case reflection.ShapeValue:
		return nil, nil
	case reflection.ShapeSlice:
		return l.candidates(param.Elem())
	case reflection.ShapeCollection:
		return nil, UnsupportedParameterShapeError{Type: owner, Parameter: param, Index: index}
	case reflection.ShapeInterface:
		return l.singleCandidate(param)
	case reflection.ShapeClass:
		d := l.describe(param)
		switch {
		case d.Kind == KindAbstract:
			return l.singleCandidate(param)
		case !d.constructible():
			return nil, NoPublicConstructorError{Type: param}
		}
		return []reflect.Type{param}, nil
	default:
		return nil, InvalidTargetError{Type: param}
	}
}

func (l *Locator) singleCandidate(t reflect.Type) ([]reflect.Type, error) {
	candidates, err := l.candidates(t)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, NoImplementationError{Type: t}
	case 1:
		return candidates, nil
	default:
		return nil, AmbiguousImplementationError{Type: t, Candidates: candidates}
	}
}
