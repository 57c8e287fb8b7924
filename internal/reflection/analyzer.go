package reflection

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Abstract marks a struct as an abstract base when embedded directly.
type Abstract struct{}

// AlwaysNew marks a struct as opted out of singleton caching when embedded directly.
type AlwaysNew struct{}

var (
	abstractType  = reflect.TypeOf((*Abstract)(nil)).Elem()
	alwaysNewType = reflect.TypeOf((*AlwaysNew)(nil)).Elem()
	errType       = reflect.TypeOf((*error)(nil)).Elem()
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Analyzer performs reflection-based analysis of constructors and struct types.
// It caches analysis results for performance.
type Analyzer struct {
	mu           sync.RWMutex
	constructors map[uintptr]*ConstructorInfo
	fields       map[reflect.Type][]FieldInfo
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Value          reflect.Value
	Type           reflect.Type
	Params         []reflect.Type
	Out            reflect.Type
	HasErrorReturn bool
}

// FieldInfo describes a struct field carrying an inject tag.
type FieldInfo struct {
	Name     string
	Index    []int
	Type     reflect.Type
	Exported bool
	Tag      string
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		constructors: make(map[uintptr]*ConstructorInfo),
		fields:       make(map[reflect.Type][]FieldInfo),
	}
}

// AnalyzeConstructor validates a constructor of the form func(...) T or
// func(...) (T, error) and extracts its parameter and result types.
func (a *Analyzer) AnalyzeConstructor(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", typ.Kind())
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	// Different functions with the same signature are cached separately
	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.constructors[cacheKey]; ok && cached.Type == typ {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	if typ.IsVariadic() {
		return nil, fmt.Errorf("constructor %v cannot be variadic", typ)
	}

	info := &ConstructorInfo{
		Value: val,
		Type:  typ,
	}

	switch typ.NumOut() {
	case 1:
		info.Out = typ.Out(0)
	case 2:
		if !typ.Out(1).Implements(errType) {
			return nil, fmt.Errorf("constructor's second return value must be error, got %v", typ.Out(1))
		}
		info.Out = typ.Out(0)
		info.HasErrorReturn = true
	default:
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", typ.NumOut())
	}

	if info.Out == errType {
		return nil, fmt.Errorf("constructor must return a value before the error")
	}

	info.Params = make([]reflect.Type, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		info.Params[i] = typ.In(i)
	}

	a.mu.Lock()
	a.constructors[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

// InjectableFields returns the fields of a struct (or pointer to struct) tagged
// with `inject`. Fields tagged `inject:"-"` are skipped. Embedded structs are
// walked so promoted fields are reported with their full index path.
func (a *Analyzer) InjectableFields(t reflect.Type) []FieldInfo {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil
	}

	// Fast path: check cache with read lock
	a.mu.RLock()
	fields, exists := a.fields[t]
	a.mu.RUnlock()

	if exists {
		return fields
	}

	fields = collectInjectable(t, nil, make(map[reflect.Type]bool))

	a.mu.Lock()
	a.fields[t] = fields
	a.mu.Unlock()

	return fields
}

func collectInjectable(t reflect.Type, prefix []int, seen map[reflect.Type]bool) []FieldInfo {
	if seen[t] {
		return nil
	}
	seen[t] = true

	var fields []FieldInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if tag, ok := field.Tag.Lookup("inject"); ok {
			if tag == "-" {
				continue
			}

			fields = append(fields, FieldInfo{
				Name:     field.Name,
				Index:    index,
				Type:     field.Type,
				Exported: field.IsExported(),
				Tag:      tag,
			})
			continue
		}

		// Only embedded values are walked; embedded pointers may be nil at injection time
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			fields = append(fields, collectInjectable(field.Type, index, seen)...)
		}
	}

	return fields
}

// IsAbstract reports whether t is a pointer to a struct that directly embeds Abstract.
func IsAbstract(t reflect.Type) bool {
	return embedsMarker(t, abstractType)
}

// IsAlwaysNew reports whether t is a pointer to a struct that directly embeds AlwaysNew.
func IsAlwaysNew(t reflect.Type) bool {
	return embedsMarker(t, alwaysNewType)
}

// IsContext reports whether t is context.Context.
func IsContext(t reflect.Type) bool {
	return t == contextType
}

func embedsMarker(t reflect.Type, marker reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return false
	}

	s := t.Elem()
	for i := 0; i < s.NumField(); i++ {
		field := s.Field(i)
		if field.Anonymous && field.Type == marker {
			return true
		}
	}

	return false
}

// Embeds reports whether the struct behind child embeds the struct behind
// parent, by value or by pointer, at any depth. Both must be pointer-to-struct
// types and a type never embeds itself.
func Embeds(child, parent reflect.Type) bool {
	if !IsClass(child) || !IsClass(parent) || child == parent {
		return false
	}

	return embeds(child.Elem(), parent.Elem(), make(map[reflect.Type]bool))
}

func embeds(s, target reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[s] {
		return false
	}
	seen[s] = true

	for i := 0; i < s.NumField(); i++ {
		field := s.Field(i)
		if !field.Anonymous {
			continue
		}

		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if ft == target {
			return true
		}

		if ft.Kind() == reflect.Struct && embeds(ft, target, seen) {
			return true
		}
	}

	return false
}

// Upcast returns the parent view of v, a pointer to a struct embedding the
// struct behind parent: the address of the embedded value, or the embedded
// pointer itself. It reports false when parent is not embedded or the path
// crosses a nil pointer.
func Upcast(v reflect.Value, parent reflect.Type) (reflect.Value, bool) {
	if !Embeds(v.Type(), parent) || v.IsNil() {
		return reflect.Value{}, false
	}

	return upcast(v.Elem(), parent, make(map[reflect.Type]bool))
}

func upcast(s reflect.Value, parent reflect.Type, seen map[reflect.Type]bool) (reflect.Value, bool) {
	if seen[s.Type()] {
		return reflect.Value{}, false
	}
	seen[s.Type()] = true

	for i := 0; i < s.NumField(); i++ {
		if !s.Type().Field(i).Anonymous {
			continue
		}

		// Unexported embeddings are read through their address so the
		// result can still be passed to a function.
		field := s.Field(i)
		switch {
		case field.Type() == parent.Elem():
			return reflect.NewAt(parent.Elem(), unsafe.Pointer(field.UnsafeAddr())), true
		case field.Type() == parent:
			if field.IsNil() {
				return reflect.Value{}, false
			}
			return reflect.NewAt(parent, unsafe.Pointer(field.UnsafeAddr())).Elem(), true
		case field.Kind() == reflect.Struct:
			if up, ok := upcast(field, parent, seen); ok {
				return up, true
			}
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct && !field.IsNil():
			if up, ok := upcast(field.Elem(), parent, seen); ok {
				return up, true
			}
		}
	}

	return reflect.Value{}, false
}
