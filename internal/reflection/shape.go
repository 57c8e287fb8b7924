package reflection

import "reflect"

// Shape classifies a requested type by how the resolver treats it.
type Shape int

const (
	// ShapeInvalid covers types that can never be a resolution target.
	ShapeInvalid Shape = iota

	// ShapeValue covers value kinds, strings and pointers to them; they resolve to their zero value.
	ShapeValue

	// ShapeInterface covers interface types.
	ShapeInterface

	// ShapeClass covers pointer-to-struct types.
	ShapeClass

	// ShapeSlice covers slice types, the only supported multi-instance shape.
	ShapeSlice

	// ShapeCollection covers every other enumerable shape: arrays, maps, channels and iterators.
	ShapeCollection

	// ShapeFunc covers function types.
	ShapeFunc
)

// String returns the string representation of the Shape.
func (s Shape) String() string {
	switch s {
	case ShapeValue:
		return "value"
	case ShapeInterface:
		return "interface"
	case ShapeClass:
		return "class"
	case ShapeSlice:
		return "slice"
	case ShapeCollection:
		return "collection"
	case ShapeFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Classify returns the Shape of t.
func Classify(t reflect.Type) Shape {
	if t == nil {
		return ShapeInvalid
	}

	switch t.Kind() {
	case reflect.Interface:
		return ShapeInterface
	case reflect.Slice:
		return ShapeSlice
	case reflect.Array, reflect.Map, reflect.Chan:
		return ShapeCollection
	case reflect.Func:
		if IsIterator(t) {
			return ShapeCollection
		}
		return ShapeFunc
	case reflect.Pointer:
		elem := t.Elem()
		if elem.Kind() == reflect.Struct {
			return ShapeClass
		}
		if isBasic(elem.Kind()) {
			// Nullable value
			return ShapeValue
		}
		return ShapeInvalid
	case reflect.Struct:
		return ShapeValue
	default:
		if isBasic(t.Kind()) {
			return ShapeValue
		}
		return ShapeInvalid
	}
}

// IsClass reports whether t is a pointer-to-struct type.
func IsClass(t reflect.Type) bool {
	return Classify(t) == ShapeClass
}

// IsIterator reports whether t is an iter.Seq or iter.Seq2 instantiation.
func IsIterator(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.PkgPath() != "iter" {
		return false
	}

	name := t.Name()
	return len(name) >= 3 && name[:3] == "Seq"
}

func isBasic(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return true
	}
	return false
}
