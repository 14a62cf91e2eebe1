package interp

import (
	"fmt"
	"strconv"
	"strings"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
)

// Value is any runtime value: int64, float64, string, *Array, *Pointer,
// *Record, *Function, *Builtin, *Method, a device object, or nil for void.
type Value any

// Array is a fixed-size sequence. Elem is used to coerce stored values.
type Array struct {
	Elems []Value
	Elem  compiler.Type
}

func (a *Array) String() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = Format(e)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Pointer refers to an array element or to a single variable.
type Pointer struct {
	Arr   *Array
	Index int
	Var   *Var
}

func (p *Pointer) String() string {
	if p.Arr != nil {
		return fmt.Sprintf("&[%d]", p.Index)
	}
	return "&var"
}

// Record is an instance of a user struct.
type Record struct {
	Type   string
	Fields map[string]*Var
	Order  []string
}

func (r *Record) String() string {
	parts := make([]string, len(r.Order))
	for i, name := range r.Order {
		parts[i] = name + ": " + Format(r.Fields[name].Value)
	}
	return fmt.Sprintf("%s{%s}", r.Type, strings.Join(parts, ", "))
}

// Function is a bound user function. Consts are the #define values known
// where the function was defined.
type Function struct {
	Decl   *compiler.FunctionDecl
	consts map[string]Value
}

func (f *Function) Name() string   { return f.Decl.Name }
func (f *Function) String() string { return f.Decl.Name + "()" }

// Builtin is a runtime-provided function.
type Builtin struct {
	Name string
	fn   func(env *Environment, c *call, args []Value, line int) (Value, error)
}

func (b *Builtin) String() string { return b.Name + "()" }

// Method is a device method bound to its receiver.
type Method struct {
	Recv Value
	Name string
}

func (m *Method) String() string { return fmt.Sprintf("%s.%s()", typeName(m.Recv), m.Name) }

// Var is a typed storage slot. Stores are coerced to Type.
type Var struct {
	Type  compiler.Type
	Value Value
}

func truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case int64:
		return v != 0
	case float64:
		return v != 0
	case *Pointer:
		return v != nil
	}
	return true
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// toInt converts numeric values to int64.
func toInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case nil:
		return 0, true
	}
	return 0, false
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Format renders a value the way debug output shows it.
func Format(v Value) string {
	switch v := v.(type) {
	case nil:
		return "void"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return typeName(v)
}

func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "void"
	case int64:
		return "int"
	case float64:
		return "double"
	case string:
		return "string"
	case *Array:
		return "array"
	case *Pointer:
		return "pointer"
	case *Record:
		return "struct"
	case *Function, *Builtin, *Method:
		return "function"
	case *devices.BlackBox:
		return "BlackBox"
	case *devices.Matrix:
		return "Matrix"
	case devices.Pixel:
		return "Pixel"
	case devices.Slice:
		return "Slice"
	case *devices.Piezo:
		return "Piezo"
	}
	return fmt.Sprintf("%T", v)
}

// cString returns the text of a string or a NUL-terminated char array.
func cString(v Value) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case *Array:
		return arrayString(v, 0), true
	case *Pointer:
		if v.Arr != nil {
			return arrayString(v.Arr, v.Index), true
		}
	}
	return "", false
}

func arrayString(a *Array, from int) string {
	var sb strings.Builder
	for i := from; i < len(a.Elems); i++ {
		n, ok := toInt(a.Elems[i])
		if !ok || n == 0 {
			break
		}
		sb.WriteByte(byte(n))
	}
	return sb.String()
}
