package interp

import (
	"fmt"
	"math"

	"blackbox/pkg/compiler"
)

// intKind describes how a C integer type wraps.
type intKind struct {
	bits     uint
	unsigned bool
}

// integerKind classifies a named type after typedef resolution. ok is false
// for non-integer types.
func integerKind(nt *compiler.NamedType) (intKind, bool) {
	unsigned := nt.Has("unsigned")
	switch nt.Name {
	case "char":
		return intKind{8, unsigned}, true
	case "short":
		return intKind{16, unsigned}, true
	case "int", "signed", "unsigned":
		switch {
		case nt.Has("short"):
			return intKind{16, unsigned}, true
		case nt.Has("long") && countMod(nt, "long") > 1:
			return intKind{64, unsigned}, true
		}
		return intKind{32, unsigned}, true
	case "long":
		if nt.Has("long") {
			return intKind{64, unsigned}, true
		}
		return intKind{32, unsigned}, true
	case "int8_t":
		return intKind{8, false}, true
	case "uint8_t":
		return intKind{8, true}, true
	case "int16_t":
		return intKind{16, false}, true
	case "uint16_t":
		return intKind{16, true}, true
	case "int32_t":
		return intKind{32, false}, true
	case "uint32_t", "size_t":
		return intKind{32, true}, true
	case "int64_t", "uint64_t":
		return intKind{64, nt.Name == "uint64_t"}, true
	}
	if nt.Has("enum") {
		return intKind{32, false}, true
	}
	return intKind{}, false
}

func countMod(nt *compiler.NamedType, m string) int {
	n := 0
	for _, mod := range nt.Modifiers {
		if mod == m {
			n++
		}
	}
	return n
}

func wrap(n int64, k intKind) int64 {
	if k.bits >= 64 {
		return n
	}
	mask := int64(1)<<k.bits - 1
	n &= mask
	if !k.unsigned && n&(int64(1)<<(k.bits-1)) != 0 {
		n -= int64(1) << k.bits
	}
	return n
}

// coerce converts v for storage in a slot of type t.
func (e *Environment) coerce(t compiler.Type, v Value, line int) (Value, error) {
	rt := e.resolveType(t)
	if pt, ok := rt.(*compiler.PointerType); ok {
		if arr, isArr := v.(*Array); isArr && !pt.Array {
			return &Pointer{Arr: arr}, nil
		}
		return v, nil
	}
	nt, ok := rt.(*compiler.NamedType)
	if !ok {
		return v, nil
	}
	switch nt.Name {
	case "void":
		return nil, nil
	case "bool":
		return boolValue(truthy(v)), nil
	case "float", "double":
		f, ok := toFloat(v)
		if !ok {
			return nil, runtimeErr(line, "cannot convert %s to %s", typeName(v), nt.Name)
		}
		if nt.Name == "float" {
			f = float64(float32(f))
		}
		return f, nil
	}
	if k, ok := e.intKindOf(nt); ok {
		if f, isFloat := v.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return int64(0), nil
		}
		n, ok := toInt(v)
		if !ok {
			// Pointers and device objects may sit in integer slots.
			return v, nil
		}
		return wrap(n, k), nil
	}
	if _, ok := e.structs[nt.Name]; ok {
		if _, isRec := v.(*Record); !isRec && v != nil {
			return nil, runtimeErr(line, "cannot convert %s to struct %s", typeName(v), nt.Name)
		}
	}
	return v, nil
}

func (e *Environment) intKindOf(nt *compiler.NamedType) (intKind, bool) {
	if k, ok := integerKind(nt); ok {
		return k, true
	}
	if e.enums[nt.Name] {
		return intKind{32, false}, true
	}
	return intKind{}, false
}

// zero returns the initial value of a slot of type t. Array lengths are
// evaluated in c.
func (e *Environment) zero(c *call, t compiler.Type, line int) (Value, error) {
	switch rt := e.resolveType(t).(type) {
	case *compiler.PointerType:
		if !rt.Array {
			return nil, nil
		}
		if rt.Length == nil {
			return &Array{Elem: rt.Target}, nil
		}
		n, err := e.arrayLength(c, rt, line)
		if err != nil {
			return nil, err
		}
		arr := &Array{Elems: make([]Value, n), Elem: rt.Target}
		for i := range arr.Elems {
			if arr.Elems[i], err = e.zero(c, rt.Target, line); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case *compiler.NamedType:
		if def, ok := e.structs[rt.Name]; ok {
			rec := &Record{Type: def.Name, Fields: make(map[string]*Var, len(def.Members))}
			for _, m := range def.Members {
				zv, err := e.zero(c, m.Type, line)
				if err != nil {
					return nil, err
				}
				rec.Fields[m.Name] = &Var{Type: m.Type, Value: zv}
				rec.Order = append(rec.Order, m.Name)
			}
			return rec, nil
		}
		switch rt.Name {
		case "float", "double":
			return float64(0), nil
		case "void":
			return nil, nil
		}
		if _, ok := e.intKindOf(rt); ok || rt.Name == "bool" {
			return int64(0), nil
		}
	}
	return nil, nil
}

func (e *Environment) arrayLength(c *call, t *compiler.PointerType, line int) (int, error) {
	v, err := eval(e, c, t.Length)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok || n < 0 || n > 1<<20 {
		return 0, runtimeErr(line, "invalid array length %s", Format(v))
	}
	return int(n), nil
}

// sizeOf returns the size in bytes of a type on the device.
func (e *Environment) sizeOf(c *call, t compiler.Type, line int) (int64, error) {
	switch rt := e.resolveType(t).(type) {
	case *compiler.PointerType:
		if !rt.Array {
			return 4, nil
		}
		if rt.Length == nil {
			return 4, nil
		}
		n, err := e.arrayLength(c, rt, line)
		if err != nil {
			return 0, err
		}
		elem, err := e.sizeOf(c, rt.Target, line)
		return int64(n) * elem, err
	case *compiler.NamedType:
		if def, ok := e.structs[rt.Name]; ok {
			var total int64
			for _, m := range def.Members {
				s, err := e.sizeOf(c, m.Type, line)
				if err != nil {
					return 0, err
				}
				total += s
			}
			return total, nil
		}
		switch rt.Name {
		case "bool", "void":
			return 1, nil
		case "float":
			return 4, nil
		case "double":
			return 8, nil
		}
		if k, ok := e.intKindOf(rt); ok {
			return int64(k.bits / 8), nil
		}
		return 4, nil
	}
	return 0, fmt.Errorf("unknown type %v", t)
}

// sizeOfVar measures arrays by their actual length, so that `char s[] =
// "hi"` has size 3.
func (e *Environment) sizeOfVar(c *call, v *Var, line int) (int64, error) {
	if arr, ok := v.Value.(*Array); ok && arr.Elem != nil {
		elem, err := e.sizeOf(c, arr.Elem, line)
		return int64(len(arr.Elems)) * elem, err
	}
	return e.sizeOf(c, v.Type, line)
}
