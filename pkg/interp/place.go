package interp

import "blackbox/pkg/compiler"

// place is an assignable location.
type place interface {
	get() Value
	set(v Value) error
	addr(line int) (Value, error)
}

type varPlace struct {
	env  *Environment
	v    *Var
	line int
}

func (p varPlace) get() Value { return p.v.Value }

func (p varPlace) set(v Value) error {
	cv, err := p.env.coerce(p.v.Type, v, p.line)
	if err != nil {
		return err
	}
	p.v.Value = cv
	return nil
}

func (p varPlace) addr(int) (Value, error) {
	if arr, ok := p.v.Value.(*Array); ok {
		return &Pointer{Arr: arr}, nil
	}
	return &Pointer{Var: p.v}, nil
}

type elemPlace struct {
	env  *Environment
	arr  *Array
	i    int
	line int
}

func (p elemPlace) get() Value { return p.arr.Elems[p.i] }

func (p elemPlace) set(v Value) error {
	if p.arr.Elem != nil {
		var err error
		if v, err = p.env.coerce(p.arr.Elem, v, p.line); err != nil {
			return err
		}
	}
	p.arr.Elems[p.i] = v
	return nil
}

func (p elemPlace) addr(int) (Value, error) {
	return &Pointer{Arr: p.arr, Index: p.i}, nil
}

// constPlace is a readable location that cannot be written, such as a
// character of a string literal.
type constPlace struct {
	v    Value
	what string
	line int
}

func (p constPlace) get() Value { return p.v }

func (p constPlace) set(Value) error {
	return runtimeErr(p.line, "cannot assign to %s", p.what)
}

func (p constPlace) addr(line int) (Value, error) {
	return nil, runtimeErr(line, "cannot take the address of %s", p.what)
}

type devicePlace struct {
	env  *Environment
	recv Value
	name string
	line int
}

func (p devicePlace) get() Value {
	v, _ := deviceMember(p.recv, p.name, p.line)
	return v
}

func (p devicePlace) set(v Value) error {
	return setDeviceMember(p.recv, p.name, v, p.line)
}

func (p devicePlace) addr(line int) (Value, error) {
	return nil, runtimeErr(line, "cannot take the address of %s.%s", typeName(p.recv), p.name)
}

// lvalue resolves e to an assignable location.
func lvalue(env *Environment, c *call, e compiler.Expr) (place, error) {
	switch e := e.(type) {
	case *compiler.Identifier:
		if v := c.local(e.Name); v != nil {
			return varPlace{env, v, e.Line}, nil
		}
		if _, ok := c.constant(env, e.Name); ok {
			return nil, runtimeErr(e.Line, "cannot assign to constant %s", e.Name)
		}
		if _, ok := env.funcs[e.Name]; ok {
			return nil, runtimeErr(e.Line, "cannot assign to function %s", e.Name)
		}
		if _, ok := env.builtins[e.Name]; ok {
			return nil, runtimeErr(e.Line, "cannot assign to function %s", e.Name)
		}
		if g, ok := env.globals[e.Name]; ok {
			return varPlace{env, g, e.Line}, nil
		}
		return nil, runtimeErr(e.Line, "undefined identifier %s", e.Name)
	case *compiler.IndexExpr:
		return index(env, c, e)
	case *compiler.BinaryExpr:
		if e.Op == "." || e.Op == "->" {
			return member(env, c, e)
		}
	case *compiler.PrefixExpr:
		if e.Op == "*" {
			return deref(env, c, e.Operand, e.Line)
		}
	}
	return nil, runtimeErr(e.Pos(), "%s is not assignable", e)
}

func elemAt(env *Environment, arr *Array, i int64, line int) (place, error) {
	if i < 0 || i >= int64(len(arr.Elems)) {
		return nil, runtimeErr(line, "index %d out of range [0, %d)", i, len(arr.Elems))
	}
	return elemPlace{env, arr, int(i), line}, nil
}

func stringAt(s string, i int64, line int) (place, error) {
	if i < 0 || i > int64(len(s)) {
		return nil, runtimeErr(line, "index %d out of range [0, %d]", i, len(s))
	}
	var ch int64
	if i < int64(len(s)) {
		ch = int64(s[i])
	}
	return constPlace{ch, "a string literal", line}, nil
}

func index(env *Environment, c *call, e *compiler.IndexExpr) (place, error) {
	base, err := eval(env, c, e.Base)
	if err != nil {
		return nil, err
	}
	iv, err := eval(env, c, e.Index)
	if err != nil {
		return nil, err
	}
	i, ok := toInt(iv)
	if !ok {
		return nil, runtimeErr(e.Line, "array index must be an integer, got %s", typeName(iv))
	}
	switch b := base.(type) {
	case *Array:
		return elemAt(env, b, i, e.Line)
	case *Pointer:
		if b.Arr != nil {
			return elemAt(env, b.Arr, int64(b.Index)+i, e.Line)
		}
		if i != 0 {
			return nil, runtimeErr(e.Line, "index %d past a single variable", i)
		}
		return varPlace{env, b.Var, e.Line}, nil
	case string:
		return stringAt(b, i, e.Line)
	}
	return nil, runtimeErr(e.Line, "cannot index %s", typeName(base))
}

func member(env *Environment, c *call, e *compiler.BinaryExpr) (place, error) {
	id, ok := e.Right.(*compiler.Identifier)
	if !ok {
		return nil, runtimeErr(e.Line, "expected a member name after %s", e.Op)
	}
	base, err := eval(env, c, e.Left)
	if err != nil {
		return nil, err
	}
	if p, ok := base.(*Pointer); ok && p.Var != nil {
		base = p.Var.Value
	}
	switch b := base.(type) {
	case nil:
		return nil, runtimeErr(e.Line, "member %s of a null value", id.Name)
	case *Record:
		f, ok := b.Fields[id.Name]
		if !ok {
			return nil, runtimeErr(e.Line, "struct %s has no member %s", b.Type, id.Name)
		}
		return varPlace{env, f, e.Line}, nil
	}
	if _, err := deviceMember(base, id.Name, e.Line); err != nil {
		return nil, err
	}
	return devicePlace{env, base, id.Name, e.Line}, nil
}

func deref(env *Environment, c *call, operand compiler.Expr, line int) (place, error) {
	v, err := eval(env, c, operand)
	if err != nil {
		return nil, err
	}
	switch p := v.(type) {
	case *Pointer:
		if p.Arr != nil {
			return elemAt(env, p.Arr, int64(p.Index), line)
		}
		return varPlace{env, p.Var, line}, nil
	case *Array:
		return elemAt(env, p, 0, line)
	case string:
		return stringAt(p, 0, line)
	case nil, int64:
		return nil, runtimeErr(line, "null pointer dereference")
	}
	return nil, runtimeErr(line, "cannot dereference %s", typeName(v))
}
