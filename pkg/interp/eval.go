package interp

import (
	"math"
	"strings"

	"blackbox/pkg/compiler"
)

// eval evaluates e in frame c of env.
func eval(env *Environment, c *call, e compiler.Expr) (Value, error) {
	switch e := e.(type) {
	case *compiler.Literal:
		return evalLiteral(env, c, e)
	case *compiler.Identifier:
		return lookup(env, c, e.Name, e.Line)
	case *compiler.BinaryExpr:
		return evalBinary(env, c, e)
	case *compiler.PrefixExpr:
		return evalPrefix(env, c, e)
	case *compiler.SuffixExpr:
		p, err := lvalue(env, c, e.Operand)
		if err != nil {
			return nil, err
		}
		old := p.get()
		delta := int64(1)
		if e.Op == "--" {
			delta = -1
		}
		next, err := arith("+", old, delta, e.Line)
		if err != nil {
			return nil, err
		}
		return old, p.set(next)
	case *compiler.IndexExpr:
		p, err := index(env, c, e)
		if err != nil {
			return nil, err
		}
		return p.get(), nil
	case *compiler.CallExpr:
		return evalCall(env, c, e)
	case *compiler.CastExpr:
		v, err := eval(env, c, e.Value)
		if err != nil {
			return nil, err
		}
		return env.coerce(e.Target, v, e.Line)
	}
	return nil, runtimeErr(e.Pos(), "unsupported expression %s", e)
}

func evalLiteral(env *Environment, c *call, l *compiler.Literal) (Value, error) {
	switch l.Kind {
	case compiler.FloatLit:
		return l.Float, nil
	case compiler.StringLit:
		return l.Str, nil
	case compiler.ArrayLit:
		arr := &Array{Elems: make([]Value, len(l.Elems))}
		for i, x := range l.Elems {
			v, err := eval(env, c, x)
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = v
		}
		return arr, nil
	}
	return l.Int, nil
}

// lookup resolves a bare name: local, constant, function, builtin, global.
func lookup(env *Environment, c *call, name string, line int) (Value, error) {
	if v := c.local(name); v != nil {
		return v.Value, nil
	}
	if v, ok := c.constant(env, name); ok {
		return v, nil
	}
	if fn, ok := env.funcs[name]; ok {
		return fn, nil
	}
	if b, ok := env.builtins[name]; ok {
		return b, nil
	}
	if g, ok := env.globals[name]; ok {
		return g.Value, nil
	}
	return nil, runtimeErr(line, "undefined identifier %s", name)
}

func evalBinary(env *Environment, c *call, e *compiler.BinaryExpr) (Value, error) {
	switch {
	case compiler.IsAssignment(e.Op):
		return assign(env, c, e)
	case e.Op == "?":
		alt, ok := e.Right.(*compiler.BinaryExpr)
		if !ok || alt.Op != ":" {
			return nil, runtimeErr(e.Line, "malformed conditional expression")
		}
		cond, err := eval(env, c, e.Left)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return eval(env, c, alt.Left)
		}
		return eval(env, c, alt.Right)
	case e.Op == "&&" || e.Op == "||":
		l, err := eval(env, c, e.Left)
		if err != nil {
			return nil, err
		}
		if truthy(l) == (e.Op == "||") {
			return boolValue(e.Op == "||"), nil
		}
		r, err := eval(env, c, e.Right)
		if err != nil {
			return nil, err
		}
		return boolValue(truthy(r)), nil
	case e.Op == "." || e.Op == "->":
		p, err := member(env, c, e)
		if err != nil {
			return nil, err
		}
		return p.get(), nil
	}
	l, err := eval(env, c, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := eval(env, c, e.Right)
	if err != nil {
		return nil, err
	}
	return arith(e.Op, l, r, e.Line)
}

func assign(env *Environment, c *call, e *compiler.BinaryExpr) (Value, error) {
	p, err := lvalue(env, c, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := eval(env, c, e.Right)
	if err != nil {
		return nil, err
	}
	if e.Op != "=" {
		if r, err = arith(strings.TrimSuffix(e.Op, "="), p.get(), r, e.Line); err != nil {
			return nil, err
		}
	} else if rec, ok := r.(*Record); ok {
		r = rec.clone()
	}
	if err := p.set(r); err != nil {
		return nil, err
	}
	return p.get(), nil
}

func evalPrefix(env *Environment, c *call, e *compiler.PrefixExpr) (Value, error) {
	switch e.Op {
	case "sizeof":
		if ct, ok := e.Operand.(*compiler.CastExpr); ok && ct.Value == nil {
			return env.sizeOf(c, ct.Target, e.Line)
		}
		if id, ok := e.Operand.(*compiler.Identifier); ok {
			v := c.local(id.Name)
			if v == nil {
				v = env.globals[id.Name]
			}
			if v != nil {
				return env.sizeOfVar(c, v, e.Line)
			}
		}
		v, err := eval(env, c, e.Operand)
		if err != nil {
			return nil, err
		}
		return sizeOfValue(v), nil
	case "&":
		p, err := lvalue(env, c, e.Operand)
		if err != nil {
			return nil, err
		}
		return p.addr(e.Line)
	case "*":
		p, err := deref(env, c, e.Operand, e.Line)
		if err != nil {
			return nil, err
		}
		return p.get(), nil
	case "++", "--":
		p, err := lvalue(env, c, e.Operand)
		if err != nil {
			return nil, err
		}
		next, err := arith(e.Op[:1], p.get(), int64(1), e.Line)
		if err != nil {
			return nil, err
		}
		if err := p.set(next); err != nil {
			return nil, err
		}
		return p.get(), nil
	}

	v, err := eval(env, c, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return boolValue(!truthy(v)), nil
	case "~":
		n, ok := toInt(v)
		if !ok {
			return nil, runtimeErr(e.Line, "cannot apply ~ to %s", typeName(v))
		}
		return ^n, nil
	case "-":
		return arith("-", int64(0), v, e.Line)
	case "+":
		if _, ok := toFloat(v); !ok {
			return nil, runtimeErr(e.Line, "cannot apply + to %s", typeName(v))
		}
		return v, nil
	}
	return nil, runtimeErr(e.Line, "unknown operator %s", e.Op)
}

func sizeOfValue(v Value) int64 {
	switch v := v.(type) {
	case float64:
		return 8
	case string:
		return int64(len(v) + 1)
	case *Array:
		return int64(len(v.Elems)) * 4
	}
	return 4
}

func evalCall(env *Environment, c *call, e *compiler.CallExpr) (Value, error) {
	callee, err := eval(env, c, e.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		if args[i], err = eval(env, c, a); err != nil {
			return nil, err
		}
	}
	switch fn := callee.(type) {
	case *Function:
		return callFunction(env, c, fn, args, e.Line)
	case *Builtin:
		return fn.fn(env, c, args, e.Line)
	case *Method:
		return callMethod(env, c, fn, args, e.Line)
	}
	return nil, runtimeErr(e.Line, "%s is not callable", e.Callee)
}

// arith applies a binary operator. Integers stay int64 until stored; a
// float operand makes the result float.
func arith(op string, l, r Value, line int) (Value, error) {
	if p, ok := l.(*Pointer); ok {
		return pointerArith(op, p, r, line)
	}
	if arr, ok := l.(*Array); ok && (op == "+" || op == "-") {
		return pointerArith(op, &Pointer{Arr: arr}, r, line)
	}
	switch op {
	case "==":
		return boolValue(equal(l, r)), nil
	case "!=":
		return boolValue(!equal(l, r)), nil
	}

	_, lf := l.(float64)
	_, rf := r.(float64)
	if lf || rf {
		a, okA := toFloat(l)
		b, okB := toFloat(r)
		if !okA || !okB {
			return nil, runtimeErr(line, "invalid operands to %s: %s and %s", op, typeName(l), typeName(r))
		}
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		case "%":
			return math.Mod(a, b), nil
		case "<":
			return boolValue(a < b), nil
		case "<=":
			return boolValue(a <= b), nil
		case ">":
			return boolValue(a > b), nil
		case ">=":
			return boolValue(a >= b), nil
		}
	}

	a, okA := toInt(l)
	b, okB := toInt(r)
	if !okA || !okB {
		return nil, runtimeErr(line, "invalid operands to %s: %s and %s", op, typeName(l), typeName(r))
	}
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, runtimeErr(line, "division by zero")
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return nil, runtimeErr(line, "division by zero")
		}
		return a % b, nil
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "<<":
		return a << uint64(b&63), nil
	case ">>":
		return a >> uint64(b&63), nil
	case "<":
		return boolValue(a < b), nil
	case "<=":
		return boolValue(a <= b), nil
	case ">":
		return boolValue(a > b), nil
	case ">=":
		return boolValue(a >= b), nil
	}
	return nil, runtimeErr(line, "unknown operator %s", op)
}

func pointerArith(op string, p *Pointer, r Value, line int) (Value, error) {
	if q, ok := r.(*Pointer); ok {
		switch op {
		case "-":
			if p.Arr == nil || p.Arr != q.Arr {
				return nil, runtimeErr(line, "subtracting unrelated pointers")
			}
			return int64(p.Index - q.Index), nil
		case "==", "!=":
			return boolValue(equal(p, q) == (op == "==")), nil
		}
	}
	switch op {
	case "==", "!=":
		return boolValue(equal(p, r) == (op == "==")), nil
	case "+", "-":
		n, ok := toInt(r)
		if !ok || p.Arr == nil {
			return nil, runtimeErr(line, "invalid pointer arithmetic")
		}
		if op == "-" {
			n = -n
		}
		return &Pointer{Arr: p.Arr, Index: p.Index + int(n)}, nil
	}
	return nil, runtimeErr(line, "invalid operator %s on a pointer", op)
}

func equal(l, r Value) bool {
	lp, lok := l.(*Pointer)
	rp, rok := r.(*Pointer)
	switch {
	case lok && rok:
		return lp.Arr == rp.Arr && lp.Index == rp.Index && lp.Var == rp.Var
	case lok || rok:
		// A live pointer never equals an integer, NULL included.
		return false
	}
	if a, ok := toFloat(l); ok {
		if b, ok := toFloat(r); ok {
			return a == b
		}
	}
	if l == nil || r == nil {
		n, ok := toInt(l)
		m, ok2 := toInt(r)
		return ok && ok2 && n == m
	}
	if ls, ok := l.(string); ok {
		rs, ok := r.(string)
		return ok && ls == rs
	}
	return l == r
}
