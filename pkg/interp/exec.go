package interp

import (
	"fmt"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
)

// Sleeper suspends the running task. Sleep returns an error when the run
// is stopped while the task is parked.
type Sleeper interface {
	Sleep(d time.Duration) error
}

const (
	// DefaultStepBudget is how many statements a task may execute between
	// two sleeps before it is considered stuck.
	DefaultStepBudget = 1_000_000

	maxDepth = 256
)

type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

// thread is the state shared by all frames of one task.
type thread struct {
	sl     Sleeper
	steps  int
	budget int
	depth  int
}

// call is one function activation. consts is nil at file scope, where the
// environment's constants are used directly.
type call struct {
	th     *thread
	fn     *Function
	consts map[string]Value
	scopes []map[string]*Var
}

func (c *call) push() { c.scopes = append(c.scopes, make(map[string]*Var)) }
func (c *call) pop()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *call) local(name string) *Var {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

func (c *call) declare(name string, v *Var) {
	c.scopes[len(c.scopes)-1][name] = v
}

func (c *call) constant(env *Environment, name string) (Value, bool) {
	consts := c.consts
	if consts == nil {
		consts = env.consts
	}
	if v, ok := consts[name]; ok {
		return v, true
	}
	v, ok := headerConsts[name]
	return v, ok
}

func (c *call) tick(line int) error {
	c.th.steps++
	if c.th.budget > 0 && c.th.steps > c.th.budget {
		return runtimeErr(line, "ran %d statements without sleeping", c.th.budget)
	}
	return nil
}

func exec(env *Environment, c *call, s compiler.Stmt) (ctrl, Value, error) {
	if err := c.tick(s.Pos()); err != nil {
		return ctrlNone, nil, err
	}
	switch s := s.(type) {
	case *compiler.ExprStmt:
		_, err := eval(env, c, s.X)
		return ctrlNone, nil, err
	case *compiler.VarDecl:
		v, err := env.newVar(c, s.Type, s.Init, s.Line)
		if err != nil {
			return ctrlNone, nil, err
		}
		c.declare(s.Name, v)
		return ctrlNone, nil, nil
	case *compiler.BlockStmt:
		return execBlock(env, c, s.Body)
	case *compiler.IfStmt:
		cond, err := eval(env, c, s.Cond)
		if err != nil {
			return ctrlNone, nil, err
		}
		if truthy(cond) {
			return execBlock(env, c, s.Then)
		}
		return execBlock(env, c, s.Else)
	case *compiler.WhileStmt:
		for {
			cond, err := eval(env, c, s.Cond)
			if err != nil || !truthy(cond) {
				return ctrlNone, nil, err
			}
			if done, k, v, err := loopBody(env, c, s.Body, s.Line); done {
				return k, v, err
			}
		}
	case *compiler.DoWhileStmt:
		for {
			if done, k, v, err := loopBody(env, c, s.Body, s.Line); done {
				return k, v, err
			}
			cond, err := eval(env, c, s.Cond)
			if err != nil || !truthy(cond) {
				return ctrlNone, nil, err
			}
		}
	case *compiler.ForStmt:
		c.push()
		defer c.pop()
		if s.Init != nil {
			if _, _, err := exec(env, c, s.Init); err != nil {
				return ctrlNone, nil, err
			}
		}
		for {
			if s.Cond != nil {
				cond, err := eval(env, c, s.Cond)
				if err != nil || !truthy(cond) {
					return ctrlNone, nil, err
				}
			}
			if done, k, v, err := loopBody(env, c, s.Body, s.Line); done {
				return k, v, err
			}
			if s.Step != nil {
				if _, err := eval(env, c, s.Step); err != nil {
					return ctrlNone, nil, err
				}
			}
		}
	case *compiler.ReturnStmt:
		if s.Value == nil {
			return ctrlReturn, nil, nil
		}
		v, err := eval(env, c, s.Value)
		return ctrlReturn, v, err
	case *compiler.BreakStmt:
		return ctrlBreak, nil, nil
	case *compiler.ContinueStmt:
		return ctrlContinue, nil, nil
	}
	return ctrlNone, nil, runtimeErr(s.Pos(), "unsupported statement %s", s)
}

// loopBody runs one iteration, which counts against the statement budget
// even when the body is empty. done is true when the loop must end.
func loopBody(env *Environment, c *call, body []compiler.Stmt, line int) (done bool, k ctrl, v Value, err error) {
	if err := c.tick(line); err != nil {
		return true, ctrlNone, nil, err
	}
	k, v, err = execBlock(env, c, body)
	switch {
	case err != nil:
		return true, ctrlNone, nil, err
	case k == ctrlBreak:
		return true, ctrlNone, nil, nil
	case k == ctrlReturn:
		return true, k, v, nil
	}
	return false, ctrlNone, nil, nil
}

func execBlock(env *Environment, c *call, body []compiler.Stmt) (ctrl, Value, error) {
	c.push()
	defer c.pop()
	for _, s := range body {
		k, v, err := exec(env, c, s)
		if err != nil || k != ctrlNone {
			return k, v, err
		}
	}
	return ctrlNone, nil, nil
}

// newVar allocates a slot of type t and runs its initializer in c.
func (e *Environment) newVar(c *call, t compiler.Type, init compiler.Expr, line int) (*Var, error) {
	if lit, ok := init.(*compiler.Literal); ok {
		if pt, isArr := e.resolveType(t).(*compiler.PointerType); isArr && pt.Array {
			arr, err := e.arrayInit(c, pt, lit, line)
			if err != nil {
				return nil, err
			}
			return &Var{Type: t, Value: arr}, nil
		}
	}
	v, err := e.zero(c, t, line)
	if err != nil {
		return nil, err
	}
	slot := &Var{Type: t, Value: v}
	if init == nil {
		return slot, nil
	}
	iv, err := eval(e, c, init)
	if err != nil {
		return nil, err
	}
	if rec, ok := iv.(*Record); ok {
		iv = rec.clone()
	}
	if slot.Value, err = e.coerce(t, iv, line); err != nil {
		return nil, err
	}
	return slot, nil
}

// arrayInit builds an array from {a, b, c} or, for char arrays, from a
// string literal plus its terminating NUL. A declared length wins over the
// literal's; missing elements are zero.
func (e *Environment) arrayInit(c *call, t *compiler.PointerType, lit *compiler.Literal, line int) (*Array, error) {
	var elems []Value
	switch lit.Kind {
	case compiler.ArrayLit:
		for _, x := range lit.Elems {
			v, err := eval(e, c, x)
			if err != nil {
				return nil, err
			}
			if v, err = e.coerce(t.Target, v, line); err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	case compiler.StringLit:
		for i := 0; i < len(lit.Str); i++ {
			elems = append(elems, int64(lit.Str[i]))
		}
		elems = append(elems, int64(0))
	default:
		return nil, runtimeErr(line, "cannot initialize an array from %s", lit)
	}

	n := len(elems)
	if t.Length != nil {
		var err error
		if n, err = e.arrayLength(c, t, line); err != nil {
			return nil, err
		}
	}
	arr := &Array{Elems: make([]Value, n), Elem: t.Target}
	for i := range arr.Elems {
		if i < len(elems) {
			arr.Elems[i] = elems[i]
			continue
		}
		zv, err := e.zero(c, t.Target, line)
		if err != nil {
			return nil, err
		}
		arr.Elems[i] = zv
	}
	return arr, nil
}

func (r *Record) clone() *Record {
	out := &Record{Type: r.Type, Fields: make(map[string]*Var, len(r.Fields)), Order: r.Order}
	for name, f := range r.Fields {
		v := f.Value
		if inner, ok := v.(*Record); ok {
			v = inner.clone()
		}
		out.Fields[name] = &Var{Type: f.Type, Value: v}
	}
	return out
}

// callFunction runs fn with args in a fresh frame on the caller's thread.
func callFunction(env *Environment, c *call, fn *Function, args []Value, line int) (Value, error) {
	decl := fn.Decl
	if decl.Body == nil {
		return nil, runtimeErr(line, "function %s is declared but never defined", decl.Name)
	}
	if len(args) != len(decl.Params) {
		return nil, runtimeErr(line, "function %s expects %d arguments, got %d", decl.Name, len(decl.Params), len(args))
	}
	if c.th.depth >= maxDepth {
		return nil, runtimeErr(line, "call depth exceeds %d in %s", maxDepth, decl.Name)
	}
	c.th.depth++
	defer func() { c.th.depth-- }()

	frame := &call{th: c.th, fn: fn, consts: fn.consts, scopes: []map[string]*Var{{}}}
	for i, p := range decl.Params {
		v := args[i]
		if rec, ok := v.(*Record); ok {
			v = rec.clone()
		}
		v, err := env.coerce(p.Type, v, line)
		if err != nil {
			return nil, err
		}
		frame.declare(p.Name, &Var{Type: p.Type, Value: v})
	}
	for _, s := range decl.Body {
		k, v, err := exec(env, frame, s)
		if err != nil {
			return nil, err
		}
		if k == ctrlReturn {
			if decl.Void() {
				return nil, nil
			}
			return env.coerce(decl.ReturnType, v, line)
		}
	}
	if decl.Void() {
		return nil, nil
	}
	return env.zero(frame, decl.ReturnType, line)
}

// Interpreter runs one bound program. The frame of main survives between
// iterations of its trailing loop so that main's locals persist.
type Interpreter struct {
	env   *Environment
	shape *compiler.Shape

	// StepBudget bounds the statements a task runs between sleeps; zero
	// disables the check.
	StepBudget int

	main *call
}

func New(env *Environment, shape *compiler.Shape) *Interpreter {
	return &Interpreter{env: env, shape: shape, StepBudget: DefaultStepBudget}
}

func (in *Interpreter) Env() *Environment { return in.env }

func (in *Interpreter) thread(sl Sleeper) *thread {
	return &thread{sl: sl, budget: in.StepBudget}
}

// Prologue runs the statements of main that precede its trailing loop.
// done is true when main returned before reaching the loop.
func (in *Interpreter) Prologue(sl Sleeper) (done bool, err error) {
	defer recoverRuntime(&err)
	fn, ok := in.env.funcs["main"]
	if !ok || fn.Decl.Body == nil {
		return true, runtimeErr(0, "function main is not defined")
	}
	in.main = &call{th: in.thread(sl), fn: fn, consts: fn.consts, scopes: []map[string]*Var{{}}}
	body := fn.Decl.Body
	for _, s := range body[:len(body)-1] {
		k, _, err := exec(in.env, in.main, s)
		if err != nil {
			return true, err
		}
		if k == ctrlReturn {
			return true, nil
		}
	}
	return false, nil
}

// Step runs one iteration of main's trailing loop. more is false once the
// loop has ended through break, return or a false condition.
func (in *Interpreter) Step(sl Sleeper) (more bool, err error) {
	defer recoverRuntime(&err)
	if in.main == nil {
		return false, runtimeErr(0, "main has not started")
	}
	c := in.main
	c.th = in.thread(sl)
	loop := in.shape.Loop
	cond, err := eval(in.env, c, loop.Cond)
	if err != nil || !truthy(cond) {
		return false, err
	}
	k, _, err := execBlock(in.env, c, loop.Body)
	if err != nil {
		return false, err
	}
	return k != ctrlBreak && k != ctrlReturn, nil
}

// Invoke runs a callback taken from a device slot.
func (in *Interpreter) Invoke(sl Sleeper, cb devices.Callback) (err error) {
	defer recoverRuntime(&err)
	fn, ok := cb.(*Function)
	if !ok {
		return runtimeErr(0, "callback %s is not a function", cb.Name())
	}
	c := &call{th: in.thread(sl)}
	_, err = callFunction(in.env, c, fn, nil, fn.Decl.Line)
	return err
}

// Call runs the named user function or builtin.
func (in *Interpreter) Call(sl Sleeper, name string, args ...Value) (v Value, err error) {
	defer recoverRuntime(&err)
	c := &call{th: in.thread(sl)}
	if fn, ok := in.env.funcs[name]; ok {
		return callFunction(in.env, c, fn, args, 0)
	}
	if b, ok := in.env.builtins[name]; ok {
		return b.fn(in.env, c, args, 0)
	}
	return nil, runtimeErr(0, "undefined function %s", name)
}

func recoverRuntime(err *error) {
	if r := recover(); r != nil {
		*err = &RuntimeError{Msg: fmt.Sprintf("internal error: %v", r)}
	}
}
