// Package interp binds a parsed program to an environment and runs it by
// walking the syntax tree. Every evaluation step takes the environment and
// the current frame explicitly; a task suspends only inside sleep.
package interp

import (
	"fmt"
	"io"
	"maps"
	"math/rand"
	"slices"
	"time"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
)

// BindError reports a name declared twice at file scope.
type BindError struct {
	Line int
	Msg  string
}

func (e *BindError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// RuntimeError is raised by user code while it runs.
type RuntimeError struct {
	Line int
	Msg  string
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func runtimeErr(line int, format string, args ...any) error {
	return &RuntimeError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// headerConsts are the constants provided by the device header. Programs
// may redefine them.
var headerConsts = map[string]Value{
	"LED_OFF":       int64(0),
	"LED_ON":        int64(1),
	"BUTTON_UP":     int64(devices.Up),
	"BUTTON_DOWN":   int64(devices.Down),
	"BUTTON_LEFT":   int64(devices.Left),
	"BUTTON_RIGHT":  int64(devices.Right),
	"BUTTON_SELECT": int64(devices.Select),
	"true":          int64(1),
	"false":         int64(0),
	"NULL":          int64(0),
}

// Environment is the global namespace of one run. A name is a constant, a
// global variable or a function, never more than one of these.
type Environment struct {
	Device  *devices.BlackBox
	Root    string
	Console io.Writer
	Clock   func() time.Duration
	Rand    *rand.Rand

	consts   map[string]Value
	globals  map[string]*Var
	funcs    map[string]*Function
	builtins map[string]*Builtin
	structs  map[string]*compiler.StructDef
	enums    map[string]bool
	typedefs map[string]compiler.Type
}

func NewEnvironment(dev *devices.BlackBox) *Environment {
	return &Environment{
		Device:   dev,
		Console:  io.Discard,
		Rand:     rand.New(rand.NewSource(1)),
		consts:   make(map[string]Value),
		globals:  make(map[string]*Var),
		funcs:    make(map[string]*Function),
		builtins: builtins(),
		structs:  make(map[string]*compiler.StructDef),
		enums:    make(map[string]bool),
		typedefs: make(map[string]compiler.Type),
	}
}

// Const returns a #define or enum constant.
func (e *Environment) Const(name string) (Value, bool) {
	v, ok := e.consts[name]
	return v, ok
}

// Global returns a global variable slot.
func (e *Environment) Global(name string) (*Var, bool) {
	v, ok := e.globals[name]
	return v, ok
}

// Globals returns the names of all global variables, sorted.
func (e *Environment) Globals() []string {
	return slices.Sorted(maps.Keys(e.globals))
}

// Func returns a user function, defined or only declared.
func (e *Environment) Func(name string) (*Function, bool) {
	f, ok := e.funcs[name]
	return f, ok
}

// Millis returns the elapsed run time in milliseconds.
func (e *Environment) Millis() int64 {
	if e.Clock == nil {
		return 0
	}
	return e.Clock().Milliseconds()
}

// claim fails if name is already a constant, global or function.
func (e *Environment) claim(name string, line int) error {
	switch {
	case e.consts[name] != nil:
		return &BindError{Line: line, Msg: fmt.Sprintf("A constant named %s is already defined", name)}
	case e.globals[name] != nil:
		return &BindError{Line: line, Msg: fmt.Sprintf("A global named %s is already defined", name)}
	case e.funcs[name] != nil:
		return &BindError{Line: line, Msg: fmt.Sprintf("A function named %s is already defined", name)}
	}
	return nil
}

// claimVar is claim for globals and functions. Only #define and enum
// members may reuse a header constant's name.
func (e *Environment) claimVar(name string, line int) error {
	if _, ok := headerConsts[name]; ok {
		return &BindError{Line: line, Msg: fmt.Sprintf("%s is a constant of %s", name, compiler.DeviceHeader)}
	}
	return e.claim(name, line)
}

func (e *Environment) snapshotConsts() map[string]Value {
	out := make(map[string]Value, len(e.consts))
	for k, v := range e.consts {
		out[k] = v
	}
	return out
}

// resolveType follows typedefs to the underlying type.
func (e *Environment) resolveType(t compiler.Type) compiler.Type {
	for i := 0; i < 32; i++ {
		nt, ok := t.(*compiler.NamedType)
		if !ok {
			return t
		}
		alias, ok := e.typedefs[nt.Name]
		if !ok {
			return t
		}
		if an, ok := alias.(*compiler.NamedType); ok && an.Name == nt.Name {
			return alias
		}
		if an, ok := alias.(*compiler.NamedType); ok && len(nt.Modifiers) > 0 {
			alias = &compiler.NamedType{Name: an.Name, Modifiers: append(append([]string(nil), an.Modifiers...), nt.Modifiers...)}
		}
		t = alias
	}
	return t
}
