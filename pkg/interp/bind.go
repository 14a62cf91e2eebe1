package interp

import (
	"fmt"

	"blackbox/pkg/compiler"
	"blackbox/pkg/devices"
)

// Bind fills env from the declarations of prog, in source order. Global
// initializers run immediately, so a global may read the ones before it,
// and every function sees the constants defined above it. The device root
// variable named by shape is bound to env.Device. Finally the callback
// functions are copied into the device slots.
func Bind(prog *compiler.Program, shape *compiler.Shape, env *Environment) (err error) {
	defer recoverRuntime(&err)
	if shape != nil {
		env.Root = shape.Root
	}
	c := &call{th: &thread{}, scopes: []map[string]*Var{{}}}
	for _, d := range prog.Decls {
		if err := bindDecl(env, c, d); err != nil {
			return err
		}
	}
	for i, name := range compiler.Callbacks {
		if fn, ok := env.funcs[name]; ok && fn.Decl.Body != nil {
			env.Device.SetCallback(devices.Slot(i), fn)
		}
	}
	return nil
}

func bindDecl(env *Environment, c *call, d compiler.Decl) error {
	switch d := d.(type) {
	case *compiler.DefineDirective:
		if err := env.claim(d.Name, d.Line); err != nil {
			return err
		}
		env.consts[d.Name] = d.Value
	case *compiler.EnumDef:
		if d.Name != "" {
			env.enums[d.Name] = true
		}
		next := int64(0)
		for _, m := range d.Members {
			if m.Value != nil {
				v, err := eval(env, c, m.Value)
				if err != nil {
					return err
				}
				n, ok := toInt(v)
				if !ok {
					return runtimeErr(d.Line, "enumerator %s must be an integer", m.Name)
				}
				next = n
			}
			if err := env.claim(m.Name, d.Line); err != nil {
				return err
			}
			env.consts[m.Name] = next
			next++
		}
	case *compiler.StructDef:
		env.structs[d.Name] = d
	case *compiler.TypeDef:
		env.typedefs[d.Name] = d.Aliased
	case *compiler.GlobalVarDecl:
		if err := env.claimVar(d.Name, d.Line); err != nil {
			return err
		}
		if d.Name == env.Root {
			env.globals[d.Name] = &Var{Type: d.Type, Value: env.Device}
			return nil
		}
		v, err := env.newVar(c, d.Type, d.Init, d.Line)
		if err != nil {
			return err
		}
		env.globals[d.Name] = v
	case *compiler.FunctionDecl:
		return bindFunction(env, d)
	}
	return nil
}

// bindFunction registers fn. A prototype may be followed by one definition.
func bindFunction(env *Environment, d *compiler.FunctionDecl) error {
	if f, ok := env.funcs[d.Name]; ok {
		if d.Body == nil {
			return nil
		}
		if f.Decl.Body != nil {
			return &BindError{Line: d.Line, Msg: fmt.Sprintf("A function named %s is already defined", d.Name)}
		}
		f.Decl = d
		f.consts = env.snapshotConsts()
		return nil
	}
	if err := env.claimVar(d.Name, d.Line); err != nil {
		return err
	}
	env.funcs[d.Name] = &Function{Decl: d, consts: env.snapshotConsts()}
	return nil
}
