package compiler

import "fmt"

// DeviceRootType is the struct name of the device root.
const DeviceRootType = "BlackBox"

// Callbacks lists the functions every program must define, in slot order.
var Callbacks = []string{
	"on_up", "on_down", "on_left", "on_right", "on_select",
	"on_timeout_1", "on_timeout_2",
}

// ValidationError describes a well-formed program that does not have the
// shape the device requires.
type ValidationError struct {
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Shape is what validation learned about a program.
type Shape struct {
	Root string // name of the device root variable
	Main *FunctionDecl
	Loop *WhileStmt // the trailing while (1) of main
}

func invalid(line int, format string, args ...any) error {
	return &ValidationError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks the device rules in order and fails on the first one
// violated.
func Validate(prog *Program) (*Shape, error) {
	if !hasDeviceInclude(prog) {
		return nil, invalid(0, "missing #include %q", DeviceHeader)
	}

	shape := &Shape{}
	root, err := findRoot(prog)
	if err != nil {
		return nil, err
	}
	shape.Root = root

	for _, name := range Callbacks {
		fn := prog.Function(name)
		if fn == nil || fn.Body == nil {
			return nil, invalid(0, "missing function %s", name)
		}
		if !fn.Void() {
			return nil, invalid(fn.Line, "function %s must return void", name)
		}
		if line, n := countReturns(fn.Body); n > 0 {
			return nil, invalid(line, "function %s must not contain a return statement", name)
		}
	}

	main := prog.Function("main")
	if main == nil || main.Body == nil {
		return nil, invalid(0, "missing function main")
	}
	if !main.Void() {
		return nil, invalid(main.Line, "function main must return void")
	}
	loop, ok := trailingLoop(main.Body)
	if !ok {
		return nil, invalid(main.Line, "function main must end with while (1) { ... }")
	}
	shape.Main = main
	shape.Loop = loop

	for _, d := range prog.Decls {
		fn, ok := d.(*FunctionDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if line, n := countReturns(fn.Body); n > 1 {
			return nil, invalid(line, "function %s has more than one return statement", fn.Name)
		}
	}
	return shape, nil
}

func hasDeviceInclude(prog *Program) bool {
	for _, d := range prog.Decls {
		if inc, ok := d.(*IncludeDirective); ok && inc.Path == DeviceHeader {
			return true
		}
	}
	return false
}

// findRoot returns the single `BlackBox *name;` global.
func findRoot(prog *Program) (string, error) {
	for _, d := range prog.Decls {
		g, ok := d.(*GlobalVarDecl)
		if !ok {
			continue
		}
		pt, ok := g.Type.(*PointerType)
		if !ok || pt.Array {
			continue
		}
		nt, ok := pt.Target.(*NamedType)
		if !ok || nt.Name != DeviceRootType {
			continue
		}
		if g.Init != nil {
			return "", invalid(g.Line, "%s *%s must not have an initializer", DeviceRootType, g.Name)
		}
		return g.Name, nil
	}
	return "", invalid(0, "missing global %s *blackbox;", DeviceRootType)
}

// trailingLoop returns main's last statement if it is while (1).
func trailingLoop(body []Stmt) (*WhileStmt, bool) {
	if len(body) == 0 {
		return nil, false
	}
	w, ok := body[len(body)-1].(*WhileStmt)
	if !ok {
		return nil, false
	}
	lit, ok := w.Cond.(*Literal)
	if !ok || lit.Kind != IntLit || lit.Int != 1 {
		return nil, false
	}
	return w, true
}

// countReturns counts return statements anywhere in body and reports the
// line of the last one found.
func countReturns(body []Stmt) (line, n int) {
	visit := func(stmts []Stmt) {
		l, c := countReturns(stmts)
		if c > 0 {
			line = l
		}
		n += c
	}
	for _, s := range body {
		switch s := s.(type) {
		case *ReturnStmt:
			line = s.Line
			n++
		case *IfStmt:
			visit(s.Then)
			visit(s.Else)
		case *WhileStmt:
			visit(s.Body)
		case *DoWhileStmt:
			visit(s.Body)
		case *ForStmt:
			visit(s.Body)
		case *BlockStmt:
			visit(s.Body)
		}
	}
	return line, n
}
