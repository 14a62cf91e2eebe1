package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is implemented by every AST node. Line is the 1-based source line
// the node started on.
type Node interface {
	Pos() int
	String() string
}

// Expr is implemented by every node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every node that can appear in a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is implemented by every top-level declaration.
type Decl interface {
	Node
	declNode()
}

// Type is a parsed type expression.
type Type interface {
	typeNode()
	String() string
}

// Program is the ordered list of top-level declarations in a source file.
// Order matters: later declarations may refer to earlier ones.
type Program struct {
	Decls []Decl
}

func (p *Program) String() string {
	parts := make([]string, len(p.Decls))
	for i, d := range p.Decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}

// Function returns the declaration with a body for name, or the forward
// declaration if no definition exists.
func (p *Program) Function(name string) *FunctionDecl {
	var fwd *FunctionDecl
	for _, d := range p.Decls {
		fn, ok := d.(*FunctionDecl)
		if !ok || fn.Name != name {
			continue
		}
		if fn.Body != nil {
			return fn
		}
		fwd = fn
	}
	return fwd
}

// Define returns the value of a #define directive and whether it exists.
func (p *Program) Define(name string) (int64, bool) {
	for _, d := range p.Decls {
		if def, ok := d.(*DefineDirective); ok && def.Name == name {
			return def.Value, true
		}
	}
	return 0, false
}

//  Types

// NamedType is a plain type name with its modifiers.
//
//	unsigned long x;   NamedType{Name: "long", Modifiers: ["unsigned"]}
//	struct point p;    NamedType{Name: "point", Modifiers: ["struct"]}
type NamedType struct {
	Name      string
	Modifiers []string
}

func (*NamedType) typeNode() {}
func (t *NamedType) String() string {
	if len(t.Modifiers) == 0 {
		return t.Name
	}
	return strings.Join(t.Modifiers, " ") + " " + t.Name
}

// Has reports whether the modifier m was present.
func (t *NamedType) Has(m string) bool {
	for _, mod := range t.Modifiers {
		if mod == m {
			return true
		}
	}
	return false
}

// PointerType is either a pointer (`T *x`) or an array (`T x[N]`, `T x[]`).
// Length is nil for plain pointers and for empty brackets.
type PointerType struct {
	Target Type
	Length Expr
	Array  bool
}

func (*PointerType) typeNode() {}
func (t *PointerType) String() string {
	switch {
	case t.Array && t.Length != nil:
		return fmt.Sprintf("%s[%s]", t.Target, t.Length)
	case t.Array:
		return fmt.Sprintf("%s[]", t.Target)
	}
	return t.Target.String() + "*"
}

//  Expression nodes

// LiteralKind tags the payload of a Literal.
type LiteralKind int

const (
	IntLit LiteralKind = iota
	FloatLit
	StringLit
	CharLit
	ArrayLit
)

// Literal is a constant value.
//
//	10        Literal{Kind: IntLit, Int: 10}
//	'a'       Literal{Kind: CharLit, Int: 97}
//	"hi"      Literal{Kind: StringLit, Str: "hi"}
//	{1, 2}    Literal{Kind: ArrayLit, Elems: [1, 2]}
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
	Elems []Expr
	Line  int
}

func (*Literal) exprNode()  {}
func (l *Literal) Pos() int { return l.Line }
func (l *Literal) String() string {
	switch l.Kind {
	case FloatLit:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case StringLit:
		return strconv.Quote(l.Str)
	case CharLit:
		return strconv.QuoteRune(rune(l.Int))
	case ArrayLit:
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return strconv.FormatInt(l.Int, 10)
}

// Identifier is a bare name.
type Identifier struct {
	Name string
	Line int
}

func (*Identifier) exprNode()        {}
func (i *Identifier) Pos() int       { return i.Line }
func (i *Identifier) String() string { return i.Name }

// BinaryExpr covers every infix operator, including assignment, member
// access and the ternary. A ternary is `?` whose Right is a `:` BinaryExpr.
//
//	a ? b : c    BinaryExpr{Op: "?", Left: a, Right: BinaryExpr{Op: ":", Left: b, Right: c}}
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Line  int
}

func (*BinaryExpr) exprNode()  {}
func (b *BinaryExpr) Pos() int { return b.Line }
func (b *BinaryExpr) String() string {
	if b.Op == "." || b.Op == "->" {
		return fmt.Sprintf("%s%s%s", b.Left, b.Op, b.Right)
	}
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// PrefixExpr is a unary operator before its operand: ! ~ & * + - ++ -- sizeof.
type PrefixExpr struct {
	Op      string
	Operand Expr
	Line    int
}

func (*PrefixExpr) exprNode()        {}
func (p *PrefixExpr) Pos() int       { return p.Line }
func (p *PrefixExpr) String() string { return fmt.Sprintf("(%s%s)", p.Op, p.Operand) }

// SuffixExpr is x++ or x--.
type SuffixExpr struct {
	Op      string
	Operand Expr
	Line    int
}

func (*SuffixExpr) exprNode()        {}
func (s *SuffixExpr) Pos() int       { return s.Line }
func (s *SuffixExpr) String() string { return fmt.Sprintf("(%s%s)", s.Operand, s.Op) }

// IndexExpr is base[index].
type IndexExpr struct {
	Base  Expr
	Index Expr
	Line  int
}

func (*IndexExpr) exprNode()        {}
func (x *IndexExpr) Pos() int       { return x.Line }
func (x *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", x.Base, x.Index) }

// CallExpr is callee(args...).
type CallExpr struct {
	Callee Expr
	Args   []Expr
	Line   int
}

func (*CallExpr) exprNode()  {}
func (c *CallExpr) Pos() int { return c.Line }
func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}

// CastExpr is (Target)Value. Inside sizeof, Value is nil.
type CastExpr struct {
	Target Type
	Value  Expr
	Line   int
}

func (*CastExpr) exprNode()  {}
func (c *CastExpr) Pos() int { return c.Line }
func (c *CastExpr) String() string {
	if c.Value == nil {
		return fmt.Sprintf("(%s)", c.Target)
	}
	return fmt.Sprintf("((%s)%s)", c.Target, c.Value)
}

//  Statement nodes

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	X    Expr
	Line int
}

func (*ExprStmt) stmtNode()        {}
func (s *ExprStmt) Pos() int       { return s.Line }
func (s *ExprStmt) String() string { return s.X.String() + ";" }

// VarDecl declares a local variable.
type VarDecl struct {
	Name string
	Type Type
	Init Expr
	Line int
}

func (*VarDecl) stmtNode()  {}
func (v *VarDecl) Pos() int { return v.Line }
func (v *VarDecl) String() string {
	if v.Init == nil {
		return fmt.Sprintf("%s %s;", v.Type, v.Name)
	}
	return fmt.Sprintf("%s %s = %s;", v.Type, v.Name, v.Init)
}

// IfStmt is if (Cond) Then else Else. Else is nil when absent; an
// `else if` chain nests another IfStmt as the single Else statement.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Line int
}

func (*IfStmt) stmtNode()  {}
func (s *IfStmt) Pos() int { return s.Line }
func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if (%s) %s", s.Cond, block(s.Then))
	}
	return fmt.Sprintf("if (%s) %s else %s", s.Cond, block(s.Then), block(s.Else))
}

// WhileStmt is while (Cond) Body.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Line int
}

func (*WhileStmt) stmtNode()        {}
func (s *WhileStmt) Pos() int       { return s.Line }
func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", s.Cond, block(s.Body)) }

// DoWhileStmt is do Body while (Cond);
type DoWhileStmt struct {
	Body []Stmt
	Cond Expr
	Line int
}

func (*DoWhileStmt) stmtNode()  {}
func (s *DoWhileStmt) Pos() int { return s.Line }
func (s *DoWhileStmt) String() string {
	return fmt.Sprintf("do %s while (%s);", block(s.Body), s.Cond)
}

// ForStmt is for (Init; Cond; Step) Body. Any of the three clauses may be nil.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Step Expr
	Body []Stmt
	Line int
}

func (*ForStmt) stmtNode()  {}
func (s *ForStmt) Pos() int { return s.Line }
func (s *ForStmt) String() string {
	init, cond, step := ";", "", ""
	if s.Init != nil {
		init = s.Init.String()
	}
	if s.Cond != nil {
		cond = s.Cond.String()
	}
	if s.Step != nil {
		step = s.Step.String()
	}
	return fmt.Sprintf("for (%s %s; %s) %s", init, cond, step, block(s.Body))
}

// ReturnStmt is return [Value];
type ReturnStmt struct {
	Value Expr
	Line  int
}

func (*ReturnStmt) stmtNode()  {}
func (s *ReturnStmt) Pos() int { return s.Line }
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}

// BreakStmt is break;
type BreakStmt struct{ Line int }

func (*BreakStmt) stmtNode()      {}
func (s *BreakStmt) Pos() int     { return s.Line }
func (*BreakStmt) String() string { return "break;" }

// ContinueStmt is continue;
type ContinueStmt struct{ Line int }

func (*ContinueStmt) stmtNode()      {}
func (s *ContinueStmt) Pos() int     { return s.Line }
func (*ContinueStmt) String() string { return "continue;" }

// BlockStmt is a nested { ... } with its own scope.
type BlockStmt struct {
	Body []Stmt
	Line int
}

func (*BlockStmt) stmtNode()        {}
func (s *BlockStmt) Pos() int       { return s.Line }
func (s *BlockStmt) String() string { return block(s.Body) }

func block(body []Stmt) string {
	parts := make([]string, len(body))
	for i, s := range body {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

//  Declarations

// Field is one member of a struct.
type Field struct {
	Name string
	Type Type
}

// StructDef is struct Name { members };
type StructDef struct {
	Name    string
	Members []*Field
	Line    int
}

func (*StructDef) declNode()  {}
func (s *StructDef) Pos() int { return s.Line }
func (s *StructDef) String() string {
	parts := make([]string, len(s.Members))
	for i, m := range s.Members {
		parts[i] = fmt.Sprintf("%s %s;", m.Type, m.Name)
	}
	return fmt.Sprintf("struct %s { %s };", s.Name, strings.Join(parts, " "))
}

// EnumMember is one enumerator; Value is nil when implicit.
type EnumMember struct {
	Name  string
	Value Expr
}

// EnumDef is enum Name { members };
type EnumDef struct {
	Name    string
	Members []*EnumMember
	Line    int
}

func (*EnumDef) declNode()  {}
func (e *EnumDef) Pos() int { return e.Line }
func (e *EnumDef) String() string {
	parts := make([]string, len(e.Members))
	for i, m := range e.Members {
		parts[i] = m.Name
		if m.Value != nil {
			parts[i] += " = " + m.Value.String()
		}
	}
	return fmt.Sprintf("enum %s { %s };", e.Name, strings.Join(parts, ", "))
}

// TypeDef is typedef Aliased Name;
type TypeDef struct {
	Name    string
	Aliased Type
	Line    int
}

func (*TypeDef) declNode()        {}
func (t *TypeDef) Pos() int       { return t.Line }
func (t *TypeDef) String() string { return fmt.Sprintf("typedef %s %s;", t.Aliased, t.Name) }

// GlobalVarDecl is a variable declared at file scope.
type GlobalVarDecl struct {
	Name string
	Type Type
	Init Expr
	Line int
}

func (*GlobalVarDecl) declNode()  {}
func (g *GlobalVarDecl) Pos() int { return g.Line }
func (g *GlobalVarDecl) String() string {
	if g.Init == nil {
		return fmt.Sprintf("%s %s;", g.Type, g.Name)
	}
	return fmt.Sprintf("%s %s = %s;", g.Type, g.Name, g.Init)
}

// Param is a single function parameter.
type Param struct {
	Name string
	Type Type
}

// FunctionDecl is a function definition, or a forward declaration when Body is nil.
type FunctionDecl struct {
	Name       string
	ReturnType Type
	Params     []*Param
	Body       []Stmt
	Line       int
}

func (*FunctionDecl) declNode()  {}
func (f *FunctionDecl) Pos() int { return f.Line }
func (f *FunctionDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	head := fmt.Sprintf("%s %s(%s)", f.ReturnType, f.Name, strings.Join(params, ", "))
	if f.Body == nil {
		return head + ";"
	}
	return head + " " + block(f.Body)
}

// Void reports whether the function is declared to return nothing.
func (f *FunctionDecl) Void() bool {
	nt, ok := f.ReturnType.(*NamedType)
	return ok && nt.Name == "void"
}

// IncludeDirective is #include "Path" (or <Path> when System is set).
type IncludeDirective struct {
	Path   string
	System bool
	Line   int
}

func (*IncludeDirective) declNode()  {}
func (d *IncludeDirective) Pos() int { return d.Line }
func (d *IncludeDirective) String() string {
	if d.System {
		return fmt.Sprintf("#include <%s>", d.Path)
	}
	return fmt.Sprintf("#include %q", d.Path)
}

// DefineDirective is #define Name Value; only integer constants are supported.
type DefineDirective struct {
	Name  string
	Value int64
	Line  int
}

func (*DefineDirective) declNode()        {}
func (d *DefineDirective) Pos() int       { return d.Line }
func (d *DefineDirective) String() string { return fmt.Sprintf("#define %s %d", d.Name, d.Value) }
