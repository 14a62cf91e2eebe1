package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func num(v int64) *Literal          { return &Literal{Kind: IntLit, Int: v, Line: 1} }
func ident(name string) *Identifier { return &Identifier{Name: name, Line: 1} }
func bin(op string, l, r Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: l, Right: r, Line: 1}
}

// TestParseExpressions checks precedence and associativity on single global
// initializers.
func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Expr
	}{
		{
			name:     "Multiplication binds tighter",
			input:    "int x = 1 + 2 * 3;",
			expected: bin("+", num(1), bin("*", num(2), num(3))),
		},
		{
			name:     "Left associative subtraction",
			input:    "int x = 1 - 2 - 3;",
			expected: bin("-", bin("-", num(1), num(2)), num(3)),
		},
		{
			name:     "Assignment is right associative",
			input:    "int x = a = b = 1;",
			expected: bin("=", ident("a"), bin("=", ident("b"), num(1))),
		},
		{
			name:     "Longest operator wins",
			input:    "int x = a <= b << 2;",
			expected: bin("<=", ident("a"), bin("<<", ident("b"), num(2))),
		},
		{
			name:  "Ternary",
			input: "int x = a ? 1 : b ? 2 : 3;",
			expected: bin("?", ident("a"), bin(":", num(1),
				bin("?", ident("b"), bin(":", num(2), num(3))))),
		},
		{
			name:     "Logical and before or",
			input:    "int x = a || b && c;",
			expected: bin("||", ident("a"), bin("&&", ident("b"), ident("c"))),
		},
		{
			name:     "Prefix before binary",
			input:    "int x = -a * !b;",
			expected: bin("*", &PrefixExpr{Op: "-", Operand: ident("a"), Line: 1}, &PrefixExpr{Op: "!", Operand: ident("b"), Line: 1}),
		},
		{
			name:     "Postfix increment",
			input:    "int x = i++ + --j;",
			expected: bin("+", &SuffixExpr{Op: "++", Operand: ident("i"), Line: 1}, &PrefixExpr{Op: "--", Operand: ident("j"), Line: 1}),
		},
		{
			name:  "Member call chain",
			input: "int x = blackbox->matrix->pixel(3);",
			expected: &CallExpr{
				Callee: bin("->", bin("->", ident("blackbox"), ident("matrix")), ident("pixel")),
				Args:   []Expr{num(3)},
				Line:   1,
			},
		},
		{
			name:     "Index then member",
			input:    "int x = pts[1].y;",
			expected: bin(".", &IndexExpr{Base: ident("pts"), Index: num(1), Line: 1}, ident("y")),
		},
		{
			name:     "Cast",
			input:    "int x = (unsigned char)300;",
			expected: &CastExpr{Target: &NamedType{Name: "char", Modifiers: []string{"unsigned"}}, Value: num(300), Line: 1},
		},
		{
			name:     "Grouping is not a cast",
			input:    "int x = (a) + 1;",
			expected: bin("+", ident("a"), num(1)),
		},
		{
			name:  "Sizeof type",
			input: "int x = sizeof(int);",
			expected: &PrefixExpr{Op: "sizeof", Operand: &CastExpr{
				Target: &NamedType{Name: "int"}, Line: 1,
			}, Line: 1},
		},
		{
			name:     "Hex and binary",
			input:    "int x = 0x1F | 0b101;",
			expected: bin("|", num(31), num(5)),
		},
		{
			name:     "Char escape",
			input:    `int x = '\n';`,
			expected: &Literal{Kind: CharLit, Int: '\n', Line: 1},
		},
		{
			name:     "Hex escape in string",
			input:    `int x = "a\x41\101";`,
			expected: &Literal{Kind: StringLit, Str: "aAA", Line: 1},
		},
		{
			name:     "Array literal",
			input:    "int x[] = {1, 2, 3,};",
			expected: &Literal{Kind: ArrayLit, Elems: []Expr{num(1), num(2), num(3)}, Line: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(prog.Decls) != 1 {
				t.Fatalf("expected 1 declaration, got %d", len(prog.Decls))
			}
			g, ok := prog.Decls[0].(*GlobalVarDecl)
			if !ok {
				t.Fatalf("expected *GlobalVarDecl, got %T", prog.Decls[0])
			}
			if !reflect.DeepEqual(g.Init, tt.expected) {
				t.Errorf("Parse() mismatch\nexpected: %s\ngot:      %s", tt.expected, g.Init)
			}
		})
	}
}

// TestParseDeclarations checks that each kind of top-level declaration is
// produced once and in source order.
func TestParseDeclarations(t *testing.T) {
	src := `#include "blackbox.h"
#define SPEED 0x10
struct point { int x; int y; };
enum dir { UP, DOWN = 4 };
typedef unsigned char byte;
int x = 5;
byte grid[8];
char name[] = "hi";
void step(int n);
int twice(int n) { return n * 2; }
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	expected := []Decl{
		&IncludeDirective{Path: "blackbox.h", Line: 1},
		&DefineDirective{Name: "SPEED", Value: 16, Line: 2},
		&StructDef{Name: "point", Members: []*Field{
			{Name: "x", Type: &NamedType{Name: "int"}},
			{Name: "y", Type: &NamedType{Name: "int"}},
		}, Line: 3},
		&EnumDef{Name: "dir", Members: []*EnumMember{
			{Name: "UP"},
			{Name: "DOWN", Value: &Literal{Kind: IntLit, Int: 4, Line: 4}},
		}, Line: 4},
		&TypeDef{Name: "byte", Aliased: &NamedType{Name: "char", Modifiers: []string{"unsigned"}}, Line: 5},
		&GlobalVarDecl{Name: "x", Type: &NamedType{Name: "int"}, Init: &Literal{Kind: IntLit, Int: 5, Line: 6}, Line: 6},
		&GlobalVarDecl{Name: "grid", Type: &PointerType{
			Target: &NamedType{Name: "byte"},
			Length: &Literal{Kind: IntLit, Int: 8, Line: 7},
			Array:  true,
		}, Line: 7},
		&GlobalVarDecl{Name: "name", Type: &PointerType{Target: &NamedType{Name: "char"}, Array: true},
			Init: &Literal{Kind: StringLit, Str: "hi", Line: 8}, Line: 8},
		&FunctionDecl{Name: "step", ReturnType: &NamedType{Name: "void"},
			Params: []*Param{{Name: "n", Type: &NamedType{Name: "int"}}}, Line: 9},
		&FunctionDecl{Name: "twice", ReturnType: &NamedType{Name: "int"},
			Params: []*Param{{Name: "n", Type: &NamedType{Name: "int"}}},
			Body: []Stmt{&ReturnStmt{Value: &BinaryExpr{Op: "*",
				Left:  &Identifier{Name: "n", Line: 10},
				Right: &Literal{Kind: IntLit, Int: 2, Line: 10}, Line: 10}, Line: 10}},
			Line: 10},
	}
	if len(prog.Decls) != len(expected) {
		t.Fatalf("expected %d declarations, got %d", len(expected), len(prog.Decls))
	}
	for i := range expected {
		if !reflect.DeepEqual(prog.Decls[i], expected[i]) {
			t.Errorf("decl %d mismatch\nexpected: %s\ngot:      %s", i, expected[i], prog.Decls[i])
		}
	}
}

func TestParseEmptyBracketsHaveNoLength(t *testing.T) {
	prog, err := Parse("int a[]; int b[4]; int *c;")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	a := prog.Decls[0].(*GlobalVarDecl).Type.(*PointerType)
	b := prog.Decls[1].(*GlobalVarDecl).Type.(*PointerType)
	c := prog.Decls[2].(*GlobalVarDecl).Type.(*PointerType)
	if !a.Array || a.Length != nil {
		t.Errorf("a: expected array without length, got %s", a)
	}
	if !b.Array || b.Length == nil {
		t.Errorf("b: expected array with length, got %s", b)
	}
	if c.Array || c.Length != nil {
		t.Errorf("c: expected plain pointer, got %s", c)
	}
}

func TestParseStatements(t *testing.T) {
	src := `void f() {
  int i = 0, j;
  for (int k = 0; k < 3; k++) i += k;
  while (i) { i--; if (i == 2) break; else if (i == 1) continue; else { j = i; } }
  do { j++; } while (j < 10);
  ;
  { int shadow = 1; }
}`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	body := prog.Decls[0].(*FunctionDecl).Body
	want := []string{"*compiler.VarDecl", "*compiler.VarDecl", "*compiler.ForStmt", "*compiler.WhileStmt", "*compiler.DoWhileStmt", "*compiler.BlockStmt"}
	if len(body) != len(want) {
		t.Fatalf("expected %d statements, got %d: %v", len(want), len(body), body)
	}
	for i, s := range body {
		if got := reflect.TypeOf(s).String(); got != want[i] {
			t.Errorf("statement %d: expected %s, got %s", i, want[i], got)
		}
	}
	loop := body[3].(*WhileStmt)
	ifs := loop.Body[1].(*IfStmt)
	if _, ok := ifs.Then[0].(*BreakStmt); !ok {
		t.Errorf("expected break in then branch, got %T", ifs.Then[0])
	}
	elseIf, ok := ifs.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected else-if chain, got %T", ifs.Else[0])
	}
	if _, ok := elseIf.Then[0].(*ContinueStmt); !ok {
		t.Errorf("expected continue, got %T", elseIf.Then[0])
	}
}

func TestParseTypeNamesLongestFirst(t *testing.T) {
	// "Pix" is a prefix of "Pixel"; a variable typed Pixel must not be read
	// as type Pix followed by the name "el".
	src := `#include "blackbox.h"
typedef int Pix;
Pixel *p;
Pix q;`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	p := prog.Decls[2].(*GlobalVarDecl)
	if p.Name != "p" || p.Type.String() != "Pixel*" {
		t.Errorf("expected Pixel* p, got %s %s", p.Type, p.Name)
	}
	q := prog.Decls[3].(*GlobalVarDecl)
	if q.Name != "q" || q.Type.String() != "Pix" {
		t.Errorf("expected Pix q, got %s %s", q.Type, q.Name)
	}
}

func TestParseKeywordBoundary(t *testing.T) {
	prog, err := Parse("void f() { int integer = 1; iffy = integer; }")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	body := prog.Decls[0].(*FunctionDecl).Body
	if d := body[0].(*VarDecl); d.Name != "integer" {
		t.Errorf("expected variable named integer, got %q", d.Name)
	}
	if _, ok := body[1].(*ExprStmt); !ok {
		t.Errorf("expected expression statement, got %T", body[1])
	}
}

func TestParseComments(t *testing.T) {
	src := "// leading\nint /* inline */ x = 1; /* multi\nline */ int y = 2; // trailing"
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(prog.Decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(prog.Decls))
	}
	if y := prog.Decls[1].(*GlobalVarDecl); y.Line != 3 {
		t.Errorf("expected y on line 3, got %d", y.Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		line     int
	}{
		{"Missing semicolon", "int x = 1\nint y;", `";"`, 2},
		{"Missing paren", "void f() { if (x { } }", `")"`, 1},
		{"Bad define", "#define X foo", "integer constant", 1},
		{"Unknown top level", "\n\n42;", "declaration", 3},
		{"Missing expression", "int x = ;", "expression", 1},
		{"Unclosed body", "void f() {\n x = 1;\n", `"}"`, 3},
		{"Unclosed struct", "struct S {\n int a;\n", `"}"`, 3},
		{"Unclosed block at end", "void f() {", `"}"`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if perr.Expected != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, perr.Expected)
			}
			if perr.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, perr.Line)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	_, err := Parse("int a;\n  int x = ;  \n")
	if got := Excerpt(err); got != "int x = ;" {
		t.Errorf("Excerpt() = %q, want %q", got, "int x = ;")
	}
	if got := Excerpt(errors.New("other")); got != "" {
		t.Errorf("Excerpt() of a plain error = %q, want empty", got)
	}
}

func TestParseSignedExponent(t *testing.T) {
	prog, err := Parse("float r = 1.5e+1;")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	lit, ok := prog.Decls[0].(*GlobalVarDecl).Init.(*Literal)
	if !ok || lit.Kind != FloatLit || lit.Float != 15 {
		t.Errorf("expected float literal 15, got %v", prog.Decls[0].(*GlobalVarDecl).Init)
	}
}
