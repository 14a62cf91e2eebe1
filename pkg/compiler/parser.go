package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DeviceHeader is the header that makes the device types available.
const DeviceHeader = "blackbox.h"

// ParseError is the first unrecoverable mismatch found in the source.
type ParseError struct {
	Expected string
	Line     int
	File     string // set when the error is inside an included header
	Snippet  string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: line %d: expected %s", e.File, e.Line, e.Expected)
	}
	return fmt.Sprintf("line %d: expected %s", e.Line, e.Expected)
}

// Excerpt returns the trimmed source line a parse error points at, or ""
// when err is not a parse error.
func Excerpt(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Snippet
	}
	return ""
}

// Parser is a recursive-descent parser reading directly from a Scanner.
type Parser struct {
	s           *Scanner
	types       *TypeTable
	sourceLines []string

	load      Loader
	including map[string]bool
	included  map[string]bool
	file      string
}

func NewParser(src string) *Parser {
	return &Parser{
		s:           newScanner(src),
		types:       NewTypeTable(),
		sourceLines: strings.Split(src, "\n"),
	}
}

// Parse turns source text into a Program. Parsing stops at the first error.
func Parse(src string) (*Program, error) {
	return NewParser(src).ParseProgram()
}

// Types exposes the type table as it stood at the end of parsing.
func (p *Parser) Types() *TypeTable { return p.types }

// fail builds a ParseError at the current line with a snippet of that line.
func (p *Parser) fail(expected string) error {
	p.s.skipBlank()
	line := p.s.line
	snippet := ""
	if line-1 >= 0 && line-1 < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[line-1])
	}
	return &ParseError{Expected: expected, Line: line, File: p.file, Snippet: snippet}
}

// line returns the line of the next non-blank character.
func (p *Parser) line() int {
	p.s.skipBlank()
	return p.s.line
}

func (p *Parser) expect(str string) error {
	if !p.s.accept(str) {
		return p.fail(strconv.Quote(str))
	}
	return nil
}

func (p *Parser) identifier() (string, error) {
	name := p.s.readIdentifier()
	if name == "" {
		return "", p.fail("identifier")
	}
	return name, nil
}

func (p *Parser) mark() (int, int)       { return p.s.pos, p.s.line }
func (p *Parser) reset(pos, line int)    { p.s.pos, p.s.line = pos, line }
func (p *Parser) keyword(kw string) bool { return p.s.lookahead(kw) }

// ParseProgram parses top-level declarations until end of input.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for {
		p.s.skipBlank()
		if p.s.eof() {
			return prog, nil
		}
		decls, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decls...)
	}
}

func (p *Parser) parseTopLevel() ([]Decl, error) {
	switch {
	case p.s.lookahead("#"):
		d, err := p.parseDirective()
		if err != nil {
			return nil, err
		}
		inc, ok := d.(*IncludeDirective)
		if !ok || inc.System || builtinHeader(inc.Path) {
			return []Decl{d}, nil
		}
		decls, err := p.includeLocal(inc.Path, inc.Line)
		if err != nil {
			return nil, err
		}
		return append([]Decl{d}, decls...), nil
	case p.keyword("typedef"):
		return p.parseTypedef()
	case p.structBodyIncoming("struct"):
		d, err := p.parseStructDef()
		if err != nil {
			return nil, err
		}
		return []Decl{d}, p.expect(";")
	case p.structBodyIncoming("enum"):
		d, err := p.parseEnumDef()
		if err != nil {
			return nil, err
		}
		return []Decl{d}, p.expect(";")
	case p.definitionIncoming():
		return p.parseDefinition()
	}
	return nil, p.fail("declaration")
}

// structBodyIncoming reports whether `kw [Name] {` comes next.
func (p *Parser) structBodyIncoming(kw string) bool {
	if !p.keyword(kw) {
		return false
	}
	pos, line := p.mark()
	defer p.reset(pos, line)
	p.s.accept(kw)
	p.s.readIdentifier()
	return p.s.lookahead("{")
}

func (p *Parser) parseDirective() (Decl, error) {
	line := p.line()
	p.s.accept("#")
	p.s.skipLineSpace()
	switch name := p.s.readIdentifier(); name {
	case "include":
		p.s.skipLineSpace()
		var path string
		system := false
		if p.s.peek() == '<' {
			p.s.advance()
			start := p.s.pos
			for !p.s.eof() && p.s.peek() != '>' && p.s.peek() != '\n' {
				p.s.advance()
			}
			path = string(p.s.src[start:p.s.pos])
			if !p.s.accept(">") {
				return nil, p.fail(`">"`)
			}
			system = true
		} else {
			var ok bool
			path, ok = p.s.readQuoted('"')
			if !ok {
				return nil, p.fail("include path")
			}
		}
		return &IncludeDirective{Path: path, System: system, Line: line}, nil
	case "define":
		p.s.skipLineSpace()
		name := p.s.readIdentifier()
		if name == "" {
			return nil, p.fail("macro name")
		}
		value, ok := parseIntConstant(p.s.restOfLine())
		if !ok {
			return nil, p.fail("integer constant")
		}
		return &DefineDirective{Name: name, Value: value, Line: line}, nil
	}
	return nil, p.fail("include or define")
}

// parseIntConstant accepts the right-hand side of a #define: an integer in
// any C base, optionally negative or parenthesised, or a character literal.
func parseIntConstant(text string) (int64, bool) {
	if i := strings.Index(text, "//"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if i := strings.Index(text, "/*"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	for strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	neg := false
	if strings.HasPrefix(text, "-") {
		neg = true
		text = strings.TrimSpace(text[1:])
	}
	s := newScanner(text)
	var v int64
	if strings.HasPrefix(text, "'") {
		str, ok := s.readQuoted('\'')
		if !ok || len([]rune(str)) != 1 {
			return 0, false
		}
		v = int64([]rune(str)[0])
	} else {
		lit, ok := s.readNumber()
		if !ok || lit.Kind != IntLit {
			return 0, false
		}
		v = lit.Int
	}
	s.skipBlank()
	if !s.eof() {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

//  Types

// definitionIncoming probes for a type at the cursor without consuming it.
func (p *Parser) definitionIncoming() bool {
	if _, ok := p.s.lookaheadAny(p.types.modifiers); ok {
		return true
	}
	_, ok := p.s.lookaheadAny(p.types.names)
	return ok
}

// readType reads modifiers, a type name and any trailing `*`.
func (p *Parser) readType() (Type, error) {
	var mods []string
	for {
		m, ok := p.s.lookaheadAny(p.types.modifiers)
		if !ok {
			break
		}
		p.s.accept(m)
		mods = append(mods, m)
		if m == "struct" || m == "enum" {
			break
		}
	}
	var name string
	if n := len(mods); n > 0 && (mods[n-1] == "struct" || mods[n-1] == "enum") {
		tag, err := p.identifier()
		if err != nil {
			return nil, err
		}
		name = tag
	} else if n, ok := p.s.lookaheadAny(p.types.names); ok {
		p.s.accept(n)
		name = n
	} else if n := len(mods); n > 0 && (mods[n-1] == "short" || mods[n-1] == "long") {
		name = mods[n-1]
		mods = mods[:n-1]
	} else if len(mods) > 0 {
		name = "int"
	} else {
		return nil, p.fail("type")
	}
	for {
		m, ok := p.s.lookaheadAny(p.types.modifiers)
		if !ok || m == "struct" || m == "enum" {
			break
		}
		p.s.accept(m)
		mods = append(mods, m)
	}
	var t Type = &NamedType{Name: name, Modifiers: mods}
	for p.s.accept("*") {
		t = &PointerType{Target: t}
		p.s.accept("const")
	}
	return t, nil
}

// readDefinition reads `Type name` followed by any array suffixes.
func (p *Parser) readDefinition() (Type, string, error) {
	t, err := p.readType()
	if err != nil {
		return nil, "", err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, "", err
	}
	t, err = p.readArraySuffix(t)
	return t, name, err
}

func (p *Parser) readArraySuffix(t Type) (Type, error) {
	var lengths []Expr
	for p.s.accept("[") {
		if p.s.accept("]") {
			lengths = append(lengths, nil)
			continue
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		lengths = append(lengths, n)
	}
	// int m[2][3] is an array of 2 arrays of 3 ints.
	for i := len(lengths) - 1; i >= 0; i-- {
		t = &PointerType{Target: t, Length: lengths[i], Array: true}
	}
	return t, nil
}

//  Declarations

func (p *Parser) parseStructDef() (*StructDef, error) {
	line := p.line()
	p.s.accept("struct")
	name := p.s.readIdentifier()
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	def := &StructDef{Name: name, Line: line}
	if name != "" {
		p.types.AddStruct(name)
	}
	for !p.s.accept("}") {
		p.s.skipBlank()
		if p.s.eof() {
			return nil, p.fail(`"}"`)
		}
		t, field, err := p.readDefinition()
		if err != nil {
			return nil, err
		}
		def.Members = append(def.Members, &Field{Name: field, Type: t})
		for p.s.accept(",") {
			field, err := p.identifier()
			if err != nil {
				return nil, err
			}
			ft, err := p.readArraySuffix(baseType(t))
			if err != nil {
				return nil, err
			}
			def.Members = append(def.Members, &Field{Name: field, Type: ft})
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	return def, nil
}

func (p *Parser) parseEnumDef() (*EnumDef, error) {
	line := p.line()
	p.s.accept("enum")
	name := p.s.readIdentifier()
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	def := &EnumDef{Name: name, Line: line}
	if name != "" {
		p.types.AddEnum(name)
	}
	for !p.s.accept("}") {
		member, err := p.identifier()
		if err != nil {
			return nil, err
		}
		m := &EnumMember{Name: member}
		if p.s.accept("=") {
			if m.Value, err = p.parseBinary(ternaryPrec); err != nil {
				return nil, err
			}
		}
		def.Members = append(def.Members, m)
		if !p.s.accept(",") {
			if err := p.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	return def, nil
}

// parseTypedef handles `typedef T Name;` and the struct/enum body forms,
// which yield the body definition followed by the alias.
func (p *Parser) parseTypedef() ([]Decl, error) {
	line := p.line()
	p.s.accept("typedef")
	var decls []Decl
	var aliased Type
	switch {
	case p.structBodyIncoming("struct"):
		def, err := p.parseStructDef()
		if err != nil {
			return nil, err
		}
		decls = append(decls, def)
		aliased = &NamedType{Name: def.Name, Modifiers: []string{"struct"}}
	case p.structBodyIncoming("enum"):
		def, err := p.parseEnumDef()
		if err != nil {
			return nil, err
		}
		decls = append(decls, def)
		aliased = &NamedType{Name: def.Name, Modifiers: []string{"enum"}}
	default:
		t, err := p.readType()
		if err != nil {
			return nil, err
		}
		aliased = t
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if aliased, err = p.readArraySuffix(aliased); err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	// An anonymous body takes the alias as its name.
	if len(decls) > 0 {
		switch def := decls[0].(type) {
		case *StructDef:
			if def.Name == "" {
				decls[0] = &StructDef{Name: name, Members: def.Members, Line: def.Line}
				aliased = &NamedType{Name: name, Modifiers: []string{"struct"}}
				p.types.AddStruct(name)
			}
		case *EnumDef:
			if def.Name == "" {
				decls[0] = &EnumDef{Name: name, Members: def.Members, Line: def.Line}
				aliased = &NamedType{Name: name, Modifiers: []string{"enum"}}
				p.types.AddEnum(name)
			}
		}
	}
	p.types.AddName(name)
	return append(decls, &TypeDef{Name: name, Aliased: aliased, Line: line}), nil
}

// parseDefinition parses a global variable list or a function.
func (p *Parser) parseDefinition() ([]Decl, error) {
	line := p.line()
	t, err := p.readType()
	if err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if p.s.lookahead("(") {
		fn, err := p.parseFunction(t, name, line)
		if err != nil {
			return nil, err
		}
		return []Decl{fn}, nil
	}

	var decls []Decl
	for {
		vt, err := p.readArraySuffix(t)
		if err != nil {
			return nil, err
		}
		g := &GlobalVarDecl{Name: name, Type: vt, Line: line}
		if p.s.accept("=") {
			if g.Init, err = p.parseInitializer(); err != nil {
				return nil, err
			}
		}
		decls = append(decls, g)
		if !p.s.accept(",") {
			break
		}
		line = p.line()
		if name, err = p.identifier(); err != nil {
			return nil, err
		}
	}
	return decls, p.expect(";")
}

func (p *Parser) parseFunction(ret Type, name string, line int) (*FunctionDecl, error) {
	fn := &FunctionDecl{Name: name, ReturnType: ret, Line: line}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	switch {
	case p.s.accept(")"), p.voidParams():
	default:
		for {
			t, err := p.readType()
			if err != nil {
				return nil, err
			}
			pname := p.s.readIdentifier()
			if t, err = p.readArraySuffix(t); err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, &Param{Name: pname, Type: t})
			if !p.s.accept(",") {
				break
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if p.s.accept(";") {
		return fn, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// voidParams consumes `void)` for an explicitly empty parameter list.
func (p *Parser) voidParams() bool {
	pos, line := p.mark()
	if p.s.accept("void") && p.s.accept(")") {
		return true
	}
	p.reset(pos, line)
	return false
}

//  Statements

// parseBlock parses `{ stmt* }` and never returns a nil slice.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	body := []Stmt{}
	for !p.s.accept("}") {
		p.s.skipBlank()
		if p.s.eof() {
			return nil, p.fail(`"}"`)
		}
		stmts, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	return body, nil
}

// parseBody parses a braced block or a single statement.
func (p *Parser) parseBody() ([]Stmt, error) {
	if p.s.lookahead("{") {
		return p.parseBlock()
	}
	stmts, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if stmts == nil {
		stmts = []Stmt{}
	}
	return stmts, nil
}

// parseStatement returns zero statements for `;` and several for a
// declaration list such as `int a, b;`.
func (p *Parser) parseStatement() ([]Stmt, error) {
	line := p.line()
	one := func(s Stmt, err error) ([]Stmt, error) {
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	switch {
	case p.s.accept(";"):
		return nil, nil
	case p.s.lookahead("{"):
		body, err := p.parseBlock()
		return one(&BlockStmt{Body: body, Line: line}, err)
	case p.keyword("if"):
		return one(p.parseIf())
	case p.keyword("while"):
		return one(p.parseWhile())
	case p.keyword("do"):
		return one(p.parseDoWhile())
	case p.keyword("for"):
		return one(p.parseFor())
	case p.keyword("return"):
		p.s.accept("return")
		ret := &ReturnStmt{Line: line}
		if !p.s.accept(";") {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = v
			if err := p.expect(";"); err != nil {
				return nil, err
			}
		}
		return []Stmt{ret}, nil
	case p.keyword("break"):
		p.s.accept("break")
		return one(&BreakStmt{Line: line}, p.expect(";"))
	case p.keyword("continue"):
		p.s.accept("continue")
		return one(&ContinueStmt{Line: line}, p.expect(";"))
	case p.definitionIncoming():
		decls, err := p.parseVarDecls()
		if err != nil {
			return nil, err
		}
		stmts := make([]Stmt, len(decls))
		for i, d := range decls {
			stmts[i] = d
		}
		return stmts, p.expect(";")
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return one(&ExprStmt{X: x, Line: line}, p.expect(";"))
}

// parseVarDecls parses `T a = 1, b[2]` without the trailing semicolon.
func (p *Parser) parseVarDecls() ([]*VarDecl, error) {
	line := p.line()
	t, name, err := p.readDefinition()
	if err != nil {
		return nil, err
	}
	var decls []*VarDecl
	for {
		d := &VarDecl{Name: name, Type: t, Line: line}
		if p.s.accept("=") {
			if d.Init, err = p.parseInitializer(); err != nil {
				return nil, err
			}
		}
		decls = append(decls, d)
		if !p.s.accept(",") {
			return decls, nil
		}
		line = p.line()
		if name, err = p.identifier(); err != nil {
			return nil, err
		}
		if t, err = p.readArraySuffix(baseType(t)); err != nil {
			return nil, err
		}
	}
}

// baseType strips array suffixes so that `int a[2], b;` gives b type int.
func baseType(t Type) Type {
	for {
		pt, ok := t.(*PointerType)
		if !ok || !pt.Array {
			return t
		}
		t = pt.Target
	}
}

func (p *Parser) parseCond() (Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return cond, p.expect(")")
}

func (p *Parser) parseIf() (Stmt, error) {
	line := p.line()
	p.s.accept("if")
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{Cond: cond, Then: then, Line: line}
	if p.s.accept("else") {
		if s.Else, err = p.parseBody(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	line := p.line()
	p.s.accept("while")
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, Line: line}, nil
}

func (p *Parser) parseDoWhile() (Stmt, error) {
	line := p.line()
	p.s.accept("do")
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if !p.s.accept("while") {
		return nil, p.fail(`"while"`)
	}
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	return &DoWhileStmt{Body: body, Cond: cond, Line: line}, p.expect(";")
}

func (p *Parser) parseFor() (Stmt, error) {
	line := p.line()
	p.s.accept("for")
	if err := p.expect("("); err != nil {
		return nil, err
	}
	s := &ForStmt{Line: line}
	if !p.s.accept(";") {
		initLine := p.line()
		if p.definitionIncoming() {
			decls, err := p.parseVarDecls()
			if err != nil {
				return nil, err
			}
			if len(decls) != 1 {
				return nil, p.fail("single declaration")
			}
			s.Init = decls[0]
		} else {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			s.Init = &ExprStmt{X: x, Line: initLine}
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	var err error
	if !p.s.lookahead(";") {
		if s.Cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.s.lookahead(")") {
		if s.Step, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if s.Body, err = p.parseBody(); err != nil {
		return nil, err
	}
	return s, nil
}

//  Expressions

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinary(assignPrec)
}

// parseInitializer parses an expression or a braced array literal.
func (p *Parser) parseInitializer() (Expr, error) {
	if p.s.lookahead("{") {
		return p.parseArrayLiteral()
	}
	return p.parseExpr()
}

func (p *Parser) parseArrayLiteral() (Expr, error) {
	line := p.line()
	p.s.accept("{")
	lit := &Literal{Kind: ArrayLit, Elems: []Expr{}, Line: line}
	for !p.s.accept("}") {
		e, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, e)
		if !p.s.accept(",") {
			if err := p.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	return lit, nil
}

// parseBinary is precedence climbing over binaryOps. Operands come from
// parseUnary, which already applied member access and other postfix forms.
func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.s.lookaheadAny(sortedOps)
		if !ok {
			return left, nil
		}
		prec := binaryOps[op]
		if prec < minPrec || prec == memberPrec {
			return left, nil
		}
		line := p.line()
		p.s.accept(op)

		if op == "?" {
			mid, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			elseLine := p.line()
			right, err := p.parseBinary(ternaryPrec)
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{
				Op:    "?",
				Left:  left,
				Right: &BinaryExpr{Op: ":", Left: mid, Right: right, Line: elseLine},
				Line:  line,
			}
			continue
		}

		next := prec + 1
		if rightAssoc(prec) {
			next = prec
		}
		var right Expr
		if IsAssignment(op) && p.s.lookahead("{") {
			right, err = p.parseArrayLiteral()
		} else {
			right, err = p.parseBinary(next)
		}
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Line: line}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	line := p.line()
	if p.s.accept("sizeof") {
		if p.s.lookahead("(") {
			pos, l := p.mark()
			p.s.accept("(")
			if p.definitionIncoming() {
				t, err := p.readType()
				if err != nil {
					return nil, err
				}
				if t, err = p.readArraySuffix(t); err != nil {
					return nil, err
				}
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				return &PrefixExpr{Op: "sizeof", Operand: &CastExpr{Target: t, Line: line}, Line: line}, nil
			}
			p.reset(pos, l)
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &PrefixExpr{Op: "sizeof", Operand: operand, Line: line}, nil
	}
	if op, ok := p.s.lookaheadAny(prefixOps); ok {
		p.s.accept(op)
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &PrefixExpr{Op: op, Operand: operand, Line: line}, nil
	}
	if p.s.lookahead("(") {
		pos, l := p.mark()
		p.s.accept("(")
		if p.definitionIncoming() {
			t, err := p.readType()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			value, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &CastExpr{Target: t, Value: value, Line: line}, nil
		}
		p.reset(pos, l)
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(atom)
}

// parsePostfix applies member access, indexing, calls and x++/x-- in a loop.
func (p *Parser) parsePostfix(x Expr) (Expr, error) {
	for {
		line := p.line()
		switch {
		case p.s.accept("->"), p.s.accept("."):
			op := "."
			if p.s.src[p.s.pos-1] == '>' {
				op = "->"
			}
			name, err := p.identifier()
			if err != nil {
				return nil, err
			}
			x = &BinaryExpr{Op: op, Left: x, Right: &Identifier{Name: name, Line: line}, Line: line}
		case p.s.accept("["):
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{Base: x, Index: idx, Line: line}
		case p.s.accept("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &CallExpr{Callee: x, Args: args, Line: line}
		default:
			op, ok := p.s.lookaheadAny(suffixOps)
			if !ok {
				return x, nil
			}
			p.s.accept(op)
			x = &SuffixExpr{Op: op, Operand: x, Line: line}
		}
	}
}

// parseArgs parses call arguments after the opening parenthesis.
func (p *Parser) parseArgs() ([]Expr, error) {
	args := []Expr{}
	if p.s.accept(")") {
		return args, nil
	}
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.s.accept(",") {
			break
		}
	}
	return args, p.expect(")")
}

func (p *Parser) parseAtom() (Expr, error) {
	line := p.line()
	switch {
	case p.s.accept("("):
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return x, p.expect(")")
	case p.s.peek() == '"':
		var sb strings.Builder
		for p.s.lookahead(`"`) {
			str, ok := p.s.readQuoted('"')
			if !ok {
				return nil, p.fail("string literal")
			}
			sb.WriteString(str)
		}
		return &Literal{Kind: StringLit, Str: sb.String(), Line: line}, nil
	case p.s.peek() == '\'':
		str, ok := p.s.readQuoted('\'')
		if !ok || len([]rune(str)) != 1 {
			return nil, p.fail("character literal")
		}
		return &Literal{Kind: CharLit, Int: int64([]rune(str)[0]), Line: line}, nil
	case p.s.lookahead("{"):
		return p.parseArrayLiteral()
	case p.s.numberIncoming():
		lit, ok := p.s.readNumber()
		if !ok {
			return nil, p.fail("number")
		}
		return lit, nil
	case p.s.identifierIncoming():
		return &Identifier{Name: p.s.readIdentifier(), Line: line}, nil
	}
	return nil, p.fail("expression")
}
