package compiler

// UnusedFunctions returns the defined functions that can never run: not
// main, not a callback, and not reachable from either or from a global
// initializer. They are reported in source order.
func UnusedFunctions(prog *Program) []*FunctionDecl {
	funcs := make(map[string]*FunctionDecl)
	for _, d := range prog.Decls {
		if f, ok := d.(*FunctionDecl); ok && f.Body != nil {
			funcs[f.Name] = f
		}
	}

	reachable := make(map[string]bool)
	var worklist []string
	mark := func(name string) {
		if _, ok := funcs[name]; ok && !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	mark("main")
	for _, name := range Callbacks {
		mark(name)
	}
	for _, d := range prog.Decls {
		switch d := d.(type) {
		case *GlobalVarDecl:
			namesInExpr(d.Init, mark)
		case *EnumDef:
			for _, m := range d.Members {
				namesInExpr(m.Value, mark)
			}
		}
	}

	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]
		namesInStmts(funcs[curr].Body, mark)
	}

	var unused []*FunctionDecl
	for _, d := range prog.Decls {
		if f, ok := d.(*FunctionDecl); ok && f.Body != nil && !reachable[f.Name] {
			unused = append(unused, f)
		}
	}
	return unused
}

// namesInExpr reports every identifier in e. A function is reachable when
// its name appears, whether it is called or taken as a value.
func namesInExpr(e Expr, mark func(string)) {
	switch n := e.(type) {
	case *Identifier:
		mark(n.Name)
	case *Literal:
		for _, el := range n.Elems {
			namesInExpr(el, mark)
		}
	case *BinaryExpr:
		namesInExpr(n.Left, mark)
		// The right side of a member access is a field name.
		if n.Op != "." && n.Op != "->" {
			namesInExpr(n.Right, mark)
		}
	case *PrefixExpr:
		namesInExpr(n.Operand, mark)
	case *SuffixExpr:
		namesInExpr(n.Operand, mark)
	case *IndexExpr:
		namesInExpr(n.Base, mark)
		namesInExpr(n.Index, mark)
	case *CallExpr:
		namesInExpr(n.Callee, mark)
		for _, arg := range n.Args {
			namesInExpr(arg, mark)
		}
	case *CastExpr:
		namesInExpr(n.Value, mark)
	}
}

func namesInStmts(body []Stmt, mark func(string)) {
	for _, s := range body {
		switch n := s.(type) {
		case *ExprStmt:
			namesInExpr(n.X, mark)
		case *VarDecl:
			namesInExpr(n.Init, mark)
		case *ReturnStmt:
			namesInExpr(n.Value, mark)
		case *BlockStmt:
			namesInStmts(n.Body, mark)
		case *IfStmt:
			namesInExpr(n.Cond, mark)
			namesInStmts(n.Then, mark)
			namesInStmts(n.Else, mark)
		case *WhileStmt:
			namesInExpr(n.Cond, mark)
			namesInStmts(n.Body, mark)
		case *DoWhileStmt:
			namesInStmts(n.Body, mark)
			namesInExpr(n.Cond, mark)
		case *ForStmt:
			if n.Init != nil {
				namesInStmts([]Stmt{n.Init}, mark)
			}
			namesInExpr(n.Cond, mark)
			namesInExpr(n.Step, mark)
			namesInStmts(n.Body, mark)
		}
	}
}
