package model

// WalkNodes calls fn for every node in depth-first document order,
// descending into branch, loop, content and call-param bodies.
func WalkNodes(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		fn(n)
		switch node := n.(type) {
		case LetContent:
			WalkNodes(node.Body, fn)
		case If:
			for _, branch := range node.Branches {
				WalkNodes(branch.Body, fn)
			}
			WalkNodes(node.Else, fn)
		case Switch:
			for _, c := range node.Cases {
				WalkNodes(c.Body, fn)
			}
			WalkNodes(node.Default, fn)
		case Foreach:
			WalkNodes(node.Body, fn)
			WalkNodes(node.IfEmpty, fn)
		case For:
			WalkNodes(node.Body, fn)
		case Call:
			walkParamBodies(node.Params, fn)
		case DelCall:
			walkParamBodies(node.Params, fn)
		case Log:
			WalkNodes(node.Body, fn)
		}
	}
}

func walkParamBodies(params []CallParam, fn func(Node)) {
	for _, p := range params {
		WalkNodes(p.Body, fn)
	}
}

// NodeExprs returns the expressions a node evaluates directly, excluding
// those owned by nested nodes.
func NodeExprs(n Node) []Expr {
	switch node := n.(type) {
	case Print:
		out := []Expr{node.Value}
		return append(out, directiveArgs(node.Directives)...)
	case Let:
		return []Expr{node.Value}
	case If:
		out := make([]Expr, 0, len(node.Branches))
		for _, branch := range node.Branches {
			out = append(out, branch.Cond)
		}
		return out
	case Switch:
		out := []Expr{node.Value}
		for _, c := range node.Cases {
			out = append(out, c.Values...)
		}
		return out
	case Foreach:
		return []Expr{node.List}
	case For:
		out := make([]Expr, 0, 3)
		for _, e := range []Expr{node.Start, node.End, node.Step} {
			if e != nil {
				out = append(out, e)
			}
		}
		return out
	case Call:
		return callExprs(node.DataExpr, node.Params, node.Directives)
	case DelCall:
		out := callExprs(node.DataExpr, node.Params, node.Directives)
		if node.VariantExpr != nil {
			out = append(out, node.VariantExpr)
		}
		return out
	}
	return nil
}

func callExprs(dataExpr Expr, params []CallParam, directives []DirectiveCall) []Expr {
	var out []Expr
	if dataExpr != nil {
		out = append(out, dataExpr)
	}
	for _, p := range params {
		if p.Value != nil {
			out = append(out, p.Value)
		}
	}
	return append(out, directiveArgs(directives)...)
}

func directiveArgs(directives []DirectiveCall) []Expr {
	var out []Expr
	for _, d := range directives {
		out = append(out, d.Args...)
	}
	return out
}

// WalkExpr calls fn for the expression and every subexpression.
func WalkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch expr := e.(type) {
	case ListLit:
		for _, item := range expr.Items {
			WalkExpr(item, fn)
		}
	case MapLit:
		for _, entry := range expr.Entries {
			WalkExpr(entry.Key, fn)
			WalkExpr(entry.Value, fn)
		}
	case FieldAccess:
		WalkExpr(expr.Base, fn)
	case ItemAccess:
		WalkExpr(expr.Base, fn)
		WalkExpr(expr.Key, fn)
	case Unary:
		WalkExpr(expr.Operand, fn)
	case Binary:
		WalkExpr(expr.Left, fn)
		WalkExpr(expr.Right, fn)
	case Conditional:
		WalkExpr(expr.Cond, fn)
		WalkExpr(expr.Then, fn)
		WalkExpr(expr.Else, fn)
	case FuncCall:
		for _, arg := range expr.Args {
			WalkExpr(arg, fn)
		}
	}
}
