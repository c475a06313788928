package expr

// SearchReplace returns a clone of e with every subtree structurally equal
// to target replaced by replacement. Ordinals are preserved on the parts
// that are not replaced, since this operates on already-resolved trees as
// well as unresolved ones -- the subquery-to-join rewriter is the main
// caller, substituting a marker or scalar reference for a subquery it just
// turned into a join.
func SearchReplace(e, target, replacement Expr) Expr {
	if e == nil {
		return nil
	}
	if Equals(e, target) {
		return Clone(replacement, true)
	}
	switch e.Kind() {
	case ExprBinary:
		b := e.(*Binary)
		return &Binary{Op: b.Op, L: SearchReplace(b.L, target, replacement), R: SearchReplace(b.R, target, replacement)}
	case ExprFunction:
		f := e.(*Function)
		args := make([]Expr, len(f.Args))
		for i, a := range f.Args {
			args[i] = SearchReplace(a, target, replacement)
		}
		return &Function{Name: f.Name, Args: args}
	case ExprAggFunc:
		a := e.(*AggFunc)
		return &AggFunc{AggKind: a.AggKind, Arg: SearchReplace(a.Arg, target, replacement)}
	case ExprExprRef:
		r := e.(*ExprRef)
		return &ExprRef{Inner: SearchReplace(r.Inner, target, replacement), Ordinal: r.Ordinal}
	default:
		return Clone(e, true)
	}
}
