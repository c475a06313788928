package expr

// Clone deep-copies e. ColRef.Ordinal is reset to -1 unless preserveOrdinal
// is true, since a cloned tree is usually about to be re-resolved against a
// different child shape.
func Clone(e Expr, preserveOrdinal bool) Expr {
	if e == nil {
		return nil
	}
	switch e.Kind() {
	case ExprLiteral:
		v := *e.(*Literal)
		return &v
	case ExprColRef:
		c := e.(*ColRef)
		ordinal := c.Ordinal
		if !preserveOrdinal {
			ordinal = -1
		}
		return &ColRef{Alias: c.Alias, TabRef: c.TabRef, OuterRef: c.OuterRef, Ordinal: ordinal}
	case ExprBinary:
		b := e.(*Binary)
		return &Binary{Op: b.Op, L: Clone(b.L, preserveOrdinal), R: Clone(b.R, preserveOrdinal)}
	case ExprFunction:
		f := e.(*Function)
		args := make([]Expr, len(f.Args))
		for i, a := range f.Args {
			args[i] = Clone(a, preserveOrdinal)
		}
		return &Function{Name: f.Name, Args: args}
	case ExprAggFunc:
		a := e.(*AggFunc)
		return &AggFunc{AggKind: a.AggKind, Arg: Clone(a.Arg, preserveOrdinal)}
	case ExprSubquery:
		s := e.(*Subquery)
		// The owned plan is not deep-copied: once attached it is treated as
		// an opaque, immutable subtree that has already been planned.
		return &Subquery{Mode: s.Mode, InLHS: Clone(s.InLHS, preserveOrdinal), Plan: s.Plan, BindContext: s.BindContext}
	case ExprExprRef:
		r := e.(*ExprRef)
		return &ExprRef{Inner: Clone(r.Inner, preserveOrdinal), Ordinal: r.Ordinal}
	default:
		return nil
	}
}
