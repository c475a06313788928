package expr

// VisitEach walks e pre-order, calling visit on every node including e
// itself.
func VisitEach(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch e.Kind() {
	case ExprBinary:
		b := e.(*Binary)
		VisitEach(b.L, visit)
		VisitEach(b.R, visit)
	case ExprFunction:
		for _, a := range e.(*Function).Args {
			VisitEach(a, visit)
		}
	case ExprAggFunc:
		VisitEach(e.(*AggFunc).Arg, visit)
	case ExprExprRef:
		VisitEach(e.(*ExprRef).Inner, visit)
	default:
		break
	}
}

// VisitEachExists walks e pre-order, returning true as soon as pred matches
// a node. Descent stops (without matching) at any node whose Kind() appears
// in stopKinds; this is used to avoid re-descending into already-resolved
// ExprRef wrappers during validation.
func VisitEachExists(e Expr, pred func(Expr) bool, stopKinds []int) bool {
	if e == nil {
		return false
	}
	for _, k := range stopKinds {
		if e.Kind() == k {
			return false
		}
	}
	if pred(e) {
		return true
	}
	switch e.Kind() {
	case ExprBinary:
		b := e.(*Binary)
		return VisitEachExists(b.L, pred, stopKinds) || VisitEachExists(b.R, pred, stopKinds)
	case ExprFunction:
		for _, a := range e.(*Function).Args {
			if VisitEachExists(a, pred, stopKinds) {
				return true
			}
		}
		return false
	case ExprAggFunc:
		return VisitEachExists(e.(*AggFunc).Arg, pred, stopKinds)
	case ExprExprRef:
		return VisitEachExists(e.(*ExprRef).Inner, pred, stopKinds)
	default:
		return false
	}
}

// RetrieveAllColExpr returns the ColRef leaves of e, in visitation order.
func RetrieveAllColExpr(e Expr) []*ColRef {
	var out []*ColRef
	VisitEach(e, func(x Expr) {
		if c, ok := x.(*ColRef); ok {
			out = append(out, c)
		}
	})
	return out
}

// TableRefs returns the set of table refs appearing in any non-outer ColRef
// of e. It is a derived property, never stored on the expression itself.
func TableRefs(e Expr) map[TableRef]bool {
	out := make(map[TableRef]bool)
	VisitEach(e, func(x Expr) {
		c, ok := x.(*ColRef)
		if !ok || c.OuterRef || c.TabRef == nil {
			return
		}
		out[c.TabRef] = true
	})
	return out
}

// NonFuncDependencies returns agg's argument as its only dependency:
// sum(a+b) yields {a+b}. When the argument is itself an aggregate call the
// result is empty. Only the top-level argument is checked; an aggregate
// nested deeper inside it, as in sum(a+max(b)), is not removed.
func NonFuncDependencies(agg *AggFunc) []Expr {
	var out []Expr
	var walk func(Expr)
	walk = func(e Expr) {
		if e == nil {
			return
		}
		if e.Kind() == ExprAggFunc {
			return
		}
		out = append(out, e)
	}
	walk(agg.Arg)
	return out
}
