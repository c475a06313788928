package plan

import "github.com/antmodule/planq/internal/expr"

func exprList(e expr.Expr) []expr.Expr {
	if e == nil {
		return nil
	}
	return []expr.Expr{e}
}

func appendUnique(list []expr.Expr, e expr.Expr) []expr.Expr {
	for _, x := range list {
		if expr.Equals(x, e) {
			return list
		}
	}
	return append(list, e)
}

func unionExprs(a, b []expr.Expr) []expr.Expr {
	out := append([]expr.Expr{}, a...)
	for _, e := range b {
		out = appendUnique(out, e)
	}
	return out
}

// fixList rewrites each requested expression against childOutput via
// cloneFixColumnOrdinal, optionally deduplicating the result.
func fixList(reqOutput, childOutput []expr.Expr, removeRedundant bool) ([]expr.Expr, error) {
	out := make([]expr.Expr, 0, len(reqOutput))
	for _, e := range reqOutput {
		fixed, err := cloneFixColumnOrdinal(e, childOutput)
		if err != nil {
			return nil, err
		}
		out = append(out, fixed)
	}
	return dedupeIfRequested(out, removeRedundant)
}

func dedupeIfRequested(list []expr.Expr, removeRedundant bool) ([]expr.Expr, error) {
	if !removeRedundant {
		return list, nil
	}
	out := make([]expr.Expr, 0, len(list))
	for _, e := range list {
		dup := false
		for _, x := range out {
			if expr.Equals(x, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out, nil
}

// cloneFixColumnOrdinal rewrites e so every column reference it contains
// carries its ordinal position in childrenOutput. A whole compound-
// expression match against childrenOutput short-circuits into an ExprRef; a
// bare ColRef always resolves to a direct ordinal rather than an ExprRef
// wrapper, preserving the invariant that childrenOutput[c.Ordinal] is
// structurally equal to c.
func cloneFixColumnOrdinal(e expr.Expr, childrenOutput []expr.Expr) (expr.Expr, error) {
	if e == nil {
		return nil, nil
	}
	if e.Kind() != expr.ExprColRef {
		if idx := matchWhole(e, childrenOutput); idx >= 0 {
			return &expr.ExprRef{Inner: expr.Clone(e, false), Ordinal: idx}, nil
		}
	}
	switch e.Kind() {
	case expr.ExprColRef:
		c := e.(*expr.ColRef)
		if c.OuterRef {
			return expr.Clone(e, true), nil
		}
		idx, err := matchColRef(c, childrenOutput)
		if err != nil {
			return nil, err
		}
		return &expr.ColRef{Alias: c.Alias, TabRef: c.TabRef, Ordinal: idx}, nil
	case expr.ExprBinary:
		b := e.(*expr.Binary)
		l, err := cloneFixColumnOrdinal(b.L, childrenOutput)
		if err != nil {
			return nil, err
		}
		r, err := cloneFixColumnOrdinal(b.R, childrenOutput)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: b.Op, L: l, R: r}, nil
	case expr.ExprFunction:
		f := e.(*expr.Function)
		args := make([]expr.Expr, len(f.Args))
		for i, a := range f.Args {
			fixed, err := cloneFixColumnOrdinal(a, childrenOutput)
			if err != nil {
				return nil, err
			}
			args[i] = fixed
		}
		return &expr.Function{Name: f.Name, Args: args}, nil
	case expr.ExprAggFunc:
		a := e.(*expr.AggFunc)
		arg, err := cloneFixColumnOrdinal(a.Arg, childrenOutput)
		if err != nil {
			return nil, err
		}
		return &expr.AggFunc{AggKind: a.AggKind, Arg: arg}, nil
	case expr.ExprExprRef:
		r := e.(*expr.ExprRef)
		inner, err := cloneFixColumnOrdinal(r.Inner, childrenOutput)
		if err != nil {
			return nil, err
		}
		return &expr.ExprRef{Inner: inner, Ordinal: r.Ordinal}, nil
	case expr.ExprSubquery:
		return e, nil // opaque, already planned
	default:
		return expr.Clone(e, true), nil
	}
}

func matchWhole(e expr.Expr, childrenOutput []expr.Expr) int {
	for i, c := range childrenOutput {
		if expr.Equals(e, c) {
			return i
		}
	}
	return -1
}

func matchColRef(c *expr.ColRef, childrenOutput []expr.Expr) (int, error) {
	exact := -1
	var aliasMatches []int
	for i, co := range childrenOutput {
		other, ok := co.(*expr.ColRef)
		if !ok {
			continue
		}
		if other.TabRef == c.TabRef && other.Alias == c.Alias {
			exact = i
			break
		}
		if other.Alias == c.Alias {
			aliasMatches = append(aliasMatches, i)
		}
	}
	if exact >= 0 {
		return exact, nil
	}
	if len(aliasMatches) == 1 {
		return aliasMatches[0], nil
	}
	if len(aliasMatches) > 1 {
		return -1, newErr(SemanticAnalyze, "resolve", c, "ambiguous column reference %q", c.Alias)
	}
	return -1, newErr(InvalidProgram, "resolve", c, "column %q not found in producing child's output", c.Alias)
}
