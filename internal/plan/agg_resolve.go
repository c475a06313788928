package plan

import "github.com/antmodule/planq/internal/expr"

// resolveAggregate resolves an Aggregate node's own two-phase shape.
// Aggregate's own "input vector" (what an ExprRef inside its output/having
// addresses) is GroupKeys followed by AggCore -- not its child's raw output
// -- because the executor's aggregation phase replaces each input row with
// exactly that shape.
func (self *Resolver) resolveAggregate(n *Aggregate, reqOutput []expr.Expr, removeRedundant bool) error {
	reqFromChild := append([]expr.Expr{}, n.GroupKeys...)
	walkAggDeps(n.GroupKeys, &reqFromChild)
	walkAggDeps(reqOutput, &reqFromChild)
	if having := n.Having(); having != nil {
		walkAggDeps([]expr.Expr{having}, &reqFromChild)
	}

	if err := self.Resolve(n.Child, reqFromChild, true); err != nil {
		return err
	}
	childOutput := n.Child.Output()

	fixedGroupKeys := make([]expr.Expr, len(n.GroupKeys))
	for i, gk := range n.GroupKeys {
		fixed, err := cloneFixColumnOrdinal(gk, childOutput)
		if err != nil {
			return err
		}
		fixedGroupKeys[i] = fixed
	}

	rw := &aggRewriter{n: n, unresolvedGroupKeys: n.GroupKeys, childOutput: childOutput, passThrough: n.CorrelatedPassThrough}

	out := make([]expr.Expr, 0, len(reqOutput))
	for _, e := range reqOutput {
		fixed, err := rw.rewrite(e)
		if err != nil {
			return err
		}
		out = append(out, fixed)
	}

	if having := n.Having(); having != nil {
		fixedHaving, err := rw.rewrite(having)
		if err != nil {
			return err
		}
		n.SetFilter(fixedHaving)
	}

	n.GroupKeys = fixedGroupKeys
	out, err := dedupeIfRequested(out, removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

// walkAggDeps collects, into *into, the expressions an Aggregate needs from
// its child to evaluate list: non-aggregate subtrees are requested whole
// (so plain group-by-key references resolve the normal way), and aggregate
// function arguments are requested via their non-function dependencies
// since those are what the child must produce.
func walkAggDeps(list []expr.Expr, into *[]expr.Expr) {
	var walk func(expr.Expr)
	walk = func(e expr.Expr) {
		if e == nil {
			return
		}
		if af, ok := e.(*expr.AggFunc); ok {
			for _, dep := range expr.NonFuncDependencies(af) {
				*into = appendUnique(*into, dep)
			}
			return
		}
		switch e.Kind() {
		case expr.ExprBinary:
			b := e.(*expr.Binary)
			walk(b.L)
			walk(b.R)
		case expr.ExprFunction:
			for _, a := range e.(*expr.Function).Args {
				walk(a)
			}
		case expr.ExprColRef:
			*into = appendUnique(*into, e)
		default:
			break
		}
	}
	for _, e := range list {
		walk(e)
	}
}

// aggRewriter walks a requested output/having expression, replacing
// group-key matches and aggregate-function subtrees with ExprRefs into the
// aggregate node's own input vector, and erroring on any bare column that
// survives neither path.
type aggRewriter struct {
	n                   *Aggregate
	unresolvedGroupKeys []expr.Expr
	childOutput         []expr.Expr
	passThrough         []expr.Expr
}

func (self *aggRewriter) isPassThrough(e expr.Expr) bool {
	for _, c := range self.passThrough {
		if expr.Equals(e, c) {
			return true
		}
	}
	return false
}

func (self *aggRewriter) rewrite(e expr.Expr) (expr.Expr, error) {
	if e == nil {
		return nil, nil
	}
	for i, gk := range self.unresolvedGroupKeys {
		if expr.Equals(e, gk) {
			fixed, err := cloneFixColumnOrdinal(e, self.childOutput)
			if err != nil {
				return nil, err
			}
			return &expr.ExprRef{Inner: fixed, Ordinal: i}, nil
		}
	}
	// a correlated subquery's inner column riding along in this aggregate's
	// own requested output, not a real projection -- resolve it against the
	// child like any other column instead of demanding it appear in GROUP BY.
	if e.Kind() == expr.ExprColRef && self.isPassThrough(e) {
		return cloneFixColumnOrdinal(e, self.childOutput)
	}
	switch e.Kind() {
	case expr.ExprAggFunc:
		af := e.(*expr.AggFunc)
		arg, err := cloneFixColumnOrdinal(af.Arg, self.childOutput)
		if err != nil {
			return nil, err
		}
		resolved := &expr.AggFunc{AggKind: af.AggKind, Arg: arg}
		idx := self.dedupAggCore(resolved)
		return &expr.ExprRef{Inner: resolved, Ordinal: len(self.n.GroupKeys) + idx}, nil
	case expr.ExprColRef:
		return nil, newErr(SemanticAnalyze, "resolve", e, "column must appear in group by clause")
	case expr.ExprBinary:
		b := e.(*expr.Binary)
		l, err := self.rewrite(b.L)
		if err != nil {
			return nil, err
		}
		r, err := self.rewrite(b.R)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: b.Op, L: l, R: r}, nil
	case expr.ExprFunction:
		f := e.(*expr.Function)
		args := make([]expr.Expr, len(f.Args))
		for i, a := range f.Args {
			fixed, err := self.rewrite(a)
			if err != nil {
				return nil, err
			}
			args[i] = fixed
		}
		return &expr.Function{Name: f.Name, Args: args}, nil
	case expr.ExprLiteral:
		return expr.Clone(e, true), nil
	case expr.ExprSubquery:
		return e, nil
	default:
		return expr.Clone(e, true), nil
	}
}

func (self *aggRewriter) dedupAggCore(resolved *expr.AggFunc) int {
	for i, existing := range self.n.AggCore {
		if expr.Equals(existing, resolved) {
			return i
		}
	}
	self.n.AggCore = append(self.n.AggCore, resolved)
	return len(self.n.AggCore) - 1
}
