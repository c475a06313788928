package plan

import "github.com/antmodule/planq/internal/expr"

// Rewriter implements the subquery-to-join rewrite: an EXISTS or IN
// subquery conjunct in a Filter's predicate becomes a MarkJoin whose
// synthetic boolean column replaces the conjunct, and a scalar subquery
// wherever it appears becomes a SingleJoin whose right-side projected value
// replaces it. In both cases any conjunct of the subquery's own filter that
// references an outer column is pulled out and becomes the join's
// predicate instead, decorrelating the subquery into an ordinary join.
// Disabled via Options.EnableSubqueryToMarkJoin, in which case Subquery
// nodes are left in the tree for the executor to evaluate per outer row.
//
// Known limitation: a scalar subquery nested inside an Aggregate's HAVING
// clause is not lifted -- only Filter predicates and the top-level
// projection list are rewritten.
type Rewriter struct {
	Opt Options
}

func NewRewriter(opt Options) *Rewriter { return &Rewriter{Opt: opt} }

// Rewrite walks root and the top-level projection list together, since a
// scalar subquery can appear directly in a projection with no enclosing
// Filter to attach the lifted join to. It returns the possibly-restructured
// root and the possibly-rewritten projection list; both are still
// unresolved (ordinals -1) and must go through Resolver.Resolve next.
func (self *Rewriter) Rewrite(root LogicNode, output []expr.Expr) (LogicNode, []expr.Expr, error) {
	if !self.Opt.EnableSubqueryToMarkJoin {
		return root, output, nil
	}
	root, err := self.rewriteTree(root)
	if err != nil {
		return nil, nil, err
	}

	newOutput := make([]expr.Expr, len(output))
	for i, e := range output {
		fixed, newRoot, err := self.liftScalarSubqueries(root, e)
		if err != nil {
			return nil, nil, err
		}
		root = newRoot
		newOutput[i] = fixed
	}
	return root, newOutput, nil
}

func (self *Rewriter) rewriteTree(n LogicNode) (LogicNode, error) {
	if n == nil {
		return nil, nil
	}
	switch n.NodeKind() {
	case NodeFilter:
		f := n.(*Filter)
		child, err := self.rewriteTree(f.Child)
		if err != nil {
			return nil, err
		}
		f.Child = child
		return self.rewriteFilter(f)
	case NodeJoin:
		j := n.(*Join)
		l, err := self.rewriteTree(j.Left)
		if err != nil {
			return nil, err
		}
		r, err := self.rewriteTree(j.Right)
		if err != nil {
			return nil, err
		}
		j.Left, j.Right = l, r
		return j, nil
	case NodeAggregate:
		a := n.(*Aggregate)
		c, err := self.rewriteTree(a.Child)
		if err != nil {
			return nil, err
		}
		a.Child = c
		return a, nil
	case NodeOrder:
		o := n.(*Order)
		c, err := self.rewriteTree(o.Child)
		if err != nil {
			return nil, err
		}
		o.Child = c
		return o, nil
	case NodeInsert:
		ins := n.(*Insert)
		c, err := self.rewriteTree(ins.Child)
		if err != nil {
			return nil, err
		}
		ins.Child = c
		return ins, nil
	default:
		return n, nil
	}
}

// rewriteFilter extracts every EXISTS/IN subquery conjunct from f's
// predicate into a MarkJoin between f.Child and the subquery's own plan,
// replacing the conjunct with a reference to the join's marker column, then
// lifts any scalar subquery left in what remains of the predicate the same
// way the top-level projection list is lifted.
func (self *Rewriter) rewriteFilter(f *Filter) (LogicNode, error) {
	child := f.Child
	var kept []expr.Expr
	for _, c := range splitAnd(f.Filter()) {
		sq, ok := asBooleanSubquery(c)
		if !ok {
			kept = append(kept, c)
			continue
		}
		join, replacement, err := self.buildMarkJoin(child, sq)
		if err != nil {
			return nil, err
		}
		child = join
		kept = append(kept, replacement)
	}

	fixed, child, err := self.liftScalarSubqueries(child, andAll(kept))
	if err != nil {
		return nil, err
	}
	f.Child = child
	f.SetFilter(fixed)
	return f, nil
}

func asBooleanSubquery(c expr.Expr) (*expr.Subquery, bool) {
	sq, ok := c.(*expr.Subquery)
	if ok && (sq.Mode == expr.SubqueryExists || sq.Mode == expr.SubqueryIn) {
		return sq, true
	}
	return nil, false
}

// buildMarkJoin builds the MarkJoin a single EXISTS/IN conjunct rewrites
// into: for EXISTS, the subquery's own filter is split into the part that
// references outer columns (the join predicate) and the part that doesn't
// (kept as the right side's own filter); for IN, the join predicate is the
// equality between the IN expression's left-hand side and the subquery's
// sole projected column.
func (self *Rewriter) buildMarkJoin(left LogicNode, sq *expr.Subquery) (*Join, expr.Expr, error) {
	innerRoot, ok := sq.Plan.(LogicNode)
	if !ok {
		return nil, nil, newErr(InvalidProgram, "subquery-rewrite", nil, "subquery plan is not a logic node")
	}

	right, corr := extractCorrelated(innerRoot)
	var joinPred expr.Expr
	switch sq.Mode {
	case expr.SubqueryExists:
		joinPred = andAll(corr)
	case expr.SubqueryIn:
		if len(innerRoot.Output()) != 1 {
			return nil, nil, newErr(SemanticAnalyze, "subquery-rewrite", nil, "IN subquery must project exactly one column")
		}
		inEq := &expr.Binary{Op: expr.OpEq, L: expr.Clone(sq.InLHS, true), R: expr.Clone(innerRoot.Output()[0], true)}
		joinPred = andExprs(andAll(corr), inEq)
	default:
		return nil, nil, newErr(InvalidProgram, "subquery-rewrite", nil, "not a boolean subquery")
	}

	j := &Join{Left: left, Right: right, JoinType: JoinMark}
	j.SetFilter(joinPred)
	marker := &expr.ColRef{Alias: MarkerColumnName, TabRef: j.MarkerRef(), Ordinal: -1}
	return j, marker, nil
}

// extractCorrelated walks n looking for correlated conjuncts in any Filter
// it finds along the spine of Filter/Aggregate/Order nodes (it does not
// descend into a nested Join, since correlation below a join boundary is
// out of scope for this rewrite), pulling every outer-referencing conjunct
// out of that Filter's predicate and returning them as a flat slice. The
// returned node is n with each such Filter's predicate trimmed to its
// remaining non-correlated conjuncts, or spliced out of the tree entirely
// when nothing remains. A subquery with no correlated conjunct anywhere
// returns n unchanged and a nil slice -- still a valid MarkJoin whose
// marker records only "does the right side have any rows".
func extractCorrelated(n LogicNode) (LogicNode, []expr.Expr) {
	if n == nil {
		return nil, nil
	}
	switch n.NodeKind() {
	case NodeFilter:
		f := n.(*Filter)
		child, corrFromChild := extractCorrelated(f.Child)
		f.Child = child
		var corr, keep []expr.Expr
		for _, c := range splitAnd(f.Filter()) {
			if hasOuterRef(c) {
				corr = append(corr, c)
			} else {
				keep = append(keep, c)
			}
		}
		corr = append(corr, corrFromChild...)
		if len(keep) == 0 {
			return f.Child, corr
		}
		f.SetFilter(andAll(keep))
		return f, corr
	case NodeAggregate:
		a := n.(*Aggregate)
		child, corr := extractCorrelated(a.Child)
		a.Child = child
		return a, corr
	case NodeOrder:
		o := n.(*Order)
		child, corr := extractCorrelated(o.Child)
		o.Child = child
		return o, corr
	default:
		return n, nil
	}
}

func hasOuterRef(e expr.Expr) bool {
	return expr.VisitEachExists(e, func(x expr.Expr) bool {
		c, ok := x.(*expr.ColRef)
		return ok && c.OuterRef
	}, nil)
}

// liftScalarSubqueries walks e, replacing every scalar subquery it finds
// with a clone of that subquery's sole output column and threading child
// through a new SingleJoin for each one lifted, so a chain of scalar
// subqueries in the same expression nests a chain of SingleJoins.
func (self *Rewriter) liftScalarSubqueries(child LogicNode, e expr.Expr) (expr.Expr, LogicNode, error) {
	if e == nil {
		return nil, child, nil
	}
	if sq, ok := e.(*expr.Subquery); ok && sq.Mode == expr.SubqueryScalar {
		innerRoot, ok := sq.Plan.(LogicNode)
		if !ok {
			return nil, child, newErr(InvalidProgram, "subquery-rewrite", nil, "subquery plan is not a logic node")
		}
		if len(innerRoot.Output()) != 1 {
			return nil, child, newErr(SemanticAnalyze, "subquery-rewrite", nil, "scalar subquery must project exactly one column")
		}
		replacement := expr.Clone(innerRoot.Output()[0], true)
		right, corr := extractCorrelated(innerRoot)
		join := &Join{Left: child, Right: right, JoinType: JoinSingle}
		join.SetFilter(andAll(corr))
		return replacement, join, nil
	}

	switch e.Kind() {
	case expr.ExprBinary:
		b := e.(*expr.Binary)
		var l, r expr.Expr
		var err error
		if l, child, err = self.liftScalarSubqueries(child, b.L); err != nil {
			return nil, child, err
		}
		if r, child, err = self.liftScalarSubqueries(child, b.R); err != nil {
			return nil, child, err
		}
		return &expr.Binary{Op: b.Op, L: l, R: r}, child, nil
	case expr.ExprFunction:
		f := e.(*expr.Function)
		args := make([]expr.Expr, len(f.Args))
		for i, a := range f.Args {
			fixed, newChild, err := self.liftScalarSubqueries(child, a)
			if err != nil {
				return nil, child, err
			}
			child = newChild
			args[i] = fixed
		}
		return &expr.Function{Name: f.Name, Args: args}, child, nil
	case expr.ExprAggFunc:
		a := e.(*expr.AggFunc)
		arg, newChild, err := self.liftScalarSubqueries(child, a.Arg)
		if err != nil {
			return nil, child, err
		}
		return &expr.AggFunc{AggKind: a.AggKind, Arg: arg}, newChild, nil
	default:
		return e, child, nil
	}
}
