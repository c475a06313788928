package physic

import (
	"github.com/antmodule/planq/internal/expr"
	"github.com/antmodule/planq/internal/plan"
)

// Translate walks n in a single post-order pass, producing the physical
// counterpart of the logical root. Every Subquery expression reachable
// through a Scan or Filter's predicate is itself translated recursively,
// and the whole tree is wrapped in Profiling decorators when requested.
func Translate(n plan.LogicNode, opt plan.Options) (Node, error) {
	phys, err := translate(n, opt)
	if err != nil {
		return nil, err
	}
	return maybeProfile(phys, opt), nil
}

func translate(n plan.LogicNode, opt plan.Options) (Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.NodeKind() {
	case plan.NodeScan:
		return translateScan(n.(*plan.Scan), opt)
	case plan.NodeFilter:
		return translateFilter(n.(*plan.Filter), opt)
	case plan.NodeJoin:
		return translateJoin(n.(*plan.Join), opt)
	case plan.NodeAggregate:
		return translateAggregate(n.(*plan.Aggregate), opt)
	case plan.NodeOrder:
		return translateOrder(n.(*plan.Order), opt)
	case plan.NodeFromQuery:
		return translateFromQuery(n.(*plan.FromQuery), opt)
	case plan.NodeInsert:
		return translateInsert(n.(*plan.Insert), opt)
	case plan.NodeResult:
		return &Result{base: base{output: n.Output()}}, nil
	case plan.NodeMemoRef:
		return translate(n.(*plan.MemoRef).Canonical(), opt)
	default:
		return nil, newErr("translate", "no physical mapping for logical node kind %q", logicKind(n))
	}
}

func translateScan(n *plan.Scan, opt plan.Options) (Node, error) {
	filter, err := translateExprSubqueries(n.Filter(), opt)
	if err != nil {
		return nil, err
	}
	b := base{output: n.Output()}
	if _, ok := n.Table.(*expr.ExternalFile); ok {
		return &ScanFile{base: b, File: n.Table, Filter: filter}, nil
	}
	return &ScanTable{base: b, Table: n.Table, Filter: filter}, nil
}

func translateFilter(n *plan.Filter, opt plan.Options) (Node, error) {
	child, err := translate(n.Child, opt)
	if err != nil {
		return nil, err
	}
	pred, err := translateExprSubqueries(n.Filter(), opt)
	if err != nil {
		return nil, err
	}
	return &Filter{base: base{output: n.Output()}, Child: maybeProfile(child, opt), Predicate: pred}, nil
}

func translateJoin(n *plan.Join, opt plan.Options) (Node, error) {
	left, err := translate(n.Left, opt)
	if err != nil {
		return nil, err
	}
	right, err := translate(n.Right, opt)
	if err != nil {
		return nil, err
	}
	left, right = maybeProfile(left, opt), maybeProfile(right, opt)
	b := base{output: n.Output()}
	pred := n.Filter()

	switch n.JoinType {
	case plan.JoinMark:
		return &MarkJoin{base: b, Left: left, Right: right, Predicate: pred}, nil
	case plan.JoinSingleMark:
		return &SingleMarkJoin{base: b, Left: left, Right: right, Predicate: pred}, nil
	case plan.JoinSingle:
		return &SingleJoin{base: b, Left: left, Right: right, Predicate: pred}, nil
	default:
		return chooseInnerJoinStrategy(b, left, right, n, opt)
	}
}

// chooseInnerJoinStrategy implements the hash-vs-nested-loop decision: hash
// join fires only when the predicate is a single binary equality whose two
// sides partition cleanly across the left/right table sets and the left
// subtree carries no outer reference, and only when hash join is enabled.
// Everything else -- composite AND-of-equalities included, since a
// composite predicate is only hashable when every one of its conjuncts
// individually is, and this core does not attempt that decomposition --
// falls back to nested-loop.
func chooseInnerJoinStrategy(b base, left, right Node, n *plan.Join, opt plan.Options) (Node, error) {
	pred := n.Filter()
	if opt.EnableHashJoin {
		if lk, rk, ok := hashableEquality(pred, n.Left, n.Right); ok {
			return &HashJoin{base: b, Left: left, Right: right, LeftKey: lk, RightKey: rk}, nil
		}
	}
	if !opt.EnableNLJoin {
		return nil, newErr("translate", "join predicate %v is not hashable and nested-loop join is disabled", pred)
	}
	return &NLJoin{base: b, Left: left, Right: right, Predicate: pred}, nil
}

// hashableEquality reports whether pred is "l = r" with l's columns drawn
// entirely from left's tables, r's from right's (or vice versa), neither
// side empty, and no outer reference on either side -- the single-equality
// form the core core recognizes. It returns the key expressions oriented so
// the first belongs to left and the second to right.
func hashableEquality(pred expr.Expr, left, right plan.LogicNode) (leftKey, rightKey expr.Expr, ok bool) {
	b, isBin := pred.(*expr.Binary)
	if !isBin || b.Op != expr.OpEq {
		return nil, nil, false
	}
	if hasOuterLeaf(b.L) || hasOuterLeaf(b.R) {
		return nil, nil, false
	}
	leftTables := collectTableRefs(left)
	rightTables := collectTableRefs(right)

	lRefs, rRefs := expr.TableRefs(b.L), expr.TableRefs(b.R)
	if len(lRefs) == 0 || len(rRefs) == 0 {
		return nil, nil, false
	}
	if allIn(lRefs, leftTables) && allIn(rRefs, rightTables) {
		return b.L, b.R, true
	}
	if allIn(lRefs, rightTables) && allIn(rRefs, leftTables) {
		return b.R, b.L, true
	}
	return nil, nil, false
}

func hasOuterLeaf(e expr.Expr) bool {
	for _, c := range expr.RetrieveAllColExpr(e) {
		if c.OuterRef {
			return true
		}
	}
	return false
}

func allIn(refs map[expr.TableRef]bool, set map[expr.TableRef]bool) bool {
	for t := range refs {
		if !set[t] {
			return false
		}
	}
	return true
}

func collectTableRefs(n plan.LogicNode) map[expr.TableRef]bool {
	out := make(map[expr.TableRef]bool)
	var walk func(plan.LogicNode)
	walk = func(n plan.LogicNode) {
		if n == nil {
			return
		}
		switch n.NodeKind() {
		case plan.NodeScan:
			out[n.(*plan.Scan).Table] = true
		case plan.NodeFromQuery:
			out[n.(*plan.FromQuery).SubqueryRef] = true
		default:
			break
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

func translateAggregate(n *plan.Aggregate, opt plan.Options) (Node, error) {
	child, err := translate(n.Child, opt)
	if err != nil {
		return nil, err
	}
	having, err := translateExprSubqueries(n.Having(), opt)
	if err != nil {
		return nil, err
	}
	return &HashAgg{
		base:      base{output: n.Output()},
		Child:     maybeProfile(child, opt),
		GroupKeys: n.GroupKeys,
		AggCore:   n.AggCore,
		Having:    having,
	}, nil
}

func translateOrder(n *plan.Order, opt plan.Options) (Node, error) {
	child, err := translate(n.Child, opt)
	if err != nil {
		return nil, err
	}
	return &Order{
		base:       base{output: n.Output()},
		Child:      maybeProfile(child, opt),
		OrderExprs: n.OrderExprs,
		Descending: n.Descending,
	}, nil
}

func translateFromQuery(n *plan.FromQuery, opt plan.Options) (Node, error) {
	child, err := translate(n.Child, opt)
	if err != nil {
		return nil, err
	}
	return &FromQuery{base: base{output: n.Output()}, Child: maybeProfile(child, opt), SubqueryRef: n.SubqueryRef}, nil
}

func translateInsert(n *plan.Insert, opt plan.Options) (Node, error) {
	child, err := translate(n.Child, opt)
	if err != nil {
		return nil, err
	}
	return &Insert{base: base{output: n.Output()}, Child: maybeProfile(child, opt), TargetTable: n.TargetTable}, nil
}

// translateExprSubqueries walks e, translating the plan of every Subquery
// node it finds in place (a subquery left in the tree because the rewriter
// is disabled, or a scalar subquery inside an Aggregate's HAVING clause,
// which the rewriter does not lift) so the executor never has to fall back
// to logical evaluation for it.
func translateExprSubqueries(e expr.Expr, opt plan.Options) (expr.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Kind() {
	case expr.ExprSubquery:
		sq := e.(*expr.Subquery)
		innerLogic, ok := sq.Plan.(plan.LogicNode)
		if !ok {
			return sq, nil // already physical, e.g. re-translating a cached plan
		}
		innerPhys, err := Translate(innerLogic, opt)
		if err != nil {
			return nil, err
		}
		return &expr.Subquery{Mode: sq.Mode, InLHS: sq.InLHS, Plan: innerPhys, BindContext: sq.BindContext}, nil
	case expr.ExprBinary:
		b := e.(*expr.Binary)
		l, err := translateExprSubqueries(b.L, opt)
		if err != nil {
			return nil, err
		}
		r, err := translateExprSubqueries(b.R, opt)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: b.Op, L: l, R: r}, nil
	case expr.ExprFunction:
		f := e.(*expr.Function)
		args := make([]expr.Expr, len(f.Args))
		for i, a := range f.Args {
			fixed, err := translateExprSubqueries(a, opt)
			if err != nil {
				return nil, err
			}
			args[i] = fixed
		}
		return &expr.Function{Name: f.Name, Args: args}, nil
	case expr.ExprAggFunc:
		a := e.(*expr.AggFunc)
		arg, err := translateExprSubqueries(a.Arg, opt)
		if err != nil {
			return nil, err
		}
		return &expr.AggFunc{AggKind: a.AggKind, Arg: arg}, nil
	case expr.ExprExprRef:
		r := e.(*expr.ExprRef)
		inner, err := translateExprSubqueries(r.Inner, opt)
		if err != nil {
			return nil, err
		}
		return &expr.ExprRef{Inner: inner, Ordinal: r.Ordinal}, nil
	default:
		return e, nil
	}
}

func maybeProfile(n Node, opt plan.Options) Node {
	if n == nil || !opt.ProfilingEnabled {
		return n
	}
	if _, already := n.(*Profiling); already {
		return n
	}
	return &Profiling{Wrapped: n}
}
