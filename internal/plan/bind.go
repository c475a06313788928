package plan

import (
	"strings"

	"github.com/antmodule/planq/internal/catalog"
	"github.com/antmodule/planq/internal/expr"
)

// Binder turns a parsed SelectCore into a bound (but not yet ordinal-
// resolved) LogicNode tree: every ColRef gets its TabRef set or its
// OuterRef flag set, every nested subquery is recursively bound and fully
// resolved before being attached, and single-table WHERE conjuncts are
// pushed down onto their owning Scan.
type Binder struct {
	Catalog catalog.Catalog
	Opt     Options
}

func NewBinder(cat catalog.Catalog, opt Options) *Binder {
	return &Binder{Catalog: cat, Opt: opt}
}

// scope is one FROM-list's alias table, chained to its enclosing scope so a
// correlated subquery's column references can be chased outward.
type scope struct {
	outer *scope
	order []string
	tabs  map[string]expr.TableRef
	bind  *expr.BindContext
}

func newScope(outer *scope) *scope {
	s := &scope{outer: outer, tabs: make(map[string]expr.TableRef)}
	s.bind = &expr.BindContext{}
	if outer != nil {
		s.bind.Outer = outer.bind
	}
	return s
}

func (self *scope) add(alias string, t expr.TableRef) error {
	if _, dup := self.tabs[alias]; dup {
		return newErr(SemanticAnalyze, "bind", nil, "table alias %q already exists", alias)
	}
	self.tabs[alias] = t
	self.order = append(self.order, alias)
	self.bind.Tables = append(self.bind.Tables, t)
	return nil
}

// Bind binds sel into a LogicNode tree and returns the bound (not yet
// ordinal-resolved) projection list the caller passes to Resolver.Resolve.
func (self *Binder) Bind(sel *SelectCore) (LogicNode, []expr.Expr, error) {
	return self.bindSelect(sel, nil)
}

func (self *Binder) bindSelect(sel *SelectCore, outer *scope) (LogicNode, []expr.Expr, error) {
	if len(sel.From) == 0 {
		return nil, nil, newErr(InvalidProgram, "bind", nil, "select has no from clause")
	}

	sc := newScope(outer)

	var leaves []LogicNode
	var trefs []expr.TableRef
	for _, item := range sel.From {
		leaf, tref, err := self.bindFromItem(item, sc)
		if err != nil {
			return nil, nil, err
		}
		if err := sc.add(item.alias(), tref); err != nil {
			return nil, nil, err
		}
		leaves = append(leaves, leaf)
		trefs = append(trefs, tref)
	}

	bind := func(e expr.Expr) (expr.Expr, error) { return self.bindExpr(e, sc) }

	where, err := bind(sel.Where)
	if err != nil {
		return nil, nil, err
	}
	having, err := bind(sel.Having)
	if err != nil {
		return nil, nil, err
	}
	groupBy := make([]expr.Expr, len(sel.GroupBy))
	for i, g := range sel.GroupBy {
		if groupBy[i], err = bind(g); err != nil {
			return nil, nil, err
		}
	}
	proj := make([]expr.Expr, len(sel.Projection))
	for i, p := range sel.Projection {
		if proj[i], err = bind(p.Expr); err != nil {
			return nil, nil, err
		}
	}
	orderExprs := make([]expr.Expr, len(sel.OrderBy))
	orderDesc := make([]bool, len(sel.OrderBy))
	for i, o := range sel.OrderBy {
		if orderExprs[i], err = bind(o.Expr); err != nil {
			return nil, nil, err
		}
		orderDesc[i] = o.Desc
	}

	root, whereLeftover := self.buildJoinChain(leaves, trefs, where)

	residual := self.pushEarlyFilters(root, whereLeftover)
	if residual != nil {
		f := &Filter{Child: root}
		f.SetFilter(residual)
		root = f
	}

	isAgg := len(groupBy) > 0 || hasAggFunc(proj) || hasAggFunc([]expr.Expr{having})
	switch {
	case isAgg:
		agg := &Aggregate{Child: root, GroupKeys: groupBy}
		agg.SetFilter(having)
		root = agg
	case having != nil:
		return nil, nil, newErr(SemanticAnalyze, "bind", having, "having requires group by or an aggregate projection")
	default:
		break
	}

	if len(orderExprs) > 0 {
		root = &Order{Child: root, OrderExprs: orderExprs, Descending: orderDesc}
	}

	return root, proj, nil
}

// buildJoinChain builds a left-deep JoinInner chain over leaves and attaches
// to each Join the WHERE conjuncts that reference exactly the two sides
// brought together at that step -- the two-table single-equality case
// chooseInnerJoinStrategy needs to ever pick a HashJoin over a nested loop.
// It returns the built tree plus whatever of where it did not consume, for
// the caller to run through pushEarlyFilters as before.
func (self *Binder) buildJoinChain(leaves []LogicNode, trefs []expr.TableRef, where expr.Expr) (LogicNode, expr.Expr) {
	root := leaves[0]
	if len(leaves) == 1 {
		return root, where
	}

	conjuncts := splitAnd(where)
	consumed := make([]bool, len(conjuncts))
	joined := map[expr.TableRef]bool{trefs[0]: true}

	for i := 1; i < len(leaves); i++ {
		j := &Join{Left: root, Right: leaves[i], JoinType: JoinInner}
		for ci, c := range conjuncts {
			if consumed[ci] || hasSubquery(c) || hasOuterRef(c) {
				continue
			}
			refs := expr.TableRefs(c)
			if len(refs) != 2 || !refs[trefs[i]] {
				continue
			}
			other := otherTableRef(refs, trefs[i])
			if !joined[other] {
				continue
			}
			j.SetFilter(andExprs(j.Filter(), c))
			consumed[ci] = true
		}
		joined[trefs[i]] = true
		root = j
	}

	var leftover []expr.Expr
	for ci, c := range conjuncts {
		if !consumed[ci] {
			leftover = append(leftover, c)
		}
	}
	return root, andAll(leftover)
}

func otherTableRef(refs map[expr.TableRef]bool, exclude expr.TableRef) expr.TableRef {
	for t := range refs {
		if t != exclude {
			return t
		}
	}
	return nil
}

func (self *Binder) bindFromItem(item FromItem, sc *scope) (LogicNode, expr.TableRef, error) {
	if item.Sub != nil {
		innerRoot, innerProj, err := self.bindSelect(item.Sub, sc)
		if err != nil {
			return nil, nil, err
		}
		if err := NewResolver(self.Opt).Resolve(innerRoot, innerProj, true); err != nil {
			return nil, nil, err
		}
		ref := &expr.SubqueryRef{
			Plan:            innerRoot,
			ProjectedOutput: innerProj,
			BindContext:     sc.bind,
			Alias:           item.alias(),
		}
		return &FromQuery{Child: innerRoot, SubqueryRef: ref}, ref, nil
	}

	schema, ok := self.Catalog.Table(item.Table)
	if !ok {
		return nil, nil, newErr(SemanticAnalyze, "bind", nil, "unknown table %q", item.Table)
	}
	tbl := &expr.BaseTable{TableName: item.alias(), Columns: schema.Columns}
	return &Scan{Table: tbl}, tbl, nil
}

// bindExpr resolves every name in e against sc, climbing to enclosing scopes
// and marking OuterRef on a match there, and recursively binds any nested
// RawSubquery into a fully-resolved *expr.Subquery.
func (self *Binder) bindExpr(e expr.Expr, sc *scope) (expr.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Kind() {
	case expr.ExprColRef:
		return self.bindColRef(e.(*expr.ColRef), sc)
	case expr.ExprBinary:
		b := e.(*expr.Binary)
		l, err := self.bindExpr(b.L, sc)
		if err != nil {
			return nil, err
		}
		r, err := self.bindExpr(b.R, sc)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: b.Op, L: l, R: r}, nil
	case expr.ExprFunction:
		f := e.(*expr.Function)
		args := make([]expr.Expr, len(f.Args))
		for i, a := range f.Args {
			bound, err := self.bindExpr(a, sc)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		return &expr.Function{Name: f.Name, Args: args}, nil
	case expr.ExprAggFunc:
		a := e.(*expr.AggFunc)
		arg, err := self.bindExpr(a.Arg, sc)
		if err != nil {
			return nil, err
		}
		return &expr.AggFunc{AggKind: a.AggKind, Arg: arg}, nil
	case expr.ExprRawSubquery:
		return self.bindSubquery(e.(*RawSubquery), sc)
	default:
		return e, nil
	}
}

func (self *Binder) bindColRef(c *expr.ColRef, sc *scope) (expr.Expr, error) {
	tab, col := splitQualified(c.Alias)
	for s, outer := sc, false; s != nil; s, outer = s.outer, true {
		if tab != "" {
			t, ok := s.tabs[tab]
			if !ok {
				continue
			}
			return &expr.ColRef{Alias: col, TabRef: t, OuterRef: outer, Ordinal: -1}, nil
		}
		var match expr.TableRef
		matches := 0
		for _, alias := range s.order {
			t := s.tabs[alias]
			for _, out := range t.AllColumnsRefs() {
				if cr, ok := out.(*expr.ColRef); ok && cr.Alias == col {
					match = t
					matches++
					break
				}
			}
		}
		if matches > 1 {
			return nil, newErr(SemanticAnalyze, "bind", c, "ambiguous column reference %q", col)
		}
		if matches == 1 {
			return &expr.ColRef{Alias: col, TabRef: match, OuterRef: outer, Ordinal: -1}, nil
		}
	}
	return nil, newErr(SemanticAnalyze, "bind", c, "unknown column %q", c.Alias)
}

func splitQualified(alias string) (tab, col string) {
	if i := strings.IndexByte(alias, '.'); i >= 0 {
		return alias[:i], alias[i+1:]
	}
	return "", alias
}

// bindSubquery binds the nested query and resolves it standalone before
// attaching it, so Subquery.Plan is always a fully ordinal-resolved plan --
// whether the join rewrite later strips it out of the tree entirely or it
// stays as an opaque subtree the executor evaluates per outer row.
//
// The inner plan is resolved against its own declared projection plus any
// column a correlated filter conjunct references on the inner side: the
// join rewrite re-derives ordinals by column identity when it later lifts
// that conjunct into a join predicate, so the inner side's correlation
// columns must already be exposed in the inner plan's own output for that
// re-derivation to find them.
func (self *Binder) bindSubquery(rs *RawSubquery, sc *scope) (*expr.Subquery, error) {
	innerRoot, innerProj, err := self.bindSelect(rs.Query, sc)
	if err != nil {
		return nil, err
	}

	reqFromInner := append([]expr.Expr{}, innerProj...)
	for _, leaf := range peekCorrelatedLeaves(innerRoot) {
		reqFromInner = appendUnique(reqFromInner, leaf)
	}
	if err := NewResolver(self.Opt).Resolve(innerRoot, reqFromInner, true); err != nil {
		return nil, err
	}

	var lhs expr.Expr
	if rs.InLHS != nil {
		if lhs, err = self.bindExpr(rs.InLHS, sc); err != nil {
			return nil, err
		}
	}
	return &expr.Subquery{Mode: rs.Mode, InLHS: lhs, Plan: innerRoot, BindContext: sc.bind}, nil
}

// peekCorrelatedLeaves returns the inner-side ColRef leaves of every
// correlated filter conjunct reachable from n without descending into a
// nested join -- a read-only preview of what extractCorrelated will later
// pull out. As a side effect, any leaf found below an enclosing Aggregate is
// also recorded on that Aggregate's CorrelatedPassThrough, so resolving the
// aggregate standalone exposes it in the aggregate's own Output instead of
// demanding it appear in GROUP BY.
func peekCorrelatedLeaves(n LogicNode) []expr.Expr {
	var out []expr.Expr
	var enclosingAgg *Aggregate
	var walk func(LogicNode)
	walk = func(n LogicNode) {
		if n == nil {
			return
		}
		switch n.NodeKind() {
		case NodeFilter:
			f := n.(*Filter)
			for _, c := range splitAnd(f.Filter()) {
				if !hasOuterRef(c) {
					continue
				}
				for _, leaf := range expr.RetrieveAllColExpr(c) {
					if leaf.OuterRef {
						continue
					}
					out = append(out, leaf)
					if enclosingAgg != nil {
						enclosingAgg.CorrelatedPassThrough = appendUnique(enclosingAgg.CorrelatedPassThrough, leaf)
					}
				}
			}
			walk(f.Child)
		case NodeAggregate:
			a := n.(*Aggregate)
			prev := enclosingAgg
			enclosingAgg = a
			walk(a.Child)
			enclosingAgg = prev
		case NodeOrder:
			walk(n.(*Order).Child)
		default:
			break
		}
	}
	walk(n)
	return out
}

func hasAggFunc(list []expr.Expr) bool {
	for _, e := range list {
		if e == nil {
			continue
		}
		if expr.VisitEachExists(e, func(x expr.Expr) bool { return x.Kind() == expr.ExprAggFunc }, nil) {
			return true
		}
	}
	return false
}

// pushEarlyFilters splits where into its top-level AND conjuncts and pushes
// each conjunct that touches exactly one base table (and no subquery) onto
// that table's Scan node, ANDing it with whatever that Scan already carries.
// Everything else -- multi-table conjuncts, subquery-bearing conjuncts, and
// conjuncts whose lone table isn't a plain Scan -- is returned for the
// caller to wrap in a Filter above the join tree.
func (self *Binder) pushEarlyFilters(root LogicNode, where expr.Expr) expr.Expr {
	var residual []expr.Expr
	for _, c := range splitAnd(where) {
		if hasSubquery(c) {
			residual = append(residual, c)
			continue
		}
		if hasOuterRef(c) {
			// a correlated conjunct must stay reachable as a Filter node
			// above the scan, not buried in Scan.Filter, since
			// extractCorrelated only walks the Filter/Aggregate/Order
			// spine when the join rewrite later decorrelates it.
			residual = append(residual, c)
			continue
		}
		refs := expr.TableRefs(c)
		if len(refs) != 1 {
			residual = append(residual, c)
			continue
		}
		var only expr.TableRef
		for t := range refs {
			only = t
		}
		if scan := findScan(root, only); scan != nil {
			scan.SetFilter(andExprs(scan.Filter(), c))
			continue
		}
		residual = append(residual, c)
	}
	return andAll(residual)
}

func hasSubquery(e expr.Expr) bool {
	return expr.VisitEachExists(e, func(x expr.Expr) bool { return x.Kind() == expr.ExprSubquery }, nil)
}

func splitAnd(e expr.Expr) []expr.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*expr.Binary); ok && b.Op == expr.OpAnd {
		return append(splitAnd(b.L), splitAnd(b.R)...)
	}
	return []expr.Expr{e}
}

func andExprs(a, b expr.Expr) expr.Expr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return &expr.Binary{Op: expr.OpAnd, L: a, R: b}
	}
}

func andAll(list []expr.Expr) expr.Expr {
	var out expr.Expr
	for _, e := range list {
		out = andExprs(out, e)
	}
	return out
}

func findScan(n LogicNode, t expr.TableRef) *Scan {
	if n == nil {
		return nil
	}
	if n.NodeKind() == NodeScan && n.(*Scan).Table == t {
		return n.(*Scan)
	}
	for _, c := range n.Children() {
		if s := findScan(c, t); s != nil {
			return s
		}
	}
	return nil
}
