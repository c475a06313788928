package plan

import (
	"github.com/antmodule/planq/internal/expr"
)

// Resolver runs the ordinal-resolution pass over a bound logical tree:
// given the parent's required output expressions, it pushes requests down
// to children and rewrites each expression so every column reference
// carries its position in the producing child's output vector.
type Resolver struct {
	Opt Options
}

func NewResolver(opt Options) *Resolver { return &Resolver{Opt: opt} }

// Resolve implements the ordinal-resolution contract: given the parent's
// required output expressions, push requests down to children and rewrite
// each expression so every column reference carries its position in the
// producing child's output vector. A node that has already been resolved
// (a subquery plan bound and resolved standalone before being attached to a
// mark/single join) is left untouched. The resolved form of each reqOutput
// entry is written back into reqOutput, position by position, before the
// node's own output is deduplicated.
func (self *Resolver) Resolve(node LogicNode, reqOutput []expr.Expr, removeRedundant bool) error {
	if node.Resolved() {
		return nil
	}
	if err := self.resolveDispatch(node, reqOutput, false); err != nil {
		return err
	}
	out := node.Output()
	if node.NodeKind() != NodeResult && len(out) >= len(reqOutput) {
		copy(reqOutput, out[:len(reqOutput)])
	}
	deduped, err := dedupeIfRequested(out, removeRedundant)
	if err != nil {
		return err
	}
	node.SetOutput(deduped)
	node.MarkResolved()
	return nil
}

func (self *Resolver) resolveDispatch(node LogicNode, reqOutput []expr.Expr, removeRedundant bool) error {
	switch node.NodeKind() {
	case NodeScan:
		return self.resolveScan(node.(*Scan), reqOutput, removeRedundant)
	case NodeFilter:
		return self.resolveUnary(node, node.(*Filter).Child, reqOutput, removeRedundant)
	case NodeJoin:
		return self.resolveJoin(node.(*Join), reqOutput, removeRedundant)
	case NodeAggregate:
		return self.resolveAggregate(node.(*Aggregate), reqOutput, removeRedundant)
	case NodeOrder:
		return self.resolveOrder(node.(*Order), reqOutput, removeRedundant)
	case NodeFromQuery:
		return self.resolveFromQuery(node.(*FromQuery), reqOutput, removeRedundant)
	case NodeInsert:
		return self.resolveInsert(node.(*Insert), reqOutput)
	case NodeResult:
		return self.resolveResult(node.(*Result), reqOutput, removeRedundant)
	case NodeMemoRef:
		// A MemoRef carries no shape of its own; resolution is meaningless
		// without committing to a member, which is the search module's job.
		// The direct-translation path never resolves through an
		// unmaterialized MemoRef.
		return newErr(InvalidProgram, "resolve", nil, "cannot resolve through an unmaterialized MemoRef")
	default:
		return newErr(InvalidProgram, "resolve", nil, "unknown logic node kind %d", node.NodeKind())
	}
}

// resolveScan is a leaf: there is no child to push requests to, so
// childrenOutput is the table's own column list.
func (self *Resolver) resolveScan(n *Scan, reqOutput []expr.Expr, removeRedundant bool) error {
	childOutput := n.Table.AllColumnsRefs()

	if f := n.Filter(); f != nil {
		fixed, err := cloneFixColumnOrdinal(f, childOutput)
		if err != nil {
			return err
		}
		n.SetFilter(fixed)
	}

	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	out = n.Table.AddOuterRefsToOutput(out)
	n.SetOutput(out)
	return nil
}

// resolveUnary handles Filter: the non-outer column leaves of its predicate
// need to reach down through the child before the predicate and the output
// can be fixed against the child's resolved output.
func (self *Resolver) resolveUnary(n LogicNode, child LogicNode, reqOutput []expr.Expr, removeRedundant bool) error {
	reqFromChild := append([]expr.Expr{}, reqOutput...)
	for _, leaf := range expr.RetrieveAllColExpr(n.Filter()) {
		if !leaf.OuterRef {
			reqFromChild = appendUnique(reqFromChild, leaf)
		}
	}
	if err := self.Resolve(child, reqFromChild, true); err != nil {
		return err
	}
	childOutput := child.Output()

	if f := n.Filter(); f != nil {
		fixed, err := cloneFixColumnOrdinal(f, childOutput)
		if err != nil {
			return err
		}
		n.SetFilter(fixed)
	}
	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

func (self *Resolver) resolveOrder(n *Order, reqOutput []expr.Expr, removeRedundant bool) error {
	reqFromChild := unionExprs(reqOutput, n.OrderExprs)
	if err := self.Resolve(n.Child, reqFromChild, true); err != nil {
		return err
	}
	childOutput := n.Child.Output()

	fixedOrder := make([]expr.Expr, len(n.OrderExprs))
	for i, e := range n.OrderExprs {
		fixed, err := cloneFixColumnOrdinal(e, childOutput)
		if err != nil {
			return err
		}
		fixedOrder[i] = fixed
	}
	n.OrderExprs = fixedOrder

	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

func (self *Resolver) resolveFromQuery(n *FromQuery, reqOutput []expr.Expr, removeRedundant bool) error {
	// SubqueryRef.ProjectedOutput records the nested query's own select
	// list; resolving the child against it yields a child.Output() whose
	// shape lines up positionally with SubqueryRef.AllColumnsRefs(), so a
	// parent addressing this FromQuery by alias resolves to the matching
	// child position without ever inspecting the child directly.
	if err := self.Resolve(n.Child, n.SubqueryRef.ProjectedOutput, true); err != nil {
		return err
	}
	childOutput := n.SubqueryRef.AllColumnsRefs()
	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	out = n.SubqueryRef.AddOuterRefsToOutput(out)
	n.SetOutput(out)
	return nil
}

// resolveInsert implements the root-only node: reqOutput is the target
// table's column list (what the caller wants written), and the child is
// resolved against exactly that.
func (self *Resolver) resolveInsert(n *Insert, reqOutput []expr.Expr) error {
	if len(n.Output()) != 0 {
		return newErr(InvalidProgram, "resolve", nil, "insert output must start empty")
	}
	if err := self.Resolve(n.Child, reqOutput, false); err != nil {
		return err
	}
	n.SetOutput(n.Child.Output())
	return nil
}

// resolveResult is a leaf emitting a row of literals; there is nothing to
// push down, and the output is exactly its literal list.
func (self *Resolver) resolveResult(n *Result, reqOutput []expr.Expr, removeRedundant bool) error {
	out, err := dedupeIfRequested(n.Output(), removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

// resolveJoin dispatches Mark/SingleMark/Single joins to the apply-join
// resolution shape (see resolveApplyJoin for their output vectors) and every
// other join kind to the generic partition-based shape.
func (self *Resolver) resolveJoin(n *Join, reqOutput []expr.Expr, removeRedundant bool) error {
	switch n.JoinType {
	case JoinMark, JoinSingleMark, JoinSingle:
		return self.resolveApplyJoin(n, reqOutput, removeRedundant)
	default:
		return self.resolveGenericJoin(n, reqOutput, removeRedundant)
	}
}

// resolveApplyJoin resolves a Mark/SingleMark/Single join -- the three join
// types a subquery rewrite produces, whose predicate commonly carries an
// outer-scope (correlated) leaf that neither child's own table set owns.
// resolveGenericJoin's partition-by-referenced-table approach breaks on
// such a leaf (TableRefs ignores OuterRef columns, so a predicate like
// "a.k = b.k" with a.k correlated looks single-sided and would otherwise be
// pushed whole into the owning side's output list instead of being split
// into per-side leaves). This resolves each side against what the parent
// asked for (ignoring the synthetic marker column on Mark/SingleMark,
// which has no meaning to either child) plus each side's own non-outer
// predicate leaves, then fixes the predicate itself against the
// concatenated, now-resolved output of both sides. For Mark/SingleMark the
// node's own output vector is the left child's output with the marker
// column appended, since the right side is a membership probe, never
// projected; for Single the right side's own resolved output is appended
// instead, since a scalar subquery's lifted value has to come from there.
func (self *Resolver) resolveApplyJoin(n *Join, reqOutput []expr.Expr, removeRedundant bool) error {
	leftTables := collectTableRefs(n.Left)
	rightTables := collectTableRefs(n.Right)

	isMark := n.JoinType == JoinMark || n.JoinType == JoinSingleMark
	var markerRef expr.TableRef
	if isMark {
		markerRef = n.MarkerRef()
	}

	var leftReq []expr.Expr
	if isMark {
		for _, e := range reqOutput {
			if !isMarkerRef(e, markerRef) {
				leftReq = appendUnique(leftReq, e)
			}
		}
	} else {
		// a Single join's reqOutput can hold the lifted right-side value
		// itself (a clone that structurally matches an entry of
		// n.Right.Output()) next to left-side entries; only the entries that
		// match nothing in n.Right.Output() are requested from the left side.
		for _, e := range reqOutput {
			if matchWhole(e, n.Right.Output()) < 0 {
				leftReq = appendUnique(leftReq, e)
			}
		}
	}
	var rightReq []expr.Expr
	if pred := n.Filter(); pred != nil {
		for _, leaf := range expr.RetrieveAllColExpr(pred) {
			if leaf.OuterRef {
				continue
			}
			if leftTables[leaf.TabRef] {
				leftReq = appendUnique(leftReq, leaf)
			} else if rightTables[leaf.TabRef] {
				rightReq = appendUnique(rightReq, leaf)
			}
		}
	}

	if err := self.Resolve(n.Left, leftReq, true); err != nil {
		return err
	}
	if err := self.Resolve(n.Right, rightReq, true); err != nil {
		return err
	}

	if pred := n.Filter(); pred != nil {
		probeOutput := append(append([]expr.Expr{}, n.Left.Output()...), n.Right.Output()...)
		fixed, err := cloneFixColumnOrdinal(pred, probeOutput)
		if err != nil {
			return err
		}
		n.SetFilter(fixed)
	}

	var childOutput []expr.Expr
	if isMark {
		childOutput = append(append([]expr.Expr{}, n.Left.Output()...), markerRef.AllColumnsRefs()...)
	} else {
		childOutput = append(append([]expr.Expr{}, n.Left.Output()...), n.Right.Output()...)
	}
	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

func isMarkerRef(e expr.Expr, markerRef expr.TableRef) bool {
	c, ok := e.(*expr.ColRef)
	return ok && c.TabRef == markerRef
}

// resolveGenericJoin partitions each requested expression (and the join
// predicate) to the left or right child by its table-reference set,
// decomposing any expression that spans both sides into its ColRef leaves.
func (self *Resolver) resolveGenericJoin(n *Join, reqOutput []expr.Expr, removeRedundant bool) error {
	leftTables := collectTableRefs(n.Left)
	rightTables := collectTableRefs(n.Right)

	needed := unionExprs(reqOutput, exprList(n.Filter()))

	var leftReq, rightReq []expr.Expr
	for _, e := range needed {
		side, err := partition(e, leftTables, rightTables)
		if err != nil {
			return err
		}
		switch side {
		case sideLeft:
			leftReq = appendUnique(leftReq, e)
		case sideRight:
			rightReq = appendUnique(rightReq, e)
		case sideBoth:
			for _, leaf := range expr.RetrieveAllColExpr(e) {
				if leaf.OuterRef {
					continue
				}
				if leftTables[leaf.TabRef] {
					leftReq = appendUnique(leftReq, leaf)
				} else if rightTables[leaf.TabRef] {
					rightReq = appendUnique(rightReq, leaf)
				} else {
					return newErr(InvalidProgram, "resolve", leaf, "column belongs to neither side of the join")
				}
			}
		}
	}

	if err := self.Resolve(n.Left, leftReq, true); err != nil {
		return err
	}
	if err := self.Resolve(n.Right, rightReq, true); err != nil {
		return err
	}

	childOutput := append(append([]expr.Expr{}, n.Left.Output()...), n.Right.Output()...)

	if f := n.Filter(); f != nil {
		fixed, err := cloneFixColumnOrdinal(f, childOutput)
		if err != nil {
			return err
		}
		n.SetFilter(fixed)
	}

	out, err := fixList(reqOutput, childOutput, removeRedundant)
	if err != nil {
		return err
	}
	n.SetOutput(out)
	return nil
}

type side int

const (
	sideLeft side = iota
	sideRight
	sideBoth
)

func partition(e expr.Expr, left, right map[expr.TableRef]bool) (side, error) {
	refs := expr.TableRefs(e)
	if len(refs) == 0 {
		return sideLeft, nil // constant expression, pin to left arbitrarily
	}
	onLeft, onRight := false, false
	for t := range refs {
		if left[t] {
			onLeft = true
		} else if right[t] {
			onRight = true
		} else {
			return 0, newErr(InvalidProgram, "resolve", e, "column belongs to neither side of the join")
		}
	}
	switch {
	case onLeft && onRight:
		return sideBoth, nil
	case onLeft:
		return sideLeft, nil
	default:
		return sideRight, nil
	}
}

func collectTableRefs(n LogicNode) map[expr.TableRef]bool {
	out := make(map[expr.TableRef]bool)
	var walk func(LogicNode)
	walk = func(n LogicNode) {
		if n == nil {
			return
		}
		switch n.NodeKind() {
		case NodeScan:
			out[n.(*Scan).Table] = true
		case NodeFromQuery:
			out[n.(*FromQuery).SubqueryRef] = true
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
