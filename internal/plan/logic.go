package plan

import (
	"github.com/antmodule/planq/internal/expr"
	"github.com/antmodule/planq/internal/memo"
)

// NodeKind tags the closed LogicNode family.
type NodeKind int

const (
	NodeScan NodeKind = iota
	NodeFilter
	NodeJoin
	NodeAggregate
	NodeOrder
	NodeFromQuery
	NodeInsert
	NodeResult
	NodeMemoRef
)

// LogicNode is a tagged variant over the closed logical-plan node family.
// Every node carries an optional filter, an output expression list (empty
// until resolved) and an ordered list of children. filter plays a role
// specific to the node kind: it is the predicate on Filter and Join nodes,
// the HAVING clause on Aggregate, and an optional pushed-down WHERE on Scan.
type LogicNode interface {
	expr.LogicalPlan // Output() []expr.Expr

	NodeKind() NodeKind
	Filter() expr.Expr
	SetFilter(expr.Expr)
	SetOutput([]expr.Expr)
	Children() []LogicNode
	MemoSign() string

	// Resolved reports whether resolution has already run over this node.
	// A subquery's plan root resolves once, standalone, when the subquery
	// is bound; the enclosing join built for it during the join rewrite
	// must not resolve it a second time.
	Resolved() bool
	MarkResolved()
}

type base struct {
	filter   expr.Expr
	output   []expr.Expr
	resolved bool
}

func (self *base) Filter() expr.Expr       { return self.filter }
func (self *base) SetFilter(f expr.Expr)   { self.filter = f }
func (self *base) Output() []expr.Expr     { return self.output }
func (self *base) SetOutput(o []expr.Expr) { self.output = o }
func (self *base) Resolved() bool          { return self.resolved }
func (self *base) MarkResolved()           { self.resolved = true }

// Scan is a leaf node over a BaseTable or ExternalFile TableRef.
type Scan struct {
	base
	Table expr.TableRef
}

func (self *Scan) NodeKind() NodeKind    { return NodeScan }
func (self *Scan) Children() []LogicNode { return nil }
func (self *Scan) MemoSign() string      { return signOf(self) }

// Filter is a unary selection node.
type Filter struct {
	base
	Child LogicNode
}

func (self *Filter) NodeKind() NodeKind    { return NodeFilter }
func (self *Filter) Children() []LogicNode { return []LogicNode{self.Child} }
func (self *Filter) MemoSign() string      { return signOf(self) }

// JoinType tags the join strategies a Join node can carry.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinSemi
	JoinAntiSemi
	JoinMark
	JoinSingle
	JoinSingleMark
)

func (self JoinType) String() string {
	switch self {
	case JoinInner:
		return "Inner"
	case JoinLeft:
		return "Left"
	case JoinRight:
		return "Right"
	case JoinFull:
		return "Full"
	case JoinCross:
		return "Cross"
	case JoinSemi:
		return "Semi"
	case JoinAntiSemi:
		return "AntiSemi"
	case JoinMark:
		return "MarkJoin"
	case JoinSingle:
		return "SingleJoin"
	case JoinSingleMark:
		return "SingleMarkJoin"
	default:
		return "Unknown"
	}
}

// Join is a binary node; its filter field (when set) is the join predicate.
type Join struct {
	base
	Left, Right LogicNode
	JoinType    JoinType

	marker *markerSource
}

func (self *Join) NodeKind() NodeKind    { return NodeJoin }
func (self *Join) Children() []LogicNode { return []LogicNode{self.Left, self.Right} }
func (self *Join) MemoSign() string      { return signOf(self) }

// MarkerRef returns the synthetic single-column table reference a
// MarkJoin/SingleMarkJoin exposes on its left side: a boolean "#marker"
// column recording whether the right side matched. It is created lazily so
// ordinary joins never allocate one.
func (self *Join) MarkerRef() expr.TableRef {
	if self.marker == nil {
		self.marker = &markerSource{j: self}
	}
	return self.marker
}

// MarkerColumnName is the synthetic boolean column a MarkJoin/SingleMarkJoin
// produces.
const MarkerColumnName = "#marker"

// markerSource is a one-column TableRef standing in for a mark join's
// synthetic output column, so the rewriter can address it with an ordinary
// ColRef before ordinal resolution runs.
type markerSource struct {
	j *Join
}

func (self *markerSource) Name() string { return MarkerColumnName }

func (self *markerSource) AllColumnsRefs() []expr.Expr {
	return []expr.Expr{&expr.ColRef{Alias: MarkerColumnName, TabRef: self, Ordinal: -1}}
}

func (self *markerSource) AddOuterRefsToOutput(list []expr.Expr) []expr.Expr { return list }

// Aggregate is a unary node; its filter field (when set) is the HAVING
// clause. AggCore is populated during resolution with the deduplicated list
// of aggregate functions extracted from Output, in discovery order.
type Aggregate struct {
	base
	Child      LogicNode
	GroupKeys  []expr.Expr
	AggCore    []*expr.AggFunc

	// CorrelatedPassThrough lists inner columns a correlated subquery's
	// decorrelation needs to find in this aggregate's own resolved Output
	// even though they are neither a group key nor an aggregate argument.
	// Set by the binder only, never by ordinary SELECT binding.
	CorrelatedPassThrough []expr.Expr
}

func (self *Aggregate) NodeKind() NodeKind    { return NodeAggregate }
func (self *Aggregate) Children() []LogicNode { return []LogicNode{self.Child} }
func (self *Aggregate) MemoSign() string      { return signOf(self) }
func (self *Aggregate) Having() expr.Expr     { return self.filter }

// Order is a unary node sorting Child's rows.
type Order struct {
	base
	Child       LogicNode
	OrderExprs  []expr.Expr
	Descending  []bool
}

func (self *Order) NodeKind() NodeKind    { return NodeOrder }
func (self *Order) Children() []LogicNode { return []LogicNode{self.Child} }
func (self *Order) MemoSign() string      { return signOf(self) }

// FromQuery wraps a nested query's plan root as a relation.
type FromQuery struct {
	base
	Child       LogicNode
	SubqueryRef *expr.SubqueryRef
}

func (self *FromQuery) NodeKind() NodeKind    { return NodeFromQuery }
func (self *FromQuery) Children() []LogicNode { return []LogicNode{self.Child} }
func (self *FromQuery) MemoSign() string      { return signOf(self) }

// Insert is always the plan root.
type Insert struct {
	base
	Child       LogicNode
	TargetTable string
}

func (self *Insert) NodeKind() NodeKind    { return NodeInsert }
func (self *Insert) Children() []LogicNode { return []LogicNode{self.Child} }
func (self *Insert) MemoSign() string      { return signOf(self) }

// Result is a leaf node emitting a single row of literals.
type Result struct {
	base
}

func (self *Result) NodeKind() NodeKind    { return NodeResult }
func (self *Result) Children() []LogicNode { return nil }
func (self *Result) MemoSign() string      { return signOf(self) }

// MemoRef is an opaque reference into an external memo group. It is
// transparent to equality via its underlying canonical member's MemoSign;
// physical translation must follow it to that canonical member rather than
// special-case it.
type MemoRef struct {
	base
	Group *memo.Group
}

func (self *MemoRef) NodeKind() NodeKind    { return NodeMemoRef }
func (self *MemoRef) Children() []LogicNode { return nil }
func (self *MemoRef) MemoSign() string      { return self.Group.Sign() }

// Canonical follows a MemoRef to its group's canonical LogicNode member. It
// panics if the group's canonical member is not a LogicNode, which would be
// a memo/plan wiring bug rather than a user-triggerable error.
func (self *MemoRef) Canonical() LogicNode {
	n, ok := self.Group.Canonical().(LogicNode)
	if !ok {
		panic("plan: memo group canonical member is not a LogicNode")
	}
	return n
}
