// Package physic implements the physical plan algebra: a tagged variant
// family paralleling plan.LogicNode, each node carrying cost and
// cardinality estimates plus, post-execution, an optional profile record.
package physic

import (
	"github.com/antmodule/planq/internal/expr"
	"github.com/antmodule/planq/internal/plan"
)

// Kind tags the closed PhysicNode family.
type Kind int

const (
	KindScanTable Kind = iota
	KindScanFile
	KindFilter
	KindNLJoin
	KindHashJoin
	KindMarkJoin
	KindSingleJoin
	KindSingleMarkJoin
	KindHashAgg
	KindOrder
	KindFromQuery
	KindInsert
	KindResult
	KindProfiling
)

func (self Kind) String() string {
	switch self {
	case KindScanTable:
		return "ScanTable"
	case KindScanFile:
		return "ScanFile"
	case KindFilter:
		return "Filter"
	case KindNLJoin:
		return "NLJoin"
	case KindHashJoin:
		return "HashJoin"
	case KindMarkJoin:
		return "MarkJoin"
	case KindSingleJoin:
		return "SingleJoin"
	case KindSingleMarkJoin:
		return "SingleMarkJoin"
	case KindHashAgg:
		return "HashAgg"
	case KindOrder:
		return "Order"
	case KindFromQuery:
		return "FromQuery"
	case KindInsert:
		return "Insert"
	case KindResult:
		return "Result"
	case KindProfiling:
		return "Profiling"
	default:
		return "Unknown"
	}
}

// Cost carries a translation-time cost/cardinality estimate. Estimation
// itself is a quality-of-implementation concern the core leaves open; the
// fields exist so a cost-based chooser (or just the printer) has somewhere
// to read them from.
type Cost struct {
	EstRows float64
	EstCost float64
}

// Profile is the sole mutable state observed post-execution, filled in by
// the executor on the thread evaluating that operator.
type Profile struct {
	NRows int64
}

// Node is a tagged variant over the closed physical-plan node family.
type Node interface {
	Kind() Kind
	Output() []expr.Expr
	Children() []Node
	Cost() Cost
}

type base struct {
	output []expr.Expr
	cost   Cost
}

func (self *base) Output() []expr.Expr { return self.output }
func (self *base) Cost() Cost          { return self.cost }

// ScanTable is a leaf node reading rows out of a catalog-resolved table.
type ScanTable struct {
	base
	Table  expr.TableRef
	Filter expr.Expr
}

func (self *ScanTable) Kind() Kind       { return KindScanTable }
func (self *ScanTable) Children() []Node { return nil }

// ScanFile is a leaf node reading rows out of an external file source.
type ScanFile struct {
	base
	File   expr.TableRef
	Filter expr.Expr
}

func (self *ScanFile) Kind() Kind       { return KindScanFile }
func (self *ScanFile) Children() []Node { return nil }

// Filter is a unary selection node. Its Predicate may itself embed a
// translated Subquery plan the executor evaluates per row.
type Filter struct {
	base
	Child     Node
	Predicate expr.Expr
}

func (self *Filter) Kind() Kind       { return KindFilter }
func (self *Filter) Children() []Node { return []Node{self.Child} }

// NLJoin is a nested-loop join: for every left row, scan all of right and
// test Predicate.
type NLJoin struct {
	base
	Left, Right Node
	Predicate   expr.Expr
}

func (self *NLJoin) Kind() Kind       { return KindNLJoin }
func (self *NLJoin) Children() []Node { return []Node{self.Left, self.Right} }

// HashJoin builds a hash table over Right keyed on RightKey, then probes it
// once per left row with LeftKey. Residual carries any part of the
// original predicate that survived past the single equality used to build
// the hash table.
type HashJoin struct {
	base
	Left, Right        Node
	LeftKey, RightKey   expr.Expr
	Residual            expr.Expr
}

func (self *HashJoin) Kind() Kind       { return KindHashJoin }
func (self *HashJoin) Children() []Node { return []Node{self.Left, self.Right} }

// MarkJoin probes Right for a match per left row and appends a boolean
// column to Left's output recording whether any right row satisfied
// Predicate for that left row, never projecting anything from Right itself.
type MarkJoin struct {
	base
	Left, Right Node
	Predicate   expr.Expr
}

func (self *MarkJoin) Kind() Kind       { return KindMarkJoin }
func (self *MarkJoin) Children() []Node { return []Node{self.Left, self.Right} }

// SingleJoin probes Right for at most one matching row per left row and
// appends Right's projected output to Left's, the physical counterpart of
// a lifted scalar subquery.
type SingleJoin struct {
	base
	Left, Right Node
	Predicate   expr.Expr
}

func (self *SingleJoin) Kind() Kind       { return KindSingleJoin }
func (self *SingleJoin) Children() []Node { return []Node{self.Left, self.Right} }

// SingleMarkJoin combines SingleJoin and MarkJoin: at most one matching row
// probed, plus a boolean marker column recording whether it was found.
type SingleMarkJoin struct {
	base
	Left, Right Node
	Predicate   expr.Expr
}

func (self *SingleMarkJoin) Kind() Kind       { return KindSingleMarkJoin }
func (self *SingleMarkJoin) Children() []Node { return []Node{self.Left, self.Right} }

// HashAgg groups Child's rows by GroupKeys and accumulates AggCore per
// group. It is the only aggregation strategy the core emits.
type HashAgg struct {
	base
	Child     Node
	GroupKeys []expr.Expr
	AggCore   []*expr.AggFunc
	Having    expr.Expr
}

func (self *HashAgg) Kind() Kind       { return KindHashAgg }
func (self *HashAgg) Children() []Node { return []Node{self.Child} }

// Order sorts Child's rows by OrderExprs.
type Order struct {
	base
	Child      Node
	OrderExprs []expr.Expr
	Descending []bool
}

func (self *Order) Kind() Kind       { return KindOrder }
func (self *Order) Children() []Node { return []Node{self.Child} }

// FromQuery wraps a nested query's physical plan as a relation.
type FromQuery struct {
	base
	Child       Node
	SubqueryRef *expr.SubqueryRef
}

func (self *FromQuery) Kind() Kind       { return KindFromQuery }
func (self *FromQuery) Children() []Node { return []Node{self.Child} }

// Insert is always the physical plan root.
type Insert struct {
	base
	Child       Node
	TargetTable string
}

func (self *Insert) Kind() Kind       { return KindInsert }
func (self *Insert) Children() []Node { return []Node{self.Child} }

// Result is a leaf node emitting a single row of literals.
type Result struct {
	base
}

func (self *Result) Kind() Kind       { return KindResult }
func (self *Result) Children() []Node { return nil }

// Profiling wraps any other Node, recording a Profile the executor fills in
// after the wrapped node finishes. It is transparent to plan equality and
// to printing: Output/Cost/Children all defer to the wrapped node, and the
// printer renders the wrapped node in its place.
type Profiling struct {
	Wrapped Node
	Profile Profile
}

func (self *Profiling) Kind() Kind        { return KindProfiling }
func (self *Profiling) Output() []expr.Expr { return self.Wrapped.Output() }
func (self *Profiling) Cost() Cost          { return self.Wrapped.Cost() }
func (self *Profiling) Children() []Node    { return self.Wrapped.Children() }

// Unwrap follows n past any Profiling decorator to the node it wraps. It is
// idempotent on a non-decorated node.
func Unwrap(n Node) Node {
	for {
		p, ok := n.(*Profiling)
		if !ok {
			return n
		}
		n = p.Wrapped
	}
}

// logicKind exists only so translate.go's error messages can name the
// logical node kind it had no mapping for, without physic depending on any
// plan internals beyond the exported LogicNode interface.
func logicKind(n plan.LogicNode) string {
	return [...]string{
		"Scan", "Filter", "Join", "Aggregate", "Order",
		"FromQuery", "Insert", "Result", "MemoRef",
	}[n.NodeKind()]
}
