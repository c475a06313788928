// Package expr implements the closed expression algebra described by the
// core: literals, column references, arithmetic/comparison/logical binaries,
// function calls, aggregate functions, subquery expressions and the
// ordinal-resolved ExprRef wrapper. It also carries the TableRef family,
// since a TableRef's output is itself a list of Expr and the two families
// are mutually referential.
package expr

const (
	// ExprLiteral is a constant value node.
	ExprLiteral = iota
	// ExprColRef is a reference to a column, possibly unresolved.
	ExprColRef
	// ExprBinary is a binary operator node.
	ExprBinary
	// ExprFunction is a scalar function call.
	ExprFunction
	// ExprAggFunc is an aggregate function call.
	ExprAggFunc
	// ExprSubquery is a nested query used in expression position.
	ExprSubquery
	// ExprExprRef is an ordinal-resolved wrapper around any other Expr.
	ExprExprRef

	// ExprRawSubquery is reserved for the parser boundary: a subquery that
	// has not yet been bound into a Subquery node. The core algebra never
	// produces or consumes this kind itself; it exists so the plan
	// package's parser-boundary types can embed a not-yet-bound subquery
	// inside an otherwise-ordinary expression tree.
	ExprRawSubquery = 1000
)

// Expr is a node in the expression algebra. Every concrete node type below
// implements it; the switch on Kind() is meant to be exhaustive everywhere
// this interface is consumed.
type Expr interface {
	Kind() int
}

// ValueType tags the runtime type a Literal or computed expression produces.
const (
	TypeNull = iota
	TypeBool
	TypeInt
	TypeReal
	TypeString
)

// Literal is a constant value and its value-type.
type Literal struct {
	Ty    int
	Bool  bool
	Int   int64
	Real  float64
	Str   string
}

func (self *Literal) Kind() int { return ExprLiteral }

// Binary operator tokens, grouped by sub-kind. The sub-kind helpers below
// (IsArith/IsCompare/IsLogical/IsEquality) classify an operator for callers
// that need to branch on shape rather than on the exact token, e.g. hashable
// predicate detection cares only whether an operator IsEquality.
const (
	OpAdd = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	OpAnd
	OpOr
)

func IsArith(op int) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

func IsCompare(op int) bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
		return true
	default:
		return false
	}
}

func IsLogical(op int) bool {
	switch op {
	case OpAnd, OpOr:
		return true
	default:
		return false
	}
}

func IsEquality(op int) bool { return op == OpEq }

// Binary is a binary operator applied to two sub-expressions.
type Binary struct {
	Op int
	L  Expr
	R  Expr
}

func (self *Binary) Kind() int { return ExprBinary }

// ColRef is a reference to a column. Before binding, TabRef is nil and
// Ordinal is -1. After resolution, either OuterRef is true, or Ordinal
// holds the position of this column in the producing child's output
// vector.
type ColRef struct {
	Alias    string   // the name as written by the query, used for alias matching
	TabRef   TableRef // source table reference, nil until bound
	OuterRef bool     // true if bound against an enclosing scope
	Ordinal  int      // position in the producing child's output, -1 until resolved
}

func (self *ColRef) Kind() int { return ExprColRef }

// Function is a scalar function call, e.g. cos(a1*7).
type Function struct {
	Name string
	Args []Expr
}

func (self *Function) Kind() int { return ExprFunction }

// Aggregate function kinds.
const (
	AggCount = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func AggName(k int) string {
	switch k {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	default:
		return "unknown"
	}
}

// AggFunc is an aggregate function call, e.g. sum(a1).
type AggFunc struct {
	AggKind int
	Arg     Expr
}

func (self *AggFunc) Kind() int { return ExprAggFunc }

// LogicalPlan is the minimal surface expr needs from a bound plan node: its
// resolved output expression list. plan.LogicNode implements this; expr does
// not import plan, breaking what would otherwise be a dependency cycle
// between the expression algebra and the logical-plan package (TableRef and
// Subquery both need to own a plan subtree, and plan needs Expr for filters
// and output lists).
type LogicalPlan interface {
	Output() []Expr
}

// BindContext records the scope a Subquery or SubqueryRef was bound in, so a
// correlated predicate's outer references can be chased back to their
// producing scope.
type BindContext struct {
	Outer  *BindContext
	Tables []TableRef
}

// Subquery shape tags: whether it was written as a bare value (scalar),
// EXISTS(...), or x IN (...).
const (
	SubqueryScalar = iota
	SubqueryExists
	SubqueryIn
)

// Subquery is a nested query appearing in expression position, before the
// join rewriter fires or always when the rewriter is disabled. InLHS is only
// set for SubqueryIn, holding the left-hand side of the IN comparison.
type Subquery struct {
	Mode        int
	InLHS       Expr
	Plan        LogicalPlan
	BindContext *BindContext
}

func (self *Subquery) Kind() int { return ExprSubquery }

// ExprRef is an ordinal-resolved wrapper around any expression, carrying the
// index into the producing node's own output list. It is used when a whole
// sub-expression (not just a bare column) was requested by a parent and
// matched verbatim against a child's output, e.g. an aggregate's output
// referencing its own aggCore entries.
type ExprRef struct {
	Inner   Expr
	Ordinal int
}

func (self *ExprRef) Kind() int { return ExprExprRef }
