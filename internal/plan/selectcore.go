package plan

import "github.com/antmodule/planq/internal/expr"

// SelectCore is the parser boundary: a single (possibly nested) query as a
// query-builder would hand it to the planner, after tokenizing/parsing but
// before name binding. ColRef.Alias inside every expression field carries
// the name as written (table-qualified or bare); TabRef is nil until
// Binder.Bind resolves it against the FROM list.
type SelectCore struct {
	Projection []ProjItem
	From       []FromItem
	Where      expr.Expr
	GroupBy    []expr.Expr
	Having     expr.Expr
	OrderBy    []OrderItem
}

// ProjItem is one entry of a SELECT list.
type ProjItem struct {
	Expr  expr.Expr
	Alias string // empty unless explicitly aliased
}

// OrderItem is one entry of an ORDER BY list.
type OrderItem struct {
	Expr expr.Expr
	Desc bool
}

// FromItem is one entry of a FROM clause: either a base table by name, or a
// nested SelectCore aliased as a derived table.
type FromItem struct {
	Table string
	Alias string
	Sub   *SelectCore
}

func (self *FromItem) alias() string {
	if self.Alias != "" {
		return self.Alias
	}
	return self.Table
}

// RawSubquery is a not-yet-bound subquery sitting in expression position. It
// satisfies expr.Expr with a reserved kind so it can appear inside Where,
// Having, GroupBy or a ProjItem's Expr before binding runs; Binder.Bind
// replaces every RawSubquery it finds with a bound *expr.Subquery.
type RawSubquery struct {
	Mode  int // expr.SubqueryScalar/SubqueryExists/SubqueryIn
	InLHS expr.Expr
	Query *SelectCore
}

func (self *RawSubquery) Kind() int { return expr.ExprRawSubquery }
