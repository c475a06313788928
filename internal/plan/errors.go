package plan

import (
	"fmt"

	"github.com/antmodule/planq/internal/expr"
)

// Kind tags a planning error with the taxonomy the binder, resolver and
// subquery rewriter raise against; physical translation reports its own
// *physic.Error instead.
type Kind int

const (
	// SemanticAnalyze: name cannot be bound, ambiguous column, non-grouped
	// column in aggregate output, subquery arity mismatch.
	SemanticAnalyze Kind = iota
	// InvalidProgram: ordinal resolution could not place a required
	// expression on either side of a join -- a binder/planner
	// inconsistency, not a user error.
	InvalidProgram
	// NotImplemented: a logical node kind has no physical mapping
	// configured.
	NotImplemented
)

// Error is the concrete error type raised by binding, resolution and the
// subquery rewrite (translation raises *physic.Error). It is raised immediately at the point of detection, with the offending
// expression attached whenever one is available.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Offend  expr.Expr
}

func (self *Error) Error() string {
	if self.Offend != nil {
		return fmt.Sprintf("%s(%s): %s: %s", kindName(self.Kind), self.Stage, self.Message, describe(self.Offend))
	}
	return fmt.Sprintf("%s(%s): %s", kindName(self.Kind), self.Stage, self.Message)
}

func kindName(k Kind) string {
	switch k {
	case SemanticAnalyze:
		return "SemanticAnalyze"
	case InvalidProgram:
		return "InvalidProgram"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// describe renders enough of an expression to name it in an error without
// pulling physic's full pretty-printer into plan (that would be a cycle:
// physic already imports plan).
func describe(e expr.Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind() {
	case expr.ExprColRef:
		c := e.(*expr.ColRef)
		if c.TabRef != nil {
			return fmt.Sprintf("%s.%s", c.TabRef.Name(), c.Alias)
		}
		return c.Alias
	case expr.ExprAggFunc:
		a := e.(*expr.AggFunc)
		return fmt.Sprintf("%s(...)", expr.AggName(a.AggKind))
	default:
		return fmt.Sprintf("<expr kind %d>", e.Kind())
	}
}

func newErr(kind Kind, stage string, offend expr.Expr, f string, args ...interface{}) error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(f, args...), Offend: offend}
}
