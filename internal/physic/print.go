package physic

import (
	"fmt"
	"strings"

	"github.com/antmodule/planq/internal/expr"
)

// Print renders n as a depth-indented, deterministic tree: indentation,
// an arrow prefix on every node but the root, the node kind name, inline
// details, an optional profile annotation, then an indented Output: line
// and any node-specific detail lines, then each child in turn. A
// Profiling decorator never renders itself -- it defers straight to its
// wrapped node -- so the shape is stable whether or not profiling is on.
func Print(n Node) string {
	buf := &strings.Builder{}
	printNode(buf, n, 0, true)
	return buf.String()
}

func printNode(buf *strings.Builder, n Node, depth int, isRoot bool) {
	if n == nil {
		return
	}
	if p, ok := n.(*Profiling); ok {
		printProfiledNode(buf, p, depth, isRoot)
		return
	}

	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	if !isRoot {
		buf.WriteString("-> ")
	}
	buf.WriteString("##> ")
	buf.WriteString(n.Kind().String())
	buf.WriteString(inlineDetail(n))
	buf.WriteString("\n")

	detailIndent := indent + "  "
	buf.WriteString(detailIndent)
	buf.WriteString("Output: ")
	buf.WriteString(printExprList(n.Output()))
	buf.WriteString("\n")

	for _, line := range detailLines(n) {
		buf.WriteString(detailIndent)
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	for _, c := range n.Children() {
		printNode(buf, c, depth+1, false)
	}
}

func printProfiledNode(buf *strings.Builder, p *Profiling, depth int, isRoot bool) {
	// render the wrapped node exactly as if undecorated, then splice the
	// profile annotation onto its first line.
	inner := &strings.Builder{}
	printNode(inner, p.Wrapped, depth, isRoot)
	lines := strings.SplitN(inner.String(), "\n", 2)
	buf.WriteString(fmt.Sprintf("%s (rows=%d)\n", lines[0], p.Profile.NRows))
	if len(lines) > 1 {
		buf.WriteString(lines[1])
	}
}

func inlineDetail(n Node) string {
	switch v := n.(type) {
	case *ScanTable:
		return fmt.Sprintf(" table=%s", v.Table.Name())
	case *ScanFile:
		return fmt.Sprintf(" file=%s", v.File.Name())
	case *HashJoin:
		return ""
	case *FromQuery:
		return fmt.Sprintf(" alias=%s", v.SubqueryRef.Alias)
	case *Insert:
		return fmt.Sprintf(" into=%s", v.TargetTable)
	default:
		return ""
	}
}

func detailLines(n Node) []string {
	switch v := n.(type) {
	case *ScanTable:
		return filterLines(v.Filter)
	case *ScanFile:
		return filterLines(v.Filter)
	case *Filter:
		return filterLines(v.Predicate)
	case *NLJoin:
		return filterLines(v.Predicate)
	case *HashJoin:
		lines := []string{fmt.Sprintf("LeftKey: %s", printExpr(v.LeftKey)), fmt.Sprintf("RightKey: %s", printExpr(v.RightKey))}
		if v.Residual != nil {
			lines = append(lines, fmt.Sprintf("Residual: %s", printExpr(v.Residual)))
		}
		return lines
	case *MarkJoin:
		return filterLines(v.Predicate)
	case *SingleJoin:
		return filterLines(v.Predicate)
	case *SingleMarkJoin:
		return filterLines(v.Predicate)
	case *HashAgg:
		var lines []string
		lines = append(lines, fmt.Sprintf("GroupBy: %s", printExprList(v.GroupKeys)))
		for i, a := range v.AggCore {
			lines = append(lines, fmt.Sprintf("Agg[%d]: %s(%s)", i, expr.AggName(a.AggKind), printExpr(a.Arg)))
		}
		if v.Having != nil {
			lines = append(lines, fmt.Sprintf("Having: %s", printExpr(v.Having)))
		}
		return lines
	case *Order:
		var lines []string
		for i, e := range v.OrderExprs {
			dir := "asc"
			if v.Descending[i] {
				dir = "desc"
			}
			lines = append(lines, fmt.Sprintf("Sort[%d]: %s %s", i, printExpr(e), dir))
		}
		return lines
	default:
		return nil
	}
}

func filterLines(e expr.Expr) []string {
	if e == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("Filter: %s", printExpr(e))}
	for _, sub := range subqueriesIn(e) {
		inner := Print(mustLogicalPlan(sub))
		for _, l := range strings.Split(strings.TrimRight(inner, "\n"), "\n") {
			lines = append(lines, l)
		}
	}
	return lines
}

func subqueriesIn(e expr.Expr) []*expr.Subquery {
	var out []*expr.Subquery
	expr.VisitEach(e, func(x expr.Expr) {
		if sq, ok := x.(*expr.Subquery); ok {
			out = append(out, sq)
		}
	})
	return out
}

func mustLogicalPlan(sq *expr.Subquery) Node {
	n, ok := sq.Plan.(Node)
	if !ok {
		return &Result{}
	}
	return n
}

func printExprList(list []expr.Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = printExpr(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// printExpr renders e without relying on a separate expr package printer --
// the algebra is small and closed, so a direct switch here avoids a
// circular dependency between expr and any stringifier package.
func printExpr(e expr.Expr) string {
	if e == nil {
		return "--"
	}
	switch v := e.(type) {
	case *expr.Literal:
		return printLiteral(v)
	case *expr.ColRef:
		return printColRef(v)
	case *expr.Binary:
		return fmt.Sprintf("(%s %s %s)", printExpr(v.L), opName(v.Op), printExpr(v.R))
	case *expr.Function:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = printExpr(a)
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(args, ", "))
	case *expr.AggFunc:
		return fmt.Sprintf("%s(%s)", expr.AggName(v.AggKind), printExpr(v.Arg))
	case *expr.ExprRef:
		return fmt.Sprintf("$%d", v.Ordinal)
	case *expr.Subquery:
		return "<subquery>"
	default:
		return "<expr>"
	}
}

func printColRef(c *expr.ColRef) string {
	prefix := ""
	if c.OuterRef {
		prefix = "outer."
	}
	if c.TabRef != nil {
		return fmt.Sprintf("%s%s.%s", prefix, c.TabRef.Name(), c.Alias)
	}
	return prefix + c.Alias
}

func printLiteral(l *expr.Literal) string {
	switch l.Ty {
	case expr.TypeNull:
		return "null"
	case expr.TypeBool:
		return fmt.Sprintf("%v", l.Bool)
	case expr.TypeInt:
		return fmt.Sprintf("%d", l.Int)
	case expr.TypeReal:
		return fmt.Sprintf("%g", l.Real)
	case expr.TypeString:
		return fmt.Sprintf("%q", l.Str)
	default:
		return "?"
	}
}

func opName(op int) string {
	switch op {
	case expr.OpAdd:
		return "+"
	case expr.OpSub:
		return "-"
	case expr.OpMul:
		return "*"
	case expr.OpDiv:
		return "/"
	case expr.OpMod:
		return "%"
	case expr.OpLt:
		return "<"
	case expr.OpLe:
		return "<="
	case expr.OpGt:
		return ">"
	case expr.OpGe:
		return ">="
	case expr.OpEq:
		return "="
	case expr.OpNe:
		return "!="
	case expr.OpAnd:
		return "and"
	case expr.OpOr:
		return "or"
	default:
		return "?"
	}
}
