package plan

import (
	"fmt"
	"strings"

	"github.com/antmodule/planq/internal/expr"
)

// signOf produces a structural signature for a bound LogicNode, used by
// MemoRef.MemoSign delegation so plan-equality checks can compare memo
// groups without materializing every alternative.
func signOf(n LogicNode) string {
	var b strings.Builder
	writeSign(&b, n)
	return b.String()
}

func writeSign(b *strings.Builder, n LogicNode) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	fmt.Fprintf(b, "%d{", n.NodeKind())
	switch n.NodeKind() {
	case NodeScan:
		fmt.Fprintf(b, "tbl=%s", n.(*Scan).Table.Name())
	case NodeJoin:
		j := n.(*Join)
		fmt.Fprintf(b, "jt=%s", j.JoinType)
	case NodeAggregate:
		a := n.(*Aggregate)
		fmt.Fprintf(b, "gk=%d,ac=%d", len(a.GroupKeys), len(a.AggCore))
	case NodeFromQuery:
		fmt.Fprintf(b, "alias=%s", n.(*FromQuery).SubqueryRef.Alias)
	case NodeInsert:
		fmt.Fprintf(b, "tgt=%s", n.(*Insert).TargetTable)
	default:
		break
	}
	if f := n.Filter(); f != nil {
		fmt.Fprintf(b, ",f=%d", exprSign(f))
	}
	for _, o := range n.Output() {
		fmt.Fprintf(b, ",o=%d", exprSign(o))
	}
	for _, c := range n.Children() {
		writeSign(b, c)
	}
	b.WriteString("}")
}

func exprSign(e expr.Expr) uint64 { return expr.Hash(e) }
