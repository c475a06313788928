package physic

import (
	"strings"
	"testing"

	"github.com/antmodule/planq/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aTable() *expr.BaseTable {
	return &expr.BaseTable{TableName: "a", Columns: []expr.Column{{Name: "i", Ty: expr.TypeInt}}}
}

func scanA() *ScanTable {
	tbl := aTable()
	n := &ScanTable{Table: tbl}
	n.output = tbl.AllColumnsRefs()
	return n
}

func TestPrintScanTableShowsTableNameAndFilter(t *testing.T) {
	assert := assert.New(t)

	n := scanA()
	n.Filter = &expr.Binary{Op: expr.OpGt, L: &expr.ColRef{Alias: "i", TabRef: n.Table, Ordinal: 0}, R: &expr.Literal{Ty: expr.TypeInt, Int: 0}}

	out := Print(n)
	lines := strings.Split(out, "\n")
	assert.Equal("##> ScanTable table=a", lines[0])
	assert.Contains(out, "Output: [a.i]")
	assert.Contains(out, "Filter: (a.i > 0)")
}

func TestPrintScanTableWithNoFilterOmitsFilterLine(t *testing.T) {
	assert := assert.New(t)

	out := Print(scanA())
	assert.NotContains(out, "Filter:")
}

func TestPrintIndentsNestedChildrenWithArrowPrefix(t *testing.T) {
	assert := assert.New(t)

	left := scanA()
	bTbl := &expr.BaseTable{TableName: "b", Columns: []expr.Column{{Name: "j", Ty: expr.TypeInt}}}
	right := &ScanTable{Table: bTbl}
	right.output = bTbl.AllColumnsRefs()

	join := &NLJoin{Left: left, Right: right}
	join.output = append(append([]expr.Expr{}, left.Output()...), right.Output()...)

	filter := &Filter{Child: join, Predicate: &expr.Literal{Ty: expr.TypeBool, Bool: true}}
	filter.output = join.Output()

	lines := strings.Split(Print(filter), "\n")

	// root line carries no arrow prefix.
	assert.Equal("##> Filter", lines[0])

	// the join sits at depth 1 and its two scans at depth 2; each of these
	// lines carries the "-> " arrow after its leading indent.
	var joinLine, leftLine, rightLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "NLJoin"):
			joinLine = l
		case strings.Contains(l, "table=a"):
			leftLine = l
		case strings.Contains(l, "table=b"):
			rightLine = l
		}
	}
	require := require.New(t)
	require.NotEmpty(joinLine)
	require.NotEmpty(leftLine)
	require.NotEmpty(rightLine)

	assert.True(strings.HasPrefix(strings.TrimLeft(joinLine, " "), "-> "))
	assert.True(strings.HasPrefix(strings.TrimLeft(leftLine, " "), "-> "))
	assert.True(strings.HasPrefix(strings.TrimLeft(rightLine, " "), "-> "))
}

func TestPrintProfilingSplicesRowsOntoFirstLineTransparently(t *testing.T) {
	assert := assert.New(t)

	n := scanA()
	p := &Profiling{Wrapped: n, Profile: Profile{NRows: 42}}

	out := Print(p)
	lines := strings.Split(out, "\n")
	assert.Equal("##> ScanTable table=a (rows=42)", lines[0])
	assert.NotContains(out, "Profiling", "the decorator itself never appears in the rendered tree")
}

func TestPrintProfilingOnNonRootNodeStillSplicesOnlyItsOwnFirstLine(t *testing.T) {
	assert := assert.New(t)

	wrapped := scanA()
	profiledChild := &Profiling{Wrapped: wrapped, Profile: Profile{NRows: 7}}

	filter := &Filter{Child: profiledChild, Predicate: &expr.Literal{Ty: expr.TypeBool, Bool: true}}
	filter.output = wrapped.Output()

	out := Print(filter)
	assert.Contains(out, "table=a (rows=7)")
	assert.NotContains(out, "Filter (rows=")
}

func TestPrintHashJoinShowsKeysAndResidual(t *testing.T) {
	assert := assert.New(t)

	left := scanA()
	bTbl := &expr.BaseTable{TableName: "b", Columns: []expr.Column{{Name: "j", Ty: expr.TypeInt}}}
	right := &ScanTable{Table: bTbl}
	right.output = bTbl.AllColumnsRefs()

	hj := &HashJoin{
		Left:     left,
		Right:    right,
		LeftKey:  &expr.ColRef{Alias: "i", TabRef: left.Table, Ordinal: 0},
		RightKey: &expr.ColRef{Alias: "j", TabRef: bTbl, Ordinal: 0},
		Residual: &expr.Binary{Op: expr.OpGt, L: &expr.ColRef{Alias: "i", TabRef: left.Table, Ordinal: 0}, R: &expr.Literal{Ty: expr.TypeInt, Int: 0}},
	}
	hj.output = append(append([]expr.Expr{}, left.Output()...), right.Output()...)

	out := Print(hj)
	assert.Contains(out, "LeftKey: a.i")
	assert.Contains(out, "RightKey: b.j")
	assert.Contains(out, "Residual: (a.i > 0)")
}

func TestPrintHashJoinWithNoResidualOmitsResidualLine(t *testing.T) {
	assert := assert.New(t)

	left := scanA()
	hj := &HashJoin{Left: left, Right: scanA(), LeftKey: &expr.ColRef{Alias: "i"}, RightKey: &expr.ColRef{Alias: "i"}}
	hj.output = left.Output()

	assert.NotContains(Print(hj), "Residual:")
}

func TestPrintHashAggShowsGroupByAggAndHaving(t *testing.T) {
	assert := assert.New(t)

	child := scanA()
	agg := &HashAgg{
		Child:     child,
		GroupKeys: []expr.Expr{&expr.ColRef{Alias: "i", TabRef: child.Table, Ordinal: 0}},
		AggCore:   []*expr.AggFunc{{AggKind: expr.AggSum, Arg: &expr.ColRef{Alias: "i", TabRef: child.Table, Ordinal: 0}}},
		Having:    &expr.Binary{Op: expr.OpGt, L: &expr.ExprRef{Ordinal: 0}, R: &expr.Literal{Ty: expr.TypeInt, Int: 10}},
	}
	agg.output = []expr.Expr{&expr.ExprRef{Ordinal: 0}}

	out := Print(agg)
	assert.Contains(out, "GroupBy: [a.i]")
	assert.Contains(out, "Agg[0]: sum(a.i)")
	assert.Contains(out, "Having: ($0 > 10)")
}

func TestPrintOrderShowsAscAndDescDirections(t *testing.T) {
	assert := assert.New(t)

	child := scanA()
	ord := &Order{
		Child:      child,
		OrderExprs: []expr.Expr{&expr.ColRef{Alias: "i", TabRef: child.Table, Ordinal: 0}, &expr.ColRef{Alias: "i", TabRef: child.Table, Ordinal: 0}},
		Descending: []bool{false, true},
	}
	ord.output = child.Output()

	out := Print(ord)
	assert.Contains(out, "Sort[0]: a.i asc")
	assert.Contains(out, "Sort[1]: a.i desc")
}

func TestPrintFilterWithSubqueryRendersNestedPlanIndented(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	inner := scanA()
	sq := &expr.Subquery{Mode: expr.SubqueryScalar, Plan: inner}

	outer := scanA()
	filter := &Filter{Child: outer, Predicate: &expr.Binary{Op: expr.OpEq, L: &expr.ColRef{Alias: "i"}, R: sq}}
	filter.output = outer.Output()

	out := Print(filter)
	require.Contains(out, "Filter: (i = <subquery>)")
	// the nested plan's own rendering must appear too, indented alongside
	// the rest of the Filter's detail lines.
	assert.Contains(out, "##> ScanTable table=a")
}

func TestPrintColRefMarksOuterRef(t *testing.T) {
	assert := assert.New(t)

	ref := &expr.ColRef{Alias: "i", TabRef: aTable(), OuterRef: true, Ordinal: 0}
	n := scanA()
	n.Filter = &expr.Binary{Op: expr.OpEq, L: ref, R: &expr.Literal{Ty: expr.TypeInt, Int: 1}}

	assert.Contains(Print(n), "outer.a.i")
}
