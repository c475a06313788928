package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrieveAllColExpr(t *testing.T) {
	assert := assert.New(t)

	tbl := &BaseTable{TableName: "a", Columns: []Column{{Name: "x", Ty: TypeInt}, {Name: "y", Ty: TypeInt}}}
	x := &ColRef{Alias: "x", TabRef: tbl}
	y := &ColRef{Alias: "y", TabRef: tbl}
	e := &Binary{Op: OpAdd, L: x, R: &Function{Name: "abs", Args: []Expr{y}}}

	cols := RetrieveAllColExpr(e)
	assert.Len(cols, 2)
	assert.Same(x, cols[0])
	assert.Same(y, cols[1])
}

func TestTableRefsExcludesOuterRef(t *testing.T) {
	assert := assert.New(t)

	inner := &BaseTable{TableName: "b", Columns: []Column{{Name: "j", Ty: TypeInt}}}
	outer := &BaseTable{TableName: "a", Columns: []Column{{Name: "k", Ty: TypeInt}}}

	pred := &Binary{
		Op: OpEq,
		L:  &ColRef{Alias: "j", TabRef: inner},
		R:  &ColRef{Alias: "k", TabRef: outer, OuterRef: true},
	}

	refs := TableRefs(pred)
	assert.Len(refs, 1, "outer-ref leaves must not contribute to TableRefs")
	assert.True(refs[inner])
	assert.False(refs[outer])
}

func TestVisitEachExistsStopsAtExprRef(t *testing.T) {
	assert := assert.New(t)

	inner := &AggFunc{AggKind: AggSum, Arg: &Literal{Ty: TypeInt, Int: 1}}
	wrapped := &ExprRef{Inner: inner, Ordinal: 0}

	found := VisitEachExists(wrapped, func(x Expr) bool {
		return x.Kind() == ExprAggFunc
	}, []int{ExprExprRef})
	assert.False(found, "stopKinds must prevent descent into the wrapper")

	foundWithoutStop := VisitEachExists(wrapped, func(x Expr) bool {
		return x.Kind() == ExprAggFunc
	}, nil)
	assert.True(foundWithoutStop)
}

func TestNonFuncDependenciesReturnsArgument(t *testing.T) {
	assert := assert.New(t)

	tbl := &BaseTable{TableName: "a", Columns: []Column{{Name: "x", Ty: TypeInt}}}
	col := &ColRef{Alias: "x", TabRef: tbl}
	outer := &AggFunc{AggKind: AggSum, Arg: col}

	deps := NonFuncDependencies(outer)
	assert.Len(deps, 1)
	assert.Same(col, deps[0])
}
