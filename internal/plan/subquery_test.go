package plan

import (
	"testing"

	"github.com/antmodule/planq/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// existsSelect builds the TPC-H Q4 shape: an orders scan filtered by a plain
// predicate AND an EXISTS subquery over table a correlated on a.i =
// orders.o_orderkey, with the correlated conjunct sitting alongside a
// non-correlated one (a.k > 0) inside the subquery's own WHERE.
func existsSelect() *SelectCore {
	return &SelectCore{
		Projection: []ProjItem{{Expr: col("orders.o_orderkey")}},
		From:       []FromItem{{Table: "orders"}},
		Where: &expr.Binary{
			Op: expr.OpAnd,
			L:  &expr.Binary{Op: expr.OpEq, L: col("orders.o_orderdate"), R: &expr.Literal{Ty: expr.TypeString, Str: "1993-07-01"}},
			R: &RawSubquery{
				Mode: expr.SubqueryExists,
				Query: &SelectCore{
					Projection: []ProjItem{{Expr: col("a.i")}},
					From:       []FromItem{{Table: "a"}},
					Where: &expr.Binary{
						Op: expr.OpAnd,
						L:  &expr.Binary{Op: expr.OpEq, L: col("a.i"), R: col("orders.o_orderkey")},
						R:  &expr.Binary{Op: expr.OpGt, L: col("a.k"), R: &expr.Literal{Ty: expr.TypeInt, Int: 0}},
					},
				},
			},
		},
	}
}

func planPipeline(t *testing.T, sel *SelectCore, opt Options) (LogicNode, []expr.Expr) {
	t.Helper()
	require := require.New(t)

	binder := NewBinder(testCatalog(), opt)
	root, proj, err := binder.Bind(sel)
	require.NoError(err)

	root, proj, err = NewRewriter(opt).Rewrite(root, proj)
	require.NoError(err)

	require.NoError(NewResolver(opt).Resolve(root, proj, true))
	return root, proj
}

func TestExistsSubqueryRewritesToMarkJoin(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root, _ := planPipeline(t, existsSelect(), DefaultOptions())

	filter, ok := root.(*Filter)
	require.True(ok, "the non-correlated orderdate conjunct stays a residual Filter above the join")

	join, ok := filter.Child.(*Join)
	require.True(ok)
	require.Equal(JoinMark, join.JoinType)

	// the correlated conjunct (a.i = orders.o_orderkey) became the join's
	// own predicate; the non-correlated one (a.k > 0) stayed on the right
	// side's own Scan filter.
	require.NotNil(join.Filter())
	rightScan, ok := join.Right.(*Scan)
	require.True(ok)
	assert.NotNil(rightScan.Filter())

	pred := join.Filter().(*expr.Binary)
	assert.Equal(expr.OpEq, pred.Op)
}

func TestExistsSubqueryWithNoCorrelationStillBuildsMarkJoin(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}},
		Where: &RawSubquery{
			Mode: expr.SubqueryExists,
			Query: &SelectCore{
				Projection: []ProjItem{{Expr: col("b.j")}},
				From:       []FromItem{{Table: "b"}},
			},
		},
	}

	root, _ := planPipeline(t, sel, DefaultOptions())
	filter, ok := root.(*Filter)
	require.True(ok)
	join, ok := filter.Child.(*Join)
	require.True(ok)
	require.Equal(JoinMark, join.JoinType)
	require.Nil(join.Filter(), "an uncorrelated EXISTS carries no join predicate at all")
}

func TestSubqueryRewriteDisabledLeavesSubqueryInTree(t *testing.T) {
	require := require.New(t)

	opt := DefaultOptions()
	opt.EnableSubqueryToMarkJoin = false
	root, _ := planPipeline(t, existsSelect(), opt)

	filter, ok := root.(*Filter)
	require.True(ok)
	_, isJoin := filter.Child.(*Join)
	require.False(isJoin, "with the rewrite disabled the subquery stays opaque, never becoming a Join")
}

func TestScalarSubqueryRewritesToSingleJoin(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: &RawSubquery{
			Mode: expr.SubqueryScalar,
			Query: &SelectCore{
				Projection: []ProjItem{{Expr: &expr.AggFunc{AggKind: expr.AggMax, Arg: col("b.j")}}},
				From:       []FromItem{{Table: "b"}},
				Where:      &expr.Binary{Op: expr.OpEq, L: col("b.k"), R: col("a.k")},
			},
		}}},
		From: []FromItem{{Table: "a"}},
	}

	root, proj := planPipeline(t, sel, DefaultOptions())
	require.Len(proj, 1)

	join, ok := root.(*Join)
	require.True(ok, "a scalar subquery directly in the projection lifts into a Join with no enclosing Filter needed")
	require.Equal(JoinSingle, join.JoinType)

	// the correlated conjunct (b.k = a.k) must have been pulled out of the
	// aggregate's child Filter and become this join's own predicate --
	// this is the decorrelation fix: previously scalar subqueries kept the
	// correlated predicate buried inside the right subtree.
	require.NotNil(join.Filter())
	pred := join.Filter().(*expr.Binary)
	assert.Equal(expr.OpEq, pred.Op)

	agg, ok := join.Right.(*Aggregate)
	require.True(ok)
	// the aggregate's own child must no longer carry a Filter at all, since
	// its sole conjunct was entirely correlated and had nothing left over.
	_, childIsFilter := agg.Child.(*Filter)
	require.False(childIsFilter)

	// the projection's lone entry must now be an ExprRef into the join's
	// right-side (the lifted aggregate value), not the original subquery.
	_, stillSubquery := proj[0].(*expr.Subquery)
	require.False(stillSubquery)
}

func TestInSubqueryRewritesToMarkJoinWithEquality(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}},
		Where: &RawSubquery{
			Mode:  expr.SubqueryIn,
			InLHS: col("a.i"),
			Query: &SelectCore{
				Projection: []ProjItem{{Expr: col("b.j")}},
				From:       []FromItem{{Table: "b"}},
			},
		},
	}

	root, _ := planPipeline(t, sel, DefaultOptions())
	filter, ok := root.(*Filter)
	require.True(ok)
	join, ok := filter.Child.(*Join)
	require.True(ok)
	require.Equal(JoinMark, join.JoinType)
	require.NotNil(join.Filter(), "IN always carries at least the lhs=rhs equality as its join predicate")
}

func TestInSubqueryRejectsMultiColumnProjection(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}},
		Where: &RawSubquery{
			Mode:  expr.SubqueryIn,
			InLHS: col("a.i"),
			Query: &SelectCore{
				Projection: []ProjItem{{Expr: col("b.j")}, {Expr: col("b.k")}},
				From:       []FromItem{{Table: "b"}},
			},
		},
	}

	opt := DefaultOptions()
	binder := NewBinder(testCatalog(), opt)
	root, proj, err := binder.Bind(sel)
	require.NoError(err)

	_, _, err = NewRewriter(opt).Rewrite(root, proj)
	require.Error(err)
}
