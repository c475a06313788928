package plan

import (
	"testing"

	"github.com/antmodule/planq/internal/catalog"
	"github.com/antmodule/planq/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() catalog.Catalog {
	return catalog.NewStatic().
		AddTable("a", expr.Column{Name: "i", Ty: expr.TypeInt}, expr.Column{Name: "k", Ty: expr.TypeInt}).
		AddTable("b", expr.Column{Name: "j", Ty: expr.TypeInt}, expr.Column{Name: "k", Ty: expr.TypeInt}).
		AddTable("orders",
			expr.Column{Name: "o_orderkey", Ty: expr.TypeInt},
			expr.Column{Name: "o_orderdate", Ty: expr.TypeString})
}

func col(alias string) *expr.ColRef { return &expr.ColRef{Alias: alias} }

func TestBindSingleTablePushesWhereOntoScan(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}},
		Where:      &expr.Binary{Op: expr.OpEq, L: col("a.i"), R: &expr.Literal{Ty: expr.TypeInt, Int: 1}},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	root, proj, err := binder.Bind(sel)
	require.NoError(err)
	require.Len(proj, 1)

	scan, ok := root.(*Scan)
	require.True(ok, "single-table select with no group/order binds straight to its Scan")
	assert.NotNil(scan.Filter())

	bin, ok := scan.Filter().(*expr.Binary)
	require.True(ok)
	assert.Equal(expr.OpEq, bin.Op)
}

func TestBindMultiTableProducesInnerJoinChain(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}, {Table: "b"}},
		Where:      &expr.Binary{Op: expr.OpEq, L: col("a.i"), R: col("b.j")},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	root, _, err := binder.Bind(sel)
	require.NoError(err)

	join, ok := root.(*Join)
	require.True(ok, "a two-table equi-predicate referencing exactly the join's two sides attaches to the Join itself")
	require.Equal(JoinInner, join.JoinType)
	require.NotNil(join.Filter(), "the predicate must land on the join, not a residual Filter above it")
}

func TestBindAmbiguousColumnErrors(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("k")}},
		From:       []FromItem{{Table: "a"}, {Table: "b"}},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	_, _, err := binder.Bind(sel)
	require.Error(err)

	pe, ok := err.(*Error)
	require.True(ok)
	require.Equal(SemanticAnalyze, pe.Kind)
}

func TestBindUnknownTableErrors(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("z.i")}},
		From:       []FromItem{{Table: "z"}},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	_, _, err := binder.Bind(sel)
	require.Error(err)
}

func TestBindQualifiesReferencesByAlias(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("x.i")}},
		From:       []FromItem{{Table: "a", Alias: "x"}},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	root, proj, err := binder.Bind(sel)
	require.NoError(err)
	require.Len(proj, 1)

	scan := root.(*Scan)
	assert.Equal("x", scan.Table.Name())

	cr := proj[0].(*expr.ColRef)
	assert.Equal("i", cr.Alias)
	assert.Same(scan.Table, cr.TabRef)
}

func TestBindGroupByWithoutHavingBuildsAggregate(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.k")}, {Expr: &expr.AggFunc{AggKind: expr.AggSum, Arg: col("a.i")}}},
		From:       []FromItem{{Table: "a"}},
		GroupBy:    []expr.Expr{col("a.k")},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	root, proj, err := binder.Bind(sel)
	require.NoError(err)
	require.Len(proj, 2)

	_, ok := root.(*Aggregate)
	require.True(ok)
}

func TestBindHavingWithoutGroupOrAggErrors(t *testing.T) {
	require := require.New(t)

	sel := &SelectCore{
		Projection: []ProjItem{{Expr: col("a.i")}},
		From:       []FromItem{{Table: "a"}},
		Having:     &expr.Binary{Op: expr.OpGt, L: col("a.i"), R: &expr.Literal{Ty: expr.TypeInt, Int: 0}},
	}

	binder := NewBinder(testCatalog(), DefaultOptions())
	_, _, err := binder.Bind(sel)
	require.Error(err)
}
