package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseTableAllColumnsRefsMemoizes(t *testing.T) {
	assert := assert.New(t)

	tbl := &BaseTable{TableName: "orders", Columns: []Column{
		{Name: "o_orderkey", Ty: TypeInt},
		{Name: "o_custkey", Ty: TypeInt},
	}}

	first := tbl.AllColumnsRefs()
	second := tbl.AllColumnsRefs()
	assert.Len(first, 2)
	assert.Same(first[0], second[0])
	// memoized slice is returned verbatim, not rebuilt
	assert.Equal(first, second)
	for i, c := range first {
		cr := c.(*ColRef)
		assert.Equal(tbl.Columns[i].Name, cr.Alias)
		assert.Same(tbl, cr.TabRef)
		assert.Equal(-1, cr.Ordinal)
	}
}

func TestAddOuterRefsToOutputDedupes(t *testing.T) {
	assert := assert.New(t)

	outer := &BaseTable{TableName: "a", Columns: []Column{{Name: "k", Ty: TypeInt}}}
	outerCol := outer.AllColumnsRefs()[0]

	tbl := &BaseTable{TableName: "b", Columns: []Column{{Name: "j", Ty: TypeInt}}, OuterRefs: []Expr{outerCol}}

	list := tbl.AllColumnsRefs()
	augmented := tbl.AddOuterRefsToOutput(append([]Expr{}, list...))
	assert.Len(augmented, 2)

	// calling again with a list that already carries the outer column must
	// not duplicate it
	again := tbl.AddOuterRefsToOutput(augmented)
	assert.Len(again, 2)
}

func TestSubqueryRefAllColumnsRefsDerivesAlias(t *testing.T) {
	assert := assert.New(t)

	inner := &BaseTable{TableName: "a", Columns: []Column{{Name: "i", Ty: TypeInt}}}
	ref := &SubqueryRef{
		Alias:           "d",
		ProjectedOutput: []Expr{&ColRef{Alias: "i", TabRef: inner}},
	}

	cols := ref.AllColumnsRefs()
	assert.Len(cols, 1)
	c := cols[0].(*ColRef)
	assert.Equal("i", c.Alias)
	assert.Same(ref, c.TabRef)
	assert.Equal("d", ref.Name())
}

func TestExternalFileAllColumnsRefs(t *testing.T) {
	assert := assert.New(t)

	f := &ExternalFile{FileName: "/tmp/x.csv", Columns: []Column{{Name: "c1", Ty: TypeString}}}
	cols := f.AllColumnsRefs()
	assert.Len(cols, 1)
	assert.Equal("/tmp/x.csv", f.Name())
}
