package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneResetsOrdinalByDefault(t *testing.T) {
	assert := assert.New(t)

	tbl := &BaseTable{TableName: "a", Columns: []Column{{Name: "x", Ty: TypeInt}}}
	orig := &ColRef{Alias: "x", TabRef: tbl, Ordinal: 2}

	cloned := Clone(orig, false).(*ColRef)
	assert.Equal(-1, cloned.Ordinal)
	assert.Equal(orig.Alias, cloned.Alias)
	assert.Equal(orig.TabRef, cloned.TabRef)

	preserved := Clone(orig, true).(*ColRef)
	assert.Equal(2, preserved.Ordinal)
}

func TestCloneIsDeepForBinary(t *testing.T) {
	assert := assert.New(t)

	tbl := &BaseTable{TableName: "a", Columns: []Column{{Name: "x", Ty: TypeInt}}}
	orig := &Binary{Op: OpAdd, L: &ColRef{Alias: "x", TabRef: tbl, Ordinal: 5}, R: &Literal{Ty: TypeInt, Int: 1}}

	cloned := Clone(orig, false).(*Binary)
	assert.True(Equals(orig, cloned))
	assert.NotSame(orig, cloned)
	assert.NotSame(orig.L, cloned.L)

	cl := cloned.L.(*ColRef)
	assert.Equal(-1, cl.Ordinal)
}

func TestCloneSubqueryDoesNotCopyPlan(t *testing.T) {
	assert := assert.New(t)

	plan := &stubPlan{out: []Expr{&Literal{Ty: TypeInt, Int: 1}}}
	sq := &Subquery{Mode: SubqueryScalar, Plan: plan}

	cloned := Clone(sq, false).(*Subquery)
	assert.Same(plan, cloned.Plan)
}

func TestCloneNil(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(Clone(nil, false))
}

type stubPlan struct {
	out []Expr
}

func (self *stubPlan) Output() []Expr { return self.out }
