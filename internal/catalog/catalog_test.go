package catalog

import (
	"testing"

	"github.com/antmodule/planq/internal/expr"
	"github.com/stretchr/testify/assert"
)

func TestStaticAddAndLookup(t *testing.T) {
	assert := assert.New(t)

	cat := NewStatic().AddTable("orders",
		expr.Column{Name: "o_orderkey", Ty: expr.TypeInt},
		expr.Column{Name: "o_custkey", Ty: expr.TypeInt})

	schema, ok := cat.Table("orders")
	assert.True(ok)
	assert.Equal("orders", schema.Name)
	assert.Len(schema.Columns, 2)

	_, ok = cat.Table("nosuchtable")
	assert.False(ok)
}

func TestStaticAddTableChains(t *testing.T) {
	assert := assert.New(t)

	cat := NewStatic().
		AddTable("a", expr.Column{Name: "i", Ty: expr.TypeInt}).
		AddTable("b", expr.Column{Name: "j", Ty: expr.TypeInt})

	_, ok := cat.Table("a")
	assert.True(ok)
	_, ok = cat.Table("b")
	assert.True(ok)
}
