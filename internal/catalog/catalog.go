// Package catalog specifies the table/column metadata lookup boundary the
// binder treats as an external collaborator: schema storage and migration
// live outside this module, which only needs a name-to-schema lookup.
package catalog

import "github.com/antmodule/planq/internal/expr"

// TableSchema describes one table's bound shape.
type TableSchema struct {
	Name    string
	Columns []expr.Column
}

// Catalog resolves a base-table name to its schema.
type Catalog interface {
	Table(name string) (TableSchema, bool)
}

// Static is an in-memory Catalog, adequate for tests and the example-backed
// CLI; a production binder boundary would back this with real metadata
// storage.
type Static struct {
	tables map[string]TableSchema
}

func NewStatic() *Static {
	return &Static{tables: make(map[string]TableSchema)}
}

func (self *Static) AddTable(name string, columns ...expr.Column) *Static {
	self.tables[name] = TableSchema{Name: name, Columns: columns}
	return self
}

func (self *Static) Table(name string) (TableSchema, bool) {
	t, ok := self.tables[name]
	return t, ok
}
