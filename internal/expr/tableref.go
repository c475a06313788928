package expr

// TableRef is a named source a Scan or FromQuery node draws rows from. Each
// variant exposes its logical output as an ordered list of ColRef
// expressions, lazily materialized on first call.
type TableRef interface {
	// Name is the table's bound name (alias if aliased, base name otherwise).
	Name() string

	// AllColumnsRefs returns the ordered list of ColRef expressions
	// representing this table's logical output.
	AllColumnsRefs() []Expr

	// AddOuterRefsToOutput augments a projection list with any outer-scope
	// columns that must survive a correlated scan, returning the augmented
	// list. Implementations that carry no outer refs return list unchanged.
	AddOuterRefsToOutput(list []Expr) []Expr
}

// Column describes one column of a table's schema, supplied by the catalog
// boundary.
type Column struct {
	Name string
	Ty   int
}

// BaseTable is a named source backed by catalog-resolved schema.
type BaseTable struct {
	TableName string
	Columns   []Column
	OuterRefs []Expr // outer ColRefs that must cross a correlated scan boundary

	cols []Expr // memoized AllColumnsRefs result
}

func (self *BaseTable) Name() string { return self.TableName }

func (self *BaseTable) AllColumnsRefs() []Expr {
	if self.cols == nil {
		self.cols = make([]Expr, len(self.Columns))
		for i, c := range self.Columns {
			self.cols[i] = &ColRef{Alias: c.Name, TabRef: self, Ordinal: -1}
		}
	}
	return self.cols
}

func (self *BaseTable) AddOuterRefsToOutput(list []Expr) []Expr {
	return addOuterRefs(list, self.OuterRefs)
}

// SubqueryRef is a subquery used as a table source (FROM (SELECT ...) x).
// ProjectedOutput is the nested query's own select list, in the same order
// its plan root is resolved against; AllColumnsRefs is
// built from it directly so a FromQuery wrapping this ref can be resolved
// before its child plan has run resolution.
type SubqueryRef struct {
	Plan            LogicalPlan
	ProjectedOutput []Expr
	BindContext     *BindContext
	Alias           string
	OuterRefs       []Expr

	cols []Expr
}

func (self *SubqueryRef) Name() string { return self.Alias }

func (self *SubqueryRef) AllColumnsRefs() []Expr {
	if self.cols == nil {
		self.cols = make([]Expr, len(self.ProjectedOutput))
		for i, e := range self.ProjectedOutput {
			alias := ""
			if cr, ok := e.(*ColRef); ok {
				alias = cr.Alias
			}
			self.cols[i] = &ColRef{Alias: alias, TabRef: self, Ordinal: -1}
		}
	}
	return self.cols
}

func (self *SubqueryRef) AddOuterRefsToOutput(list []Expr) []Expr {
	return addOuterRefs(list, self.OuterRefs)
}

// ExternalFile is a named source backed by an external-file scan; only its
// schema-facing shape is modeled here, execution is a runtime concern.
type ExternalFile struct {
	FileName  string
	Columns   []Column
	OuterRefs []Expr

	cols []Expr
}

func (self *ExternalFile) Name() string { return self.FileName }

func (self *ExternalFile) AllColumnsRefs() []Expr {
	if self.cols == nil {
		self.cols = make([]Expr, len(self.Columns))
		for i, c := range self.Columns {
			self.cols[i] = &ColRef{Alias: c.Name, TabRef: self, Ordinal: -1}
		}
	}
	return self.cols
}

func (self *ExternalFile) AddOuterRefsToOutput(list []Expr) []Expr {
	return addOuterRefs(list, self.OuterRefs)
}

func addOuterRefs(list []Expr, outer []Expr) []Expr {
	for _, o := range outer {
		found := false
		for _, e := range list {
			if Equals(e, o) {
				found = true
				break
			}
		}
		if !found {
			list = append(list, o)
		}
	}
	return list
}
