package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/benhoyt/goawk/parser"
	"github.com/fatih/color"

	"github.com/antmodule/planq/internal/catalog"
	"github.com/antmodule/planq/internal/expr"
	"github.com/antmodule/planq/internal/physic"
	"github.com/antmodule/planq/internal/plan"
)

// SQL text lexing and parsing sits outside the core by design (see
// DESIGN.md); this CLI stands in a small parser would otherwise occupy,
// selecting one of a handful of built-in SelectCore trees by name rather
// than reading arbitrary SQL text from stdin.
var (
	fQuery            = flag.String("query", "list", "built-in query to plan: list|inner-join|exists-subquery|scalar-subquery")
	fColor            = flag.Bool("color", false, "colorize node-kind headers in the printed plan")
	fExplainAwk       = flag.Bool("explain-awk", false, "parse a placeholder AWK expression once per table scan (filter literals are not checked)")
	fSubqueryToMark   = flag.Bool("subquery-to-markjoin", true, "rewrite EXISTS/IN/scalar subqueries into joins")
	fHashJoin         = flag.Bool("hashjoin", true, "allow hash join for single-equality predicates")
	fNLJoin           = flag.Bool("nljoin", true, "allow nested-loop join as the fallback strategy")
	fMemo             = flag.Bool("memo", false, "set Options.UseMemo (not read by translation, which is always direct)")
	fProfiling        = flag.Bool("profiling", false, "wrap physical nodes in the profiling decorator")
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR [%s] %s\n", stage, err)
	os.Exit(1)
}

func options() plan.Options {
	return plan.Options{
		EnableSubqueryToMarkJoin: *fSubqueryToMark,
		EnableHashJoin:           *fHashJoin,
		EnableNLJoin:             *fNLJoin,
		UseMemo:                  *fMemo,
		ProfilingEnabled:         *fProfiling,
	}
}

func demoCatalog() catalog.Catalog {
	return catalog.NewStatic().
		AddTable("orders",
			expr.Column{Name: "o_orderkey", Ty: expr.TypeInt},
			expr.Column{Name: "o_custkey", Ty: expr.TypeInt},
			expr.Column{Name: "o_orderdate", Ty: expr.TypeString}).
		AddTable("lineitem",
			expr.Column{Name: "l_orderkey", Ty: expr.TypeInt},
			expr.Column{Name: "l_commitdate", Ty: expr.TypeString},
			expr.Column{Name: "l_receiptdate", Ty: expr.TypeString}).
		AddTable("a", expr.Column{Name: "i", Ty: expr.TypeInt}, expr.Column{Name: "k", Ty: expr.TypeInt}).
		AddTable("b", expr.Column{Name: "j", Ty: expr.TypeInt}, expr.Column{Name: "k", Ty: expr.TypeInt})
}

func col(alias string) *expr.ColRef { return &expr.ColRef{Alias: alias} }

// demoQueries returns the small set of canned SelectCore trees the -query
// flag can name, each built by hand the way a parser's output would look.
func demoQueries() map[string]*plan.SelectCore {
	innerJoin := &plan.SelectCore{
		Projection: []plan.ProjItem{{Expr: col("a.i")}},
		From:       []plan.FromItem{{Table: "a"}, {Table: "b"}},
		Where:      &expr.Binary{Op: expr.OpEq, L: col("a.i"), R: col("b.j")},
	}

	existsSubquery := &plan.SelectCore{
		Projection: []plan.ProjItem{{Expr: col("orders.o_orderkey")}},
		From:       []plan.FromItem{{Table: "orders"}},
		Where: &expr.Binary{
			Op: expr.OpAnd,
			L:  &expr.Binary{Op: expr.OpEq, L: col("orders.o_orderdate"), R: &expr.Literal{Ty: expr.TypeString, Str: "1993-07-01"}},
			R: &plan.RawSubquery{
				Mode: expr.SubqueryExists,
				Query: &plan.SelectCore{
					Projection: []plan.ProjItem{{Expr: col("lineitem.l_orderkey")}},
					From:       []plan.FromItem{{Table: "lineitem"}},
					Where: &expr.Binary{
						Op: expr.OpAnd,
						L:  &expr.Binary{Op: expr.OpEq, L: col("lineitem.l_orderkey"), R: col("orders.o_orderkey")},
						R:  &expr.Binary{Op: expr.OpLt, L: col("lineitem.l_commitdate"), R: col("lineitem.l_receiptdate")},
					},
				},
			},
		},
	}

	scalarSubquery := &plan.SelectCore{
		Projection: []plan.ProjItem{{Expr: &plan.RawSubquery{
			Mode: expr.SubqueryScalar,
			Query: &plan.SelectCore{
				Projection: []plan.ProjItem{{Expr: &expr.AggFunc{AggKind: expr.AggMax, Arg: col("b.j")}}},
				From:       []plan.FromItem{{Table: "b"}},
				Where:      &expr.Binary{Op: expr.OpEq, L: col("b.k"), R: col("a.k")},
			},
		}}},
		From: []plan.FromItem{{Table: "a"}},
	}

	return map[string]*plan.SelectCore{
		"inner-join":       innerJoin,
		"exists-subquery":  existsSubquery,
		"scalar-subquery":  scalarSubquery,
	}
}

func planQuery(name string) (physic.Node, error) {
	sel, ok := demoQueries()[name]
	if !ok {
		return nil, fmt.Errorf("no such built-in query %q", name)
	}

	opt := options()
	binder := plan.NewBinder(demoCatalog(), opt)
	root, proj, err := binder.Bind(sel)
	if err != nil {
		return nil, err
	}

	root, proj, err = plan.NewRewriter(opt).Rewrite(root, proj)
	if err != nil {
		return nil, err
	}

	if err := plan.NewResolver(opt).Resolve(root, proj, true); err != nil {
		return nil, err
	}

	return physic.Translate(root, opt)
}

func explainAwk(phys physic.Node) {
	// Parses each candidate from literalAwkCandidates as a standalone AWK
	// expression and warns on any that fail. The candidates are one
	// placeholder "1" per ScanTable; the plan's filter predicates and
	// literals are not extracted or checked.
	lines := literalAwkCandidates(phys)
	for _, l := range lines {
		if _, err := parser.ParseProgram([]byte("BEGIN { x = "+l+" }"), nil); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %q is not valid as an AWK expression: %s\n", l, err)
		}
	}
}

func literalAwkCandidates(n physic.Node) []string {
	var out []string
	var walk func(physic.Node)
	walk = func(n physic.Node) {
		n = physic.Unwrap(n)
		if n == nil {
			return
		}
		if _, ok := n.(*physic.ScanTable); ok {
			out = append(out, "1") // placeholder scan predicate, always a valid AWK truthy literal
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

func printPlan(phys physic.Node) {
	text := physic.Print(phys)
	if !*fColor {
		fmt.Println(text)
		return
	}
	header := color.New(color.FgCyan, color.Bold)
	for _, line := range splitLines(text) {
		if idx := indexOf(line, "##> "); idx >= 0 {
			fmt.Print(line[:idx+4])
			header.Println(line[idx+4:])
		} else {
			fmt.Println(line)
		}
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func main() {
	flag.Parse()

	if *fQuery == "list" {
		for name := range demoQueries() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	phys, err := planQuery(*fQuery)
	if err != nil {
		oops("plan", err)
	}

	if *fExplainAwk {
		explainAwk(phys)
	}

	printPlan(phys)
	os.Exit(0)
}
