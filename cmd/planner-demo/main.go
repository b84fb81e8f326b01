// Command planner-demo builds a small in-memory schema, plans a handful of
// representative queries against it, and prints a summary table of scan
// characteristics; with -verbose it also prints each resulting plan tree.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/planner"
	"github.com/wbrown/recordplan/predicate"
)

func main() {
	var verbose bool
	var noColor bool
	flag.BoolVar(&verbose, "verbose", false, "print full plan trees")
	flag.BoolVar(&noColor, "no-color", false, "disable colorized plan output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Plans a fixed set of demo queries against an in-memory schema.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	md, rd := demoSchema()
	p := planner.NewPlanner(md, rd, planner.DefaultConfig())

	queries := demoQueries()

	rows := make([][]string, 0, len(queries))
	for _, q := range queries {
		plan, err := p.Plan(q.query)
		if err != nil {
			rows = append(rows, []string{q.name, "-", "-", errString(err)})
			continue
		}

		sc := leafScanComparisons(*plan)
		rows = append(rows, []string{
			q.name,
			leafIndexName(*plan),
			fmt.Sprintf("%d", sc),
			fmt.Sprintf("complexity=%d dup=%v", plan.Complexity(), plan.CreatesDuplicates()),
		})

		if verbose {
			fmt.Printf("%s %s\n", heading("Query:"), q.name)
			fmt.Print(plan.ExplainColor(!noColor))
			fmt.Println()
		}
	}

	renderSummary(rows)
}

func heading(s string) string {
	if color.NoColor {
		return s
	}
	return color.YellowString(s)
}

func errString(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", " ")
}

func leafIndexName(p planner.RecordQueryPlan) string {
	if p.Op == planner.OpIndexScan {
		return p.IndexName
	}
	if p.Op == planner.OpScan {
		return "(scan)"
	}
	for _, c := range p.Children {
		if n := leafIndexName(c); n != "" {
			return n
		}
	}
	return ""
}

func leafScanComparisons(p planner.RecordQueryPlan) int {
	if p.Op == planner.OpIndexScan || p.Op == planner.OpScan {
		return p.ScanComparisons.SargedPrefixLength()
	}
	for _, c := range p.Children {
		if n := leafScanComparisons(c); n > 0 {
			return n
		}
	}
	return 0
}

func renderSummary(rows [][]string) {
	sb := &strings.Builder{}
	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Query", "Leaf Index", "Sarged Columns", "Notes"})
	for _, r := range rows {
		table.Append(r)
	}
	table.Render()
	fmt.Println(sb.String())
}

type demoQuery struct {
	name  string
	query *planner.Query
}

// demoSchema builds a two-record-type schema: Order and Customer, with a
// value index on (status, createdAt), a value index on customerID, and a
// rank index scoring orders by total within their status group.
func demoSchema() (metadata.Metadata, metadata.Readability) {
	md := metadata.NewStaticMetadata()

	orderPK := keyexpr.Then(
		keyexpr.RecordTypeKeyExpr,
		keyexpr.Field("orderID", keyexpr.FanNone),
	)
	md.AddType(metadata.RecordType{Name: "Order", PrimaryKey: orderPK})

	customerPK := keyexpr.Then(
		keyexpr.RecordTypeKeyExpr,
		keyexpr.Field("customerID", keyexpr.FanNone),
	)
	md.AddType(metadata.RecordType{Name: "Customer", PrimaryKey: customerPK})

	md.AddIndex(metadata.Index{
		Name: "order_status_created",
		KeyExpression: keyexpr.Then(
			keyexpr.Field("status", keyexpr.FanNone),
			keyexpr.Field("createdAt", keyexpr.FanNone),
		),
		Type:        metadata.IndexTypeValue,
		RecordTypes: []string{"Order"},
	})

	md.AddIndex(metadata.Index{
		Name:          "order_customer",
		KeyExpression: keyexpr.Field("customerID", keyexpr.FanNone),
		Type:          metadata.IndexTypeValue,
		RecordTypes:   []string{"Order"},
	})

	md.AddIndex(metadata.Index{
		Name: "order_total_by_status",
		KeyExpression: keyexpr.Grouping(
			keyexpr.Then(
				keyexpr.Field("status", keyexpr.FanNone),
				keyexpr.Field("total", keyexpr.FanNone),
			),
			1,
		),
		Type:        metadata.IndexTypeRank,
		RecordTypes: []string{"Order"},
	})

	return md, metadata.StaticReadability{}
}

func demoQueries() []demoQuery {
	return []demoQuery{
		{
			name: "orders by status equality",
			query: &planner.Query{
				RecordTypes: []string{"Order"},
				Filter:      predicate.FieldWithComparison("status", predicate.Equal("shipped")),
			},
		},
		{
			name: "orders by status + createdAt range",
			query: &planner.Query{
				RecordTypes: []string{"Order"},
				Filter: predicate.And(
					predicate.FieldWithComparison("status", predicate.Equal("shipped")),
					predicate.FieldWithComparison("createdAt", predicate.Inequality(predicate.OpGT, "2026-01-01")),
				),
			},
		},
		{
			name: "orders by customer IN list",
			query: &planner.Query{
				RecordTypes: []string{"Order"},
				Filter: predicate.FieldWithComparison("customerID",
					predicate.InList([]interface{}{"c1", "c2", "c3"})),
			},
		},
		{
			name: "orders with no matching index",
			query: &planner.Query{
				RecordTypes: []string{"Order"},
				Filter:      predicate.FieldWithComparison("notes", predicate.TextMatch("refund")),
			},
		},
	}
}
