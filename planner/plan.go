// Package planner implements the heuristic record query planner described
// in spec.md: context build, filter normalization, IN extraction,
// per-candidate matching, selection & combination, and post-processing,
// producing an executable RecordQueryPlan tree.
//
// File organization (grounded on the teacher's
// datalog/planner package doc comment, which lists file responsibilities
// up front so a reader can start at the right file):
//   - plan.go:            RecordQueryPlan operator tree (§3, §6)
//   - scoredplan.go:      ScoredPlan, PlanContext (§3, §4)
//   - context.go:         4.1 context build & candidate discovery
//   - inextract.go:       4.3 IN extraction
//   - matcher.go:         4.4 per-candidate dispatch, no-index base scan
//   - matcher_value.go:   4.4 AndWithThen engine (value indexes)
//   - matcher_nesting.go: AND-with-nested-Nesting-key gathering
//   - matcher_rank.go:    rank-index matching
//   - matcher_text.go:    text-index matching
//   - select.go:          4.5 comparator & ordered intersection
//   - or.go:              4.6 OR / union planning
//   - postprocess.go:     4.7 distinct, covering, pushdown, complexity
//   - driver.go:          §6 Planner.Plan / PlanCoveringAggregate
//   - config.go:          §6 Config
//   - errors.go:          §7 error taxonomy
//   - cache.go:           plan memoization (ambient)
//   - explain.go:         plan-tree rendering (supplemented feature)
//
// Start with driver.go's Plan() to understand the planning flow.
package planner

import (
	"strings"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// Op tags which RecordQueryPlan operator a node represents (§1, §3).
type Op int

const (
	OpIndexScan Op = iota
	OpScan                // primary-key-space scan, no secondary index
	OpTypeFilter
	OpResidualFilter
	OpInJoin
	OpInUnion
	OpIntersection
	OpUnion               // ordered union
	OpUnorderedUnion
	OpPrimaryKeyDistinct
	OpCoveringFetch
	OpSort
)

func (o Op) String() string {
	switch o {
	case OpIndexScan:
		return "IndexScan"
	case OpScan:
		return "Scan"
	case OpTypeFilter:
		return "TypeFilter"
	case OpResidualFilter:
		return "ResidualFilter"
	case OpInJoin:
		return "InJoin"
	case OpInUnion:
		return "InUnion"
	case OpIntersection:
		return "Intersection"
	case OpUnion:
		return "Union"
	case OpUnorderedUnion:
		return "UnorderedUnion"
	case OpPrimaryKeyDistinct:
		return "PrimaryKeyDistinct"
	case OpCoveringFetch:
		return "CoveringFetch"
	case OpSort:
		return "Sort"
	default:
		return "Unknown"
	}
}

// RecordQueryPlan is the tagged tree of physical operators produced by the
// planner (§3, §6). It is a value type: children are owned by value (via
// slice), never by shared/back reference, matching §9's guidance that
// cyclic references are absent and ownership is purely functional.
type RecordQueryPlan struct {
	Op Op

	// Leaf scan fields (OpIndexScan, OpScan)
	IndexName       string
	ScanComparisons scancomp.ScanComparisons
	Reverse         bool
	StrictlySorted  bool

	// OpTypeFilter / OpResidualFilter
	Filter predicate.Component

	// OpInJoin / OpInUnion
	InSources []InSource

	// Children (OpTypeFilter wraps one child via Children[0];
	// OpIntersection/Union/UnorderedUnion hold 2+; OpSort/Distinct/
	// CoveringFetch/InJoin/InUnion/ResidualFilter hold exactly one)
	Children []RecordQueryPlan

	// ComparisonKey is the merge/ordering key for Intersection, Union, and
	// InUnion nodes, and the effective ordering key for any plan (used by
	// planOrderingKey comparisons in §4.5/§4.6).
	ComparisonKey keyexpr.KeyExpression

	// PossibleRecordTypes is the result schema's set of record types this
	// plan can produce; nil means "all requested types".
	PossibleRecordTypes []string

	// RequiredFields, when non-nil, marks this as a covering plan: only
	// these fields (plus anything residual filters still need) are
	// guaranteed present on entries flowing out of this node.
	RequiredFields []string

	// StableID is a deterministic identifier for explainability (§6):
	// assigned once by the driver after the plan is finalized.
	StableID int
}

// Complexity is the sum of children's complexity plus one, plus the size of
// scan comparisons for scan nodes (§3: "complexity integer (sum of children
// plus 1, plus size-of-scan-comparisons for scans)").
func (p RecordQueryPlan) Complexity() int {
	c := 1
	if p.Op == OpIndexScan || p.Op == OpScan {
		c += p.ScanComparisons.Size()
	}
	for _, child := range p.Children {
		c += child.Complexity()
	}
	return c
}

// CreatesDuplicates reports whether any leaf scan in this plan can produce
// duplicate primary keys, propagated up through operators that do not
// themselves deduplicate.
func (p RecordQueryPlan) CreatesDuplicates() bool {
	switch p.Op {
	case OpPrimaryKeyDistinct:
		return false
	case OpUnion, OpUnorderedUnion, OpIntersection:
		for _, c := range p.Children {
			if c.CreatesDuplicates() {
				return true
			}
		}
		return false
	default:
		for _, c := range p.Children {
			if c.CreatesDuplicates() {
				return true
			}
		}
		return false
	}
}

// WithChild returns a copy of p with a single child c (used by wrapper
// operators: ResidualFilter, PrimaryKeyDistinct, CoveringFetch, Sort,
// TypeFilter).
func (p RecordQueryPlan) WithChild(c RecordQueryPlan) RecordQueryPlan {
	out := p
	out.Children = []RecordQueryPlan{c}
	return out
}

// IndexScanPlan builds a leaf plan scanning the named index.
func IndexScanPlan(indexName string, sc scancomp.ScanComparisons, reverse, strictlySorted bool) RecordQueryPlan {
	return RecordQueryPlan{
		Op:              OpIndexScan,
		IndexName:       indexName,
		ScanComparisons: sc,
		Reverse:         reverse,
		StrictlySorted:  strictlySorted,
	}
}

// ScanPlan builds a leaf plan scanning the primary-key space directly (no
// secondary index).
func ScanPlan(sc scancomp.ScanComparisons, reverse, strictlySorted bool) RecordQueryPlan {
	return RecordQueryPlan{
		Op:              OpScan,
		ScanComparisons: sc,
		Reverse:         reverse,
		StrictlySorted:  strictlySorted,
	}
}

// TypeFilterPlan wraps child with a type filter restricting to types.
func TypeFilterPlan(child RecordQueryPlan, types []string) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpTypeFilter, PossibleRecordTypes: types}
	return p.WithChild(child)
}

// ResidualFilterPlan wraps child with a post-scan predicate evaluation.
func ResidualFilterPlan(child RecordQueryPlan, filter predicate.Component) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpResidualFilter, Filter: filter}
	return p.WithChild(child)
}

// PrimaryKeyDistinctPlan wraps child with duplicate elimination on the
// primary key.
func PrimaryKeyDistinctPlan(child RecordQueryPlan) RecordQueryPlan {
	return RecordQueryPlan{Op: OpPrimaryKeyDistinct}.WithChild(child)
}

// SortPlan wraps child with an explicit in-memory sort on key.
func SortPlan(child RecordQueryPlan, key keyexpr.KeyExpression, reverse bool) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpSort, ComparisonKey: key, Reverse: reverse}
	return p.WithChild(child)
}

// CoveringFetchPlan wraps child marking that only requiredFields (and
// index-evaluable residuals) are guaranteed available without a record
// fetch.
func CoveringFetchPlan(child RecordQueryPlan, requiredFields []string) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpCoveringFetch, RequiredFields: requiredFields}
	return p.WithChild(child)
}

// InSource describes one outer-bound IN source: the list of values to
// iterate and the parameter name the subplan binds against.
type InSource struct {
	ParamName string
	Values    []interface{}
}

// InJoinPlan builds an IN-join: for each element of each source, rebind
// parameters and iterate the (already-parameterized) inner plan.
func InJoinPlan(sources []InSource, inner RecordQueryPlan) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpInJoin, InSources: sources}
	return p.WithChild(inner)
}

// InUnionPlan builds an IN-union: like InJoinPlan, but the sources'
// iteration is merged on comparisonKey rather than driven one at a time.
func InUnionPlan(sources []InSource, inner RecordQueryPlan, comparisonKey keyexpr.KeyExpression) RecordQueryPlan {
	p := RecordQueryPlan{Op: OpInUnion, InSources: sources, ComparisonKey: comparisonKey}
	return p.WithChild(inner)
}

// IntersectionPlan builds an ordered intersection of children on
// comparisonKey.
func IntersectionPlan(children []RecordQueryPlan, comparisonKey keyexpr.KeyExpression) RecordQueryPlan {
	return RecordQueryPlan{Op: OpIntersection, Children: children, ComparisonKey: comparisonKey}
}

// UnionPlan builds an ordered union of children on comparisonKey.
func UnionPlan(children []RecordQueryPlan, comparisonKey keyexpr.KeyExpression, reverse bool) RecordQueryPlan {
	return RecordQueryPlan{Op: OpUnion, Children: children, ComparisonKey: comparisonKey, Reverse: reverse}
}

// UnorderedUnionPlan builds an unordered union of children.
func UnorderedUnionPlan(children []RecordQueryPlan) RecordQueryPlan {
	return RecordQueryPlan{Op: OpUnorderedUnion, Children: children}
}

// assignStableIDs walks the tree in a deterministic (pre-order) sequence,
// assigning StableID = visitation order. Called once by the driver after
// the plan is finalized (§6: "a stable identifier for explainability").
func assignStableIDs(p *RecordQueryPlan, next *int) {
	p.StableID = *next
	*next++
	for i := range p.Children {
		assignStableIDs(&p.Children[i], next)
	}
}

// String renders a one-line-per-node indented tree (Explain has its own
// renderer and does not call it).
func (p RecordQueryPlan) String() string {
	var sb strings.Builder
	p.render(&sb, "")
	return sb.String()
}

func (p RecordQueryPlan) render(sb *strings.Builder, indent string) {
	sb.WriteString(indent)
	sb.WriteString(p.Op.String())
	switch p.Op {
	case OpIndexScan:
		sb.WriteString(" ")
		sb.WriteString(p.IndexName)
	case OpResidualFilter, OpTypeFilter:
		// filter/types omitted from the compact form; see Explain for detail
	}
	sb.WriteString("\n")
	for _, c := range p.Children {
		c.render(sb, indent+"  ")
	}
}
