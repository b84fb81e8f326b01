// Package predicate implements the boolean query-component tree and the
// comparison value types from spec.md §3, plus normalization (§4.2) and a
// bounded disjunctive-normal-form rewrite.
//
// As in keyexpr, variants are modeled as one tagged struct rather than an
// interface per constructor, grounded on the teacher's flat, switchable
// clause/pattern types (datalog/query/clause.go, predicate.go) — matching
// here happens by switching on Kind, not by double-dispatch visitors (see
// DESIGN.md, §9 re-architecture note on visitors).
package predicate

import "github.com/wbrown/recordplan/keyexpr"

// CompKind tags which QueryComponent leaf/inner-node variant a Component
// holds.
type CompKind int

const (
	// Leaves
	KindFieldWithComparison CompKind = iota
	KindOneOfThemWithComparison
	KindRecordFunctionWithComparison
	KindRecordTypeKeyComparison
	KindKeyExpressionWithComparison

	// Inner nodes
	KindAnd
	KindOr
	KindNot
	KindNested
	KindOneOfThemWithComponent

	// KindEmptyFilter marks the absence of a filter (an unconditional
	// query). Distinct from the zero Component value so a zero value is
	// never silently mistaken for "no filter".
	KindEmptyFilter
)

// Empty is the canonical "no filter" component.
var Empty = Component{Kind: KindEmptyFilter}

// IsEmpty reports whether c represents the absence of a filter.
func (c Component) IsEmpty() bool { return c.Kind == KindEmptyFilter }

// Component is the boolean predicate tree node (QueryComponent in spec.md).
type Component struct {
	Kind CompKind

	// Leaves
	FieldName     string     // KindFieldWithComparison, KindOneOfThemWithComparison
	Comparison    Comparison // KindFieldWithComparison, KindOneOfThemWithComparison, KindRecordTypeKeyComparison
	FunctionName  string     // KindRecordFunctionWithComparison, e.g. "rank", "version"
	FunctionArgs  []string   // KindRecordFunctionWithComparison: field names the function reads
	KeyExpression keyexpr.KeyExpression // KindKeyExpressionWithComparison

	// Inner nodes
	Children   []Component // KindAnd, KindOr
	Child      *Component  // KindNot, KindNested, KindOneOfThemWithComponent
	ParentName string      // KindNested, KindOneOfThemWithComponent: field descended into
}

// And builds a conjunction, flattening directly-nested Ands.
func And(children ...Component) Component {
	var flat []Component
	for _, c := range children {
		if c.Kind == KindAnd {
			flat = append(flat, c.Children...)
		} else {
			flat = append(flat, c)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Component{Kind: KindAnd, Children: flat}
}

// Or builds a disjunction, flattening directly-nested Ors.
func Or(children ...Component) Component {
	var flat []Component
	for _, c := range children {
		if c.Kind == KindOr {
			flat = append(flat, c.Children...)
		} else {
			flat = append(flat, c)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Component{Kind: KindOr, Children: flat}
}

// Not builds a negation.
func Not(child Component) Component {
	c := child
	return Component{Kind: KindNot, Child: &c}
}

// Nested descends into a submessage field.
func Nested(parentField string, child Component) Component {
	c := child
	return Component{Kind: KindNested, ParentName: parentField, Child: &c}
}

// OneOfThemWithComponent applies child to any element of a repeated
// submessage field.
func OneOfThemWithComponent(parentField string, child Component) Component {
	c := child
	return Component{Kind: KindOneOfThemWithComponent, ParentName: parentField, Child: &c}
}

// FieldWithComparison builds a leaf comparing a top-level field.
func FieldWithComparison(field string, cmp Comparison) Component {
	return Component{Kind: KindFieldWithComparison, FieldName: field, Comparison: cmp}
}

// OneOfThemWithComparison builds a leaf satisfied if any element of a
// repeated field satisfies cmp.
func OneOfThemWithComparison(field string, cmp Comparison) Component {
	return Component{Kind: KindOneOfThemWithComparison, FieldName: field, Comparison: cmp}
}

// RecordFunctionWithComparison builds a leaf like rank(expr) <op> v or
// version() <op> v.
func RecordFunctionWithComparison(fn string, args []string, cmp Comparison) Component {
	return Component{Kind: KindRecordFunctionWithComparison, FunctionName: fn, FunctionArgs: args, Comparison: cmp}
}

// RecordTypeKeyComparison builds a leaf comparing the synthetic record-type
// column.
func RecordTypeKeyComparison(cmp Comparison) Component {
	return Component{Kind: KindRecordTypeKeyComparison, Comparison: cmp}
}

// KeyExpressionWithComparison builds a leaf comparing an arbitrary key
// expression.
func KeyExpressionWithComparison(ke keyexpr.KeyExpression, cmp Comparison) Component {
	return Component{Kind: KindKeyExpressionWithComparison, KeyExpression: ke, Comparison: cmp}
}

// IsLeaf reports whether this component has no children (terminal in the
// AND-of-leaves sense the matcher consumes).
func (c Component) IsLeaf() bool {
	switch c.Kind {
	case KindAnd, KindOr, KindNot, KindNested, KindOneOfThemWithComponent, KindEmptyFilter:
		return false
	default:
		return true
	}
}

// Walk calls fn for every leaf reachable from c, short-circuiting And/Or/Not
// recursion itself; Nested/OneOfThemWithComponent leaves are passed to fn
// as opaque nodes and are not descended into.
func (c Component) Walk(fn func(Component)) {
	switch c.Kind {
	case KindAnd, KindOr:
		for _, ch := range c.Children {
			ch.Walk(fn)
		}
	case KindNot:
		if c.Child != nil {
			c.Child.Walk(fn)
		}
	default:
		fn(c)
	}
}
