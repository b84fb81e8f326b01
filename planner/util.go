package planner

import (
	"fmt"

	"github.com/wbrown/recordplan/predicate"
)

// fingerprint produces a stable-enough string key for a predicate leaf,
// used to test set membership when deciding whether a candidate plan still
// reduces the remaining residual set (§4.5), when merging residual lists,
// and to key the plan cache's filter signature. Not a canonical
// serialization; good enough for equality comparison.
func fingerprint(c predicate.Component) string {
	switch c.Kind {
	case predicate.KindFieldWithComparison, predicate.KindOneOfThemWithComparison:
		return fmt.Sprintf("%d:%s:%v", c.Kind, c.FieldName, c.Comparison)
	case predicate.KindRecordFunctionWithComparison:
		return fmt.Sprintf("%d:%s:%v:%v", c.Kind, c.FunctionName, c.FunctionArgs, c.Comparison)
	case predicate.KindRecordTypeKeyComparison:
		return fmt.Sprintf("%d:%v", c.Kind, c.Comparison)
	case predicate.KindKeyExpressionWithComparison:
		return fmt.Sprintf("%d:%s:%v", c.Kind, c.KeyExpression.String(), c.Comparison)
	case predicate.KindNested:
		inner := ""
		if c.Child != nil {
			inner = fingerprint(*c.Child)
		}
		return fmt.Sprintf("%d:%s:%s", c.Kind, c.ParentName, inner)
	case predicate.KindOneOfThemWithComponent:
		inner := ""
		if c.Child != nil {
			inner = fingerprint(*c.Child)
		}
		return fmt.Sprintf("%d:%s:%s", c.Kind, c.ParentName, inner)
	case predicate.KindNot:
		inner := ""
		if c.Child != nil {
			inner = fingerprint(*c.Child)
		}
		return fmt.Sprintf("%d:%s", c.Kind, inner)
	case predicate.KindAnd, predicate.KindOr:
		s := fmt.Sprintf("%d:[", c.Kind)
		for _, ch := range c.Children {
			s += fingerprint(ch) + ","
		}
		return s + "]"
	default:
		return "empty"
	}
}

// fieldsUsed returns the set of top-level field names a predicate
// references, used by the covering rewrite (§4.7) to decide whether a
// residual is evaluable on an index entry.
func fieldsUsed(c predicate.Component, out map[string]bool) {
	switch c.Kind {
	case predicate.KindFieldWithComparison, predicate.KindOneOfThemWithComparison:
		out[c.FieldName] = true
	case predicate.KindRecordFunctionWithComparison:
		for _, a := range c.FunctionArgs {
			out[a] = true
		}
	case predicate.KindNested, predicate.KindOneOfThemWithComponent:
		if c.Child != nil {
			fieldsUsed(*c.Child, out)
		}
	case predicate.KindNot:
		if c.Child != nil {
			fieldsUsed(*c.Child, out)
		}
	case predicate.KindAnd, predicate.KindOr:
		for _, ch := range c.Children {
			fieldsUsed(ch, out)
		}
	}
}
