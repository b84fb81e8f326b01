package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// scancompRangeFrom converts a nestedGroupResult's range into a
// scancomp.Range via the same single-operator-to-bound mapping
// rangeFromComparison uses.
func scancompRangeFrom(r rangeResult) scancomp.Range {
	return rangeFromComparison(predicate.Inequality(r.op, r.value))
}

// nestedGroupResult is what matching a Nesting column against the gathered
// AND children that descend into the same parent produces.
type nestedGroupResult struct {
	value       interface{} // equality value if category is equality
	isEquality  bool
	rng         rangeResult
	hasRange    bool
	complete    bool
	usedIndices []int
	duplicates  bool
}

type rangeResult struct {
	op    predicate.CompareOp
	value interface{}
}

// matchNestedGroup implements "AND with nested Nesting key" (§4.4): when
// multiple AND children all descend into the same non-repeated parent
// field, gather them and match them collectively against the nested
// sub-key so more than one leaf may bind to different nested columns.
//
// It reuses the same left-to-right column-consumption rule as the
// top-level matcher, scoped to the nested child's columns and the subset
// of remaining filter children whose ParentName equals col.FieldName.
func (m *andWithThenMatcher) matchNestedGroup(col keyexpr.KeyExpression) *nestedGroupResult {
	if col.Kind != keyexpr.KindNesting || col.Child == nil || col.FieldFan == keyexpr.FanOut {
		return nil
	}

	// Gather candidate (index, inner component) pairs for Nested leaves
	// whose ParentName matches, preserving remaining-list order.
	type candidate struct {
		idx   int
		inner predicate.Component
	}
	var cands []candidate
	for i, c := range m.remaining {
		if m.used[i] {
			continue
		}
		if c.Kind == predicate.KindNested && c.ParentName == col.FieldName && c.Child != nil {
			cands = append(cands, candidate{idx: i, inner: *c.Child})
		}
	}
	if len(cands) == 0 {
		return nil
	}

	childCols := col.Child.Columns()
	var used []int
	complete := true
	duplicates := false

	boundCount := 0
	for _, cc := range childCols {
		found := false
		for _, cand := range cands {
			already := false
			for _, u := range used {
				if u == cand.idx {
					already = true
					break
				}
			}
			if already {
				continue
			}
			if mc, leafComplete, ok := compatibleComparison(cc, cand.inner); ok {
				used = append(used, cand.idx)
				boundCount++
				if cc.CreatesDuplicates() {
					duplicates = true
				}
				if !leafComplete {
					complete = false
				}
				_ = mc
				found = true
				break
			}
		}
		if !found {
			complete = false
			break
		}
	}

	if boundCount == 0 {
		return nil
	}

	// Only the simple "single child column, single leaf, equality or
	// inequality" shape produces a usable scan-comparison value here;
	// richer nested shapes (multiple child columns bound under the same
	// parent) return a result with neither isEquality nor hasRange set.
	// The caller (matchValueIndex) recognizes that shape and carries the
	// matched leaves as index filters instead — still evaluable against
	// the index entry without a fetch, just not reducible to a single
	// scan-comparison value. This mirrors the teacher's BadgerMatcher,
	// which also only ever binds one scalar per key column
	// (datalog/storage/matcher.go bindPattern).
	if len(childCols) == 1 {
		for _, cand := range cands {
			if cand.idx == used[0] {
				if mc, leafComplete, ok := compatibleComparison(childCols[0], cand.inner); ok {
					res := &nestedGroupResult{complete: leafComplete && complete, usedIndices: used, duplicates: duplicates}
					switch mc.Comparison.Category() {
					case predicate.CategoryEquality:
						res.isEquality = true
						res.value = equalityValue(mc.Comparison)
					case predicate.CategoryInequality:
						res.hasRange = true
						res.rng = rangeResult{op: mc.Comparison.Op, value: mc.Comparison.Value}
					default:
						return nil
					}
					return res
				}
			}
		}
	}

	return &nestedGroupResult{complete: complete, usedIndices: used, duplicates: duplicates}
}
