package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// rankScanComparisons builds the ScanComparisons for a rank-space scan,
// merging multiple rank predicates on the same grouping (§4.4: "multiple
// rank predicates on the same grouping may be merged via their
// ScanComparisons").
func rankScanComparisons(leaves []predicate.Component) scancomp.ScanComparisons {
	sc := scancomp.Empty()
	for _, l := range leaves {
		switch l.Comparison.Category() {
		case predicate.CategoryEquality:
			sc = sc.AddEquality(equalityValue(l.Comparison))
		case predicate.CategoryInequality:
			if !sc.HasInequality() {
				sc = sc.WithInequality(rangeFromComparison(l.Comparison))
			} else {
				merged, ok := sc.Merge(scancomp.Empty().WithInequality(rangeFromComparison(l.Comparison)))
				if ok {
					sc = merged
				}
			}
		}
	}
	return sc
}

// matchRankIndex implements the rank-index matching branch of §4.4: a rank
// index is a groupByKey -> ordered-score index, and predicates of shape
// rank(expr) <op> v are matched by converting to a rank-space scan;
// multiple rank predicates on the same grouping may be merged via their
// ScanComparisons.
//
// Grounded on the teacher's datalog/constraints/time_constraints.go, which
// converts a predicate on a derived quantity (day/month/year of a
// timestamp) into a storage-level range constraint in the same way this
// converts rank(expr) comparisons into a scan over the rank index's
// key space.
func matchRankIndex(ctx *PlanContext, index metadata.Index, filter predicate.Component, sort *keyexpr.KeyExpression) *ScoredPlan {
	conj := conjuncts(filter)
	var rankLeaves []predicate.Component
	var rankComparison *predicate.Comparison
	used := make([]bool, len(conj))

	for i, c := range conj {
		if c.Kind == predicate.KindRecordFunctionWithComparison && c.FunctionName == "rank" {
			rankLeaves = append(rankLeaves, c)
			used[i] = true
			if rankComparison == nil {
				cp := c.Comparison
				rankComparison = &cp
			}
		}
	}
	if len(rankLeaves) == 0 {
		return nil
	}

	sc := rankScanComparisons(rankLeaves)

	if index.KeyExpression.Kind != keyexpr.KindGrouping {
		return nil
	}
	groupWidth := index.KeyExpression.GroupedCount

	var orderingKey *keyexpr.KeyExpression
	if sort != nil {
		if !index.KeyExpression.IsPrefixKey(*sort) {
			return nil
		}
		k := *sort
		orderingKey = &k
	}

	unsatisfied := make([]predicate.Component, 0, len(conj))
	for i, c := range conj {
		if !used[i] {
			unsatisfied = append(unsatisfied, c)
		}
	}

	plan := IndexScanPlan(index.Name, sc, false, sort != nil)
	return &ScoredPlan{
		Plan:                    plan,
		Score:                   groupWidth + 1,
		UnsatisfiedFilters:      unsatisfied,
		PlanOrderingKey:         orderingKey,
		StrictlySorted:          sort != nil,
		IncludedRankComparisons: rankLeafNames(rankLeaves),
	}
}

func rankLeafNames(leaves []predicate.Component) map[string]bool {
	out := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		if len(l.FunctionArgs) > 0 {
			out[l.FunctionArgs[0]] = true
		}
	}
	return out
}
