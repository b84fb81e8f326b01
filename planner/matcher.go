package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// matchCandidate implements §4.4's per-candidate matcher entry point: for
// the given candidate (nil index means "no index"), attempt to build a
// ScoredPlan from filter/sort. Returns (nil, nil) when the candidate simply
// doesn't apply — absence, not an error, is the "did not match" signal
// (§9).
//
// Grounded on datalog/storage/matcher.go's chooseIndex, which dispatches on
// what's bound (e, a, v, t) to pick an index the same way this dispatches
// on index.Type.
func matchCandidate(ctx *PlanContext, index *metadata.Index, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config) *ScoredPlan {
	if index == nil {
		return matchNoIndex(ctx, filter, sort)
	}
	switch index.Type {
	case metadata.IndexTypeRank:
		return matchRankIndex(ctx, *index, filter, sort)
	case metadata.IndexTypeText:
		return matchTextIndex(ctx, *index, filter, sort)
	default:
		return matchValueIndex(ctx, *index, filter, sort, cfg)
	}
}

// matchNoIndex implements the no-index base selection: scan the primary
// key space. If exactly one type is requested and the common primary key
// starts with the record-type column, inject an equality on that column.
func matchNoIndex(ctx *PlanContext, filter predicate.Component, sort *keyexpr.KeyExpression) *ScoredPlan {
	sc := scancomp.Empty()
	var injectedType string
	if len(ctx.Query.RecordTypes) == 1 {
		cols := ctx.CommonPrimaryKey.Columns()
		if len(cols) > 0 && cols[0].Kind == keyexpr.KindRecordTypeKey {
			sc = sc.AddEquality(ctx.Query.RecordTypes[0])
			injectedType = ctx.Query.RecordTypes[0]
		}
	}

	conj := conjuncts(filter)
	strictlySorted := false
	if sort != nil {
		// Sort-only fallback: the sort must be a prefix of the primary key.
		if ctx.CommonPrimaryKey.IsPrefixKey(*sort) || sort.IsPrefixKey(ctx.CommonPrimaryKey) {
			strictlySorted = sortIsFullPrefixOf(*sort, ctx.CommonPrimaryKey)
		} else {
			return nil
		}
	}

	plan := ScanPlan(sc, false, strictlySorted)
	if injectedType != "" {
		plan = TypeFilterPlan(plan, []string{injectedType})
	}
	return &ScoredPlan{
		Plan:               plan,
		Score:              sc.SargedPrefixLength(),
		UnsatisfiedFilters: conj,
		StrictlySorted:     strictlySorted,
	}
}

func sortIsFullPrefixOf(sort, key keyexpr.KeyExpression) bool {
	return len(sort.Columns()) >= len(key.Columns())
}

// conjuncts flattens a filter into its top-level AND children (a bare
// non-And filter is a single-element conjunct list; an empty filter
// yields no conjuncts).
func conjuncts(filter predicate.Component) []predicate.Component {
	if filter.IsEmpty() {
		return nil
	}
	if filter.Kind == predicate.KindAnd {
		return append([]predicate.Component{}, filter.Children...)
	}
	return []predicate.Component{filter}
}
