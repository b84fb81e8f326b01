package planner

import (
	"fmt"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
)

// orSubplan is one disjunct's planned subplan, carrying its ordering key
// for merge decisions (§4.6).
type orSubplan struct {
	plan          RecordQueryPlan
	orderingKey   *keyexpr.KeyExpression
	baseResidual  *RecordQueryPlan // the underlying scan if plan is a bare ResidualFilter over it
	baseFilter    predicate.Component
	isResidualOnly bool
}

// planOr implements §4.6: plan each disjunct, then try the same-base
// optimization, ordered union, or unordered union in that order. Returns
// (nil, false, nil) when no subplan can be produced for some disjunct, or
// when a sort is required and subplans cannot be merge-aligned — absence,
// not an error (§9); the driver surfaces this as UnsatisfiableSort only
// when no fallback applies. A non-nil error means a subplan was found but
// the union cannot honor the query's distinctness requirement (no common
// primary key to dedupe on); that is a hard failure, not absence.
//
// Grounded on datalog/executor/union_relation.go (ordered vs. unordered
// union construction) and streaming_union.go (merge-by-key).
func planOr(ctx *PlanContext, disjuncts []predicate.Component, sort *keyexpr.KeyExpression, cfg Config, requireDistinct bool) (*RecordQueryPlan, bool, error) {
	subplans := make([]orSubplan, 0, len(disjuncts))
	for _, d := range disjuncts {
		sp, ok := planSingle(ctx, d, sort, cfg)
		if !ok {
			return nil, false, nil
		}
		subplans = append(subplans, sp)
	}

	if plan, ok := sameBaseCollapse(subplans); ok {
		return &plan, true, nil
	}

	if sort == nil {
		if plan, ok, err := orderedUnion(subplans, ctx.CommonPrimaryKey, requireDistinct); err != nil {
			return nil, false, err
		} else if ok {
			return &plan, true, nil
		}
		plan, err := unorderedUnionWithDistinct(subplans, requireDistinct, ctx.CommonPrimaryKey)
		if err != nil {
			return nil, false, err
		}
		return &plan, true, nil
	}

	// A sort is required: only an ordered union can satisfy it.
	plan, ok, err := orderedUnion(subplans, ctx.CommonPrimaryKey, requireDistinct)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return &plan, true, nil
	}
	return nil, false, nil
}

// planSingle plans one disjunct as a complete subplan (matching +
// selection + post-processing, minus the final complexity check, which
// the driver performs once on the whole tree).
func planSingle(ctx *PlanContext, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config) (orSubplan, bool) {
	best, ok := planAndFilter(ctx, filter, sort, cfg)
	if !ok {
		return orSubplan{}, false
	}

	sp := orSubplan{plan: best.plan.Plan, orderingKey: best.plan.PlanOrderingKey}
	if nonSarg := best.plan.NonSargableFilters(); len(nonSarg) > 0 {
		residual := predicate.And(nonSarg...)
		sp.plan = ResidualFilterPlan(best.plan.Plan, residual)
		sp.baseResidual = &best.plan.Plan
		sp.baseFilter = residual
		sp.isResidualOnly = true
	}
	return sp, true
}

// sameBaseCollapse implements the §4.6 "same-base optimization": if every
// subplan is a residual-filter over the *same* base scan, collapse into
// one residual-filter whose predicate is the OR of the sub-filters.
func sameBaseCollapse(subplans []orSubplan) (RecordQueryPlan, bool) {
	if len(subplans) < 2 {
		return RecordQueryPlan{}, false
	}
	for _, sp := range subplans {
		if !sp.isResidualOnly || sp.baseResidual == nil {
			return RecordQueryPlan{}, false
		}
	}
	base := subplans[0].baseResidual
	for _, sp := range subplans[1:] {
		if !plansEqual(*base, *sp.baseResidual) {
			return RecordQueryPlan{}, false
		}
	}
	filters := make([]predicate.Component, len(subplans))
	for i, sp := range subplans {
		filters[i] = sp.baseFilter
	}
	return ResidualFilterPlan(*base, predicate.Or(filters...)), true
}

// plansEqual is a structural comparison sufficient for same-base
// detection (index name + scan comparisons + reverse flag).
func plansEqual(a, b RecordQueryPlan) bool {
	if a.Op != b.Op || a.IndexName != b.IndexName || a.Reverse != b.Reverse {
		return false
	}
	if a.Op == OpIndexScan || a.Op == OpScan {
		return fingerprintScan(a) == fingerprintScan(b)
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !plansEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func fingerprintScan(p RecordQueryPlan) string {
	s := fmt.Sprintf("%s|%v|%v", p.IndexName, p.ScanComparisons.Equalities, p.ScanComparisons.Inequality)
	return s
}

// orderedUnion implements §4.6's ordered-union construction: if all
// subplans share a compatible ordering key and a common direction, build
// an ordered union on the merged comparison key (the merged ordering key
// followed by the common primary key's columns, skipping any column the
// merged key already holds).
// If the combined union needs deduplication (explicitly requested, a
// branch creates duplicates, or more than one branch is merged) but the
// record types involved share no common primary key to dedupe on, that is
// a hard failure per spec.md's closing distinctness invariant, not a
// silent pass-through.
func orderedUnion(subplans []orSubplan, commonPK keyexpr.KeyExpression, requireDistinct bool) (RecordQueryPlan, bool, error) {
	if len(subplans) == 0 {
		return RecordQueryPlan{}, false, nil
	}
	key := subplans[0].orderingKey
	if key == nil {
		return RecordQueryPlan{}, false, nil
	}
	merged := *key
	for _, sp := range subplans[1:] {
		if sp.orderingKey == nil || !orderingCompatible(&merged, sp.orderingKey) {
			return RecordQueryPlan{}, false, nil
		}
		merged = mergedOrderingKey(merged, *sp.orderingKey)
	}
	if commonPK.Kind != keyexpr.KindEmpty && !merged.IsPrefixKey(commonPK) {
		cols := append([]keyexpr.KeyExpression{}, merged.Columns()...)
		for _, pc := range commonPK.Columns() {
			present := false
			for _, c := range cols {
				if c.Equal(pc) {
					present = true
					break
				}
			}
			if !present {
				cols = append(cols, pc)
			}
		}
		merged = keyexpr.Then(cols...)
	}
	plans := make([]RecordQueryPlan, len(subplans))
	for i, sp := range subplans {
		plans[i] = sp.plan
	}
	plan := UnionPlan(plans, merged, false)

	plan, err := wrapDistinctIfNeeded(plan, plans, requireDistinct, commonPK)
	if err != nil {
		return RecordQueryPlan{}, false, err
	}
	return plan, true, nil
}

// unorderedUnionWithDistinct implements the §4.6 fallback: an unordered
// union, with a primary-key-distinct wrapper appended when the query
// requires deduplication, or a PlannerError when deduplication is needed
// but impossible (no common primary key).
func unorderedUnionWithDistinct(subplans []orSubplan, requireDistinct bool, commonPK keyexpr.KeyExpression) (RecordQueryPlan, error) {
	plans := make([]RecordQueryPlan, len(subplans))
	for i, sp := range subplans {
		plans[i] = sp.plan
	}
	plan := UnorderedUnionPlan(plans)
	return wrapDistinctIfNeeded(plan, plans, requireDistinct, commonPK)
}

// wrapDistinctIfNeeded implements the shared §4.6 distinctness decision
// for both union shapes: wrap in PrimaryKeyDistinctPlan when required
// (explicitly, by a duplicate-producing branch, or because a union of
// disjuncts over the same record space can itself produce duplicate
// primary keys across branches even when no single branch creates
// duplicates — the classic OR(a=1, b=2) case, seed scenario 5). Per
// spec.md's closing invariant, failing to find a common primary key while
// distinctness is needed is a hard error, not a silent skip.
func wrapDistinctIfNeeded(plan RecordQueryPlan, branches []RecordQueryPlan, requireDistinct bool, commonPK keyexpr.KeyExpression) (RecordQueryPlan, error) {
	needsDistinct := requireDistinct
	if !needsDistinct {
		for _, p := range branches {
			if p.CreatesDuplicates() {
				needsDistinct = true
				break
			}
		}
	}
	if len(branches) > 1 {
		needsDistinct = true
	}
	if !needsDistinct {
		return plan, nil
	}
	if commonPK.Kind == keyexpr.KindEmpty {
		return RecordQueryPlan{}, newError(ErrUnexpectedState, "", "distinctness required but the queried record types share no common primary key")
	}
	return PrimaryKeyDistinctPlan(plan), nil
}
