package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
)

// bestCandidate bundles the selected ScoredPlan with whatever intersection
// was built on top of it, for consumption by planSingle/driver.
type bestCandidate struct {
	plan ScoredPlan
}

// planAndFilter implements §4.4 (per-candidate matching) + §4.5 (selection
// & combination) for a single AND-of-leaves filter: try the no-index
// candidate and every candidate index, select the best ScoredPlan by the
// §4.5 comparator, and — if residuals remain — attempt an ordered
// intersection with other order-compatible candidates.
func planAndFilter(ctx *PlanContext, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config) (*bestCandidate, bool) {
	// §6 planOtherAttemptWholeFilter: give rank/text indexes a chance to
	// claim the entire filter before falling through to the generic
	// per-column value-index matching below.
	if cfg.PlanOtherAttemptWholeFilter {
		for i := range ctx.CandidateIndexes {
			ix := ctx.CandidateIndexes[i]
			if ix.Type != metadata.IndexTypeRank && ix.Type != metadata.IndexTypeText {
				continue
			}
			if sp := matchCandidate(ctx, &ix, filter, sort, cfg); sp != nil && sp.NumNonSargables() == 0 {
				return &bestCandidate{plan: *sp}, true
			}
		}
	}

	var candidates []candidateScore

	if noIndex := matchCandidate(ctx, nil, filter, sort, cfg); noIndex != nil {
		candidates = append(candidates, candidateScore{plan: *noIndex})
	}
	for i := range ctx.CandidateIndexes {
		ix := ctx.CandidateIndexes[i]
		if sp := matchCandidate(ctx, &ix, filter, sort, cfg); sp != nil {
			candidates = append(candidates, candidateScore{plan: *sp, index: &ix})
		}
	}

	if len(candidates) == 0 {
		return nil, false
	}

	best := selectBest(candidates, cfg.IndexScanPreference)
	result := best.plan
	bestName := candidateName(*best)

	if len(result.NonSargableFilters()) > 0 {
		var others []candidateScore
		usedBest := false
		for _, c := range candidates {
			if !usedBest && candidateName(c) == bestName && sameScoredPlan(c.plan, best.plan) {
				usedBest = true
				continue
			}
			others = append(others, c)
		}
		if plan, key, used, ok := buildIntersection(*best, others, cfg); ok {
			merged := mergeResiduals(used)
			result = ScoredPlan{
				Plan:               *plan,
				Score:              result.Score,
				UnsatisfiedFilters: merged,
				CreatesDuplicates:  anyDuplicates(used),
				PlanOrderingKey:    &key,
				StrictlySorted:     best.plan.StrictlySorted,
			}
		}
	}

	return &bestCandidate{plan: result}, true
}

// candidateName identifies a candidate by its index name, or "" for the
// no-index scan — used to exclude the selected candidate from the "others"
// pool by identity instead of by pointer (candidates are built from a
// loop-local copy of ctx.CandidateIndexes, so pointer comparison would be
// unreliable).
func candidateName(c candidateScore) string {
	if c.index == nil {
		return ""
	}
	return c.index.Name
}

func sameScoredPlan(a, b ScoredPlan) bool {
	return a.Score == b.Score && len(a.NonSargableFilters()) == len(b.NonSargableFilters())
}

func anyDuplicates(used []candidateScore) bool {
	for _, c := range used {
		if c.plan.CreatesDuplicates {
			return true
		}
	}
	return false
}

// mergeResiduals computes the intersection of the residual sets across the
// plans folded into an ordered intersection: a predicate remains
// unsatisfied only if none of the combined branches sarged or
// index-filtered it. §9's open question applies here: the source
// recomputes scores for intersection plans in a way it labels "ignored";
// this implementation's rule is to trust the first intersection that
// strictly dominates on non-sargable count, i.e. the residual is simply
// the running intersection buildIntersection already converged on.
func mergeResiduals(used []candidateScore) []predicate.Component {
	if len(used) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	remaining := residualSet(used[0].plan)
	for _, c := range used[1:] {
		remaining = intersectResidual(remaining, residualSet(c.plan))
	}
	var out []predicate.Component
	for _, c := range used {
		for _, f := range c.plan.NonSargableFilters() {
			fp := fingerprint(f)
			if remaining[fp] && !seen[fp] {
				seen[fp] = true
				out = append(out, f)
			}
		}
	}
	return out
}
