package planner

import (
	"sort"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
)

// candidateScore bundles a ScoredPlan with the metadata needed for the
// §4.5 comparator's fourth tie-break (indexSizeOverhead), grounded on the
// teacher's planner_patterns.go pattern-ordering comparator.
type candidateScore struct {
	plan  ScoredPlan
	index *metadata.Index // nil for the no-index candidate
}

// indexSizeOverhead approximates the §4.5 tie-break 4: value indexes sized
// by stored-column count, others (rank/text/other, and the no-index case)
// by full key-size / the scan-vs-index preference policy.
func indexSizeOverhead(c candidateScore, pref IndexScanPreference) int {
	if c.index == nil {
		switch pref {
		case PreferScan:
			return -1 // scan always wins ties
		case PreferPKIndex:
			return 1 << 30 // scan always loses ties to any index
		default:
			return 1 << 29
		}
	}
	if c.index.Type == metadata.IndexTypeValue {
		return len(c.index.KeyExpression.Columns())
	}
	return len(c.index.KeyExpression.Columns()) * 2
}

// compareCandidates implements the §4.5 comparator: a strict total order
// (after tie-break on index identity) used to pick the best ScoredPlan.
// Returns true if a should be preferred over b.
func compareCandidates(a, b candidateScore, pref IndexScanPreference) bool {
	if a.plan.Score != b.plan.Score {
		return a.plan.Score > b.plan.Score
	}
	if a.plan.NumNonSargables() != b.plan.NumNonSargables() {
		return a.plan.NumNonSargables() < b.plan.NumNonSargables()
	}
	if a.plan.NumIndexFilters() != b.plan.NumIndexFilters() {
		return a.plan.NumIndexFilters() > b.plan.NumIndexFilters()
	}
	ao, bo := indexSizeOverhead(a, pref), indexSizeOverhead(b, pref)
	if ao != bo {
		return ao < bo
	}
	// Final tie-break on index identity for a strict total order (§5:
	// "Tie-breaks in the selection comparator are strict").
	an, bn := "", ""
	if a.index != nil {
		an = a.index.Name
	}
	if b.index != nil {
		bn = b.index.Name
	}
	return an < bn
}

// selectBest implements the first half of §4.5: pick the best ScoredPlan
// by the deterministic comparator above.
func selectBest(candidates []candidateScore, pref IndexScanPreference) *candidateScore {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if compareCandidates(c, best, pref) {
			best = c
		}
	}
	return &best
}

// orderingCompatible reports whether two plan ordering keys can be merged
// for ordered intersection/union: same direction (both reverse or both
// forward is assumed equal elsewhere) and one is a column-wise prefix of
// the other, or they're equal.
func orderingCompatible(a, b *keyexpr.KeyExpression) bool {
	if a == nil || b == nil {
		return false
	}
	return a.IsPrefixKey(*b) || b.IsPrefixKey(*a)
}

// mergedOrderingKey returns the longer (more specific) of two compatible
// ordering keys.
func mergedOrderingKey(a, b keyexpr.KeyExpression) keyexpr.KeyExpression {
	if len(a.Columns()) >= len(b.Columns()) {
		return a
	}
	return b
}

// buildIntersection implements §4.5's ordered-intersection construction:
// among ScoredPlans whose PlanOrderingKey is compatible with the best
// plan's, sort by (numNonSargables asc, numIndexFilters desc) and greedily
// add a plan only if it strictly reduces the remaining residual set.
// Direction mismatches (modeled here as incompatible ordering keys) abort
// intersection construction.
func buildIntersection(best candidateScore, others []candidateScore, cfg Config) (*RecordQueryPlan, keyexpr.KeyExpression, []candidateScore, bool) {
	if best.plan.PlanOrderingKey == nil {
		return nil, keyexpr.KeyExpression{}, nil, false
	}

	var compatible []candidateScore
	for _, c := range others {
		if c.plan.PlanOrderingKey == nil {
			continue
		}
		if orderingCompatible(best.plan.PlanOrderingKey, c.plan.PlanOrderingKey) {
			compatible = append(compatible, c)
		}
	}
	if len(compatible) == 0 {
		return nil, keyexpr.KeyExpression{}, nil, false
	}

	sort.SliceStable(compatible, func(i, j int) bool {
		if compatible[i].plan.NumNonSargables() != compatible[j].plan.NumNonSargables() {
			return compatible[i].plan.NumNonSargables() < compatible[j].plan.NumNonSargables()
		}
		return compatible[i].plan.NumIndexFilters() > compatible[j].plan.NumIndexFilters()
	})

	remaining := residualSet(best.plan)
	plans := []RecordQueryPlan{best.plan.Plan}
	key := *best.plan.PlanOrderingKey
	used := []candidateScore{best}

	for _, c := range compatible {
		reduced := residualSet(c.plan)
		if stillReducesResidual(remaining, reduced) {
			plans = append(plans, c.plan.Plan)
			remaining = intersectResidual(remaining, reduced)
			key = mergedOrderingKey(key, *c.plan.PlanOrderingKey)
			used = append(used, c)
		}
	}

	if len(plans) < 2 {
		return nil, keyexpr.KeyExpression{}, nil, false
	}

	plan := IntersectionPlan(plans, key)
	return &plan, key, used, true
}

// residualSet is a crude fingerprint of a ScoredPlan's remaining predicates
// (unsatisfied plus index filters), used only to test whether adding
// another candidate plan would strictly shrink the remaining residual
// work.
func residualSet(s ScoredPlan) map[string]bool {
	all := s.NonSargableFilters()
	out := make(map[string]bool, len(all))
	for _, f := range all {
		out[fingerprint(f)] = true
	}
	return out
}

func stillReducesResidual(remaining, candidateResidual map[string]bool) bool {
	for k := range remaining {
		if !candidateResidual[k] {
			return true
		}
	}
	return false
}

func intersectResidual(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}
