package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
)

// ScoredPlan is the intermediate tuple carried through matching (§3).
// Lifecycle: constructed per candidate, mutated only via copy-with methods
// (grounded on the teacher's PatternPlan/ScoredPlan-shaped value types in
// datalog/planner/types.go, which are held by value and re-owned on each
// transformation step — see §9 re-architecture note on with-X copies).
type ScoredPlan struct {
	Plan                  RecordQueryPlan
	Score                 int
	UnsatisfiedFilters    []predicate.Component
	IndexFilters          []predicate.Component
	CreatesDuplicates     bool
	IncludedRankComparisons map[string]bool
	PlanOrderingKey       *keyexpr.KeyExpression // nil if this plan has no useful ordering
	StrictlySorted        bool
}

// NumNonSargables is len(unsatisfied) + len(indexFilters) (§3).
func (s ScoredPlan) NumNonSargables() int {
	return len(s.UnsatisfiedFilters) + len(s.IndexFilters)
}

// NumIndexFilters is the count of predicates evaluable on the index entry
// without a record fetch (used by the §4.5 comparator's third tie-break).
func (s ScoredPlan) NumIndexFilters() int { return len(s.IndexFilters) }

// NonSargableFilters returns every predicate this plan still has to apply
// after the scan — residual filters plus index filters combined. This
// planner has no separate runtime stage that checks a predicate against an
// index entry before the fetch, so index filters are folded in alongside
// residual filters wherever a plan's remaining predicates become an actual
// applied filter; NumIndexFilters/NumNonSargables still track them
// separately for the §4.5 comparator's tie-breaks.
func (s ScoredPlan) NonSargableFilters() []predicate.Component {
	if len(s.IndexFilters) == 0 {
		return s.UnsatisfiedFilters
	}
	out := make([]predicate.Component, 0, len(s.UnsatisfiedFilters)+len(s.IndexFilters))
	out = append(out, s.UnsatisfiedFilters...)
	out = append(out, s.IndexFilters...)
	return out
}

// WithScore returns a copy with Score replaced.
func (s ScoredPlan) WithScore(score int) ScoredPlan {
	out := s
	out.Score = score
	return out
}

// WithUnsatisfied returns a copy with UnsatisfiedFilters replaced.
func (s ScoredPlan) WithUnsatisfied(fs []predicate.Component) ScoredPlan {
	out := s
	out.UnsatisfiedFilters = fs
	return out
}

// WithIndexFilters returns a copy with IndexFilters replaced.
func (s ScoredPlan) WithIndexFilters(fs []predicate.Component) ScoredPlan {
	out := s
	out.IndexFilters = fs
	return out
}

// WithPlan returns a copy with Plan replaced.
func (s ScoredPlan) WithPlan(p RecordQueryPlan) ScoredPlan {
	out := s
	out.Plan = p
	return out
}

// WithOrderingKey returns a copy with PlanOrderingKey replaced.
func (s ScoredPlan) WithOrderingKey(k *keyexpr.KeyExpression) ScoredPlan {
	out := s
	out.PlanOrderingKey = k
	return out
}

// PlanContext is the immutable per-call context (§3), passed by reference
// (pointer) through the matcher call chain rather than stored inside
// value types — matching §9's guidance that the source's back-pointers
// (e.g. PlanContext embedded in CandidateScan) become "passing the context
// by reference ... through the matcher call chain, not by storing it in
// value types".
type PlanContext struct {
	Query            *Query
	CandidateIndexes []metadata.Index
	CommonPrimaryKey keyexpr.KeyExpression
	RankComparisons  map[string]predicate.Component
	AllowDuplicates  bool
}

// Query is the declarative query the planner accepts (§1): a record-type
// set, boolean filter, optional sort key, and optional required-result
// projection.
type Query struct {
	RecordTypes    []string
	Filter         predicate.Component
	Sort           *keyexpr.KeyExpression
	SortReverse    bool
	RequiredFields []string // required-result projection; nil means "all fields"
	AllowedIndexes []string // allow-list; nil means "no restriction"
	RequireDistinct bool
}
