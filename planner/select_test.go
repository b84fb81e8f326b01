package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

func scannedCandidate(name string, score int, unsatisfied []predicate.Component, key *keyexpr.KeyExpression) candidateScore {
	ix := metadata.Index{Name: name, Type: metadata.IndexTypeValue, KeyExpression: keyexpr.Field(name, keyexpr.FanNone)}
	return candidateScore{
		plan: ScoredPlan{
			Plan:               IndexScanPlan(name, scancomp.ScanComparisons{}, false, false),
			Score:              score,
			UnsatisfiedFilters: unsatisfied,
			PlanOrderingKey:    key,
		},
		index: &ix,
	}
}

// Higher Score always wins regardless of the other tie-breaks.
func TestCompareCandidatesScoreWins(t *testing.T) {
	a := scannedCandidate("a", 2, nil, nil)
	b := scannedCandidate("b", 1, nil, nil)
	assert.True(t, compareCandidates(a, b, PreferIndex))
	assert.False(t, compareCandidates(b, a, PreferIndex))
}

// Equal score: fewer non-sargables (unsatisfied + index filters) wins.
func TestCompareCandidatesNonSargablesTieBreak(t *testing.T) {
	fA := predicate.FieldWithComparison("a", predicate.Equal(1))
	a := scannedCandidate("a", 1, nil, nil)
	b := scannedCandidate("b", 1, []predicate.Component{fA}, nil)
	assert.True(t, compareCandidates(a, b, PreferIndex))
}

// Equal score and non-sargables: more index filters wins (checked via the
// IndexFilters field directly since NumIndexFilters counts only that).
func TestCompareCandidatesIndexFiltersTieBreak(t *testing.T) {
	a := scannedCandidate("a", 1, nil, nil)
	a.plan.IndexFilters = []predicate.Component{predicate.FieldWithComparison("x", predicate.Equal(1))}
	b := scannedCandidate("b", 1, []predicate.Component{predicate.FieldWithComparison("y", predicate.Equal(2))}, nil)
	assert.True(t, compareCandidates(a, b, PreferIndex))
}

// Final tie-break is alphabetical by index name.
func TestCompareCandidatesNameTieBreak(t *testing.T) {
	a := scannedCandidate("alpha", 1, nil, nil)
	b := scannedCandidate("beta", 1, nil, nil)
	assert.True(t, compareCandidates(a, b, PreferIndex))
	assert.False(t, compareCandidates(b, a, PreferIndex))
}

func TestSelectBestPicksHighestScore(t *testing.T) {
	candidates := []candidateScore{
		scannedCandidate("a", 1, nil, nil),
		scannedCandidate("b", 3, nil, nil),
		scannedCandidate("c", 2, nil, nil),
	}
	best := selectBest(candidates, PreferIndex)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.index.Name)
}

func TestOrderingCompatiblePrefixRelation(t *testing.T) {
	short := keyexpr.Field("region", keyexpr.FanNone)
	long := keyexpr.Then(keyexpr.Field("region", keyexpr.FanNone), keyexpr.Field("priority", keyexpr.FanNone))
	assert.True(t, orderingCompatible(&short, &long))
	assert.True(t, orderingCompatible(&long, &short))

	unrelated := keyexpr.Field("status", keyexpr.FanNone)
	assert.False(t, orderingCompatible(&short, &unrelated))
}

// Two candidates whose ordering keys are prefix-compatible (one extends the
// other by a shared leading column) and whose residuals are not identical
// combine into a genuine ordered intersection.
func TestBuildIntersectionSucceedsOnCompatibleOrdering(t *testing.T) {
	fA := predicate.FieldWithComparison("a", predicate.Equal(1))
	fB := predicate.FieldWithComparison("b", predicate.Equal(2))
	fC := predicate.FieldWithComparison("c", predicate.Equal(3))

	shortKey := keyexpr.Field("region", keyexpr.FanNone)
	longKey := keyexpr.Then(keyexpr.Field("region", keyexpr.FanNone), keyexpr.Field("priority", keyexpr.FanNone))

	best := scannedCandidate("ix_region", 1, []predicate.Component{fB, fC}, &shortKey)
	other := scannedCandidate("ix_region_priority", 1, []predicate.Component{fA, fC}, &longKey)

	plan, key, used, ok := buildIntersection(best, []candidateScore{other}, DefaultConfig())
	require.True(t, ok)
	require.NotNil(t, plan)
	assert.Equal(t, OpIntersection, plan.Op)
	assert.Len(t, plan.Children, 2)
	assert.True(t, key.Equal(longKey), "merged ordering key should be the longer of the two")
	assert.Len(t, used, 2)
}

// No compatible ordering key among the other candidates: no intersection.
func TestBuildIntersectionFailsWithoutCompatibleOrdering(t *testing.T) {
	shortKey := keyexpr.Field("region", keyexpr.FanNone)
	unrelatedKey := keyexpr.Field("status", keyexpr.FanNone)

	best := scannedCandidate("ix_region", 1, nil, &shortKey)
	other := scannedCandidate("ix_status", 1, nil, &unrelatedKey)

	_, _, _, ok := buildIntersection(best, []candidateScore{other}, DefaultConfig())
	assert.False(t, ok)
}

// A best plan with no useful ordering key can never anchor an intersection.
func TestBuildIntersectionFailsWithoutBestOrderingKey(t *testing.T) {
	best := scannedCandidate("ix_region", 1, nil, nil)
	other := scannedCandidate("ix_status", 1, nil, nil)
	_, _, _, ok := buildIntersection(best, []candidateScore{other}, DefaultConfig())
	assert.False(t, ok)
}
