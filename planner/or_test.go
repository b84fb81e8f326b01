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

// Two disjuncts that both reduce to a residual filter over the exact same
// unindexed base scan collapse into one residual filter over the OR of
// both predicates, rather than a union of two identical scans.
func TestPlanOrSameBaseCollapse(t *testing.T) {
	ctx := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.EmptyExpr}
	disjuncts := []predicate.Component{
		predicate.FieldWithComparison("a", predicate.Equal(1)),
		predicate.FieldWithComparison("b", predicate.Equal(2)),
	}

	plan, ok, err := planOr(ctx, disjuncts, nil, DefaultConfig(), false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OpResidualFilter, plan.Op)
	require.Equal(t, predicate.KindOr, plan.Filter.Kind)
	require.Len(t, plan.Filter.Children, 2)
	require.Len(t, plan.Children, 1)
	assert.Equal(t, OpScan, plan.Children[0].Op)
}

// Disjuncts on compatible, prefix-ordered index columns merge into an
// ordered union instead of an unordered one; with two branches the union is
// wrapped in a primary-key distinct on the common primary key.
func TestPlanOrOrderedUnionForCompatibleOrdering(t *testing.T) {
	ix := metadata.Index{
		Name:          "ix",
		KeyExpression: keyexpr.Then(keyexpr.Field("status", keyexpr.FanNone), keyexpr.Field("id", keyexpr.FanNone)),
	}
	ctx := &PlanContext{Query: &Query{}, CandidateIndexes: []metadata.Index{ix}, CommonPrimaryKey: keyexpr.Field("id", keyexpr.FanNone)}
	disjuncts := []predicate.Component{
		predicate.FieldWithComparison("status", predicate.Equal("a")),
		predicate.FieldWithComparison("status", predicate.Equal("b")),
	}

	plan, ok, err := planOr(ctx, disjuncts, nil, DefaultConfig(), false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OpPrimaryKeyDistinct, plan.Op)
	require.Len(t, plan.Children, 1)
	union := plan.Children[0]
	assert.Equal(t, OpUnion, union.Op)
	assert.Len(t, union.Children, 2)
}

func TestPlansEqualComparesScanShape(t *testing.T) {
	a := ScanPlan(scancomp.ScanComparisons{}, false, false)
	b := ScanPlan(scancomp.ScanComparisons{}, false, false)
	assert.True(t, plansEqual(a, b))

	c := IndexScanPlan("ix", scancomp.ScanComparisons{}, false, false)
	assert.False(t, plansEqual(a, c))
}

func TestUnorderedUnionWithDistinctWrapsWhenMultipleBranches(t *testing.T) {
	subplans := []orSubplan{
		{plan: IndexScanPlan("ix1", scancomp.ScanComparisons{}, false, false)},
		{plan: IndexScanPlan("ix2", scancomp.ScanComparisons{}, false, false)},
	}
	pk := keyexpr.Field("id", keyexpr.FanNone)
	plan, err := unorderedUnionWithDistinct(subplans, false, pk)
	require.NoError(t, err)
	assert.Equal(t, OpPrimaryKeyDistinct, plan.Op)
}

func TestUnorderedUnionWithDistinctSkipsWrapWithoutCommonKey(t *testing.T) {
	subplans := []orSubplan{
		{plan: IndexScanPlan("ix1", scancomp.ScanComparisons{}, false, false)},
	}
	plan, err := unorderedUnionWithDistinct(subplans, false, keyexpr.EmptyExpr)
	require.NoError(t, err)
	assert.Equal(t, OpUnorderedUnion, plan.Op)
}

// Multiple OR branches over record types with no common primary key can
// produce cross-branch duplicate primary keys even though no single branch
// creates duplicates on its own (§4.6's closing invariant); since there's no
// common key to distinct on, this must surface as a hard PlannerError rather
// than silently returning a plan that can emit duplicates.
func TestUnorderedUnionWithDistinctFailsWithoutCommonKeyAndMultipleBranches(t *testing.T) {
	subplans := []orSubplan{
		{plan: IndexScanPlan("ix1", scancomp.ScanComparisons{}, false, false)},
		{plan: IndexScanPlan("ix2", scancomp.ScanComparisons{}, false, false)},
	}
	_, err := unorderedUnionWithDistinct(subplans, false, keyexpr.EmptyExpr)
	require.Error(t, err)
	perr, ok := err.(*PlannerError)
	require.True(t, ok)
	assert.Equal(t, ErrUnexpectedState, perr.Kind)
}
