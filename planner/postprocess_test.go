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

func TestFinalizePlanWrapsResidualFilter(t *testing.T) {
	ctx := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.EmptyExpr}
	base := ScanPlan(scancomp.ScanComparisons{}, false, false)
	residual := []predicate.Component{predicate.FieldWithComparison("a", predicate.Equal(1))}

	plan, err := finalizePlan(ctx, base, residual, false, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, OpResidualFilter, plan.Op)
	require.Len(t, plan.Children, 1)
	assert.Equal(t, OpScan, plan.Children[0].Op)
}

// Residual filters push below a union's branches instead of wrapping the
// union itself, when the configuration allows it.
func TestFinalizePlanPushesResidualBelowUnion(t *testing.T) {
	ctx := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.EmptyExpr}
	union := UnionPlan([]RecordQueryPlan{
		IndexScanPlan("ix1", scancomp.ScanComparisons{}, false, false),
		IndexScanPlan("ix2", scancomp.ScanComparisons{}, false, false),
	}, keyexpr.Field("id", keyexpr.FanNone), false)
	residual := []predicate.Component{predicate.FieldWithComparison("a", predicate.Equal(1))}

	cfg := DefaultConfig()
	cfg.DeferFetchAfterUnionAndIntersection = true
	plan, err := finalizePlan(ctx, union, residual, false, cfg)
	require.NoError(t, err)

	require.Equal(t, OpUnion, plan.Op)
	require.Len(t, plan.Children, 2)
	for _, c := range plan.Children {
		assert.Equal(t, OpResidualFilter, c.Op)
	}
}

// When pushdown is disabled, the residual wraps the whole union instead.
func TestFinalizePlanWrapsUnionWhenPushdownDisabled(t *testing.T) {
	ctx := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.EmptyExpr}
	union := UnionPlan([]RecordQueryPlan{
		IndexScanPlan("ix1", scancomp.ScanComparisons{}, false, false),
	}, keyexpr.Field("id", keyexpr.FanNone), false)
	residual := []predicate.Component{predicate.FieldWithComparison("a", predicate.Equal(1))}

	cfg := DefaultConfig()
	cfg.DeferFetchAfterUnionAndIntersection = false
	plan, err := finalizePlan(ctx, union, residual, false, cfg)
	require.NoError(t, err)

	require.Equal(t, OpResidualFilter, plan.Op)
	require.Len(t, plan.Children, 1)
	assert.Equal(t, OpUnion, plan.Children[0].Op)
}

// A primary-key-distinct wrapper is inserted when there's a non-empty common
// primary key to distinct on; when there isn't, distinctness is impossible
// to guarantee and finalizePlan must fail rather than silently return a
// plan that can emit duplicates.
func TestFinalizePlanInsertsDistinctOnlyWithCommonPrimaryKey(t *testing.T) {
	base := ScanPlan(scancomp.ScanComparisons{}, false, false)

	withPK := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.Field("id", keyexpr.FanNone)}
	plan, err := finalizePlan(withPK, base, nil, true, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, OpPrimaryKeyDistinct, plan.Op)

	withoutPK := &PlanContext{Query: &Query{}, CommonPrimaryKey: keyexpr.EmptyExpr}
	_, err2 := finalizePlan(withoutPK, base, nil, true, DefaultConfig())
	require.Error(t, err2)
	perr, ok := err2.(*PlannerError)
	require.True(t, ok)
	assert.Equal(t, ErrUnexpectedState, perr.Kind)
}

func TestCoverableFieldsReturnsIndexColumns(t *testing.T) {
	ix := metadata.Index{Name: "ix", KeyExpression: keyexpr.Then(keyexpr.Field("a", keyexpr.FanNone), keyexpr.Field("b", keyexpr.FanNone))}
	ctx := &PlanContext{CandidateIndexes: []metadata.Index{ix}}
	plan := IndexScanPlan("ix", scancomp.ScanComparisons{}, false, false)

	fields, ok := coverableFields(ctx, plan)
	require.True(t, ok)
	assert.True(t, fields["a"])
	assert.True(t, fields["b"])
}

func TestCoverableFieldsFailsForUnknownIndex(t *testing.T) {
	ctx := &PlanContext{CandidateIndexes: nil}
	plan := IndexScanPlan("missing", scancomp.ScanComparisons{}, false, false)
	_, ok := coverableFields(ctx, plan)
	assert.False(t, ok)
}

// The covering rewrite fires when every required/residual field is a column
// of the matched index.
func TestApplyCoveringRewriteWrapsWhenAllFieldsCovered(t *testing.T) {
	ix := metadata.Index{Name: "ix", KeyExpression: keyexpr.Then(keyexpr.Field("a", keyexpr.FanNone), keyexpr.Field("b", keyexpr.FanNone))}
	ctx := &PlanContext{CandidateIndexes: []metadata.Index{ix}}
	plan := IndexScanPlan("ix", scancomp.ScanComparisons{}, false, false)

	out := applyCoveringRewrite(ctx, plan, []string{"a", "b"}, nil)
	assert.Equal(t, OpCoveringFetch, out.Op)
}

// The covering rewrite is skipped when a required field isn't on the index.
func TestApplyCoveringRewriteSkipsWhenFieldMissing(t *testing.T) {
	ix := metadata.Index{Name: "ix", KeyExpression: keyexpr.Field("a", keyexpr.FanNone)}
	ctx := &PlanContext{CandidateIndexes: []metadata.Index{ix}}
	plan := IndexScanPlan("ix", scancomp.ScanComparisons{}, false, false)

	out := applyCoveringRewrite(ctx, plan, []string{"a", "c"}, nil)
	assert.Equal(t, OpIndexScan, out.Op)
}

func TestCheckComplexityPassesUnderThreshold(t *testing.T) {
	plan := ScanPlan(scancomp.ScanComparisons{}, false, false)
	cfg := DefaultConfig()
	cfg.ComplexityThreshold = 1000
	assert.NoError(t, checkComplexity(plan, cfg))
}

func TestCheckComplexityRejectsOverThreshold(t *testing.T) {
	union := UnionPlan([]RecordQueryPlan{
		IndexScanPlan("a", scancomp.ScanComparisons{}, false, false),
		IndexScanPlan("b", scancomp.ScanComparisons{}, false, false),
		IndexScanPlan("c", scancomp.ScanComparisons{}, false, false),
	}, keyexpr.Field("id", keyexpr.FanNone), false)

	cfg := DefaultConfig()
	cfg.ComplexityThreshold = 1
	err := checkComplexity(union, cfg)
	require.Error(t, err)
	perr, ok := err.(*PlannerError)
	require.True(t, ok)
	assert.Equal(t, ErrPlanTooComplex, perr.Kind)
	require.NotNil(t, perr.Plan)
}

func TestCheckComplexityDisabledWhenThresholdNonPositive(t *testing.T) {
	union := UnionPlan([]RecordQueryPlan{
		IndexScanPlan("a", scancomp.ScanComparisons{}, false, false),
		IndexScanPlan("b", scancomp.ScanComparisons{}, false, false),
	}, keyexpr.Field("id", keyexpr.FanNone), false)
	cfg := DefaultConfig()
	cfg.ComplexityThreshold = 0
	assert.NoError(t, checkComplexity(union, cfg))
}
