package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
)

// A single equality leaf nested one level deep binds to the index's
// Nesting column the same way a top-level equality binds to a Field
// column.
func TestMatchValueIndexBindsNestedEqualityLeaf(t *testing.T) {
	ix := metadata.Index{
		Name:          "ix_addr_city",
		KeyExpression: keyexpr.Nesting("addr", keyexpr.Field("city", keyexpr.FanNone)),
	}
	ctx := &PlanContext{CommonPrimaryKey: keyexpr.EmptyExpr}
	filter := predicate.Nested("addr", predicate.FieldWithComparison("city", predicate.Equal("nyc")))

	sp := matchValueIndex(ctx, ix, filter, nil, DefaultConfig())
	require.NotNil(t, sp)
	assert.Equal(t, "ix_addr_city", sp.Plan.IndexName)
	assert.Equal(t, []interface{}{"nyc"}, sp.Plan.ScanComparisons.Equalities)
	assert.Empty(t, sp.UnsatisfiedFilters)
}

// A Nested leaf whose parent name doesn't match the index's Nesting column
// is left unsatisfied; the index still applies (trivially, with no bound
// columns) since there's nothing else to sarge.
func TestMatchValueIndexLeavesMismatchedNestedLeafUnsatisfied(t *testing.T) {
	ix := metadata.Index{
		Name:          "ix_addr_city",
		KeyExpression: keyexpr.Nesting("addr", keyexpr.Field("city", keyexpr.FanNone)),
	}
	ctx := &PlanContext{CommonPrimaryKey: keyexpr.EmptyExpr}
	filter := predicate.Nested("billing", predicate.FieldWithComparison("city", predicate.Equal("nyc")))

	sp := matchValueIndex(ctx, ix, filter, nil, DefaultConfig())
	require.NotNil(t, sp)
	require.Len(t, sp.UnsatisfiedFilters, 1)
	assert.Equal(t, predicate.KindNested, sp.UnsatisfiedFilters[0].Kind)
}

// A Nesting column whose child spans more than one field (city and zip, both
// under "addr") can't be reduced to a single scan-comparison value; with
// optimizeForIndexFilters on, the matched leaves are carried as index
// filters rather than silently dropped, and still marked used so they don't
// also show up as unsatisfied.
func TestMatchValueIndexMultiColumnNestedGroupBecomesIndexFilter(t *testing.T) {
	ix := metadata.Index{
		Name: "ix_addr",
		KeyExpression: keyexpr.Nesting("addr", keyexpr.Then(
			keyexpr.Field("city", keyexpr.FanNone),
			keyexpr.Field("zip", keyexpr.FanNone),
		)),
	}
	ctx := &PlanContext{CommonPrimaryKey: keyexpr.EmptyExpr}
	filter := predicate.And(
		predicate.Nested("addr", predicate.FieldWithComparison("city", predicate.Equal("nyc"))),
		predicate.Nested("addr", predicate.FieldWithComparison("zip", predicate.Equal("10001"))),
	)

	cfg := DefaultConfig()
	cfg.OptimizeForIndexFilters = true
	sp := matchValueIndex(ctx, ix, filter, nil, cfg)
	require.NotNil(t, sp)
	assert.Empty(t, sp.Plan.ScanComparisons.Equalities)
	assert.Len(t, sp.IndexFilters, 2)
	assert.Empty(t, sp.UnsatisfiedFilters)
}

// With optimizeForIndexFilters off, the same multi-column nested match is
// left unsatisfied instead of being folded into the scan.
func TestMatchValueIndexMultiColumnNestedGroupStaysUnsatisfiedWhenDisabled(t *testing.T) {
	ix := metadata.Index{
		Name: "ix_addr",
		KeyExpression: keyexpr.Nesting("addr", keyexpr.Then(
			keyexpr.Field("city", keyexpr.FanNone),
			keyexpr.Field("zip", keyexpr.FanNone),
		)),
	}
	ctx := &PlanContext{CommonPrimaryKey: keyexpr.EmptyExpr}
	filter := predicate.And(
		predicate.Nested("addr", predicate.FieldWithComparison("city", predicate.Equal("nyc"))),
		predicate.Nested("addr", predicate.FieldWithComparison("zip", predicate.Equal("10001"))),
	)

	cfg := DefaultConfig()
	cfg.OptimizeForIndexFilters = false
	sp := matchValueIndex(ctx, ix, filter, nil, cfg)
	require.NotNil(t, sp)
	assert.Empty(t, sp.IndexFilters)
	assert.Len(t, sp.UnsatisfiedFilters, 2)
}
