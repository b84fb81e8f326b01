package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

func TestPlanCacheGetPutClear(t *testing.T) {
	c := NewPlanCache()
	_, ok := c.Get("sig")
	assert.False(t, ok)

	plan := ScanPlan(scancomp.ScanComparisons{}, false, false)
	c.Put("sig", &plan)

	got, ok := c.Get("sig")
	require.True(t, ok)
	assert.Equal(t, OpScan, got.Op)

	c.Clear()
	_, ok = c.Get("sig")
	assert.False(t, ok)
}

// Signatures are stable across two equal-but-distinct Query values, and
// distinguish queries that would plan differently.
func TestSignatureIsDeterministicAndDiscriminating(t *testing.T) {
	sort1 := keyexpr.Field("age", keyexpr.FanNone)
	q1 := &Query{
		RecordTypes: []string{"B", "A"},
		Filter:      predicate.FieldWithComparison("name", predicate.Equal("x")),
		Sort:        &sort1,
	}
	sort2 := keyexpr.Field("age", keyexpr.FanNone)
	q2 := &Query{
		RecordTypes: []string{"A", "B"},
		Filter:      predicate.FieldWithComparison("name", predicate.Equal("x")),
		Sort:        &sort2,
	}
	cfg := DefaultConfig()
	assert.Equal(t, signature(q1, cfg), signature(q2, cfg))

	q3 := &Query{
		RecordTypes: []string{"A", "B"},
		Filter:      predicate.FieldWithComparison("name", predicate.Equal("y")),
		Sort:        &sort2,
	}
	assert.NotEqual(t, signature(q1, cfg), signature(q3, cfg))
}

func TestFilterFingerprintDistinguishesEmptyFromNonEmpty(t *testing.T) {
	assert.Equal(t, "-", filterFingerprint(predicate.Empty))
	assert.NotEqual(t, "-", filterFingerprint(predicate.FieldWithComparison("a", predicate.Equal(1))))
}
