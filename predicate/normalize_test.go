package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePushesNotIntoInequality(t *testing.T) {
	c := Not(FieldWithComparison("age", Inequality(OpLT, 18)))
	out := Normalize(c, NormalizeConfig{})
	require.Equal(t, KindFieldWithComparison, out.Kind)
	assert.Equal(t, OpGTE, out.Comparison.Op)
}

func TestNormalizeDeMorganOverAnd(t *testing.T) {
	c := Not(And(
		FieldWithComparison("a", Inequality(OpLT, 1)),
		FieldWithComparison("b", Inequality(OpGT, 2)),
	))
	out := Normalize(c, NormalizeConfig{})
	require.Equal(t, KindOr, out.Kind)
	require.Len(t, out.Children, 2)
}

func TestNormalizeLeavesInListNotNegatedDirectly(t *testing.T) {
	c := Not(FieldWithComparison("status", InList([]interface{}{"a", "b"})))
	out := Normalize(c, NormalizeConfig{})
	assert.Equal(t, KindNot, out.Kind)
}

func TestNormalizeDistributesAndOverOr(t *testing.T) {
	c := And(
		FieldWithComparison("type", Equal("order")),
		Or(
			FieldWithComparison("status", Equal("shipped")),
			FieldWithComparison("status", Equal("pending")),
		),
	)
	out := Normalize(c, NormalizeConfig{})
	require.Equal(t, KindOr, out.Kind)
	require.Len(t, out.Children, 2)
	for _, d := range out.Children {
		assert.Equal(t, KindAnd, d.Kind)
		assert.Len(t, d.Children, 2)
	}
}

func TestNormalizeDistributionRespectsWidthBound(t *testing.T) {
	disjuncts := make([]Component, 0, 20)
	for i := 0; i < 20; i++ {
		disjuncts = append(disjuncts, FieldWithComparison("status", Equal(i)))
	}
	c := And(
		FieldWithComparison("type", Equal("order")),
		Or(disjuncts...),
	)
	out := Normalize(c, NormalizeConfig{MaxDistributionWidth: 4, MaxDNFTerms: 16})
	// Width bound is exceeded (20 > 4): distribution skipped. The 20 DNF
	// terms also exceed the term budget (16), so the full DNF pass keeps the
	// tree too and the original And shape is preserved.
	assert.Equal(t, KindAnd, out.Kind)
}

func TestEqualComplementIsNone(t *testing.T) {
	_, ok := Equal(5).Complement()
	assert.False(t, ok)
}

func TestNullComplement(t *testing.T) {
	comp, ok := Null(NullKindIsNull).Complement()
	require.True(t, ok)
	assert.Equal(t, NullKindIsNotNull, comp.NullKind)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Empty.IsEmpty())
	assert.False(t, FieldWithComparison("a", Equal(1)).IsEmpty())
}

func TestAndFlattensNestedAnd(t *testing.T) {
	inner := And(FieldWithComparison("a", Equal(1)), FieldWithComparison("b", Equal(2)))
	outer := And(inner, FieldWithComparison("c", Equal(3)))
	assert.Len(t, outer.Children, 3)
}
