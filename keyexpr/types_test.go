package keyexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldColumns(t *testing.T) {
	f := Field("status", FanNone)
	assert.Equal(t, []KeyExpression{f}, f.Columns())
}

func TestThenFlattensNestedThen(t *testing.T) {
	inner := Then(Field("a", FanNone), Field("b", FanNone))
	outer := Then(inner, Field("c", FanNone))
	assert.Len(t, outer.Columns(), 3)
	assert.Equal(t, "a", outer.Columns()[0].FieldName)
	assert.Equal(t, "c", outer.Columns()[2].FieldName)
}

func TestThenSingleChildCollapses(t *testing.T) {
	single := Then(Field("a", FanNone))
	assert.Equal(t, KindField, single.Kind)
}

func TestCreatesDuplicates(t *testing.T) {
	require.False(t, Field("a", FanNone).CreatesDuplicates())
	require.True(t, Field("a", FanOut).CreatesDuplicates())

	nested := Nesting("parent", Field("child", FanOut))
	require.True(t, nested.CreatesDuplicates())

	then := Then(Field("a", FanNone), Field("b", FanOut))
	require.True(t, then.CreatesDuplicates())
}

func TestIsSortable(t *testing.T) {
	require.True(t, Field("a", FanNone).IsSortable())
	require.True(t, Field("a", FanOut).IsSortable())
	require.False(t, Field("a", FanConcatenate).IsSortable())

	then := Then(Field("a", FanNone), Field("b", FanConcatenate))
	require.False(t, then.IsSortable())
}

func TestIsPrefixKey(t *testing.T) {
	key := Then(Field("a", FanNone), Field("b", FanNone), Field("c", FanNone))
	prefix := Then(Field("a", FanNone), Field("b", FanNone))

	assert.True(t, key.IsPrefixKey(prefix))
	assert.False(t, prefix.IsPrefixKey(key))
	assert.True(t, key.IsPrefixKey(key))
}

func TestEqual(t *testing.T) {
	a := Then(Field("a", FanNone), Field("b", FanOut))
	b := Then(Field("a", FanNone), Field("b", FanOut))
	c := Then(Field("a", FanNone), Field("b", FanNone))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestGroupingColumnsReturnsWholeChildren(t *testing.T) {
	whole := Then(Field("status", FanNone), Field("total", FanNone))
	g := Grouping(whole, 1)
	require.Equal(t, KindGrouping, g.Kind)
	require.Equal(t, 1, g.GroupedCount)
	assert.Len(t, g.Columns(), 2)
}

func TestKeyWithValueColumnsOnlyIndexedPrefix(t *testing.T) {
	whole := Then(Field("a", FanNone), Field("b", FanNone), Field("c", FanNone))
	kv := KeyWithValue(whole, 2)
	assert.Len(t, kv.Columns(), 2)
}

func TestCommonPrefix(t *testing.T) {
	a := Then(RecordTypeKeyExpr, Field("id", FanNone))
	b := Then(RecordTypeKeyExpr, Field("id", FanNone))
	common := CommonPrefix([]KeyExpression{a, b})
	assert.True(t, common.Equal(a))
}

func TestCommonPrefixDivergesAtMismatch(t *testing.T) {
	a := Then(RecordTypeKeyExpr, Field("orderID", FanNone))
	b := Then(RecordTypeKeyExpr, Field("customerID", FanNone))
	common := CommonPrefix([]KeyExpression{a, b})
	assert.Len(t, common.Columns(), 1)
	assert.Equal(t, KindRecordTypeKey, common.Columns()[0].Kind)
}

func TestCommonPrefixEmpty(t *testing.T) {
	common := CommonPrefix(nil)
	assert.Equal(t, KindEmpty, common.Kind)
}

func TestEmptyExprHasNoColumns(t *testing.T) {
	assert.Len(t, EmptyExpr.Columns(), 0)
	assert.Len(t, CommonPrefix(nil).Columns(), 0)
}
