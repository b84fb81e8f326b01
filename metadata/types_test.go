package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/recordplan/keyexpr"
)

func TestIndexIsUniversal(t *testing.T) {
	universal := Index{Name: "by_status"}
	scoped := Index{Name: "by_total", RecordTypes: []string{"Order"}}

	assert.True(t, universal.IsUniversal())
	assert.False(t, scoped.IsUniversal())
}

func TestIndexAppliesTo(t *testing.T) {
	universal := Index{Name: "by_status"}
	scoped := Index{Name: "by_total", RecordTypes: []string{"Order", "Invoice"}}

	assert.True(t, universal.AppliesTo("Customer"))
	assert.True(t, scoped.AppliesTo("Order"))
	assert.False(t, scoped.AppliesTo("Customer"))
}

func TestIndexTypeString(t *testing.T) {
	assert.Equal(t, "value", IndexTypeValue.String())
	assert.Equal(t, "rank", IndexTypeRank.String())
	assert.Equal(t, "text", IndexTypeText.String())
	assert.Equal(t, "other", IndexTypeOther.String())
}

func TestStaticMetadataRecordType(t *testing.T) {
	md := NewStaticMetadata()
	md.AddType(RecordType{Name: "Order", PrimaryKey: keyexpr.Field("id", keyexpr.FanNone)})

	rt, ok := md.RecordType("Order")
	require.True(t, ok)
	assert.Equal(t, "Order", rt.Name)

	_, ok = md.RecordType("Missing")
	assert.False(t, ok)
}

func TestStaticMetadataIndexesFor(t *testing.T) {
	md := NewStaticMetadata()
	md.AddIndex(Index{Name: "universal_idx"})
	md.AddIndex(Index{Name: "order_idx", RecordTypes: []string{"Order"}})
	md.AddIndex(Index{Name: "customer_idx", RecordTypes: []string{"Customer"}})

	orderIdx := md.IndexesFor("Order")
	names := make([]string, len(orderIdx))
	for i, ix := range orderIdx {
		names[i] = ix.Name
	}
	assert.ElementsMatch(t, []string{"universal_idx", "order_idx"}, names)
}

func TestStaticMetadataAllIndexes(t *testing.T) {
	md := NewStaticMetadata()
	md.AddIndex(Index{Name: "a"})
	md.AddIndex(Index{Name: "b"})
	assert.Len(t, md.AllIndexes(), 2)
}

func TestStaticReadabilityDefaultsReadable(t *testing.T) {
	var r StaticReadability
	assert.True(t, r.IsReadable("anything"))
}

func TestStaticReadabilityMarksUnreadable(t *testing.T) {
	r := StaticReadability{Unreadable: map[string]bool{"building_idx": true}}
	assert.False(t, r.IsReadable("building_idx"))
	assert.True(t, r.IsReadable("other_idx"))
}
