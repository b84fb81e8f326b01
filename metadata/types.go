// Package metadata models the immutable view of record-type and index
// metadata the planner consumes. It is a contract package only: loading,
// persisting, and validating metadata against a live store are external
// collaborators out of scope for this module.
package metadata

import "github.com/wbrown/recordplan/keyexpr"

// IndexType classifies how an index's emitted keys are interpreted.
type IndexType uint8

const (
	// IndexTypeValue stores each emitted key verbatim; the common case.
	IndexTypeValue IndexType = iota
	// IndexTypeRank is a groupByKey -> ordered-score index.
	IndexTypeRank
	// IndexTypeText has bespoke, tokenizer-driven matching.
	IndexTypeText
	// IndexTypeOther covers bespoke index kinds the core treats opaquely.
	IndexTypeOther
)

func (t IndexType) String() string {
	switch t {
	case IndexTypeValue:
		return "value"
	case IndexTypeRank:
		return "rank"
	case IndexTypeText:
		return "text"
	default:
		return "other"
	}
}

// Index describes one secondary (or primary-adjacent) index over one or
// more record types.
type Index struct {
	Name          string
	KeyExpression keyexpr.KeyExpression
	Type          IndexType
	Unique        bool
	RecordTypes   []string // empty means universal (applies to all types)
	Options       map[string]string
}

// IsUniversal reports whether the index applies to every record type.
func (i Index) IsUniversal() bool {
	return len(i.RecordTypes) == 0
}

// AppliesTo reports whether the index is declared on the given record type.
func (i Index) AppliesTo(recordType string) bool {
	if i.IsUniversal() {
		return true
	}
	for _, rt := range i.RecordTypes {
		if rt == recordType {
			return true
		}
	}
	return false
}

// RecordType describes one record type's shape as far as the planner cares:
// its name and its primary key expression.
type RecordType struct {
	Name       string
	PrimaryKey keyexpr.KeyExpression
}

// Metadata is the read-only view of record types and indexes a planning
// call is given. Implementations are expected to be immutable for the
// duration of a Plan() call; the core never mutates it.
type Metadata interface {
	// RecordType looks up a record type by name.
	RecordType(name string) (RecordType, bool)
	// IndexesFor returns every index declared on the given record type,
	// plus universal indexes. Order is unspecified; the planner sorts by
	// name itself for determinism (§5).
	IndexesFor(recordType string) []Index
	// AllIndexes returns every index known to the metadata, including
	// universal ones. Used when the query names no record types.
	AllIndexes() []Index
}

// Readability answers whether a given index is currently queryable on the
// store. The planner treats this as a black box supplied by the caller;
// the store's own readiness bookkeeping is out of scope.
type Readability interface {
	IsReadable(indexName string) bool
}

// StaticMetadata is a simple in-memory Metadata implementation suitable for
// tests and small embedders. Real deployments typically back Metadata with
// a loader that reads from the store itself (out of scope here).
type StaticMetadata struct {
	Types   map[string]RecordType
	Indexes []Index
}

func NewStaticMetadata() *StaticMetadata {
	return &StaticMetadata{Types: make(map[string]RecordType)}
}

func (m *StaticMetadata) AddType(rt RecordType) {
	m.Types[rt.Name] = rt
}

func (m *StaticMetadata) AddIndex(ix Index) {
	m.Indexes = append(m.Indexes, ix)
}

func (m *StaticMetadata) RecordType(name string) (RecordType, bool) {
	rt, ok := m.Types[name]
	return rt, ok
}

func (m *StaticMetadata) IndexesFor(recordType string) []Index {
	var out []Index
	for _, ix := range m.Indexes {
		if ix.AppliesTo(recordType) {
			out = append(out, ix)
		}
	}
	return out
}

func (m *StaticMetadata) AllIndexes() []Index {
	return append([]Index(nil), m.Indexes...)
}

// StaticReadability marks a fixed set of indexes unreadable; everything
// else is readable by default.
type StaticReadability struct {
	Unreadable map[string]bool
}

func (r StaticReadability) IsReadable(indexName string) bool {
	if r.Unreadable == nil {
		return true
	}
	return !r.Unreadable[indexName]
}
