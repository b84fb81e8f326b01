// Package keyexpr implements the key-expression algebra that describes how
// an index (or a primary key) builds its ordered key from a record: the
// tree of Field/Nesting/Then/Grouping/KeyWithValue/RecordTypeKey/Version/
// Empty primitives from spec.md §3.
//
// Variants are represented as a single tagged struct (Expr) rather than an
// interface hierarchy, mirroring the teacher's PatternElement/Clause style
// of small, flat, pattern-matched variant types (datalog/query/types.go)
// but collapsed into one struct since Go lacks sum types: callers switch on
// Kind the way the teacher switches on a pattern's interface type.
package keyexpr

import (
	"strconv"
	"strings"
)

// Fan describes how a field key-expression behaves across repeated values.
type Fan int

const (
	// FanNone: the field is not repeated, or only its presence matters.
	FanNone Fan = iota
	// FanOut: one key entry is emitted per element of a repeated field.
	FanOut
	// FanConcatenate: all elements are concatenated into a single key
	// component. Never sortable (§3 invariant).
	FanConcatenate
)

func (f Fan) String() string {
	switch f {
	case FanOut:
		return "FanOut"
	case FanConcatenate:
		return "Concatenate"
	default:
		return "None"
	}
}

// Kind tags which KeyExpression variant an Expr holds.
type Kind int

const (
	KindField Kind = iota
	KindNesting
	KindThen
	KindGrouping
	KindKeyWithValue
	KindRecordTypeKey
	KindVersion
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "Field"
	case KindNesting:
		return "Nesting"
	case KindThen:
		return "Then"
	case KindGrouping:
		return "Grouping"
	case KindKeyWithValue:
		return "KeyWithValue"
	case KindRecordTypeKey:
		return "RecordTypeKey"
	case KindVersion:
		return "Version"
	default:
		return "Empty"
	}
}

// KeyExpression is the tree of key-building primitives described in §3.
// A zero-value KeyExpression has Kind KindField with an empty field name;
// use EmptyExpr for Empty.
type KeyExpression struct {
	Kind Kind

	// Field / Nesting
	FieldName string // KindField, KindNesting (parent name)
	FieldFan  Fan    // KindField

	// Nesting
	Child *KeyExpression // KindNesting: the submessage's key expression

	// Then
	Children []KeyExpression // KindThen, and the "whole" of a Grouping

	// Grouping
	GroupedCount int // KindGrouping: first N children are the group prefix

	// KeyWithValue
	ValueSplit int // KindKeyWithValue: index into Children.Then() where the value begins
}

// Field builds a top-level Field key expression.
func Field(name string, fan Fan) KeyExpression {
	return KeyExpression{Kind: KindField, FieldName: name, FieldFan: fan}
}

// Nesting builds a Nesting key expression descending into a submessage.
func Nesting(parentField string, child KeyExpression) KeyExpression {
	c := child
	return KeyExpression{Kind: KindNesting, FieldName: parentField, Child: &c}
}

// Then builds an ordered concatenation of child keys, flattening any
// directly-nested Then per the §3 invariant ("Then may not nest a Then
// directly; flatten on build").
func Then(children ...KeyExpression) KeyExpression {
	flat := make([]KeyExpression, 0, len(children))
	for _, c := range children {
		if c.Kind == KindThen {
			flat = append(flat, c.Children...)
		} else {
			flat = append(flat, c)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return KeyExpression{Kind: KindThen, Children: flat}
}

// Grouping builds a Grouping key expression: the first groupedCount
// children of whole are the group prefix, the remainder is the grouped
// value. Grouping may only appear as a top index expression (§3 invariant);
// that is enforced by callers, not by this constructor.
func Grouping(whole KeyExpression, groupedCount int) KeyExpression {
	children := whole.Children
	if whole.Kind != KindThen {
		children = []KeyExpression{whole}
	}
	return KeyExpression{Kind: KindGrouping, Children: children, GroupedCount: groupedCount}
}

// KeyWithValue splits a Then-shaped key so only the prefix [0, valueSplit)
// is indexed; the suffix is stored alongside but not part of the scan key.
func KeyWithValue(key KeyExpression, valueSplit int) KeyExpression {
	children := key.Children
	if key.Kind != KindThen {
		children = []KeyExpression{key}
	}
	return KeyExpression{Kind: KindKeyWithValue, Children: children, ValueSplit: valueSplit}
}

// RecordTypeKeyExpr is the synthetic leading column holding the record
// type id.
var RecordTypeKeyExpr = KeyExpression{Kind: KindRecordTypeKey}

// VersionExpr represents the record's commit version.
var VersionExpr = KeyExpression{Kind: KindVersion}

// EmptyExpr matches nothing.
var EmptyExpr = KeyExpression{Kind: KindEmpty}

// Columns returns the flat, left-to-right sequence of index columns this
// expression contributes, i.e. the Then-children if Kind is Then or
// Grouping, or a single-element slice otherwise. KeyWithValue contributes
// only its indexed prefix, and Empty contributes no columns.
func (e KeyExpression) Columns() []KeyExpression {
	switch e.Kind {
	case KindThen:
		return e.Children
	case KindGrouping:
		return e.Children
	case KindKeyWithValue:
		if e.ValueSplit <= len(e.Children) {
			return e.Children[:e.ValueSplit]
		}
		return e.Children
	case KindEmpty:
		return nil
	default:
		return []KeyExpression{e}
	}
}

// CreatesDuplicates is true iff any FanOut appears anywhere in the
// expression tree.
func (e KeyExpression) CreatesDuplicates() bool {
	switch e.Kind {
	case KindField:
		return e.FieldFan == FanOut
	case KindNesting:
		return e.Child != nil && e.Child.CreatesDuplicates()
	case KindThen, KindGrouping, KindKeyWithValue:
		for _, c := range e.Children {
			if c.CreatesDuplicates() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsSortable is false iff a FanConcatenate field appears anywhere in the
// expression (§3 invariant: fan=Concatenate is never sortable).
func (e KeyExpression) IsSortable() bool {
	switch e.Kind {
	case KindField:
		return e.FieldFan != FanConcatenate
	case KindNesting:
		return e.Child == nil || e.Child.IsSortable()
	case KindThen, KindGrouping, KindKeyWithValue:
		for _, c := range e.Children {
			if !c.IsSortable() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsPrefixKey tests column-wise prefix equivalence: other's columns must be
// a prefix of e's columns, compared column by column with Equal.
func (e KeyExpression) IsPrefixKey(other KeyExpression) bool {
	a := e.Columns()
	b := other.Columns()
	if len(b) > len(a) {
		return false
	}
	for i := range b {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equal compares two key expressions structurally.
func (e KeyExpression) Equal(other KeyExpression) bool {
	if e.Kind != other.Kind {
		return false
	}
	switch e.Kind {
	case KindField:
		return e.FieldName == other.FieldName && e.FieldFan == other.FieldFan
	case KindNesting:
		if e.FieldName != other.FieldName {
			return false
		}
		if e.Child == nil || other.Child == nil {
			return e.Child == other.Child
		}
		return e.Child.Equal(*other.Child)
	case KindThen, KindGrouping, KindKeyWithValue:
		if len(e.Children) != len(other.Children) {
			return false
		}
		for i := range e.Children {
			if !e.Children[i].Equal(other.Children[i]) {
				return false
			}
		}
		if e.Kind == KindGrouping && e.GroupedCount != other.GroupedCount {
			return false
		}
		if e.Kind == KindKeyWithValue && e.ValueSplit != other.ValueSplit {
			return false
		}
		return true
	default:
		return true
	}
}

// String renders a debug form of the expression, used by planner.Explain
// and test failure messages.
func (e KeyExpression) String() string {
	switch e.Kind {
	case KindField:
		if e.FieldFan == FanNone {
			return e.FieldName
		}
		return e.FieldName + "[" + e.FieldFan.String() + "]"
	case KindNesting:
		child := "?"
		if e.Child != nil {
			child = e.Child.String()
		}
		return e.FieldName + "." + child
	case KindThen:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return "Then(" + strings.Join(parts, ", ") + ")"
	case KindGrouping:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return "Grouping(" + strings.Join(parts, ", ") + "; grouped=" + strconv.Itoa(e.GroupedCount) + ")"
	case KindKeyWithValue:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return "KeyWithValue(" + strings.Join(parts, ", ") + "; split=" + strconv.Itoa(e.ValueSplit) + ")"
	case KindRecordTypeKey:
		return "RecordTypeKey"
	case KindVersion:
		return "Version"
	default:
		return "Empty"
	}
}

