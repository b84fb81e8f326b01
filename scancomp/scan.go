// Package scancomp implements ScanComparisons (§3): an ordered tuple of
// equality comparisons followed by at-most-one compound inequality range,
// plus the merge operation §3 requires.
package scancomp

import "github.com/wbrown/recordplan/predicate"

// Range describes an at-most-one compound inequality bound: an optional
// lower bound and an optional upper bound on the same column.
type Range struct {
	HasLow   bool
	LowOp    predicate.CompareOp // OpGT or OpGTE
	LowValue interface{}

	HasHigh   bool
	HighOp    predicate.CompareOp // OpLT or OpLTE
	HighValue interface{}
}

// IsEmpty reports whether the range carries no bound at all.
func (r Range) IsEmpty() bool { return !r.HasLow && !r.HasHigh }

// ScanComparisons is the scan-key construction described in §3.
type ScanComparisons struct {
	Equalities []interface{} // the sarged equality prefix, in column order
	Inequality Range         // at most one compound inequality range, applies to the next column
	hasIneq    bool
}

// Empty returns a ScanComparisons with no bound columns.
func Empty() ScanComparisons { return ScanComparisons{} }

// AddEquality appends an equality comparison to the prefix. It panics if an
// inequality has already been added — §3's invariant ("once an inequality
// is added, no further equality may be added") is a programming error for
// callers, not a recoverable planning outcome, since the matcher is
// structured to never attempt this (columns are consumed strictly
// left-to-right and inequality always terminates the loop).
func (s ScanComparisons) AddEquality(v interface{}) ScanComparisons {
	if s.hasIneq {
		panic("scancomp: cannot add equality after an inequality has been added")
	}
	out := s
	out.Equalities = append(append([]interface{}{}, s.Equalities...), v)
	return out
}

// WithInequality sets the terminating inequality range. It panics if an
// inequality has already been set, for the same reason as AddEquality.
func (s ScanComparisons) WithInequality(r Range) ScanComparisons {
	if s.hasIneq {
		panic("scancomp: inequality already set")
	}
	out := s
	out.Inequality = r
	out.hasIneq = true
	return out
}

// HasInequality reports whether a terminating inequality has been added.
func (s ScanComparisons) HasInequality() bool { return s.hasIneq }

// SargedPrefixLength is the number of columns bound into the scan key: the
// equality count, plus one more if an inequality terminates the scan.
func (s ScanComparisons) SargedPrefixLength() int {
	n := len(s.Equalities)
	if s.hasIneq {
		n++
	}
	return n
}

// Size is the scan-comparison size that a scan node adds to its plan's
// complexity: the number of bound columns, which approximates how much of
// the index key the plan actually constrains.
func (s ScanComparisons) Size() int { return s.SargedPrefixLength() }

// sameEqualityPrefix reports whether s and other share the same equality
// values in the same order — the precondition for merge.
func sameEqualityPrefix(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Merge unions two ScanComparisons that share the same equality prefix and
// apply to the same column (§3: "merge(other) unions two compatible
// ScanComparisons on the same column"). The merged inequality range is the
// union (not intersection) of the two ranges' bounds, since merge models
// combining two alternative scans over the same index into a single
// broader range. Returns
// (merged, true) on success, or (s, false) if the two are not
// merge-compatible.
func (s ScanComparisons) Merge(other ScanComparisons) (ScanComparisons, bool) {
	if !sameEqualityPrefix(s.Equalities, other.Equalities) {
		return s, false
	}
	if !s.hasIneq && !other.hasIneq {
		return s, true
	}
	if s.hasIneq != other.hasIneq {
		return s, false
	}
	merged := s
	merged.Inequality = unionRange(s.Inequality, other.Inequality)
	return merged, true
}

func unionRange(a, b Range) Range {
	out := Range{}
	out.HasLow = a.HasLow && b.HasLow
	if out.HasLow {
		lv, lop := wider(a.LowValue, a.LowOp, b.LowValue, b.LowOp, false)
		out.LowValue, out.LowOp = lv, lop
	}
	out.HasHigh = a.HasHigh && b.HasHigh
	if out.HasHigh {
		hv, hop := wider(a.HighValue, a.HighOp, b.HighValue, b.HighOp, true)
		out.HighValue, out.HighOp = hv, hop
	}
	return out
}

// wider picks the looser of two bounds for a union range. Values are
// compared only when they are both orderable via a type switch on common
// primitive kinds; otherwise the first operand wins (the planner treats
// non-comparable bound values conservatively and defers to residual
// filtering, a case that in practice only arises for opaque comparison
// values the caller never intends to merge).
func wider(av interface{}, aop predicate.CompareOp, bv interface{}, bop predicate.CompareOp, upper bool) (interface{}, predicate.CompareOp) {
	cmp, ok := compareValues(av, bv)
	if !ok {
		return av, aop
	}
	if upper {
		if cmp >= 0 {
			return av, aop
		}
		return bv, bop
	}
	if cmp <= 0 {
		return av, aop
	}
	return bv, bop
}

func compareValues(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return cmpInt(av, bv), true
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpInt64(av, bv), true
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpFloat(av, bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmpString(av, bv), true
		}
	}
	return 0, false
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
