package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// andWithThenMatcher is the mutable builder state for one index-matching
// attempt (§9: "mutable builder state inside the AndWithThen matcher should
// be confined to a single matcher value that lives for the duration of one
// index-matching attempt; reset it between candidates"). It is never
// shared across candidates; matchValueIndex constructs a fresh one per
// call.
type andWithThenMatcher struct {
	index      metadata.Index
	keyColumns []keyexpr.KeyExpression
	remaining  []predicate.Component // unconsumed AND children
	used       []bool

	sortColumns []keyexpr.KeyExpression
	sortPos     int

	sc                    scancomp.ScanComparisons
	sawInequality         bool
	duplicates            bool
	fullPrefixConsumed    int // number of key columns bound into the scan key
	consumedThroughColumn int // number of key columns processed at all (scan-bound or sort-only)

	// indexFilters collects matched leaves that lie within the index's own
	// key columns but could not be encoded into the scan comparisons (an
	// earlier inequality already terminated the scan key, or a nested
	// group match produced no single scalar value) — still evaluable
	// against the index entry without a record fetch (§3 "index filter").
	indexFilters []predicate.Component
}

// matchValueIndex implements §4.4's "Value-index matching — AndWithThen
// engine": iterate the index's Then-shaped key columns left-to-right,
// matching filter leaves and sort columns as described.
func matchValueIndex(ctx *PlanContext, index metadata.Index, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config) *ScoredPlan {
	keyCols := index.KeyExpression.Columns()
	if cfg.UseFullKeyForValueIndex {
		keyCols = append(append([]keyexpr.KeyExpression{}, keyCols...), ctx.CommonPrimaryKey.Columns()...)
	}

	m := &andWithThenMatcher{
		index:      index,
		keyColumns: keyCols,
		remaining:  conjuncts(filter),
	}
	m.used = make([]bool, len(m.remaining))
	if sort != nil {
		m.sortColumns = sort.Columns()
	}

columnLoop:
	for i, col := range m.keyColumns {
		comp, idx, complete := m.findComparison(col)
		if comp == nil && col.Kind == keyexpr.KindNesting {
			// Single-leaf matching failed; try gathering every AND child
			// that descends into this same parent field (§4.4 "AND with
			// nested Nesting key").
			if grp := m.matchNestedGroup(col); grp != nil {
				switch {
				case grp.isEquality:
					for _, u := range grp.usedIndices {
						m.markUsed(u)
					}
					if grp.duplicates {
						m.duplicates = true
					}
					if !m.sawInequality {
						m.sc = m.sc.AddEquality(grp.value)
					}
					m.fullPrefixConsumed = i + 1
					m.consumedThroughColumn = i + 1
					if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
						m.sortPos++
					}
					if !grp.complete {
						return m.finish(ctx, i+1)
					}
					continue
				case grp.hasRange:
					for _, u := range grp.usedIndices {
						m.markUsed(u)
					}
					if grp.duplicates {
						m.duplicates = true
					}
					if !m.sawInequality {
						m.sc = m.sc.WithInequality(scancompRangeFrom(grp.rng))
						m.sawInequality = true
					}
					m.fullPrefixConsumed = i + 1
					m.consumedThroughColumn = i + 1
					if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
						m.sortPos++
					}
					if !grp.complete {
						return m.finish(ctx, i+1)
					}
					continue
				default:
					// A multi-column nested match (or one that never
					// resolved to a single scalar value): nothing can be
					// encoded into the scan key, but the matched leaves
					// are still evaluable against the index entry without
					// a record fetch, so carry them as index filters
					// instead of silently discarding them (§6
					// optimizeForIndexFilters).
					if cfg.OptimizeForIndexFilters {
						for _, u := range grp.usedIndices {
							m.markUsed(u)
							m.indexFilters = append(m.indexFilters, m.remaining[u])
						}
					}
					if grp.duplicates {
						m.duplicates = true
					}
					if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
						m.sortPos++
						m.consumedThroughColumn = i + 1
						continue
					}
					break columnLoop
				}
			}
		}
		if comp == nil {
			// No comparison on this column. It can still be consumed by
			// the sort if it matches verbatim, in which case the index's
			// natural order (not a bound comparison) satisfies that sort
			// column; otherwise matching stops (§4.4 step 3).
			if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
				m.sortPos++
				m.consumedThroughColumn = i + 1
				continue
			}
			break columnLoop
		}

		switch comp.Comparison.Category() {
		case predicate.CategoryEquality:
			if m.sawInequality {
				// An inequality already terminated the scan key; no
				// further equality may be added to it (scancomp
				// invariant). The column is still part of the index key,
				// so the comparison is still evaluable from the index
				// entry without a fetch — carry it as an index filter
				// rather than dropping it, and keep scanning for sort
				// purposes.
				if cfg.OptimizeForIndexFilters {
					m.indexFilters = append(m.indexFilters, m.remaining[idx])
					m.markUsed(idx)
				}
				break
			}
			m.sc = m.sc.AddEquality(equalityValue(comp.Comparison))
			m.markUsed(idx)
			if colCreatesDuplicates(col) {
				m.duplicates = true
			}
			m.fullPrefixConsumed = i + 1
			m.consumedThroughColumn = i + 1
			if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
				// Equality binds the column so the next sort column may
				// use the next index column.
				m.sortPos++
			}
			if !complete {
				// Partial match: later columns cannot be sarged.
				return m.finish(ctx, i+1)
			}
		case predicate.CategoryInequality:
			if m.sawInequality {
				// A compound inequality range is already bound; a second
				// inequality on a later column can't extend it, but it is
				// still evaluable from the index entry without a fetch.
				if cfg.OptimizeForIndexFilters {
					m.indexFilters = append(m.indexFilters, m.remaining[idx])
					m.markUsed(idx)
				}
				break
			}
			m.sc = m.sc.WithInequality(rangeFromComparison(comp.Comparison))
			m.sawInequality = true
			m.markUsed(idx)
			if colCreatesDuplicates(col) {
				m.duplicates = true
			}
			m.fullPrefixConsumed = i + 1
			m.consumedThroughColumn = i + 1
			if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
				m.sortPos++
			}
			// Inequality terminates further *comparison* matching on
			// later columns, but not sort matching (§4.4 step 2).
			return m.finishInequalityTail(ctx, i+1, cfg)
		default:
			// Not sargable (InList handled by the driver's IN-extraction
			// pass before matching reaches here; TextMatch belongs to
			// text indexes; Parameter is sargable as equality and is
			// handled above via Category()).
			if m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
				m.sortPos++
				m.consumedThroughColumn = i + 1
				continue
			}
			break columnLoop
		}
	}

	return m.finish(ctx, len(m.keyColumns))
}

// finishInequalityTail walks the key columns from startCol onward after an
// inequality terminated the scan key: no further scan comparisons are
// added, leading sort columns are still consumed by index order, and with
// optimizeForIndexFilters on, an equality or inequality on any later key
// column is carried as an index filter. Then it finalizes.
func (m *andWithThenMatcher) finishInequalityTail(ctx *PlanContext, startCol int, cfg Config) *ScoredPlan {
	sorting := true
	for i := startCol; i < len(m.keyColumns); i++ {
		col := m.keyColumns[i]
		if cfg.OptimizeForIndexFilters {
			if comp, idx, _ := m.findComparison(col); comp != nil {
				if cat := comp.Comparison.Category(); cat == predicate.CategoryEquality || cat == predicate.CategoryInequality {
					m.indexFilters = append(m.indexFilters, m.remaining[idx])
					m.markUsed(idx)
				}
			}
		}
		if sorting && m.sortPos < len(m.sortColumns) && col.Equal(m.sortColumns[m.sortPos]) {
			m.sortPos++
			m.consumedThroughColumn = i + 1
			continue
		}
		sorting = false
	}
	return m.finish(ctx, len(m.keyColumns))
}

func (m *andWithThenMatcher) finish(ctx *PlanContext, _ int) *ScoredPlan {
	strictlySorted := false
	if len(m.sortColumns) > 0 {
		if m.sortPos != len(m.sortColumns) {
			// Sort not fully consumed by this index: no useful ordering.
			return nil
		}
		// Reaching here means every sort column was consumed, either via a
		// bound comparison or via verbatim index order (§4.4 step 4); the
		// scan's natural iteration order already realizes the requested
		// sort regardless of any trailing, unconstrained index columns.
		strictlySorted = true
	}

	unsatisfied := make([]predicate.Component, 0, len(m.remaining))
	for i, c := range m.remaining {
		if !m.used[i] {
			unsatisfied = append(unsatisfied, c)
		}
	}

	score := m.sc.SargedPrefixLength()
	var orderingKey *keyexpr.KeyExpression
	if len(m.sortColumns) > 0 {
		s := keyexpr.Then(m.sortColumns...)
		orderingKey = &s
	} else if m.consumedThroughColumn > 0 {
		k := keyexpr.Then(m.keyColumns[:m.consumedThroughColumn]...)
		orderingKey = &k
	}

	plan := IndexScanPlan(m.index.Name, m.sc, false, strictlySorted)
	return &ScoredPlan{
		Plan:               plan,
		Score:              score,
		UnsatisfiedFilters: unsatisfied,
		IndexFilters:       m.indexFilters,
		CreatesDuplicates:  m.duplicates,
		PlanOrderingKey:    orderingKey,
		StrictlySorted:     strictlySorted,
	}
}

func (m *andWithThenMatcher) markUsed(idx int) {
	if idx >= 0 {
		m.used[idx] = true
	}
}

// matchedComparison pairs a located filter leaf with its comparison.
type matchedComparison struct {
	Comparison predicate.Comparison
}

// findComparison scans the unconsumed filter children for one compatible
// with column col, per the compatibility cases in §4.4 step 1. Returns the
// match, its index in m.remaining, and whether it fully consumes col.
func (m *andWithThenMatcher) findComparison(col keyexpr.KeyExpression) (*matchedComparison, int, bool) {
	for i, c := range m.remaining {
		if m.used[i] {
			continue
		}
		if mc, complete, ok := compatibleComparison(col, c); ok {
			return mc, i, complete
		}
	}
	return nil, -1, false
}

// compatibleComparison implements the column/leaf compatibility cases from
// §4.4 step 1.
func compatibleComparison(col keyexpr.KeyExpression, c predicate.Component) (*matchedComparison, bool, bool) {
	switch {
	case col.Kind == keyexpr.KindField && col.FieldFan == keyexpr.FanNone && c.Kind == predicate.KindFieldWithComparison && c.FieldName == col.FieldName:
		return &matchedComparison{Comparison: c.Comparison}, true, true
	case col.Kind == keyexpr.KindField && col.FieldFan == keyexpr.FanOut && c.Kind == predicate.KindOneOfThemWithComparison && c.FieldName == col.FieldName:
		return &matchedComparison{Comparison: c.Comparison}, true, true
	case col.Kind == keyexpr.KindNesting && c.Kind == predicate.KindNested && c.ParentName == col.FieldName:
		if c.Child == nil || col.Child == nil {
			return nil, false, false
		}
		if mc, complete, ok := compatibleComparison(*col.Child, *c.Child); ok {
			return mc, complete, true
		}
		return nil, false, false
	case col.Kind == keyexpr.KindRecordTypeKey && c.Kind == predicate.KindRecordTypeKeyComparison:
		return &matchedComparison{Comparison: c.Comparison}, true, true
	case col.Kind == keyexpr.KindVersion && c.Kind == predicate.KindRecordFunctionWithComparison && c.FunctionName == "version":
		return &matchedComparison{Comparison: c.Comparison}, true, true
	case c.Kind == predicate.KindKeyExpressionWithComparison && col.Equal(c.KeyExpression):
		return &matchedComparison{Comparison: c.Comparison}, true, true
	default:
		return nil, false, false
	}
}

func colCreatesDuplicates(col keyexpr.KeyExpression) bool {
	return col.CreatesDuplicates()
}

func equalityValue(c predicate.Comparison) interface{} {
	if c.Tag == predicate.CmpParameter {
		return "$" + c.ParamName
	}
	return c.Value
}

func rangeFromComparison(c predicate.Comparison) scancomp.Range {
	r := scancomp.Range{}
	switch c.Op {
	case predicate.OpGT:
		r.HasLow, r.LowOp, r.LowValue = true, predicate.OpGT, c.Value
	case predicate.OpGTE:
		r.HasLow, r.LowOp, r.LowValue = true, predicate.OpGTE, c.Value
	case predicate.OpLT:
		r.HasHigh, r.HighOp, r.HighValue = true, predicate.OpLT, c.Value
	case predicate.OpLTE:
		r.HasHigh, r.HighOp, r.HighValue = true, predicate.OpLTE, c.Value
	}
	return r
}
