package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
	"github.com/wbrown/recordplan/scancomp"
)

// textIndexScore is the tunable score assigned to text-index matches
// (§4.4: "Text indexes score 10 (tunable)").
const textIndexScore = 10

// matchTextIndex delegates to a text-specific routine that returns a scan
// with an opaque text comparison; residuals remain on the plan. The
// tokenizer/analyzer pipeline that actually evaluates TextMatch is an
// external collaborator out of scope for this core (§1); this routine only
// decides whether the index can claim the predicate at all.
//
// §9's open question on text-index sorts is preserved here: a sort
// alongside a text predicate is rejected, since the text scan never
// documents an ordering (see DESIGN.md).
func matchTextIndex(ctx *PlanContext, index metadata.Index, filter predicate.Component, sort *keyexpr.KeyExpression) *ScoredPlan {
	if sort != nil {
		return nil
	}

	conj := conjuncts(filter)
	fieldName := textIndexField(index)
	if fieldName == "" {
		return nil
	}

	used := make([]bool, len(conj))
	var textComparison *predicate.Comparison
	for i, c := range conj {
		if c.Kind == predicate.KindFieldWithComparison && c.FieldName == fieldName && c.Comparison.Tag == predicate.CmpTextMatch {
			cp := c.Comparison
			textComparison = &cp
			used[i] = true
			break
		}
	}
	if textComparison == nil {
		return nil
	}

	sc := scancomp.Empty().AddEquality(textComparison.TextArgs)

	unsatisfied := make([]predicate.Component, 0, len(conj))
	for i, c := range conj {
		if !used[i] {
			unsatisfied = append(unsatisfied, c)
		}
	}

	plan := IndexScanPlan(index.Name, sc, false, false)
	return &ScoredPlan{
		Plan:               plan,
		Score:              textIndexScore,
		UnsatisfiedFilters: unsatisfied,
	}
}

func textIndexField(index metadata.Index) string {
	cols := index.KeyExpression.Columns()
	if len(cols) == 0 {
		return ""
	}
	if cols[0].Kind == keyexpr.KindField {
		return cols[0].FieldName
	}
	return ""
}
