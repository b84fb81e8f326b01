package planner

import (
	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
)

// finalizePlan implements §4.7: attach remaining residual filters (pushed
// below set operators when the configuration allows), insert a
// primary-key-distinct wrapper when duplicates are possible or requested,
// and attempt the covering rewrite. The complexity guard is applied
// separately by the driver once the whole tree — including any Sort
// wrapper — is assembled.
//
// Grounded on the teacher's datalog/planner/planner_phases.go, which runs a
// fixed sequence of post-match rewrite passes over the chosen plan before
// returning it.
//
// Per spec.md's closing invariant on distinctness ("if the chosen plan
// creates duplicates and the query demands distinctness... if the common
// primary key is null, fail"), finalizePlan reports a PlannerError instead
// of silently returning a plan that can emit duplicate records.
func finalizePlan(ctx *PlanContext, plan RecordQueryPlan, residual []predicate.Component, createsDuplicates bool, cfg Config) (RecordQueryPlan, error) {
	if len(residual) > 0 {
		filter := predicate.And(residual...)
		if cfg.DeferFetchAfterUnionAndIntersection && pushdownEligible(plan) {
			plan = pushResidualDown(plan, filter)
		} else {
			plan = ResidualFilterPlan(plan, filter)
		}
	}

	if ctx.Query.RequireDistinct || createsDuplicates {
		if ctx.CommonPrimaryKey.Kind == keyexpr.KindEmpty {
			return plan, newError(ErrUnexpectedState, "", "distinctness required but the queried record types share no common primary key")
		}
		plan = PrimaryKeyDistinctPlan(plan)
	}

	if len(ctx.Query.RequiredFields) > 0 {
		plan = applyCoveringRewrite(ctx, plan, ctx.Query.RequiredFields, residual)
	}

	return plan, nil
}

// pushdownEligible reports whether p's root operator commutes with a
// ResidualFilter pushed into its children (§4.7: "push residual filters
// below unions, intersections, InJoins, and type filters when doing so
// does not change which records ultimately pass").
func pushdownEligible(p RecordQueryPlan) bool {
	switch p.Op {
	case OpUnion, OpUnorderedUnion, OpIntersection, OpTypeFilter, OpPrimaryKeyDistinct, OpInJoin, OpInUnion:
		return len(p.Children) > 0
	default:
		return false
	}
}

// pushResidualDown wraps filter around every child of a set operator
// instead of around the operator itself, so each branch discards
// non-matching records before they reach the merge/join step.
func pushResidualDown(p RecordQueryPlan, filter predicate.Component) RecordQueryPlan {
	switch p.Op {
	case OpUnion, OpUnorderedUnion, OpIntersection:
		children := make([]RecordQueryPlan, len(p.Children))
		for i, c := range p.Children {
			children[i] = ResidualFilterPlan(c, filter)
		}
		out := p
		out.Children = children
		return out
	default: // OpTypeFilter, OpPrimaryKeyDistinct, OpInJoin, OpInUnion: one child
		out := p
		out.Children = []RecordQueryPlan{ResidualFilterPlan(p.Children[0], filter)}
		return out
	}
}

// applyCoveringRewrite wraps plan in a CoveringFetchPlan when every field
// the query still needs — its required-result projection plus whatever
// the pushed-down residual filters still read — is already present on the
// matched index's entries, sparing the record fetch (§4.7).
func applyCoveringRewrite(ctx *PlanContext, plan RecordQueryPlan, requiredFields []string, residual []predicate.Component) RecordQueryPlan {
	avail, ok := coverableFields(ctx, plan)
	if !ok {
		return plan
	}
	need := make(map[string]bool, len(requiredFields))
	for _, f := range requiredFields {
		need[f] = true
	}
	for _, f := range residual {
		fieldsUsed(f, need)
	}
	for f := range need {
		if !avail[f] {
			return plan
		}
	}
	return CoveringFetchPlan(plan, requiredFields)
}

// coverableFields returns the set of field names available without a
// record fetch under plan, and whether plan is shaped simply enough
// (a single index scan, possibly wrapped in filters/sort/distinct) to make
// that determination at all — unions/intersections of differing indexes
// are not attempted.
func coverableFields(ctx *PlanContext, plan RecordQueryPlan) (map[string]bool, bool) {
	switch plan.Op {
	case OpIndexScan:
		for _, ix := range ctx.CandidateIndexes {
			if ix.Name == plan.IndexName {
				out := make(map[string]bool)
				for _, col := range ix.KeyExpression.Columns() {
					if col.FieldName != "" {
						out[col.FieldName] = true
					}
				}
				return out, true
			}
		}
		return nil, false
	case OpResidualFilter, OpTypeFilter, OpPrimaryKeyDistinct, OpSort:
		if len(plan.Children) == 0 {
			return nil, false
		}
		return coverableFields(ctx, plan.Children[0])
	default:
		return nil, false
	}
}

// checkComplexity implements §5's complexity guard: reject a plan whose
// total Complexity() exceeds cfg.ComplexityThreshold, attaching the
// offending plan to the error for diagnostics (seed scenario 7).
func checkComplexity(plan RecordQueryPlan, cfg Config) error {
	if cfg.ComplexityThreshold <= 0 {
		return nil
	}
	if c := plan.Complexity(); c > cfg.ComplexityThreshold {
		p := plan
		return &PlannerError{
			Kind: ErrPlanTooComplex,
			Msg:  "plan complexity exceeds threshold",
			Plan: &p,
		}
	}
	return nil
}
