package planner

import (
	"fmt"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/predicate"
)

// inExtraction is the result of walking a filter for equality-with-list
// leaves (§4.3 step 1-2): the rewritten filter with each IN leaf replaced
// by a placeholder equality against an outer-bound parameter, plus the
// extracted sources in encounter order.
type inExtraction struct {
	rewritten predicate.Component
	sources   []InSource
}

// extractIn implements §4.3 steps 1-2: walk F, collect leaves of the form
// field = oneOf(list)/field in list, and build a subFilter replacing each
// with a placeholder equality against an outer-bound parameter.
//
// Grounded on the teacher's datalog/planner/subquery_rewriter.go, which
// rewrites correlated subquery filters into a decorrelated join by
// substituting a placeholder and tracking the substitution — the same
// rewrite-and-reparameterize shape applied here to IN lists instead of
// correlated subqueries.
func extractIn(filter predicate.Component) inExtraction {
	conj := conjuncts(filter)
	var sources []InSource
	out := make([]predicate.Component, 0, len(conj))

	for i, c := range conj {
		if c.Kind == predicate.KindFieldWithComparison && c.Comparison.Tag == predicate.CmpInList {
			param := fmt.Sprintf("in%d_%s", i, c.FieldName)
			sources = append(sources, InSource{ParamName: param, Values: c.Comparison.Values})
			out = append(out, predicate.FieldWithComparison(c.FieldName, predicate.Parameter(param)))
			continue
		}
		out = append(out, c)
	}

	if len(sources) == 0 {
		return inExtraction{rewritten: filter, sources: nil}
	}
	return inExtraction{rewritten: predicate.And(out...), sources: sources}
}

// planWithInExtraction implements §4.3 end to end: extract IN sources,
// plan the rewritten subFilter, and decide between an IN-join, an
// IN-union, or falling back to explicit OR / leaving IN as residual,
// based on whether the subplan's ordering (concatenated with the outer
// iteration order) can satisfy the requested sort.
func planWithInExtraction(ctx *PlanContext, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config) (*bestCandidate, bool, error) {
	ex := extractIn(filter)
	if len(ex.sources) == 0 {
		best, ok := planAndFilter(ctx, filter, sort, cfg)
		return best, ok, nil
	}

	inner, ok := planAndFilter(ctx, ex.rewritten, sort, cfg)
	if !ok {
		return nil, false, nil
	}

	// No sort requested: outer iteration order is irrelevant, so an
	// IN-join is always acceptable.
	if sort == nil {
		joined := InJoinPlan(ex.sources, inner.plan.Plan)
		return &bestCandidate{plan: ScoredPlan{
			Plan:               joined,
			Score:              inner.plan.Score,
			UnsatisfiedFilters: inner.plan.UnsatisfiedFilters,
			IndexFilters:       inner.plan.IndexFilters,
			CreatesDuplicates:  inner.plan.CreatesDuplicates,
		}}, true, nil
	}

	// A sort is requested: the subplan's own ordering must already match
	// it (the outer source's iteration order is a single value per
	// binding and so contributes no additional ordering within one
	// binding; cross-binding order is only well-defined by an IN-union).
	if inner.plan.PlanOrderingKey != nil && inner.plan.StrictlySorted {
		joined := InJoinPlan(ex.sources, inner.plan.Plan)
		return &bestCandidate{plan: ScoredPlan{
			Plan:               joined,
			Score:              inner.plan.Score,
			UnsatisfiedFilters: inner.plan.UnsatisfiedFilters,
			IndexFilters:       inner.plan.IndexFilters,
			CreatesDuplicates:  inner.plan.CreatesDuplicates,
			PlanOrderingKey:    inner.plan.PlanOrderingKey,
			StrictlySorted:     true,
		}}, true, nil
	}

	if cfg.AttemptFailedInJoinAsUnion && len(ex.sources) == 1 && len(ex.sources[0].Values) <= cfg.AttemptFailedInJoinAsUnionMaxSize {
		key := keyexpr.Then(*sort)
		if inner.plan.PlanOrderingKey != nil {
			key = *inner.plan.PlanOrderingKey
		}
		plan := InUnionPlan(ex.sources, inner.plan.Plan, key)
		return &bestCandidate{plan: ScoredPlan{
			Plan:               plan,
			Score:              inner.plan.Score,
			UnsatisfiedFilters: inner.plan.UnsatisfiedFilters,
			IndexFilters:       inner.plan.IndexFilters,
			CreatesDuplicates:  inner.plan.CreatesDuplicates,
			PlanOrderingKey:    &key,
			StrictlySorted:     true,
		}}, true, nil
	}

	if cfg.AttemptFailedInJoinAsOr {
		var disjuncts []predicate.Component
		for _, src := range ex.sources[:1] { // bounded expansion over the first source only
			for _, v := range src.Values {
				disjuncts = append(disjuncts, rebindParam(ex.rewritten, src.ParamName, v))
			}
		}
		if len(disjuncts) > 0 {
			plan, ok, err := planOr(ctx, disjuncts, sort, cfg, false)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return &bestCandidate{plan: ScoredPlan{Plan: *plan}}, true, nil
			}
		}
	}

	// No ordering-compatible rewrite available: leave the IN predicate as
	// residual by falling back to planning without extraction at all.
	best, ok := planAndFilter(ctx, filter, sort, cfg)
	return best, ok, nil
}

// rebindParam substitutes every Parameter(name) comparison in c with an
// Equality(value) comparison — used by the bounded OR-expansion fallback.
func rebindParam(c predicate.Component, name string, value interface{}) predicate.Component {
	switch c.Kind {
	case predicate.KindAnd:
		children := make([]predicate.Component, len(c.Children))
		for i, ch := range c.Children {
			children[i] = rebindParam(ch, name, value)
		}
		return predicate.And(children...)
	case predicate.KindOr:
		children := make([]predicate.Component, len(c.Children))
		for i, ch := range c.Children {
			children[i] = rebindParam(ch, name, value)
		}
		return predicate.Or(children...)
	case predicate.KindFieldWithComparison:
		if c.Comparison.Tag == predicate.CmpParameter && c.Comparison.ParamName == name {
			out := c
			out.Comparison = predicate.Equal(value)
			return out
		}
		return c
	default:
		return c
	}
}
