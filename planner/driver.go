package planner

import (
	"sync"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
	"github.com/wbrown/recordplan/predicate"
)

// Planner is the entry point described in §6: a long-lived value bound to
// one Metadata view and one Config, safe for concurrent use since Plan
// never mutates either.
//
// Grounded on the teacher's datalog/planner.Planner (datalog/planner/
// planner.go), which is likewise a thin struct wrapping a storage handle
// and an options value, exposing Plan as its single public entry point.
type Planner struct {
	md metadata.Metadata
	rd metadata.Readability

	mu  sync.RWMutex
	cfg Config

	cache *PlanCache
}

// NewPlanner constructs a Planner over the given metadata/readability view
// with the supplied configuration.
func NewPlanner(md metadata.Metadata, rd metadata.Readability, cfg Config) *Planner {
	return &Planner{md: md, rd: rd, cfg: cfg, cache: NewPlanCache()}
}

// Configuration returns the planner's current configuration.
func (p *Planner) Configuration() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// SetConfiguration replaces the planner's configuration for subsequent
// Plan calls.
func (p *Planner) SetConfiguration(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// Plan implements §6's main entry point, orchestrating: context build
// (§4.1) -> normalize (§4.2) -> IN extraction (§4.3) / OR dispatch (§4.6)
// -> per-candidate matching & selection (§4.4, §4.5) -> post-processing
// (§4.7) -> complexity guard (§5) -> stable-ID assignment.
func (p *Planner) Plan(q *Query) (*RecordQueryPlan, error) {
	p.mu.RLock()
	cfg := p.cfg
	p.mu.RUnlock()

	sig := signature(q, cfg)
	if cached, found := p.cache.Get(sig); found {
		return cached, nil
	}

	ctx, err := buildContext(p.md, p.rd, q)
	if err != nil {
		return nil, err
	}

	normCfg := predicate.NormalizeConfig{
		MaxDistributionWidth: cfg.Normalize.MaxDistributionWidth,
		MaxDNFTerms:          cfg.Normalize.MaxDNFTerms,
	}
	filter := predicate.Normalize(q.Filter, normCfg)

	plan, err := planTop(ctx, filter, q.Sort, cfg, q.RequireDistinct)
	if err != nil {
		return nil, err
	}

	if q.Sort != nil && !planOrderingSatisfies(*plan, *q.Sort) {
		if !cfg.SortConfiguration {
			return nil, newError(ErrUnsatisfiableSort, "", "no candidate plan realizes the requested sort")
		}
		sorted := SortPlan(*plan, *q.Sort, q.SortReverse)
		plan = &sorted
	}

	if err := checkComplexity(*plan, cfg); err != nil {
		return nil, err
	}

	next := 0
	assignStableIDs(plan, &next)

	p.cache.Put(sig, plan)
	return plan, nil
}

// PlanCoveringAggregate implements §6's covering-aggregate entry point: plan
// q with the named index as the only candidate index (through IN extraction
// and AND-matching, without Plan's OR dispatch, sort check or cache), and
// force the covering rewrite against it, so an aggregate (e.g. a rank or
// count) can be read straight off the index without a record fetch. A
// result that cannot be rewritten as a covering plan is rejected.
func (p *Planner) PlanCoveringAggregate(q *Query, indexName string) (*RecordQueryPlan, error) {
	p.mu.RLock()
	cfg := p.cfg
	p.mu.RUnlock()

	forced := *q
	forced.AllowedIndexes = []string{indexName}

	ctx, err := buildContext(p.md, p.rd, &forced)
	if err != nil {
		return nil, err
	}
	if len(ctx.CandidateIndexes) == 0 {
		return nil, newError(ErrMetadataError, indexName, "index not applicable to requested record types")
	}

	normCfg := predicate.NormalizeConfig{
		MaxDistributionWidth: cfg.Normalize.MaxDistributionWidth,
		MaxDNFTerms:          cfg.Normalize.MaxDNFTerms,
	}
	filter := predicate.Normalize(forced.Filter, normCfg)

	best, ok, err := planWithInExtraction(ctx, filter, forced.Sort, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrNoIndexForSort, indexName, "covering index cannot satisfy the requested query shape")
	}

	result, err := finalizePlan(ctx, best.plan.Plan, best.plan.NonSargableFilters(), best.plan.CreatesDuplicates, cfg)
	if err != nil {
		return nil, err
	}
	result = applyCoveringRewrite(ctx, result, forced.RequiredFields, best.plan.NonSargableFilters())
	if result.Op != OpCoveringFetch {
		return nil, newError(ErrNoIndexForSort, indexName, "covering index cannot satisfy the requested query shape")
	}

	if err := checkComplexity(result, cfg); err != nil {
		return nil, err
	}
	next := 0
	assignStableIDs(&result, &next)
	return &result, nil
}

// planTop dispatches on the top-level filter shape: a bare Or is handed to
// planOr directly (§4.6); anything else (including Empty, a single leaf, or
// an And-of-leaves) goes through IN extraction and AND-matching (§4.3-4.5),
// then post-processing (§4.7).
func planTop(ctx *PlanContext, filter predicate.Component, sort *keyexpr.KeyExpression, cfg Config, requireDistinct bool) (*RecordQueryPlan, error) {
	if filter.Kind == predicate.KindOr {
		plan, ok, err := planOr(ctx, filter.Children, sort, cfg, requireDistinct)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, sortOrMatchError(sort)
		}
		return plan, nil
	}

	best, ok, err := planWithInExtraction(ctx, filter, sort, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sortOrMatchError(sort)
	}

	result, err := finalizePlan(ctx, best.plan.Plan, best.plan.NonSargableFilters(), best.plan.CreatesDuplicates, cfg)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func sortOrMatchError(sort *keyexpr.KeyExpression) error {
	if sort != nil {
		return newError(ErrNoIndexForSort, "", "no candidate index can realize the requested sort")
	}
	return newError(ErrUnexpectedState, "", "no candidate plan could be constructed")
}

// planOrderingSatisfies reports whether plan's own ordering (its
// StrictlySorted leaf, or a merge/IN-union/intersection ComparisonKey it
// inherits) already realizes sort, so the driver knows whether an explicit
// Sort wrapper is needed.
func planOrderingSatisfies(plan RecordQueryPlan, sort keyexpr.KeyExpression) bool {
	switch plan.Op {
	case OpIndexScan, OpScan:
		return plan.StrictlySorted
	case OpUnion, OpIntersection, OpInUnion:
		return plan.ComparisonKey.IsPrefixKey(sort) || sort.IsPrefixKey(plan.ComparisonKey)
	case OpResidualFilter, OpTypeFilter, OpPrimaryKeyDistinct, OpCoveringFetch, OpInJoin:
		if len(plan.Children) == 0 {
			return false
		}
		return planOrderingSatisfies(plan.Children[0], sort)
	case OpSort:
		return true
	default:
		return false
	}
}
