package planner

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wbrown/recordplan/predicate"
)

// PlanCache memoizes Plan results by query signature, guarded by a
// RWMutex. Grounded on the teacher's datalog/planner/cache.go, which keeps
// the same shape: a plain map behind a RWMutex, keyed by a string
// signature built from the query shape rather than by object identity.
type PlanCache struct {
	mu    sync.RWMutex
	plans map[string]*RecordQueryPlan
}

// NewPlanCache returns an empty cache.
func NewPlanCache() *PlanCache {
	return &PlanCache{plans: make(map[string]*RecordQueryPlan)}
}

// Get returns the cached plan for sig, if any. The returned plan must be
// treated as immutable by the caller: it is shared across callers.
func (c *PlanCache) Get(sig string) (*RecordQueryPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plans[sig]
	return p, ok
}

// Put stores plan under sig, overwriting any prior entry.
func (c *PlanCache) Put(sig string, plan *RecordQueryPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[sig] = plan
}

// Clear empties the cache, e.g. after a metadata change invalidates every
// previously cached plan.
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = make(map[string]*RecordQueryPlan)
}

// signature builds a deterministic string key for a (query, configuration)
// pair. Not a canonical serialization — good enough to distinguish queries
// that would plan differently, and stable across repeated calls with
// equal-but-not-identical Query values.
func signature(q *Query, cfg Config) string {
	types := append([]string(nil), q.RecordTypes...)
	sort.Strings(types)
	allowed := append([]string(nil), q.AllowedIndexes...)
	sort.Strings(allowed)
	required := append([]string(nil), q.RequiredFields...)
	sort.Strings(required)

	sortKey := ""
	if q.Sort != nil {
		sortKey = q.Sort.String()
	}

	return fmt.Sprintf("types=%v|filter=%s|sort=%s|rev=%v|required=%v|allowed=%v|distinct=%v|cfg=%+v",
		types, filterFingerprint(q.Filter), sortKey, q.SortReverse, required, allowed, q.RequireDistinct,
		cfg)
}

func filterFingerprint(f predicate.Component) string {
	if f.IsEmpty() {
		return "-"
	}
	return fingerprint(f)
}
