package planner

// IndexScanPreference is the tie-break policy between a no-index plan and
// a single-index plan that are otherwise equally scored (§6).
type IndexScanPreference int

const (
	PreferIndex IndexScanPreference = iota
	PreferScan
	PreferPKIndex
)

// Config holds the recognized configuration options from spec.md §6.
// Grounded on the teacher's PlannerOptions (datalog/planner/types.go): a
// plain struct of bool/int fields passed by value into NewPlanner, no
// process-wide mutable singleton (§9).
type Config struct {
	IndexScanPreference IndexScanPreference

	// ComplexityThreshold is the max plan complexity before rejection
	// (§5 default 3000).
	ComplexityThreshold int

	AttemptFailedInJoinAsOr         bool
	AttemptFailedInJoinAsUnion      bool
	AttemptFailedInJoinAsUnionMaxSize int

	DeferFetchAfterUnionAndIntersection bool
	OptimizeForIndexFilters             bool
	PlanOtherAttemptWholeFilter         bool
	UseFullKeyForValueIndex             bool

	// SortConfiguration, when true, permits the planner to emit an
	// in-memory Sort operator when no index can realize the requested
	// sort, instead of failing with UnsatisfiableSort.
	SortConfiguration bool

	Normalize NormalizeConfigAlias
}

// NormalizeConfigAlias mirrors predicate.NormalizeConfig so Config doesn't
// need to import predicate just to expose the two knobs it cares about;
// driver.go converts it at the boundary.
type NormalizeConfigAlias struct {
	MaxDistributionWidth int
	MaxDNFTerms          int
}

// DefaultConfig returns the configuration defaults described across §5/§6.
func DefaultConfig() Config {
	return Config{
		IndexScanPreference:                 PreferIndex,
		ComplexityThreshold:                 3000,
		AttemptFailedInJoinAsOr:             true,
		AttemptFailedInJoinAsUnion:          true,
		AttemptFailedInJoinAsUnionMaxSize:   100,
		DeferFetchAfterUnionAndIntersection: true,
		OptimizeForIndexFilters:             true,
		PlanOtherAttemptWholeFilter:         true,
		UseFullKeyForValueIndex:             true,
		SortConfiguration:                   false,
	}
}
