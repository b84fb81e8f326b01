package planner

import (
	"sort"

	"github.com/wbrown/recordplan/keyexpr"
	"github.com/wbrown/recordplan/metadata"
)

// buildContext implements §4.1: resolve the query's record-type set to
// candidate indexes, compute the common primary key, and apply allow/
// queryability filters. Grounded on the teacher's
// datalog/storage/matcher.go chooseIndex (gather every candidate index up
// front, deterministically) and datalog/planner/planner_phases.go's
// pattern of building one context value ahead of the rest of planning.
func buildContext(md metadata.Metadata, rd metadata.Readability, q *Query) (*PlanContext, error) {
	var candidates []metadata.Index
	var primaryKeys []keyexpr.KeyExpression

	switch len(q.RecordTypes) {
	case 0:
		// No named types: every universal index is a candidate, and the
		// common primary key is Empty (see below).
		for _, ix := range md.AllIndexes() {
			if ix.IsUniversal() {
				candidates = append(candidates, ix)
			}
		}
		// We cannot enumerate "every known type" without a listing
		// method; callers that want a meaningful common-primary-key
		// here should instead name their types explicitly. We fall back
		// to Empty, which the no-index base-selection step treats as
		// "no record-type-prefix optimization available".
	case 1:
		rt, ok := md.RecordType(q.RecordTypes[0])
		if !ok {
			return nil, newError(ErrMetadataError, q.RecordTypes[0], "unknown record type")
		}
		primaryKeys = append(primaryKeys, rt.PrimaryKey)
		candidates = append(candidates, md.IndexesFor(q.RecordTypes[0])...)
	default:
		for _, rtName := range q.RecordTypes {
			rt, ok := md.RecordType(rtName)
			if !ok {
				return nil, newError(ErrMetadataError, rtName, "unknown record type")
			}
			primaryKeys = append(primaryKeys, rt.PrimaryKey)
		}
		// Only indexes declared on ALL requested types, plus universal
		// ones (set intersection over multi-type indexes, §4.1).
		perType := make([]map[string]metadata.Index, len(q.RecordTypes))
		for i, rtName := range q.RecordTypes {
			m := make(map[string]metadata.Index)
			for _, ix := range md.IndexesFor(rtName) {
				m[ix.Name] = ix
			}
			perType[i] = m
		}
		seen := make(map[string]bool)
		for name, ix := range perType[0] {
			if ix.IsUniversal() {
				if !seen[name] {
					candidates = append(candidates, ix)
					seen[name] = true
				}
				continue
			}
			inAll := true
			for _, m := range perType[1:] {
				if _, ok := m[name]; !ok {
					inAll = false
					break
				}
			}
			if inAll && !seen[name] {
				candidates = append(candidates, ix)
				seen[name] = true
			}
		}
		// Universal indexes might not appear in perType[0] under some
		// Metadata implementations' IndexesFor contracts; add any missed.
		for _, ix := range md.AllIndexes() {
			if ix.IsUniversal() && !seen[ix.Name] {
				candidates = append(candidates, ix)
				seen[ix.Name] = true
			}
		}
	}

	commonPK := keyexpr.CommonPrefix(primaryKeys)

	// Filter to readable-on-store.
	readable := candidates[:0]
	for _, ix := range candidates {
		if rd == nil || rd.IsReadable(ix.Name) {
			readable = append(readable, ix)
		} else if isDemandedIndex(q, ix.Name) {
			return nil, newError(ErrMetadataError, ix.Name, "index required by allow-list is unreadable")
		}
	}
	candidates = readable

	// Filter by the query's allow-list.
	if len(q.AllowedIndexes) > 0 {
		allowed := make(map[string]bool, len(q.AllowedIndexes))
		for _, n := range q.AllowedIndexes {
			allowed[n] = true
		}
		filtered := candidates[:0]
		for _, ix := range candidates {
			if allowed[ix.Name] {
				filtered = append(filtered, ix)
			}
		}
		candidates = filtered
	}

	// §5: "Candidate iteration is deterministic (indexes sorted by name
	// before matching)".
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })

	return &PlanContext{
		Query:            q,
		CandidateIndexes: candidates,
		CommonPrimaryKey: commonPK,
		// RankComparisons starts empty and is populated by matcher_rank.go
		// as rank predicates are discovered during per-candidate matching.
	}, nil
}

func isDemandedIndex(q *Query, name string) bool {
	for _, n := range q.AllowedIndexes {
		if n == name {
			return true
		}
	}
	return false
}
