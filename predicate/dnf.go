package predicate

// estimateTerms estimates the number of disjunctive terms c would expand
// to, without actually expanding it — used to decide whether a full DNF
// normalization stays within budget before paying the cost (§4.2, §5).
func estimateTerms(c Component) int {
	switch c.Kind {
	case KindAnd:
		total := 1
		for _, ch := range c.Children {
			total *= estimateTerms(ch)
			if total < 0 || total > 1<<30 { // overflow guard
				return 1 << 30
			}
		}
		return total
	case KindOr:
		total := 0
		for _, ch := range c.Children {
			total += estimateTerms(ch)
		}
		if total == 0 {
			return 1
		}
		return total
	case KindNot:
		if c.Child != nil {
			return estimateTerms(*c.Child)
		}
		return 1
	default:
		return 1
	}
}

// toDNF attempts a full disjunctive-normal-form expansion of c, bounded by
// maxTerms. Returns (expanded, true) on success, or (c, false) if the
// estimated size exceeds budget — the original tree is then kept unchanged
// per §4.2.
func toDNF(c Component, maxTerms int) (Component, bool) {
	if estimateTerms(c) > maxTerms {
		return c, false
	}
	terms := expand(c)
	if len(terms) > maxTerms {
		return c, false
	}
	conjuncts := make([]Component, len(terms))
	for i, t := range terms {
		conjuncts[i] = And(t...)
	}
	return Or(conjuncts...), true
}

// expand returns the list of conjunctive terms (each a slice of leaves/
// opaque nested nodes) whose disjunction is equivalent to c.
func expand(c Component) [][]Component {
	switch c.Kind {
	case KindAnd:
		terms := [][]Component{{}}
		for _, ch := range c.Children {
			childTerms := expand(ch)
			var next [][]Component
			for _, t := range terms {
				for _, ct := range childTerms {
					merged := append(append([]Component{}, t...), ct...)
					next = append(next, merged)
				}
			}
			terms = next
		}
		return terms
	case KindOr:
		var terms [][]Component
		for _, ch := range c.Children {
			terms = append(terms, expand(ch)...)
		}
		return terms
	default:
		return [][]Component{{c}}
	}
}
