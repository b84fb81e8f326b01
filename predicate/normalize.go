package predicate

// NormalizeConfig bounds the cost of normalization (§4.2, §5 "Resource
// bounds"). Zero values fall back to the defaults below.
type NormalizeConfig struct {
	// MaxDistributionWidth caps the width of a disjunction an
	// AND(x, OR(a,b,...)) distribution is allowed to produce.
	MaxDistributionWidth int
	// MaxDNFTerms caps the estimated term count a full DNF normalization
	// is allowed to produce; above this the original tree is kept.
	MaxDNFTerms int
}

func (c NormalizeConfig) withDefaults() NormalizeConfig {
	if c.MaxDistributionWidth <= 0 {
		c.MaxDistributionWidth = 16
	}
	if c.MaxDNFTerms <= 0 {
		c.MaxDNFTerms = 256
	}
	return c
}

// Normalize rewrites c into the canonical form described in §4.2:
//  1. push Not into leaves that have a direct complement,
//  2. apply a single bounded AND-over-OR distribution pass,
//  3. attempt a bounded full DNF normalization.
func Normalize(c Component, cfg NormalizeConfig) Component {
	cfg = cfg.withDefaults()
	c = pushNots(c)
	c = distributeAndOverOr(c, cfg.MaxDistributionWidth)
	if dnf, ok := toDNF(c, cfg.MaxDNFTerms); ok {
		return dnf
	}
	return c
}

// pushNots pushes Not down to leaves, resolving it via Comparison.Complement
// where a direct complement exists, and via De Morgan's laws through
// And/Or. A Not whose leaf has no direct complement (InList, TextMatch,
// Parameter) is left in place — the matcher will surface it as residual.
func pushNots(c Component) Component {
	switch c.Kind {
	case KindAnd:
		children := make([]Component, len(c.Children))
		for i, ch := range c.Children {
			children[i] = pushNots(ch)
		}
		return And(children...)
	case KindOr:
		children := make([]Component, len(c.Children))
		for i, ch := range c.Children {
			children[i] = pushNots(ch)
		}
		return Or(children...)
	case KindNested:
		if c.Child == nil {
			return c
		}
		return Nested(c.ParentName, pushNots(*c.Child))
	case KindOneOfThemWithComponent:
		if c.Child == nil {
			return c
		}
		return OneOfThemWithComponent(c.ParentName, pushNots(*c.Child))
	case KindNot:
		return pushNotInto(c.Child)
	default:
		return c
	}
}

func pushNotInto(child *Component) Component {
	if child == nil {
		return Component{Kind: KindNot}
	}
	switch child.Kind {
	case KindAnd:
		// De Morgan: NOT(AND(a,b,...)) = OR(NOT a, NOT b, ...)
		children := make([]Component, len(child.Children))
		for i, ch := range child.Children {
			c := ch
			children[i] = pushNotInto(&c)
		}
		return Or(children...)
	case KindOr:
		children := make([]Component, len(child.Children))
		for i, ch := range child.Children {
			c := ch
			children[i] = pushNotInto(&c)
		}
		return And(children...)
	case KindNot:
		// Double negation.
		if child.Child == nil {
			return Not(*child)
		}
		return pushNots(*child.Child)
	case KindFieldWithComparison, KindOneOfThemWithComparison, KindRecordTypeKeyComparison:
		if comp, ok := child.Comparison.Complement(); ok {
			out := *child
			out.Comparison = comp
			return out
		}
		return Not(pushNots(*child))
	default:
		return Not(pushNots(*child))
	}
}

// distributeAndOverOr applies the limited distribution rule from §4.2:
// an And containing exactly one Or child and otherwise only single-field
// leaves is expanded by distribution so a union plan becomes reachable.
// Applied at most once, and only when the resulting width is within
// maxWidth.
func distributeAndOverOr(c Component, maxWidth int) Component {
	switch c.Kind {
	case KindAnd:
		var orChild *Component
		orIdx := -1
		for i, ch := range c.Children {
			if ch.Kind == KindOr {
				if orChild != nil {
					// More than one Or child: distribution not attempted.
					return c
				}
				cp := ch
				orChild = &cp
				orIdx = i
			} else if !ch.IsLeaf() {
				// Only single-field siblings are eligible.
				return c
			}
		}
		if orChild == nil {
			return c
		}
		if len(orChild.Children)*max(1, len(c.Children)-1) > maxWidth {
			return c
		}
		others := make([]Component, 0, len(c.Children)-1)
		for i, ch := range c.Children {
			if i != orIdx {
				others = append(others, ch)
			}
		}
		disjuncts := make([]Component, len(orChild.Children))
		for i, d := range orChild.Children {
			conj := append(append([]Component{}, others...), d)
			disjuncts[i] = And(conj...)
		}
		return Or(disjuncts...)
	default:
		return c
	}
}
