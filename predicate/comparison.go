package predicate

// CompareOp is the comparison operator for Inequality/ValueCompare
// comparisons. Grounded on the teacher's query.CompareOp (datalog/query),
// which uses the same small closed operator set.
type CompareOp int

const (
	OpLT CompareOp = iota
	OpLTE
	OpGT
	OpGTE
	OpNE
)

func (o CompareOp) String() string {
	switch o {
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpNE:
		return "!="
	default:
		return "?"
	}
}

// Complement returns the operator that, applied to the same operands,
// gives the logical negation of o — used when pushing a Not into a leaf
// (§4.2).
func (o CompareOp) Complement() (CompareOp, bool) {
	switch o {
	case OpLT:
		return OpGTE, true
	case OpLTE:
		return OpGT, true
	case OpGT:
		return OpLTE, true
	case OpGTE:
		return OpLT, true
	default:
		return 0, false
	}
}

// NullKind distinguishes IS NULL from IS NOT NULL comparisons.
type NullKind int

const (
	NullKindIsNull NullKind = iota
	NullKindIsNotNull
)

// CompKindTag tags which Comparison variant is held.
type CompKindTag int

const (
	CmpEquality CompKindTag = iota
	CmpInequality
	CmpNull
	CmpInList
	CmpTextMatch
	CmpParameter
	CmpValueCompare
)

// Category classifies a comparison as sargable-as-equality or
// sargable-as-inequality, per §3's ScanComparisons invariant: "an ordered
// tuple of equality comparisons followed by at-most-one compound
// inequality range".
type Category int

const (
	CategoryEquality Category = iota
	CategoryInequality
	CategoryNotSargable
)

// Comparison is the tagged comparison value from spec.md §3.
type Comparison struct {
	Tag CompKindTag

	Value    interface{}  // CmpEquality, CmpValueCompare (the other value's identity), CmpNull unused
	Op       CompareOp    // CmpInequality, CmpValueCompare
	NullKind NullKind     // CmpNull
	Values   []interface{} // CmpInList
	TextArgs []string      // CmpTextMatch: opaque tokenizer-pipeline arguments
	ParamName string       // CmpParameter
}

func Equal(v interface{}) Comparison { return Comparison{Tag: CmpEquality, Value: v} }

func Inequality(op CompareOp, v interface{}) Comparison {
	return Comparison{Tag: CmpInequality, Op: op, Value: v}
}

func Null(kind NullKind) Comparison { return Comparison{Tag: CmpNull, NullKind: kind} }

func InList(vs []interface{}) Comparison { return Comparison{Tag: CmpInList, Values: vs} }

func TextMatch(args ...string) Comparison { return Comparison{Tag: CmpTextMatch, TextArgs: args} }

func Parameter(name string) Comparison { return Comparison{Tag: CmpParameter, ParamName: name} }

func ValueCompare(op CompareOp, other interface{}) Comparison {
	return Comparison{Tag: CmpValueCompare, Op: op, Value: other}
}

// Category reports which scan-construction bucket this comparison falls
// into.
func (c Comparison) Category() Category {
	switch c.Tag {
	case CmpEquality, CmpParameter:
		return CategoryEquality
	case CmpInequality:
		return CategoryInequality
	default:
		return CategoryNotSargable
	}
}

// Complement returns the logical negation of c when one exists directly
// (§4.2: "A Not on a leaf pushes into the leaf when the comparison has a
// direct complement"). InList, TextMatch, and Parameter have no direct
// complement and must be left as residual.
func (c Comparison) Complement() (Comparison, bool) {
	switch c.Tag {
	case CmpInequality:
		op, ok := c.Op.Complement()
		if !ok {
			return Comparison{}, false
		}
		return Inequality(op, c.Value), true
	case CmpNull:
		if c.NullKind == NullKindIsNull {
			return Null(NullKindIsNotNull), true
		}
		return Null(NullKindIsNull), true
	case CmpValueCompare:
		op, ok := c.Op.Complement()
		if !ok {
			return Comparison{}, false
		}
		return ValueCompare(op, c.Value), true
	default:
		return Comparison{}, false
	}
}
