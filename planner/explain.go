package planner

import (
	"fmt"
	"strings"

	"github.com/wbrown/recordplan/predicate"

	"github.com/fatih/color"
)

// Explain renders a plan tree for human inspection: one colorized line per
// node, indented by depth, naming the operator plus whatever detail makes
// that node's choice legible (index name and scan comparisons for scans,
// the predicate for filters, the comparison key for set operators).
//
// Grounded on the teacher's datalog/annotations/output.go, which colorizes
// operator names (blue), arguments (cyan), and warnings (red/yellow) the
// same way for its own event stream; this reuses that palette for plan
// nodes instead of execution events.
func (p RecordQueryPlan) Explain() string {
	var sb strings.Builder
	explainNode(&sb, p, "", color.NoColor)
	return sb.String()
}

// ExplainColor is like Explain but forces color on or off regardless of
// terminal detection, for callers (e.g. cmd/planner-demo) that already
// know whether the output stream supports it.
func (p RecordQueryPlan) ExplainColor(useColor bool) string {
	var sb strings.Builder
	explainNode(&sb, p, "", !useColor)
	return sb.String()
}

func explainNode(sb *strings.Builder, p RecordQueryPlan, indent string, noColor bool) {
	op := op(p.Op.String(), noColor)
	sb.WriteString(indent)
	sb.WriteString(fmt.Sprintf("[%d] %s", p.StableID, op))

	switch p.Op {
	case OpIndexScan:
		sb.WriteString(" ")
		sb.WriteString(arg(p.IndexName, noColor))
		sb.WriteString(scanDetail(p, noColor))
	case OpScan:
		sb.WriteString(scanDetail(p, noColor))
	case OpTypeFilter:
		sb.WriteString(" ")
		sb.WriteString(arg(strings.Join(p.PossibleRecordTypes, ","), noColor))
	case OpResidualFilter:
		sb.WriteString(" ")
		sb.WriteString(arg(filterString(p.Filter), noColor))
	case OpInJoin, OpInUnion:
		names := make([]string, len(p.InSources))
		for i, s := range p.InSources {
			names[i] = fmt.Sprintf("%s(%d)", s.ParamName, len(s.Values))
		}
		sb.WriteString(" ")
		sb.WriteString(arg(strings.Join(names, ", "), noColor))
		if p.Op == OpInUnion {
			sb.WriteString(fmt.Sprintf(" order=%s", p.ComparisonKey.String()))
		}
	case OpIntersection, OpUnion:
		sb.WriteString(fmt.Sprintf(" order=%s", p.ComparisonKey.String()))
	case OpCoveringFetch:
		sb.WriteString(" ")
		sb.WriteString(arg(strings.Join(p.RequiredFields, ","), noColor))
	case OpSort:
		sb.WriteString(fmt.Sprintf(" by=%s reverse=%v", p.ComparisonKey.String(), p.Reverse))
	}

	sb.WriteString("\n")
	for _, c := range p.Children {
		explainNode(sb, c, indent+"  ", noColor)
	}
}

func scanDetail(p RecordQueryPlan, noColor bool) string {
	eq := fmt.Sprintf("%v", p.ScanComparisons.Equalities)
	detail := fmt.Sprintf(" eq=%s", eq)
	if p.ScanComparisons.HasInequality() {
		detail += fmt.Sprintf(" range=%v", p.ScanComparisons.Inequality)
	}
	if p.Reverse {
		detail += " reverse"
	}
	if p.StrictlySorted {
		detail += " sorted"
	}
	return detail
}

func filterString(f predicate.Component) string {
	if f.IsEmpty() {
		return "-"
	}
	return fmt.Sprintf("%+v", f)
}

func op(name string, noColor bool) string {
	if noColor {
		return name
	}
	return color.BlueString(name)
}

func arg(name string, noColor bool) string {
	if noColor {
		return name
	}
	return color.CyanString(name)
}
