package planner

import "fmt"

// ErrorKind is the error taxonomy from spec.md §6/§7. Grounded on the
// teacher's plain fmt.Errorf-based errors (datalog/planner/*.go never
// defines a custom error type), upgraded here to a typed Kind only because
// §7 explicitly requires kind-based dispatch for callers — a spec
// requirement, not corpus silence (see DESIGN.md).
type ErrorKind int

const (
	ErrNoIndexForSort ErrorKind = iota
	ErrUnsatisfiableSort
	ErrPlanTooComplex
	ErrMetadataError
	ErrInvalidExpression
	ErrUnexpectedState
	ErrUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoIndexForSort:
		return "NO_INDEX_FOR_SORT"
	case ErrUnsatisfiableSort:
		return "UNSATISFIABLE_SORT"
	case ErrPlanTooComplex:
		return "PLAN_TOO_COMPLEX"
	case ErrMetadataError:
		return "METADATA_ERROR"
	case ErrInvalidExpression:
		return "INVALID_EXPRESSION"
	case ErrUnexpectedState:
		return "UNEXPECTED_STATE"
	default:
		return "UNKNOWN"
	}
}

// PlannerError is the error type plan() surfaces, carrying the offending
// sort/predicate/index name for diagnostics (§7) and, for PlanTooComplex,
// the offending plan itself so the caller can inspect why (seed scenario
// 7).
type PlannerError struct {
	Kind    ErrorKind
	Msg     string
	Subject string // offending sort/predicate/index name, if any
	Plan    *RecordQueryPlan
	Wrapped error
}

func (e *PlannerError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *PlannerError) Unwrap() error { return e.Wrapped }

func newError(kind ErrorKind, subject, format string, args ...interface{}) *PlannerError {
	return &PlannerError{Kind: kind, Msg: fmt.Sprintf(format, args...), Subject: subject}
}
