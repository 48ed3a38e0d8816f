package policy

import "strings"

// RawTable is the unvalidated wire-level form of a table entry.
type RawTable struct {
	Name         string
	Columns      []string
	Restrictions []RawRestriction
}

// RawRestriction is the unvalidated wire-level form of a restriction.
// Operation is matched case-insensitively; Value is used by scalar
// operations, Values by BETWEEN and IN.
type RawRestriction struct {
	Column    string
	Operation string
	Value     interface{}
	Values    []interface{}
}

// RawPolicy is the normalized-shape, not-yet-validated policy: always a
// list of tables, regardless of whether the original document used the
// list or the legacy map-of-tables shape. The loader produces this;
// Validate consumes it.
type RawPolicy struct {
	Tables []RawTable
}

// Validate checks every invariant in the data model against raw and, if
// they all hold, returns an immutable Policy. Any violation is returned
// as *PolicyError or *UnsupportedRestrictionError; validation stops at
// the first one found, since the analyzer must refuse to run at all on
// an invalid policy.
func Validate(raw RawPolicy) (*Policy, error) {
	if len(raw.Tables) == 0 {
		return nil, &PolicyError{Reason: "policy must declare at least one table"}
	}
	out := &Policy{Tables: make([]Table, 0, len(raw.Tables))}
	for _, rt := range raw.Tables {
		table, err := validateTable(rt)
		if err != nil {
			return nil, err
		}
		out.Tables = append(out.Tables, *table)
	}
	return out, nil
}

func validateTable(rt RawTable) (*Table, error) {
	if strings.TrimSpace(rt.Name) == "" {
		return nil, &PolicyError{Reason: "table name must not be empty"}
	}
	if len(rt.Columns) == 0 {
		return nil, &PolicyError{Table: rt.Name, Reason: "table must declare at least one column"}
	}
	table := &Table{Name: rt.Name, Columns: rt.Columns}
	table.Restrictions = make([]Restriction, 0, len(rt.Restrictions))
	for _, rr := range rt.Restrictions {
		restriction, err := validateRestriction(table, rr)
		if err != nil {
			return nil, err
		}
		table.Restrictions = append(table.Restrictions, *restriction)
	}
	return table, nil
}

func validateRestriction(table *Table, rr RawRestriction) (*Restriction, error) {
	if !table.HasColumn(rr.Column) {
		return nil, &PolicyError{
			Table:  table.Name,
			Column: rr.Column,
			Reason: "restriction column does not appear in the table's allowed columns",
		}
	}
	op := Operation(strings.ToUpper(strings.TrimSpace(rr.Operation)))
	switch op {
	case OpEq, OpLt, OpGt, OpLe, OpGe:
		return validateScalarRestriction(table, rr, op)
	case OpBetween:
		return validateBetweenRestriction(table, rr)
	case OpIn:
		return validateInRestriction(table, rr)
	default:
		return nil, &UnsupportedRestrictionError{Table: table.Name, Column: rr.Column, Operation: rr.Operation}
	}
}

func validateScalarRestriction(table *Table, rr RawRestriction, op Operation) (*Restriction, error) {
	if rr.Value == nil || len(rr.Values) != 0 {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(op),
			Reason: "operation requires exactly one scalar value",
		}
	}
	if op != OpEq {
		if !isNumeric(rr.Value) {
			return nil, &PolicyError{
				Table: table.Name, Column: rr.Column, Operation: string(op),
				Reason: "value must be numeric for this operation",
			}
		}
	} else if !isNumeric(rr.Value) && !isString(rr.Value) {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(op),
			Reason: "value must be numeric or string",
		}
	}
	return &Restriction{Column: rr.Column, Operation: op, Value: rr.Value}, nil
}

func validateBetweenRestriction(table *Table, rr RawRestriction) (*Restriction, error) {
	if len(rr.Values) != 2 {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(OpBetween),
			Reason: "BETWEEN requires exactly two values",
		}
	}
	lo, loOK := asFloat(rr.Values[0])
	hi, hiOK := asFloat(rr.Values[1])
	if !loOK || !hiOK {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(OpBetween),
			Reason: "BETWEEN values must both be numeric",
		}
	}
	if !(lo < hi) {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(OpBetween),
			Reason: "BETWEEN requires values[0] < values[1]",
		}
	}
	return &Restriction{Column: rr.Column, Operation: OpBetween, Values: rr.Values}, nil
}

func validateInRestriction(table *Table, rr RawRestriction) (*Restriction, error) {
	if len(rr.Values) == 0 {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(OpIn),
			Reason: "IN requires a non-empty list of values",
		}
	}
	kind := valueKind(rr.Values[0])
	if kind == kindOther {
		return nil, &PolicyError{
			Table: table.Name, Column: rr.Column, Operation: string(OpIn),
			Reason: "IN values must be numeric or string",
		}
	}
	for _, v := range rr.Values[1:] {
		if valueKind(v) != kind {
			return nil, &PolicyError{
				Table: table.Name, Column: rr.Column, Operation: string(OpIn),
				Reason: "IN values must all share the same primitive type",
			}
		}
	}
	return &Restriction{Column: rr.Column, Operation: OpIn, Values: rr.Values}, nil
}

type valuePrimKind int

const (
	kindOther valuePrimKind = iota
	kindInt
	kindFloat
	kindString
)

func valueKind(v interface{}) valuePrimKind {
	switch n := v.(type) {
	case string:
		return kindString
	case int, int32, int64:
		return kindInt
	case float32:
		f := float64(n)
		if f == float64(int64(f)) {
			return kindInt
		}
		return kindFloat
	case float64:
		if n == float64(int64(n)) {
			return kindInt
		}
		return kindFloat
	default:
		return kindOther
	}
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
