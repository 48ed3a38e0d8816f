// Package policy implements the typed allow-list model that the analyzer
// checks queries against: tables, their allowed columns, and per-table
// row-level restrictions.
package policy

import "strings"

// Operation is one of the comparison operations a Restriction may enforce.
type Operation string

// Supported restriction operations.
const (
	OpEq      Operation = "="
	OpLt      Operation = "<"
	OpGt      Operation = ">"
	OpLe      Operation = "<="
	OpGe      Operation = ">="
	OpBetween Operation = "BETWEEN"
	OpIn      Operation = "IN"
)

// Restriction is a predicate that must be present in every query touching
// its table. It is a tagged union over Operation: Eq/Cmp operations carry
// Value, Between carries exactly two Values, In carries one or more Values.
type Restriction struct {
	Column    string
	Operation Operation
	Value     interface{}
	Values    []interface{}
}

// Table is one allow-listed table: its name, its ordered allowed columns,
// and the restrictions that must hold for any query referencing it.
type Table struct {
	Name         string
	Columns      []string
	Restrictions []Restriction
}

// HasColumn reports whether name is one of the table's allowed columns,
// compared case-insensitively.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Policy is a validated, immutable allow-list of tables. Once returned by
// Validate it is safe to share read-only across concurrent verify calls.
type Policy struct {
	Tables []Table
}

// FindTable looks up a table by name, case-insensitively. It returns nil
// and false when the table is not in the policy.
func (p *Policy) FindTable(name string) (*Table, bool) {
	for i := range p.Tables {
		if strings.EqualFold(p.Tables[i].Name, name) {
			return &p.Tables[i], true
		}
	}
	return nil, false
}
