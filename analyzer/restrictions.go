package analyzer

import (
	"fmt"
	"strconv"

	"github.com/sqlguardian/sqlguardian/policy"
	"github.com/sqlguardian/sqlguardian/sqlast"
)

// restrictionSatisfied reports whether clauses — the top-level
// AND-conjuncts of a WHERE — already contains a clause enforcing r on
// the table bound as tableAlias (or unqualified, when tableAlias is
// the only table in scope).
func restrictionSatisfied(clauses []sqlast.Expr, r policy.Restriction, tableAlias string) bool {
	for _, c := range clauses {
		if clauseSatisfies(c, r, tableAlias) {
			return true
		}
	}
	return false
}

func clauseSatisfies(clause sqlast.Expr, r policy.Restriction, tableAlias string) bool {
	if p, ok := clause.(*sqlast.Paren); ok {
		return clauseSatisfies(p.Inner, r, tableAlias)
	}
	// A top-level OR only satisfies r when every disjunct does, not
	// merely one of them.
	if b, ok := clause.(*sqlast.BinaryOp); ok && b.Op == "OR" {
		return clauseSatisfies(b.Left, r, tableAlias) && clauseSatisfies(b.Right, r, tableAlias)
	}
	switch r.Operation {
	case policy.OpBetween:
		b, ok := clause.(*sqlast.Between)
		if !ok || b.Negate {
			return false
		}
		if !refersToColumn(b.Operand, r.Column, tableAlias) {
			return false
		}
		return literalEquals(b.Low, r.Values[0]) && literalEquals(b.High, r.Values[1])
	case policy.OpIn:
		in, ok := clause.(*sqlast.InExpr)
		if !ok || in.Negate {
			return false
		}
		if !refersToColumn(in.Operand, r.Column, tableAlias) {
			return false
		}
		if len(in.List) != len(r.Values) {
			return false
		}
		for i, item := range in.List {
			if !literalEquals(item, r.Values[i]) {
				return false
			}
		}
		return true
	default:
		b, ok := clause.(*sqlast.BinaryOp)
		if !ok || b.Op != string(r.Operation) {
			return false
		}
		if refersToColumn(b.Left, r.Column, tableAlias) && literalEquals(b.Right, r.Value) {
			return true
		}
		if refersToColumn(b.Right, r.Column, tableAlias) && literalEquals(b.Left, r.Value) {
			return true
		}
		return false
	}
}

func refersToColumn(e sqlast.Expr, column, tableAlias string) bool {
	cr, ok := e.(*sqlast.ColumnRef)
	if !ok {
		return false
	}
	if !equalFold(cr.Name, column) {
		return false
	}
	if cr.Table == "" {
		return true
	}
	return tableAlias == "" || equalFold(cr.Table, tableAlias)
}

func literalEquals(e sqlast.Expr, v interface{}) bool {
	lit, ok := e.(*sqlast.Literal)
	if !ok {
		return false
	}
	return formatLiteral(v) == lit.Raw || unquotedMatches(lit, v)
}

func unquotedMatches(lit *sqlast.Literal, v interface{}) bool {
	s, isStr := v.(string)
	if !isStr || !lit.IsQuote {
		return false
	}
	return len(lit.Raw) >= 2 && lit.Raw[1:len(lit.Raw)-1] == s
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return asciiLower(a) == asciiLower(b)
	}
	return asciiLower(a) == asciiLower(b)
}

func asciiLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

// buildRestrictionExpr constructs the AST predicate enforcing r,
// optionally qualified by tableAlias when more than one table is
// visible in the enclosing scope.
func buildRestrictionExpr(r policy.Restriction, tableAlias string) sqlast.Expr {
	col := &sqlast.ColumnRef{Table: tableAlias, Name: r.Column}
	switch r.Operation {
	case policy.OpBetween:
		return &sqlast.Between{Operand: col, Low: valueLiteral(r.Values[0]), High: valueLiteral(r.Values[1])}
	case policy.OpIn:
		items := make([]sqlast.Expr, 0, len(r.Values))
		for _, v := range r.Values {
			items = append(items, valueLiteral(v))
		}
		return &sqlast.InExpr{Operand: col, List: items}
	default:
		return &sqlast.BinaryOp{Op: string(r.Operation), Left: col, Right: valueLiteral(r.Value)}
	}
}

func valueLiteral(v interface{}) sqlast.Expr {
	switch t := v.(type) {
	case string:
		return &sqlast.Literal{Raw: "'" + t + "'", IsQuote: true}
	default:
		return &sqlast.Literal{Raw: formatLiteral(t)}
	}
}

// missingRestrictionMessage renders the exact wire-contract string for
// an unsatisfied restriction.
func missingRestrictionMessage(tableName string, r policy.Restriction) string {
	return fmt.Sprintf("Missing restriction for table: %s column: %s value: %s", tableName, r.Column, restrictionValueText(r))
}

func restrictionValueText(r policy.Restriction) string {
	switch r.Operation {
	case policy.OpBetween:
		return fmt.Sprintf("%s AND %s", rawValueText(r.Values[0]), rawValueText(r.Values[1]))
	case policy.OpIn:
		parts := make([]string, 0, len(r.Values))
		for _, v := range r.Values {
			parts = append(parts, rawValueText(v))
		}
		return "(" + joinComma(parts) + ")"
	default:
		return rawValueText(r.Value)
	}
}

func rawValueText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	default:
		return formatLiteral(t)
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// conjoin combines an existing WHERE/HAVING expression with a new
// predicate via AND, wrapping the existing expression in an explicit
// Paren marker. The serializer only renders the parens when the
// existing expression's precedence requires them, so a simple
// existing clause like "account_id = 456" prints without redundant
// parentheses once ANDed with the injected restriction.
func conjoin(existing sqlast.Expr, predicate sqlast.Expr) sqlast.Expr {
	if existing == nil {
		return predicate
	}
	return &sqlast.BinaryOp{Op: "AND", Left: &sqlast.Paren{Inner: existing}, Right: predicate}
}
