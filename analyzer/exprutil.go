package analyzer

import (
	"fmt"
	"strconv"

	"github.com/sqlguardian/sqlguardian/sqlast"
)

// collectColumnRefs appends every ColumnRef reachable from e, without
// descending into a nested ScalarSubquery (its own scope is checked
// independently).
func collectColumnRefs(e sqlast.Expr, out *[]*sqlast.ColumnRef) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *sqlast.ColumnRef:
		*out = append(*out, v)
	case *sqlast.FuncCall:
		for _, a := range v.Args {
			collectColumnRefs(a, out)
		}
	case *sqlast.BinaryOp:
		collectColumnRefs(v.Left, out)
		collectColumnRefs(v.Right, out)
	case *sqlast.UnaryOp:
		collectColumnRefs(v.Operand, out)
	case *sqlast.Paren:
		collectColumnRefs(v.Inner, out)
	case *sqlast.Between:
		collectColumnRefs(v.Operand, out)
		collectColumnRefs(v.Low, out)
		collectColumnRefs(v.High, out)
	case *sqlast.InExpr:
		collectColumnRefs(v.Operand, out)
		for _, item := range v.List {
			collectColumnRefs(item, out)
		}
	case *sqlast.CaseExpr:
		collectColumnRefs(v.Operand, out)
		for _, w := range v.Whens {
			collectColumnRefs(w.Cond, out)
			collectColumnRefs(w.Then, out)
		}
		collectColumnRefs(v.Else, out)
	}
}

// hasColumnRef reports whether e references any column at all,
// without descending into nested scalar subqueries.
func hasColumnRef(e sqlast.Expr) bool {
	var refs []*sqlast.ColumnRef
	collectColumnRefs(e, &refs)
	return len(refs) > 0
}

// evalConstBool attempts to fold a purely-literal boolean expression
// to a constant. It recognizes a bare TRUE, equality/inequality of two
// literals, and NULL IS [NOT] NULL. It never looks inside a
// subexpression that references a column.
func evalConstBool(e sqlast.Expr) (value bool, ok bool) {
	switch v := e.(type) {
	case *sqlast.Literal:
		if v.IsBool {
			return v.IsTrue, true
		}
		return false, false
	case *sqlast.Paren:
		return evalConstBool(v.Inner)
	case *sqlast.UnaryOp:
		if v.Op == "IS NULL" || v.Op == "IS NOT NULL" {
			lit, isLit := v.Operand.(*sqlast.Literal)
			if !isLit {
				return false, false
			}
			if v.Op == "IS NULL" {
				return lit.IsNull, true
			}
			return !lit.IsNull, true
		}
		return false, false
	case *sqlast.BinaryOp:
		if hasColumnRef(v) {
			return false, false
		}
		left, leftOK := literalValue(v.Left)
		right, rightOK := literalValue(v.Right)
		if !leftOK || !rightOK {
			return false, false
		}
		switch v.Op {
		case "=":
			return left == right, true
		case "<>", "!=":
			return left != right, true
		default:
			leftNum, leftIsNum := strconv.ParseFloat(left, 64)
			rightNum, rightIsNum := strconv.ParseFloat(right, 64)
			if leftIsNum != nil || rightIsNum != nil {
				return false, false
			}
			switch v.Op {
			case "<":
				return leftNum < rightNum, true
			case ">":
				return leftNum > rightNum, true
			case "<=":
				return leftNum <= rightNum, true
			case ">=":
				return leftNum >= rightNum, true
			}
		}
	}
	return false, false
}

// literalValue returns the comparable textual value of a literal
// expression (unquoted for strings), or ok=false for anything else.
func literalValue(e sqlast.Expr) (string, bool) {
	lit, ok := e.(*sqlast.Literal)
	if !ok {
		return "", false
	}
	if lit.IsNull {
		return "", false
	}
	return lit.Raw, true
}

// isAlwaysTrueWhole reports whether e, taken as a whole, is a constant
// true expression with no column reference anywhere inside it.
func isAlwaysTrueWhole(e sqlast.Expr) bool {
	if hasColumnRef(e) {
		return false
	}
	v, ok := evalConstBool(e)
	return ok && v
}

// splitConjuncts flattens a top-level AND-tree (respecting explicit
// parens) into its leaf clauses.
func splitConjuncts(e sqlast.Expr) []sqlast.Expr {
	if e == nil {
		return nil
	}
	if p, ok := e.(*sqlast.Paren); ok {
		return splitConjuncts(p.Inner)
	}
	if b, ok := e.(*sqlast.BinaryOp); ok && b.Op == "AND" {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []sqlast.Expr{e}
}

// formatLiteral renders a policy restriction value as SQL literal text
// (strings single-quoted), the form compared against a query's literals.
// The "Missing restriction" message uses rawValueText instead, which
// leaves strings unquoted and falls back to formatLiteral for other
// non-int values.
func formatLiteral(v interface{}) string {
	switch t := v.(type) {
	case string:
		return "'" + t + "'"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
