package analyzer

import (
	"strings"

	"github.com/sqlguardian/sqlguardian/sqlast"
)

// serializeQuery renders q as canonical SQL: uppercase keywords,
// preserved identifier case, minimal parentheses, single-space token
// separation, no trailing whitespace.
func serializeQuery(q sqlast.Query) string {
	switch v := q.(type) {
	case *sqlast.Select:
		return serializeSelect(v)
	case *sqlast.SetOp:
		left := serializeQuery(v.Left)
		right := serializeQuery(v.Right)
		all := ""
		if v.All {
			all = " ALL"
		}
		return left + " " + v.Op + all + " " + right
	case *sqlast.With:
		parts := make([]string, 0, len(v.CTEs))
		for _, cte := range v.CTEs {
			parts = append(parts, cte.Name+" AS ("+serializeQuery(cte.Query)+")")
		}
		return "WITH " + strings.Join(parts, ", ") + " " + serializeQuery(v.Body)
	default:
		return ""
	}
}

func serializeSelect(sel *sqlast.Select) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(serializeProjections(sel.Projections))
	if sel.From != nil {
		b.WriteString(" FROM ")
		b.WriteString(serializeSource(sel.From))
	}
	if sel.Where != nil {
		b.WriteString(" WHERE ")
		b.WriteString(serializeExpr(sel.Where))
	}
	if len(sel.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(serializeExprList(sel.GroupBy))
	}
	if sel.Having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(serializeExpr(sel.Having))
	}
	if len(sel.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(serializeOrderBy(sel.OrderBy))
	}
	if sel.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(serializeExpr(sel.Limit))
	}
	if sel.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(serializeExpr(sel.Offset))
	}
	return b.String()
}

func serializeProjections(projections []*sqlast.Projection) string {
	parts := make([]string, 0, len(projections))
	for _, p := range projections {
		if p.Star {
			if p.StarTable != "" {
				parts = append(parts, p.StarTable+".*")
			} else {
				parts = append(parts, "*")
			}
			continue
		}
		s := serializeExpr(p.Expr)
		if p.Alias != "" {
			s += " AS " + p.Alias
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func serializeSource(src *sqlast.Source) string {
	switch {
	case src.Join != nil:
		left := serializeSource(src.Join.Left)
		right := serializeSource(src.Join.Right)
		kind := "JOIN"
		if src.Join.Kind != "" && src.Join.Kind != "INNER" {
			kind = src.Join.Kind + " JOIN"
		}
		s := left + " " + kind + " " + right
		if src.Join.On != nil {
			s += " ON " + serializeExpr(src.Join.On)
		} else if len(src.Join.Using) > 0 {
			s += " USING (" + strings.Join(src.Join.Using, ", ") + ")"
		}
		return s
	case src.Subquery != nil:
		s := "(" + serializeQuery(src.Subquery) + ")"
		if src.Alias != "" {
			s += " " + src.Alias
		}
		return s
	default:
		s := src.Table
		if src.Alias != "" {
			s += " " + src.Alias
		}
		return s
	}
}

func serializeOrderBy(items []*sqlast.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		s := serializeExpr(it.Expr)
		if it.Desc {
			s += " DESC"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func serializeExprList(exprs []sqlast.Expr) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, serializeExpr(e))
	}
	return strings.Join(parts, ", ")
}

func serializeExpr(e sqlast.Expr) string {
	return serializeOperand(e, 0)
}

// precedence mirrors standard SQL binding strength: OR loosest, then
// AND, then NOT, then comparisons/BETWEEN/IN, then additive, then
// multiplicative. Atoms (columns, literals, calls) never need parens.
func precedenceOf(op string) int {
	switch op {
	case "OR":
		return 1
	case "AND":
		return 2
	case "=", "<", ">", "<=", ">=", "<>", "!=", "LIKE", "ILIKE":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "%":
		return 6
	default:
		return 4
	}
}

func exprPrecedence(e sqlast.Expr) int {
	switch v := e.(type) {
	case *sqlast.BinaryOp:
		return precedenceOf(v.Op)
	case *sqlast.UnaryOp:
		if v.Op == "NOT" {
			return 3
		}
		return 4
	case *sqlast.Between, *sqlast.InExpr:
		return 4
	case *sqlast.Paren:
		return exprPrecedence(v.Inner)
	default:
		return 10
	}
}

func serializeOperand(e sqlast.Expr, minPrec int) string {
	if e == nil {
		return ""
	}
	if p, ok := e.(*sqlast.Paren); ok {
		return serializeOperand(p.Inner, minPrec)
	}
	own := exprPrecedence(e)
	content := serializeExprContent(e)
	if own < minPrec {
		return "(" + content + ")"
	}
	return content
}

func serializeExprContent(e sqlast.Expr) string {
	switch v := e.(type) {
	case *sqlast.ColumnRef:
		if v.Table != "" {
			return v.Table + "." + v.Name
		}
		return v.Name
	case *sqlast.Literal:
		if v.IsBool {
			if v.IsTrue {
				return "TRUE"
			}
			return "FALSE"
		}
		if v.IsNull {
			return "NULL"
		}
		return v.Raw
	case *sqlast.FuncCall:
		if v.Star {
			return v.Name + "(*)"
		}
		args := make([]string, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, serializeExpr(a))
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	case *sqlast.BinaryOp:
		own := precedenceOf(v.Op)
		return serializeOperand(v.Left, own) + " " + v.Op + " " + serializeOperand(v.Right, own+1)
	case *sqlast.UnaryOp:
		switch v.Op {
		case "IS NULL", "IS NOT NULL":
			return serializeOperand(v.Operand, 4) + " " + v.Op
		default:
			return "NOT " + serializeOperand(v.Operand, 3)
		}
	case *sqlast.Between:
		s := serializeOperand(v.Operand, 4)
		if v.Negate {
			s += " NOT BETWEEN "
		} else {
			s += " BETWEEN "
		}
		return s + serializeExpr(v.Low) + " AND " + serializeExpr(v.High)
	case *sqlast.InExpr:
		items := make([]string, 0, len(v.List))
		for _, it := range v.List {
			items = append(items, serializeExpr(it))
		}
		s := serializeOperand(v.Operand, 4)
		if v.Negate {
			s += " NOT IN "
		} else {
			s += " IN "
		}
		return s + "(" + strings.Join(items, ", ") + ")"
	case *sqlast.CaseExpr:
		var b strings.Builder
		b.WriteString("CASE")
		if v.Operand != nil {
			b.WriteString(" " + serializeExpr(v.Operand))
		}
		for _, w := range v.Whens {
			b.WriteString(" WHEN " + serializeExpr(w.Cond) + " THEN " + serializeExpr(w.Then))
		}
		if v.Else != nil {
			b.WriteString(" ELSE " + serializeExpr(v.Else))
		}
		b.WriteString(" END")
		return b.String()
	case *sqlast.ScalarSubquery:
		return "(" + serializeQuery(v.Query) + ")"
	default:
		return ""
	}
}

// whitespaceNormalize collapses runs of whitespace to a single space
// and trims the ends, without touching case or punctuation — used to
// decide whether a canonical re-serialization counts as a change.
func whitespaceNormalize(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
