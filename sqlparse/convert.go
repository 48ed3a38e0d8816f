package sqlparse

import (
	"fmt"
	"strings"

	pg_query "github.com/cossacklabs/pg_query_go/v5"

	"github.com/sqlguardian/sqlguardian/sqlast"
)

// convertStatement converts a single top-level pg_query statement node
// into a sqlast.Query. Only SELECT (including set operations and CTEs
// wrapping a SELECT) converts. INSERT, UPDATE, DELETE, DROP, ALTER TABLE,
// TRUNCATE and CREATE TABLE are reported via UnsupportedStatementError so
// the analyzer can turn them into a reportable, unfixable violation
// rather than an outright parse failure; any other statement kind is a
// ParseError.
func convertStatement(node *pg_query.Node) (sqlast.Query, error) {
	if node == nil {
		return nil, &ParseError{Reason: "empty statement"}
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return convertSelectStmt(n.SelectStmt)
	case *pg_query.Node_InsertStmt:
		return nil, &UnsupportedStatementError{Kind: "INSERT"}
	case *pg_query.Node_UpdateStmt:
		return nil, &UnsupportedStatementError{Kind: "UPDATE"}
	case *pg_query.Node_DeleteStmt:
		return nil, &UnsupportedStatementError{Kind: "DELETE"}
	case *pg_query.Node_DropStmt:
		return nil, &UnsupportedStatementError{Kind: "DROP"}
	case *pg_query.Node_AlterTableStmt:
		return nil, &UnsupportedStatementError{Kind: "ALTER"}
	case *pg_query.Node_TruncateStmt:
		return nil, &UnsupportedStatementError{Kind: "TRUNCATE"}
	case *pg_query.Node_CreateStmt:
		return nil, &UnsupportedStatementError{Kind: "CREATE"}
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported statement kind %T", n)}
	}
}

func convertSelectStmt(sel *pg_query.SelectStmt) (sqlast.Query, error) {
	if sel == nil {
		return nil, &ParseError{Reason: "empty select statement"}
	}

	if sel.Larg != nil || sel.Rarg != nil {
		left, err := convertSelectStmt(sel.Larg)
		if err != nil {
			return nil, err
		}
		right, err := convertSelectStmt(sel.Rarg)
		if err != nil {
			return nil, err
		}
		setOp := &sqlast.SetOp{Op: setOpName(sel.Op), All: sel.All, Left: left, Right: right}
		return wrapWith(sel.WithClause, setOp)
	}

	base, err := buildSelect(sel)
	if err != nil {
		return nil, err
	}
	return wrapWith(sel.WithClause, base)
}

func setOpName(op pg_query.SetOperation) string {
	switch op {
	case pg_query.SetOperation_SETOP_UNION:
		return "UNION"
	case pg_query.SetOperation_SETOP_INTERSECT:
		return "INTERSECT"
	case pg_query.SetOperation_SETOP_EXCEPT:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

func wrapWith(wc *pg_query.WithClause, body sqlast.Query) (sqlast.Query, error) {
	if wc == nil || len(wc.Ctes) == 0 {
		return body, nil
	}
	ctes := make([]*sqlast.CTE, 0, len(wc.Ctes))
	for _, node := range wc.Ctes {
		cteNode, ok := node.Node.(*pg_query.Node_CommonTableExpr)
		if !ok {
			continue
		}
		cte := cteNode.CommonTableExpr
		q, err := convertStatement(cte.Ctequery)
		if err != nil {
			return nil, err
		}
		ctes = append(ctes, &sqlast.CTE{Name: cte.Ctename, Query: q})
	}
	return &sqlast.With{CTEs: ctes, Body: body}, nil
}

func buildSelect(sel *pg_query.SelectStmt) (*sqlast.Select, error) {
	projections, err := convertTargetList(sel.TargetList)
	if err != nil {
		return nil, err
	}
	from, err := convertFromClause(sel.FromClause)
	if err != nil {
		return nil, err
	}
	where, err := convertExprMaybe(sel.WhereClause)
	if err != nil {
		return nil, err
	}
	having, err := convertExprMaybe(sel.HavingClause)
	if err != nil {
		return nil, err
	}
	groupBy, err := convertExprList(sel.GroupClause)
	if err != nil {
		return nil, err
	}
	orderBy, err := convertSortClause(sel.SortClause)
	if err != nil {
		return nil, err
	}
	limit, err := convertExprMaybe(sel.LimitCount)
	if err != nil {
		return nil, err
	}
	offset, err := convertExprMaybe(sel.LimitOffset)
	if err != nil {
		return nil, err
	}
	return &sqlast.Select{
		Projections: projections,
		From:        from,
		Where:       where,
		GroupBy:     groupBy,
		Having:      having,
		OrderBy:     orderBy,
		Limit:       limit,
		Offset:      offset,
	}, nil
}

func convertTargetList(list []*pg_query.Node) ([]*sqlast.Projection, error) {
	projections := make([]*sqlast.Projection, 0, len(list))
	for _, node := range list {
		rtNode, ok := node.Node.(*pg_query.Node_ResTarget)
		if !ok {
			continue
		}
		rt := rtNode.ResTarget
		if star, starTable, ok := starProjection(rt.Val); ok {
			projections = append(projections, &sqlast.Projection{Star: star, StarTable: starTable})
			continue
		}
		expr, err := convertExpr(rt.Val)
		if err != nil {
			return nil, err
		}
		projections = append(projections, &sqlast.Projection{Expr: expr, Alias: rt.Name})
	}
	return projections, nil
}

// starProjection reports whether val is a bare "*" or a qualified
// "t.*" column reference.
func starProjection(val *pg_query.Node) (star bool, starTable string, ok bool) {
	if val == nil {
		return false, "", false
	}
	crNode, isCr := val.Node.(*pg_query.Node_ColumnRef)
	if !isCr {
		return false, "", false
	}
	fields := crNode.ColumnRef.Fields
	if len(fields) == 0 {
		return false, "", false
	}
	last := fields[len(fields)-1]
	if _, isStar := last.Node.(*pg_query.Node_AStar); !isStar {
		return false, "", false
	}
	if len(fields) == 1 {
		return true, "", true
	}
	if s, isStr := fields[0].Node.(*pg_query.Node_String_); isStr {
		return true, s.String_.Sval, true
	}
	return true, "", true
}

func convertFromClause(list []*pg_query.Node) (*sqlast.Source, error) {
	if len(list) == 0 {
		return nil, nil
	}
	sources := make([]*sqlast.Source, 0, len(list))
	for _, node := range list {
		src, err := convertFromItem(node)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	result := sources[0]
	for _, next := range sources[1:] {
		result = &sqlast.Source{Join: &sqlast.Join{Left: result, Right: next, Kind: "CROSS"}}
	}
	return result, nil
}

func convertFromItem(node *pg_query.Node) (*sqlast.Source, error) {
	if node == nil {
		return nil, &ParseError{Reason: "empty FROM item"}
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		rv := n.RangeVar
		alias := ""
		if rv.Alias != nil {
			alias = rv.Alias.Aliasname
		}
		return &sqlast.Source{Table: rv.Relname, Alias: alias}, nil
	case *pg_query.Node_JoinExpr:
		je := n.JoinExpr
		left, err := convertFromItem(je.Larg)
		if err != nil {
			return nil, err
		}
		right, err := convertFromItem(je.Rarg)
		if err != nil {
			return nil, err
		}
		on, err := convertExprMaybe(je.Quals)
		if err != nil {
			return nil, err
		}
		var using []string
		for _, u := range je.UsingClause {
			if s, ok := u.Node.(*pg_query.Node_String_); ok {
				using = append(using, s.String_.Sval)
			}
		}
		return &sqlast.Source{Join: &sqlast.Join{
			Left:  left,
			Right: right,
			Kind:  joinKind(je.Jointype),
			On:    on,
			Using: using,
		}}, nil
	case *pg_query.Node_RangeSubselect:
		rs := n.RangeSubselect
		sub, err := convertStatement(rs.Subquery)
		if err != nil {
			return nil, err
		}
		alias := ""
		if rs.Alias != nil {
			alias = rs.Alias.Aliasname
		}
		return &sqlast.Source{Subquery: sub, Alias: alias}, nil
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported FROM item %T", n)}
	}
}

func joinKind(jt pg_query.JoinType) string {
	switch jt {
	case pg_query.JoinType_JOIN_LEFT:
		return "LEFT"
	case pg_query.JoinType_JOIN_RIGHT:
		return "RIGHT"
	case pg_query.JoinType_JOIN_FULL:
		return "FULL"
	default:
		return "INNER"
	}
}

func convertSortClause(list []*pg_query.Node) ([]*sqlast.OrderItem, error) {
	if len(list) == 0 {
		return nil, nil
	}
	items := make([]*sqlast.OrderItem, 0, len(list))
	for _, node := range list {
		sbNode, ok := node.Node.(*pg_query.Node_SortBy)
		if !ok {
			continue
		}
		sb := sbNode.SortBy
		expr, err := convertExpr(sb.Node)
		if err != nil {
			return nil, err
		}
		items = append(items, &sqlast.OrderItem{Expr: expr, Desc: sb.SortbyDir == pg_query.SortByDir_SORTBY_DESC})
	}
	return items, nil
}

func convertExprMaybe(node *pg_query.Node) (sqlast.Expr, error) {
	if node == nil {
		return nil, nil
	}
	return convertExpr(node)
}

func convertExprList(list []*pg_query.Node) ([]sqlast.Expr, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]sqlast.Expr, 0, len(list))
	for _, node := range list {
		expr, err := convertExpr(node)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func convertExpr(node *pg_query.Node) (sqlast.Expr, error) {
	if node == nil {
		return nil, nil
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_ColumnRef:
		return convertColumnRef(n.ColumnRef)
	case *pg_query.Node_AConst:
		return convertAConst(n.AConst)
	case *pg_query.Node_TypeCast:
		return convertExpr(n.TypeCast.Arg)
	case *pg_query.Node_FuncCall:
		return convertFuncCall(n.FuncCall)
	case *pg_query.Node_AExpr:
		return convertAExpr(n.AExpr)
	case *pg_query.Node_BoolExpr:
		return convertBoolExpr(n.BoolExpr)
	case *pg_query.Node_NullTest:
		return convertNullTest(n.NullTest)
	case *pg_query.Node_CaseExpr:
		return convertCaseExpr(n.CaseExpr)
	case *pg_query.Node_SubLink:
		q, err := convertStatement(n.SubLink.Subselect)
		if err != nil {
			return nil, err
		}
		return &sqlast.ScalarSubquery{Query: q}, nil
	case *pg_query.Node_List:
		// A bare list in expression position (e.g. inside a Paren or a
		// grouping set) is treated as its single element when possible.
		if len(n.List.Items) == 1 {
			return convertExpr(n.List.Items[0])
		}
		return nil, &ParseError{Reason: "unsupported multi-element expression list"}
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported expression node %T", n)}
	}
}

func convertColumnRef(cr *pg_query.ColumnRef) (sqlast.Expr, error) {
	var parts []string
	for _, f := range cr.Fields {
		s, ok := f.Node.(*pg_query.Node_String_)
		if !ok {
			return nil, &ParseError{Reason: "unsupported column reference component"}
		}
		parts = append(parts, s.String_.Sval)
	}
	switch len(parts) {
	case 1:
		return &sqlast.ColumnRef{Name: parts[0]}, nil
	case 2:
		return &sqlast.ColumnRef{Table: parts[0], Name: parts[1]}, nil
	default:
		return &sqlast.ColumnRef{Table: strings.Join(parts[:len(parts)-1], "."), Name: parts[len(parts)-1]}, nil
	}
}

func convertAConst(ac *pg_query.A_Const) (sqlast.Expr, error) {
	switch v := ac.Val.(type) {
	case *pg_query.A_Const_Ival:
		return &sqlast.Literal{Raw: fmt.Sprintf("%d", v.Ival.Ival)}, nil
	case *pg_query.A_Const_Fval:
		return &sqlast.Literal{Raw: v.Fval.Fval}, nil
	case *pg_query.A_Const_Sval:
		return &sqlast.Literal{Raw: quoteSQLString(v.Sval.Sval), IsQuote: true}, nil
	case *pg_query.A_Const_Boolval:
		return &sqlast.Literal{Raw: boolLiteral(v.Boolval.Boolval), IsBool: true, IsTrue: v.Boolval.Boolval}, nil
	case nil:
		return &sqlast.Literal{Raw: "NULL", IsNull: true}, nil
	default:
		return nil, &ParseError{Reason: "unsupported constant literal"}
	}
}

func boolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func convertFuncCall(fc *pg_query.FuncCall) (sqlast.Expr, error) {
	name := ""
	if len(fc.Funcname) > 0 {
		if s, ok := fc.Funcname[len(fc.Funcname)-1].Node.(*pg_query.Node_String_); ok {
			name = s.String_.Sval
		}
	}
	if fc.AggStar {
		return &sqlast.FuncCall{Name: name, Star: true}, nil
	}
	args, err := convertExprList(fc.Args)
	if err != nil {
		return nil, err
	}
	return &sqlast.FuncCall{Name: name, Args: args}, nil
}

func convertAExpr(ae *pg_query.A_Expr) (sqlast.Expr, error) {
	opName := ""
	if len(ae.Name) > 0 {
		if s, ok := ae.Name[0].Node.(*pg_query.Node_String_); ok {
			opName = s.String_.Sval
		}
	}
	switch ae.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		left, err := convertExpr(ae.Lexpr)
		if err != nil {
			return nil, err
		}
		right, err := convertExpr(ae.Rexpr)
		if err != nil {
			return nil, err
		}
		return &sqlast.BinaryOp{Op: opName, Left: left, Right: right}, nil
	case pg_query.A_Expr_Kind_AEXPR_BETWEEN, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		operand, err := convertExpr(ae.Lexpr)
		if err != nil {
			return nil, err
		}
		bounds, err := rexprList(ae.Rexpr)
		if err != nil {
			return nil, err
		}
		if len(bounds) != 2 {
			return nil, &ParseError{Reason: "BETWEEN requires exactly two bounds"}
		}
		low, err := convertExpr(bounds[0])
		if err != nil {
			return nil, err
		}
		high, err := convertExpr(bounds[1])
		if err != nil {
			return nil, err
		}
		return &sqlast.Between{Operand: operand, Low: low, High: high, Negate: ae.Kind == pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN}, nil
	case pg_query.A_Expr_Kind_AEXPR_IN:
		operand, err := convertExpr(ae.Lexpr)
		if err != nil {
			return nil, err
		}
		items, err := rexprList(ae.Rexpr)
		if err != nil {
			return nil, err
		}
		list, err := convertExprList(items)
		if err != nil {
			return nil, err
		}
		return &sqlast.InExpr{Operand: operand, List: list, Negate: opName == "<>"}, nil
	case pg_query.A_Expr_Kind_AEXPR_LIKE, pg_query.A_Expr_Kind_AEXPR_ILIKE:
		left, err := convertExpr(ae.Lexpr)
		if err != nil {
			return nil, err
		}
		right, err := convertExpr(ae.Rexpr)
		if err != nil {
			return nil, err
		}
		op := "LIKE"
		if ae.Kind == pg_query.A_Expr_Kind_AEXPR_ILIKE {
			op = "ILIKE"
		}
		return &sqlast.BinaryOp{Op: op, Left: left, Right: right}, nil
	default:
		return nil, &ParseError{Reason: "unsupported operator expression"}
	}
}

// rexprList unwraps the right-hand side of a BETWEEN/IN A_Expr, which
// libpg_query represents as a Node_List.
func rexprList(node *pg_query.Node) ([]*pg_query.Node, error) {
	if node == nil {
		return nil, &ParseError{Reason: "empty operand list"}
	}
	listNode, ok := node.Node.(*pg_query.Node_List)
	if !ok {
		return []*pg_query.Node{node}, nil
	}
	return listNode.List.Items, nil
}

func convertBoolExpr(be *pg_query.BoolExpr) (sqlast.Expr, error) {
	if be.Boolop == pg_query.BoolExprType_NOT_EXPR {
		if len(be.Args) != 1 {
			return nil, &ParseError{Reason: "NOT expects exactly one operand"}
		}
		operand, err := convertExpr(be.Args[0])
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryOp{Op: "NOT", Operand: operand}, nil
	}
	op := "AND"
	if be.Boolop == pg_query.BoolExprType_OR_EXPR {
		op = "OR"
	}
	if len(be.Args) == 0 {
		return nil, &ParseError{Reason: "boolean expression has no operands"}
	}
	exprs, err := convertExprList(be.Args)
	if err != nil {
		return nil, err
	}
	result := exprs[0]
	for _, next := range exprs[1:] {
		result = &sqlast.BinaryOp{Op: op, Left: result, Right: next}
	}
	return result, nil
}

func convertNullTest(nt *pg_query.NullTest) (sqlast.Expr, error) {
	operand, err := convertExpr(nt.Arg)
	if err != nil {
		return nil, err
	}
	op := "IS NULL"
	if nt.Nulltesttype == pg_query.NullTestType_IS_NOT_NULL {
		op = "IS NOT NULL"
	}
	return &sqlast.UnaryOp{Op: op, Operand: operand}, nil
}

func convertCaseExpr(ce *pg_query.CaseExpr) (sqlast.Expr, error) {
	operand, err := convertExprMaybe(ce.Arg)
	if err != nil {
		return nil, err
	}
	whens := make([]*sqlast.WhenClause, 0, len(ce.Args))
	for _, node := range ce.Args {
		whenNode, ok := node.Node.(*pg_query.Node_CaseWhen)
		if !ok {
			continue
		}
		cond, err := convertExpr(whenNode.CaseWhen.Expr)
		if err != nil {
			return nil, err
		}
		result, err := convertExpr(whenNode.CaseWhen.Result)
		if err != nil {
			return nil, err
		}
		whens = append(whens, &sqlast.WhenClause{Cond: cond, Then: result})
	}
	elseExpr, err := convertExprMaybe(ce.Defresult)
	if err != nil {
		return nil, err
	}
	return &sqlast.CaseExpr{Operand: operand, Whens: whens, Else: elseExpr}, nil
}
