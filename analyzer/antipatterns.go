package analyzer

import "github.com/sqlguardian/sqlguardian/sqlast"

// removeAlwaysTrue implements the shallow, syntactic always-true
// detection: the WHERE expression is split into its top-level
// AND-conjuncts, and each conjunct is checked independently — whether
// it is itself a constant-true expression with no column reference, or
// a top-level OR with a constant-true side. A conjunct matching either
// form is dropped (or collapsed to its non-true OR side); the
// surviving conjuncts are rejoined with AND. This catches an
// always-true disjunct nested inside an outer AND, not just one at the
// top of the whole expression.
func removeAlwaysTrue(e sqlast.Expr) (sqlast.Expr, bool) {
	if e == nil {
		return nil, false
	}
	changed := false
	var kept []sqlast.Expr
	for _, clause := range splitConjuncts(e) {
		reduced, removed := reduceAlwaysTrueClause(clause)
		if removed {
			changed = true
		}
		if reduced != nil {
			kept = append(kept, reduced)
		}
	}
	if len(kept) == 0 {
		return nil, changed
	}
	result := kept[0]
	for _, c := range kept[1:] {
		result = &sqlast.BinaryOp{Op: "AND", Left: result, Right: c}
	}
	return result, changed
}

// reduceAlwaysTrueClause checks a single AND-conjunct for being, or
// containing, an always-true disjunct, and returns the clause with any
// always-true OR-side removed.
func reduceAlwaysTrueClause(clause sqlast.Expr) (sqlast.Expr, bool) {
	if isAlwaysTrueWhole(clause) {
		return nil, true
	}
	if b, ok := clause.(*sqlast.BinaryOp); ok && b.Op == "OR" {
		leftTrue := isAlwaysTrueWhole(b.Left)
		rightTrue := isAlwaysTrueWhole(b.Right)
		if leftTrue || rightTrue {
			if leftTrue && rightTrue {
				return nil, true
			}
			if leftTrue {
				return b.Right, true
			}
			return b.Left, true
		}
	}
	return clause, false
}

// expandStar returns the ordered column list a "*" or "t.*" projection
// expands to, given the scope's table bindings in FROM order.
func expandStar(starTable string, bindings []*tableBinding) []string {
	var cols []string
	for _, b := range bindings {
		if starTable != "" {
			key := b.alias
			if key == "" {
				key = b.realName
			}
			if !equalFold(key, starTable) {
				continue
			}
		}
		if b.table != nil {
			cols = append(cols, b.table.Columns...)
		} else {
			cols = append(cols, b.columns...)
		}
	}
	return cols
}
