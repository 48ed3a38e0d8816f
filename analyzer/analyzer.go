// Package analyzer is the query analyzer/rewriter: it parses a SQL
// statement, resolves its scopes against a policy, checks columns and
// restrictions, detects anti-patterns, and returns a verdict plus a
// minimally-repaired query. This is the core the rest of the module
// (loader, CLI, HTTP server, risk scorer) calls and renders.
package analyzer

import (
	"fmt"

	"github.com/sqlguardian/sqlguardian/policy"
	"github.com/sqlguardian/sqlguardian/sqlast"
	"github.com/sqlguardian/sqlguardian/sqlparse"
)

// InternalError reports a bug in the analyzer itself: a node the
// scope resolver or checker did not know how to handle. Verify never
// panics; an invariant violation is wrapped here instead.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal analyzer error: %s", e.Reason)
}

// Verify is the analyzer's entry point: it parses sql under the given
// dialect tag, walks it against pol, and returns the verdict. Input
// errors (malformed policy — never produced here since pol is already
// validated — unparseable SQL) are returned as a plain error and never
// placed into a Verdict. Every discoverable policy violation is
// reported; analysis never aborts partway through.
func Verify(sql string, pol *policy.Policy, dialect string) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Reason: fmt.Sprintf("%v", r)}
		}
	}()

	q, perr := sqlparse.Parse(sql, dialect)
	if perr != nil {
		if uerr, ok := perr.(*sqlparse.UnsupportedStatementError); ok {
			agg := &aggregator{errors: []string{}}
			agg.addError(uerr.Error())
			agg.markUnfixable()
			return agg.verdict("", false), nil
		}
		return Verdict{}, perr
	}

	a := &analyzerState{policy: pol, agg: &aggregator{errors: []string{}}}
	mutated, verr := a.visitQuery(q, nil)
	if verr != nil {
		return Verdict{}, verr
	}

	fixedText := serializeQuery(mutated)
	changed := fixedText != whitespaceNormalize(sql)
	return a.agg.verdict(fixedText, changed), nil
}

type analyzerState struct {
	policy *policy.Policy
	agg    *aggregator
}

func (a *analyzerState) visitQuery(q sqlast.Query, parent *scope) (sqlast.Query, error) {
	switch v := q.(type) {
	case *sqlast.Select:
		return a.visitSelect(v, parent)
	case *sqlast.SetOp:
		left, err := a.visitQuery(v.Left, parent)
		if err != nil {
			return nil, err
		}
		right, err := a.visitQuery(v.Right, parent)
		if err != nil {
			return nil, err
		}
		v.Left, v.Right = left, right
		return v, nil
	case *sqlast.With:
		s := newScope(parent)
		for _, cte := range v.CTEs {
			mutatedCTE, err := a.visitQuery(cte.Query, s)
			if err != nil {
				return nil, err
			}
			cte.Query = mutatedCTE
			s.defineCTE(cte.Name, &tableBinding{alias: cte.Name, columns: outputColumns(mutatedCTE)})
		}
		body, err := a.visitQuery(v.Body, s)
		if err != nil {
			return nil, err
		}
		v.Body = body
		return v, nil
	default:
		return nil, &InternalError{Reason: fmt.Sprintf("unhandled query node %T", v)}
	}
}

func (a *analyzerState) visitSelect(sel *sqlast.Select, parent *scope) (*sqlast.Select, error) {
	s := newScope(parent)

	if sel.From != nil {
		newFrom, err := a.visitSource(sel.From, s)
		if err != nil {
			return nil, err
		}
		sel.From = newFrom
	}

	sel.Projections = a.checkProjections(sel.Projections, s)
	if len(sel.Projections) == 0 {
		a.agg.addError("No legal elements in SELECT clause")
		a.agg.markUnfixable()
	}

	a.checkPredicateColumns(sel.Where, s)
	a.checkPredicateColumns(sel.Having, s)

	if sel.Where != nil {
		newWhere, removed := removeAlwaysTrue(sel.Where)
		if removed {
			a.agg.addError("Always-True expression is not allowed")
		}
		sel.Where = newWhere
	}

	sel.Where = a.enforceRestrictions(sel.Where, s)

	return sel, nil
}

func (a *analyzerState) visitSource(src *sqlast.Source, s *scope) (*sqlast.Source, error) {
	switch {
	case src.Join != nil:
		left, err := a.visitSource(src.Join.Left, s)
		if err != nil {
			return nil, err
		}
		right, err := a.visitSource(src.Join.Right, s)
		if err != nil {
			return nil, err
		}
		src.Join.Left, src.Join.Right = left, right
		return src, nil
	case src.Subquery != nil:
		mutated, err := a.visitQuery(src.Subquery, s)
		if err != nil {
			return nil, err
		}
		src.Subquery = mutated
		s.bindTable(&tableBinding{alias: src.Alias, columns: outputColumns(mutated)})
		return src, nil
	default:
		name := src.Table
		key := firstNonEmpty(src.Alias, name)
		if cte, ok := s.findCTE(name); ok {
			s.bindTable(&tableBinding{alias: key, realName: name, columns: cte.columns})
			return src, nil
		}
		table, ok := a.policy.FindTable(name)
		if !ok {
			a.agg.addError(fmt.Sprintf("Table %s is not allowed", name))
			a.agg.markUnfixable()
			s.bindTable(&tableBinding{alias: key, realName: name})
			return src, nil
		}
		s.bindTable(&tableBinding{alias: key, realName: name, table: table})
		return src, nil
	}
}

// checkProjections performs star expansion and strips any projected
// column not allowed by policy; the empty-projection-list check is
// handled by the caller once this returns.
func (a *analyzerState) checkProjections(projections []*sqlast.Projection, s *scope) []*sqlast.Projection {
	var out []*sqlast.Projection
	for _, p := range projections {
		if p.Star {
			a.agg.addError("SELECT * is not allowed")
			for _, col := range expandStar(p.StarTable, s.tables) {
				out = append(out, &sqlast.Projection{Expr: &sqlast.ColumnRef{Name: col}})
			}
			continue
		}
		var refs []*sqlast.ColumnRef
		collectColumnRefs(p.Expr, &refs)
		legal := true
		for _, r := range refs {
			if !columnAllowed(r, s) {
				legal = false
				a.agg.addError(fmt.Sprintf("Column %s is not allowed. Column removed from SELECT clause", r.Name))
			}
		}
		if legal {
			out = append(out, p)
		}
	}
	return out
}

// checkPredicateColumns implements the column-legality-only check for
// WHERE/HAVING: a disallowed column is a violation but the predicate
// itself is left untouched.
func (a *analyzerState) checkPredicateColumns(e sqlast.Expr, s *scope) {
	var refs []*sqlast.ColumnRef
	collectColumnRefs(e, &refs)
	for _, r := range refs {
		if !columnAllowed(r, s) {
			a.agg.addError(fmt.Sprintf("Column %s is not allowed in predicate", r.Name))
		}
	}
}

func columnAllowed(r *sqlast.ColumnRef, s *scope) bool {
	b, ok := s.resolveColumn(r.Table, r.Name)
	return ok && b.hasColumn(r.Name)
}

func (a *analyzerState) enforceRestrictions(where sqlast.Expr, s *scope) sqlast.Expr {
	clauses := splitConjuncts(where)
	newWhere := where
	qualify := len(s.tables) > 1
	for _, b := range s.tables {
		if b.table == nil {
			continue
		}
		alias := ""
		if qualify {
			alias = firstNonEmpty(b.alias, b.realName)
		}
		for _, r := range b.table.Restrictions {
			if restrictionSatisfied(clauses, r, alias) {
				continue
			}
			a.agg.addError(missingRestrictionMessage(b.realName, r))
			pred := buildRestrictionExpr(r, alias)
			newWhere = conjoin(newWhere, pred)
			clauses = append(clauses, pred)
		}
	}
	return newWhere
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
