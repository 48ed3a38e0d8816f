package analyzer

import (
	"strings"

	"github.com/sqlguardian/sqlguardian/policy"
	"github.com/sqlguardian/sqlguardian/sqlast"
)

// tableBinding is what an alias (or bare table name) resolves to
// within a scope: either a real policy table, whose restrictions the
// enforcer must satisfy, or a virtual one (a CTE or a derived-table
// subquery), whose only relevance is the set of columns it exposes to
// the enclosing query.
type tableBinding struct {
	alias    string
	realName string
	table    *policy.Table
	columns  []string
}

func (b *tableBinding) hasColumn(name string) bool {
	if b.table != nil {
		return b.table.HasColumn(name)
	}
	for _, c := range b.columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// scope is the lexical region introduced by a Select, With, or
// subquery boundary. Ordinary FROM bindings are local to the level
// that introduces them; CTE bindings are visible to the With body and
// any nested scope beneath it, and shadow outer tables of the same
// name.
type scope struct {
	parent  *scope
	tables  []*tableBinding
	cteDefs map[string]*tableBinding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent}
}

func (s *scope) bindTable(b *tableBinding) {
	s.tables = append(s.tables, b)
}

func (s *scope) defineCTE(name string, b *tableBinding) {
	if s.cteDefs == nil {
		s.cteDefs = make(map[string]*tableBinding)
	}
	s.cteDefs[strings.ToLower(name)] = b
}

func (s *scope) findCTE(name string) (*tableBinding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.cteDefs != nil {
			if b, ok := cur.cteDefs[strings.ToLower(name)]; ok {
				return b, true
			}
		}
	}
	return nil, false
}

// lookupTable resolves an alias or bare table name against this
// scope's own FROM bindings only (CTE names are resolved separately,
// before falling back to the policy).
func (s *scope) lookupTable(aliasOrName string) (*tableBinding, bool) {
	for _, b := range s.tables {
		key := b.alias
		if key == "" {
			key = b.realName
		}
		if strings.EqualFold(key, aliasOrName) {
			return b, true
		}
	}
	return nil, false
}

// outputColumns lists the column names a query exposes to whatever
// binds it as a virtual table (a CTE name or a derived-table alias).
// By the time this runs, the column checker has already expanded
// every star projection, so only named projections remain.
func outputColumns(q sqlast.Query) []string {
	switch v := q.(type) {
	case *sqlast.Select:
		var cols []string
		for _, p := range v.Projections {
			if p.Star {
				continue
			}
			name := p.Alias
			if name == "" {
				if cr, ok := p.Expr.(*sqlast.ColumnRef); ok {
					name = cr.Name
				}
			}
			if name != "" {
				cols = append(cols, name)
			}
		}
		return cols
	case *sqlast.SetOp:
		return outputColumns(v.Left)
	case *sqlast.With:
		return outputColumns(v.Body)
	default:
		return nil
	}
}

// resolveColumn finds the binding that owns a (possibly qualified)
// column reference. An unqualified reference must be unambiguous
// across all bindings visible in this scope.
func (s *scope) resolveColumn(table, column string) (*tableBinding, bool) {
	if table != "" {
		b, ok := s.lookupTable(table)
		return b, ok
	}
	var found *tableBinding
	for _, b := range s.tables {
		if b.hasColumn(column) {
			if found != nil {
				return nil, false
			}
			found = b
		}
	}
	if found == nil {
		return nil, false
	}
	return found, true
}
