package sqlparse

import (
	"testing"

	"github.com/sqlguardian/sqlguardian/sqlast"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse("SELECT id, product_name FROM orders WHERE account_id = 123", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel, ok := q.(*sqlast.Select)
	if !ok {
		t.Fatalf("expected *sqlast.Select, got %T", q)
	}
	if len(sel.Projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(sel.Projections))
	}
	if sel.From == nil || sel.From.Table != "orders" {
		t.Fatalf("expected FROM orders, got %+v", sel.From)
	}
	if sel.Where == nil {
		t.Fatal("expected a WHERE clause")
	}
}

func TestParseStarProjection(t *testing.T) {
	q, err := Parse("SELECT * FROM orders", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := q.(*sqlast.Select)
	if len(sel.Projections) != 1 || !sel.Projections[0].Star {
		t.Fatalf("expected a single star projection, got %+v", sel.Projections)
	}
}

func TestParseQualifiedStarProjection(t *testing.T) {
	q, err := Parse("SELECT o.* FROM orders o", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := q.(*sqlast.Select)
	if len(sel.Projections) != 1 || !sel.Projections[0].Star || sel.Projections[0].StarTable != "o" {
		t.Fatalf("expected qualified star projection for o, got %+v", sel.Projections)
	}
}

func TestParseJoin(t *testing.T) {
	q, err := Parse("SELECT o.id, p.name FROM orders o JOIN products p ON o.pid = p.id", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := q.(*sqlast.Select)
	if sel.From == nil || sel.From.Join == nil {
		t.Fatalf("expected a join source, got %+v", sel.From)
	}
	if sel.From.Join.Right.Table != "products" {
		t.Fatalf("expected join right side products, got %+v", sel.From.Join.Right)
	}
}

func TestParseCTE(t *testing.T) {
	q, err := Parse("WITH c AS (SELECT * FROM orders) SELECT id FROM c", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	with, ok := q.(*sqlast.With)
	if !ok {
		t.Fatalf("expected *sqlast.With, got %T", q)
	}
	if len(with.CTEs) != 1 || with.CTEs[0].Name != "c" {
		t.Fatalf("unexpected CTE list: %+v", with.CTEs)
	}
}

func TestParseUnion(t *testing.T) {
	q, err := Parse("SELECT id FROM orders UNION SELECT id FROM archived_orders", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := q.(*sqlast.SetOp); !ok {
		t.Fatalf("expected *sqlast.SetOp, got %T", q)
	}
}

func TestParseBetweenAndIn(t *testing.T) {
	q, err := Parse("SELECT id FROM orders WHERE amount BETWEEN 10 AND 100 AND status IN ('open', 'closed')", "trino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := q.(*sqlast.Select)
	if sel.Where == nil {
		t.Fatal("expected a WHERE clause")
	}
}

func TestParseRejectsMultipleStatements(t *testing.T) {
	_, err := Parse("SELECT 1; SELECT 2;", "trino")
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
}

func TestParseRejectsInvalidSQL(t *testing.T) {
	_, err := Parse("SELECT FROM WHERE", "trino")
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
}

func TestParseRejectsForbiddenStatementKind(t *testing.T) {
	_, err := Parse("DELETE FROM orders", "trino")
	uerr, ok := err.(*UnsupportedStatementError)
	if !ok {
		t.Fatalf("expected *UnsupportedStatementError, got %T (%v)", err, err)
	}
	if uerr.Kind != "DELETE" {
		t.Fatalf("expected Kind DELETE, got %q", uerr.Kind)
	}
}
