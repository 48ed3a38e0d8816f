package analyzer

import (
	"testing"

	"github.com/sqlguardian/sqlguardian/policy"
)

func ordersPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	raw := policy.RawPolicy{Tables: []policy.RawTable{
		{
			Name:    "orders",
			Columns: []string{"id", "product_name", "account_id"},
			Restrictions: []policy.RawRestriction{
				{Column: "account_id", Operation: "=", Value: 123},
			},
		},
	}}
	p, err := policy.Validate(raw)
	if err != nil {
		t.Fatalf("building fixture policy: %v", err)
	}
	return p
}

func mustVerify(t *testing.T, sql string, pol *policy.Policy) Verdict {
	t.Helper()
	v, err := Verify(sql, pol, "trino")
	if err != nil {
		t.Fatalf("Verify(%q): %v", sql, err)
	}
	return v
}

func assertFixed(t *testing.T, v Verdict, want string) {
	t.Helper()
	if v.Fixed == nil {
		t.Fatalf("expected fixed %q, got nil", want)
	}
	if *v.Fixed != want {
		t.Fatalf("fixed mismatch:\n got: %s\nwant: %s", *v.Fixed, want)
	}
}

func assertErrors(t *testing.T, v Verdict, want []string) {
	t.Helper()
	if len(v.Errors) != len(want) {
		t.Fatalf("error count mismatch: got %v, want %v", v.Errors, want)
	}
	for i := range want {
		if v.Errors[i] != want[i] {
			t.Fatalf("error[%d] mismatch: got %q, want %q", i, v.Errors[i], want[i])
		}
	}
}

func TestScenario1ColumnAndAlwaysTrueAndMissingRestriction(t *testing.T) {
	v := mustVerify(t, "SELECT id, name FROM orders WHERE 1 = 1", ordersPolicy(t))
	assertErrors(t, v, []string{
		"Column name is not allowed. Column removed from SELECT clause",
		"Always-True expression is not allowed",
		"Missing restriction for table: orders column: account_id value: 123",
	})
	if v.Allowed {
		t.Fatal("expected allowed=false")
	}
	assertFixed(t, v, "SELECT id FROM orders WHERE account_id = 123")
}

func TestScenario2AlreadyCompliant(t *testing.T) {
	v := mustVerify(t, "SELECT id, product_name FROM orders WHERE account_id = 123", ordersPolicy(t))
	if !v.Allowed {
		t.Fatalf("expected allowed=true, errors=%v", v.Errors)
	}
	if len(v.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", v.Errors)
	}
	if v.Fixed != nil {
		t.Fatalf("expected fixed=nil, got %q", *v.Fixed)
	}
}

func TestScenario3MissingRestrictionConjoined(t *testing.T) {
	v := mustVerify(t, "SELECT id FROM orders WHERE account_id = 456", ordersPolicy(t))
	assertErrors(t, v, []string{"Missing restriction for table: orders column: account_id value: 123"})
	assertFixed(t, v, "SELECT id FROM orders WHERE account_id = 456 AND account_id = 123")
}

func TestScenario4AlwaysTrueDisjunctRemoved(t *testing.T) {
	v := mustVerify(t, "SELECT id FROM orders WHERE account_id = 123 OR 1 = 1", ordersPolicy(t))
	assertErrors(t, v, []string{"Always-True expression is not allowed"})
	assertFixed(t, v, "SELECT id FROM orders WHERE account_id = 123")
}

func TestScenario5StarExpanded(t *testing.T) {
	v := mustVerify(t, "SELECT * FROM orders", ordersPolicy(t))
	assertErrors(t, v, []string{
		"SELECT * is not allowed",
		"Missing restriction for table: orders column: account_id value: 123",
	})
	assertFixed(t, v, "SELECT id, product_name, account_id FROM orders WHERE account_id = 123")
}

func TestScenario6ForbiddenJoinTable(t *testing.T) {
	v := mustVerify(t, "SELECT o.id, p.name FROM orders o JOIN products p ON o.pid = p.id", ordersPolicy(t))
	found := false
	for _, e := range v.Errors {
		if e == "Table products is not allowed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected errors to include %q, got %v", "Table products is not allowed", v.Errors)
	}
	if v.Fixed != nil {
		t.Fatalf("expected fixed=nil for an unfixable join, got %q", *v.Fixed)
	}
	if v.Allowed {
		t.Fatal("expected allowed=false")
	}
}

func TestScenario7CTEStarExpanded(t *testing.T) {
	v := mustVerify(t, "WITH c AS (SELECT * FROM orders) SELECT id FROM c", ordersPolicy(t))
	assertErrors(t, v, []string{
		"SELECT * is not allowed",
		"Missing restriction for table: orders column: account_id value: 123",
	})
	assertFixed(t, v, "WITH c AS (SELECT id, product_name, account_id FROM orders WHERE account_id = 123) SELECT id FROM c")
}

func TestIdempotenceOnRepairedOutput(t *testing.T) {
	pol := ordersPolicy(t)
	first := mustVerify(t, "SELECT id FROM orders WHERE account_id = 456", pol)
	if first.Fixed == nil {
		t.Fatal("expected a fixed query to re-check")
	}
	second := mustVerify(t, *first.Fixed, pol)
	if !second.Allowed {
		t.Fatalf("expected the repaired query to be allowed, errors=%v", second.Errors)
	}
	if second.Fixed != nil {
		t.Fatalf("expected no further fix, got %q", *second.Fixed)
	}
}

func TestUnknownTopLevelTableIsUnfixable(t *testing.T) {
	v := mustVerify(t, "SELECT id FROM missing_table", ordersPolicy(t))
	if v.Allowed {
		t.Fatal("expected allowed=false")
	}
	if v.Fixed != nil {
		t.Fatalf("expected fixed=nil, got %q", *v.Fixed)
	}
}

func TestForbiddenStatementKindIsUnfixable(t *testing.T) {
	v := mustVerify(t, "DELETE FROM orders", ordersPolicy(t))
	if v.Allowed {
		t.Fatal("expected allowed=false")
	}
	if v.Fixed != nil {
		t.Fatal("expected fixed=nil for a forbidden statement kind")
	}
	if len(v.Errors) != 1 || v.Errors[0] != "Statement type DELETE is not allowed" {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}
}
