package policy

import "testing"

func TestValidateRejectsEmptyTableName(t *testing.T) {
	_, err := Validate(RawPolicy{Tables: []RawTable{{Name: "", Columns: []string{"id"}}}})
	if _, ok := err.(*PolicyError); !ok {
		t.Fatalf("expected *PolicyError, got %T (%v)", err, err)
	}
}

func TestValidateRejectsEmptyColumns(t *testing.T) {
	_, err := Validate(RawPolicy{Tables: []RawTable{{Name: "orders"}}})
	if _, ok := err.(*PolicyError); !ok {
		t.Fatalf("expected *PolicyError, got %T (%v)", err, err)
	}
}

func TestValidateBetweenRequiresAscendingBounds(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"amount"},
		Restrictions: []RawRestriction{
			{Column: "amount", Operation: "BETWEEN", Values: []interface{}{100, 10}},
		},
	}}}
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected error for descending BETWEEN bounds")
	}
}

func TestValidateBetweenAccepted(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"amount"},
		Restrictions: []RawRestriction{
			{Column: "amount", Operation: "BETWEEN", Values: []interface{}{10, 100}},
		},
	}}}
	p, err := Validate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Tables[0].Restrictions[0].Operation != OpBetween {
		t.Fatalf("expected OpBetween, got %v", p.Tables[0].Restrictions[0].Operation)
	}
}

func TestValidateInRequiresHomogeneousValues(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"status"},
		Restrictions: []RawRestriction{
			{Column: "status", Operation: "IN", Values: []interface{}{"open", 1}},
		},
	}}}
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected error for mixed-type IN values")
	}
}

func TestValidateInAccepted(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"status"},
		Restrictions: []RawRestriction{
			{Column: "status", Operation: "IN", Values: []interface{}{"open", "closed"}},
		},
	}}}
	if _, err := Validate(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateEqAcceptsString(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"status"},
		Restrictions: []RawRestriction{
			{Column: "status", Operation: "=", Value: "open"},
		},
	}}}
	if _, err := Validate(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateComparisonRejectsString(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"amount"},
		Restrictions: []RawRestriction{
			{Column: "amount", Operation: ">", Value: "open"},
		},
	}}}
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected error for non-numeric comparison value")
	}
}

func TestValidateRejectsColumnNotInTable(t *testing.T) {
	raw := RawPolicy{Tables: []RawTable{{
		Name:    "orders",
		Columns: []string{"id"},
		Restrictions: []RawRestriction{
			{Column: "account_id", Operation: "=", Value: 1},
		},
	}}}
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected error for restriction column outside table's allowed columns")
	}
}
