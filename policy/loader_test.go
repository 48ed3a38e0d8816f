package policy

import "testing"

const jsonListPolicy = `{
  "tables": [
    {
      "table_name": "orders",
      "columns": ["id", "product_name", "account_id"],
      "restrictions": [
        { "column": "account_id", "operation": "=", "value": 123 }
      ]
    }
  ]
}`

const jsonMapPolicy = `{
  "tables": {
    "orders": {
      "columns": ["id", "product_name", "account_id"],
      "restrictions": [
        { "column": "account_id", "operation": "=", "value": 123 }
      ]
    }
  }
}`

const yamlListPolicy = `
tables:
  - table_name: orders
    columns: [id, product_name, account_id]
    restrictions:
      - column: account_id
        operation: "="
        value: 123
`

func mustLoad(t *testing.T, data []byte, format string) *Policy {
	t.Helper()
	p, err := Load(data, format)
	if err != nil {
		t.Fatalf("Load(%s): %v", format, err)
	}
	return p
}

func assertOrdersPolicy(t *testing.T, p *Policy) {
	t.Helper()
	table, ok := p.FindTable("orders")
	if !ok {
		t.Fatal("expected table orders to be present")
	}
	if !table.HasColumn("account_id") {
		t.Fatal("expected column account_id to be allowed")
	}
	if len(table.Restrictions) != 1 {
		t.Fatalf("expected 1 restriction, got %d", len(table.Restrictions))
	}
	r := table.Restrictions[0]
	if r.Column != "account_id" || r.Operation != OpEq {
		t.Fatalf("unexpected restriction: %+v", r)
	}
}

func TestLoadJSONListShape(t *testing.T) {
	assertOrdersPolicy(t, mustLoad(t, []byte(jsonListPolicy), FormatJSON))
}

func TestLoadJSONMapShape(t *testing.T) {
	assertOrdersPolicy(t, mustLoad(t, []byte(jsonMapPolicy), FormatJSON))
}

func TestLoadYAMLListShape(t *testing.T) {
	assertOrdersPolicy(t, mustLoad(t, []byte(yamlListPolicy), FormatYAML))
}

func TestLoadSniffsJSONByLeadingBrace(t *testing.T) {
	assertOrdersPolicy(t, mustLoad(t, []byte(jsonListPolicy), ""))
}

func TestLoadSniffsYAMLByDefault(t *testing.T) {
	assertOrdersPolicy(t, mustLoad(t, []byte(yamlListPolicy), ""))
}

func TestLoadRejectsUnsupportedOperation(t *testing.T) {
	bad := `{"tables":[{"table_name":"orders","columns":["id"],"restrictions":[{"column":"id","operation":"LIKE","value":1}]}]}`
	_, err := Load([]byte(bad), FormatJSON)
	if _, ok := err.(*UnsupportedRestrictionError); !ok {
		t.Fatalf("expected *UnsupportedRestrictionError, got %T (%v)", err, err)
	}
}

func TestLoadRejectsUnknownColumnRestriction(t *testing.T) {
	bad := `{"tables":[{"table_name":"orders","columns":["id"],"restrictions":[{"column":"missing","operation":"=","value":1}]}]}`
	_, err := Load([]byte(bad), FormatJSON)
	if _, ok := err.(*PolicyError); !ok {
		t.Fatalf("expected *PolicyError, got %T (%v)", err, err)
	}
}
