package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Format tags accepted by Load.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// wireTable is the canonical list-shape table entry, matching the JSON
// schema documented for the programmatic contract.
type wireTable struct {
	TableName    string            `json:"table_name" yaml:"table_name"`
	Columns      []string          `json:"columns" yaml:"columns"`
	Restrictions []wireRestriction `json:"restrictions" yaml:"restrictions"`
}

type wireRestriction struct {
	Column    string        `json:"column" yaml:"column"`
	Operation string        `json:"operation" yaml:"operation"`
	Value     interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
	Values    []interface{} `json:"values,omitempty" yaml:"values,omitempty"`
}

// legacyTableBody is the body of a table entry in the legacy
// map-of-name-to-body shape: no table_name field, the map key supplies it.
type legacyTableBody struct {
	Columns      []string          `json:"columns" yaml:"columns"`
	Restrictions []wireRestriction `json:"restrictions" yaml:"restrictions"`
}

// wireTables tolerates either the canonical list-of-tables shape or the
// legacy map-of-tables shape; it always normalizes to the list form.
type wireTables []wireTable

// UnmarshalJSON normalizes list-of-tables and map-of-tables input.
func (t *wireTables) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []wireTable
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = wireTables(list)
		return nil
	}
	var m map[string]legacyTableBody
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = normalizeLegacyTables(m)
	return nil
}

// UnmarshalYAML normalizes list-of-tables and map-of-tables input.
func (t *wireTables) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []wireTable
	if err := unmarshal(&list); err == nil {
		*t = wireTables(list)
		return nil
	}
	var m map[string]legacyTableBody
	if err := unmarshal(&m); err != nil {
		return err
	}
	*t = normalizeLegacyTables(m)
	return nil
}

func normalizeLegacyTables(m map[string]legacyTableBody) wireTables {
	list := make([]wireTable, 0, len(m))
	for name, body := range m {
		list = append(list, wireTable{TableName: name, Columns: body.Columns, Restrictions: body.Restrictions})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TableName < list[j].TableName })
	return list
}

type wireDocument struct {
	Tables wireTables `json:"tables" yaml:"tables"`
}

// Load decodes a policy document in the given format ("json" or "yaml"),
// normalizes the legacy map-of-tables shape to the canonical list shape,
// and validates the result. An empty format sniffs the content: a
// leading '{' or '[' is treated as JSON, anything else as YAML.
func Load(data []byte, format string) (*Policy, error) {
	if format == "" {
		format = sniffFormat(data)
	}
	var doc wireDocument
	switch strings.ToLower(format) {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding json policy: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding yaml policy: %w", err)
		}
	default:
		return nil, &PolicyError{Reason: fmt.Sprintf("unknown policy format %q", format)}
	}
	raw := RawPolicy{Tables: make([]RawTable, 0, len(doc.Tables))}
	for _, wt := range doc.Tables {
		rt := RawTable{Name: wt.TableName, Columns: wt.Columns}
		for _, wr := range wt.Restrictions {
			rt.Restrictions = append(rt.Restrictions, RawRestriction{
				Column: wr.Column, Operation: wr.Operation, Value: wr.Value, Values: wr.Values,
			})
		}
		raw.Tables = append(raw.Tables, rt)
	}
	return Validate(raw)
}

func sniffFormat(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}
