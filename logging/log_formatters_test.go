package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPrepareStringEscaping(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "table orders is not allowed", "table orders is not allowed"},
		{"pipe and equals", "a|b=c", `a\|b\=c`},
		{"backslash", `a\b`, `a\\b`},
		{"whitespace collapsed", "a\tb\nc", "a b c"},
		{"surrounding space trimmed", "  padded  ", "padded"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := prepareString(c.in); got != c.want {
				t.Errorf("prepareString(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestNeedsQuoting(t *testing.T) {
	if needsQuoting("sqlguardian_verify") {
		t.Error("identifier-safe key should not need quoting")
	}
	if !needsQuoting("") {
		t.Error("empty key should need quoting")
	}
	if !needsQuoting("has space") {
		t.Error("key with a space should need quoting")
	}
}

func TestFormatCEFLineHeaderAndExtensions(t *testing.T) {
	entry := &logrus.Entry{
		Message: "verify-sql completed",
		Level:   logrus.WarnLevel,
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Data: logrus.Fields{
			FieldKeyVendor:    "sqlguardian",
			FieldKeyProduct:   "sqlguardian",
			FieldKeyVersion:   Version,
			FieldKeyEventCode: EventCodeErrorPolicyLoad,
			"allowed":         false,
			"risk":            0.0,
		},
	}

	line := string(formatCEFLine(entry))

	if !strings.HasPrefix(line, "CEF:0|sqlguardian|sqlguardian|"+Version+"|560|verify-sql completed|3|") {
		t.Fatalf("unexpected CEF header: %q", line)
	}
	if !strings.Contains(line, "allowed=false") {
		t.Errorf("expected allowed=false extension field, got %q", line)
	}
	if !strings.Contains(line, "risk=0") {
		t.Errorf("expected risk extension field, got %q", line)
	}
	// allowed sorts before risk; the rendered order must follow.
	if strings.Index(line, "allowed=") > strings.Index(line, "risk=") {
		t.Errorf("extension fields not rendered in sorted order: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("CEF line must end with a newline")
	}
}

func TestFormatCEFLineEscapesReservedCharacters(t *testing.T) {
	entry := &logrus.Entry{
		Message: "Missing restriction for table: orders column: account_id value: 123",
		Level:   logrus.ErrorLevel,
		Time:    time.Now(),
		Data: logrus.Fields{
			"sql": "SELECT * FROM orders WHERE a=1|b=2",
		},
	}

	line := string(formatCEFLine(entry))
	if !strings.Contains(line, `sql=SELECT * FROM orders WHERE a\=1\|b\=2`) {
		t.Errorf("expected pipe and equals to be escaped in extension value, got %q", line)
	}
}

func TestMergedEntryDoesNotMutateOriginal(t *testing.T) {
	original := &logrus.Entry{
		Message: "m",
		Data:    logrus.Fields{"a": 1},
	}
	merged := mergedEntry(original, logrus.Fields{"b": 2})

	if _, ok := original.Data["b"]; ok {
		t.Error("mergedEntry must not write into the original entry's Data")
	}
	if merged.Data["a"] != 1 || merged.Data["b"] != 2 {
		t.Errorf("merged entry missing expected fields: %#v", merged.Data)
	}
}
