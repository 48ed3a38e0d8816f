package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Version is the logging field stamped onto every JSON/CEF entry identifying this build.
const Version = "0.1.0"

// TextFormatter returns the plaintext formatter used by default.
func TextFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		QuoteEmptyFields: true,
	}
}

// JSONFormatter returns a formatter that stamps fields onto every entry
// before handing it to logrus's own JSON encoder.
func JSONFormatter(fields logrus.Fields) logrus.Formatter {
	withDefaults(fields, extraJSONFields)
	return jsonFormatter{
		Formatter: &logrus.JSONFormatter{
			FieldMap:        JSONFieldMap,
			TimestampFormat: time.RFC3339,
		},
		Fields: fields,
	}
}

// CEFFormatter returns a formatter that stamps fields onto every entry
// and renders it as a single CEF line.
func CEFFormatter(fields logrus.Fields) logrus.Formatter {
	withDefaults(fields, extraJSONFields)
	withDefaults(fields, extraCEFFields)
	return cefFormatter{Fields: fields}
}

// withDefaults fills any key in defaults not already present in fields.
func withDefaults(fields, defaults logrus.Fields) {
	for k, v := range defaults {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
}

// jsonFormatter stamps Fields onto every entry before delegating to the
// wrapped logrus.Formatter.
type jsonFormatter struct {
	logrus.Formatter
	logrus.Fields
}

// cefFormatter stamps Fields onto every entry before rendering it as CEF.
type cefFormatter struct {
	logrus.Fields
}

var (
	// extraJSONFields carries this build's product identity onto every
	// JSON and CEF entry unless the caller already set the same key.
	extraJSONFields = logrus.Fields{
		FieldKeyProduct:  "sqlguardian",
		FieldKeyUnixTime: 0,
		FieldKeyVersion:  Version,
	}

	extraCEFFields = logrus.Fields{
		FieldKeyVendor:    "sqlguardian",
		FieldKeyEventCode: 0,
	}

	// JSONFieldMap renames logrus's own reserved keys to this module's
	// wire names.
	JSONFieldMap = logrus.FieldMap{
		logrus.FieldKeyTime:  "timestamp",
		logrus.FieldKeyMsg:   "msg",
		logrus.FieldKeyLevel: "level",
	}
)

// Format renders e as JSON. The entry passed to the underlying
// logrus.JSONFormatter is a merged copy; e itself is never mutated.
func (f jsonFormatter) Format(e *logrus.Entry) ([]byte, error) {
	f.Fields[FieldKeyUnixTime] = unixMillis(e.Time)
	return f.Formatter.Format(mergedEntry(e, f.Fields))
}

// Format renders e as a single CEF line.
func (f cefFormatter) Format(e *logrus.Entry) ([]byte, error) {
	f.Fields[FieldKeyUnixTime] = unixMillis(e.Time)
	return formatCEFLine(mergedEntry(e, f.Fields)), nil
}

// mergedEntry returns a new entry carrying e's message/level/time and the
// union of fields and e.Data, with fields losing to e.Data on conflict.
func mergedEntry(e *logrus.Entry, fields logrus.Fields) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+len(e.Data))
	for k, v := range fields {
		data[k] = v
	}
	for k, v := range e.Data {
		data[k] = v
	}
	return &logrus.Entry{Message: e.Message, Level: e.Level, Time: e.Time, Data: data}
}

func unixMillis(t time.Time) string {
	millis := t.UnixNano() / 1e6
	return fmt.Sprintf("%.3f", float64(millis)/1000.0)
}

// ---------- CEF rendering
//
// Loosely compatible with the CEF format:
// https://kc.mcafee.com/resources/sites/MCAFEE/content/live/CORP_KNOWLEDGEBASE/78000/KB78712/en_US/CEF_White_Paper_20100722.pdf
//
// Any entry field not part of the fixed CEF header becomes an
// extension key=value pair, emitted in sorted order for a stable line.
// ----------

const cefVersionPrefix = "CEF:0"
const cefFieldDivider = "|"

// Default key names for the default fields
const (
	FieldKeyUnixTime  = "unixTime"
	FieldKeyProduct   = "product"
	FieldKeyVersion   = "version"
	FieldKeySeverity  = "severity"
	FieldKeyVendor    = "vendor"
	FieldKeyEventCode = "code"
)

var cefHeaderKeys = []string{FieldKeyVendor, FieldKeyProduct, FieldKeyVersion, FieldKeyEventCode}

func formatCEFLine(entry *logrus.Entry) []byte {
	var b bytes.Buffer
	b.WriteString(cefVersionPrefix)

	// |Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|
	for _, key := range cefHeaderKeys {
		writeCEFHeaderField(&b, entry.Data[key])
	}
	writeCEFHeaderField(&b, entry.Message)
	writeCEFHeaderField(&b, severityByLevel(entry.Level))

	b.WriteString(cefFieldDivider)

	for _, key := range sortedExtensionKeys(entry.Data) {
		writeCEFExtensionField(&b, key, entry.Data[key])
	}

	b.WriteByte('\n')
	return b.Bytes()
}

func writeCEFHeaderField(b *bytes.Buffer, value interface{}) {
	b.WriteString(cefFieldDivider)
	b.WriteString(escapeCEFValue(value))
}

func writeCEFExtensionField(b *bytes.Buffer, key string, value interface{}) {
	escapedKey := escapeCEFValue(key)
	if needsQuoting(escapedKey) {
		escapedKey = fmt.Sprintf("%q", escapedKey)
	}
	b.WriteString(escapedKey)
	b.WriteByte('=')
	b.WriteString(escapeCEFValue(value))
	b.WriteByte(' ')
}

// escapeCEFValue stringifies and escapes value per CEF's rules. An empty
// result still renders as a single space: CEF has no notion of quoting a
// value, so an empty field must occupy its column some other way.
func escapeCEFValue(value interface{}) string {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	s = prepareString(s)
	if s == "" {
		return " "
	}
	return s
}

// sortedExtensionKeys returns every key in data outside the fixed CEF
// header, sorted, so repeated calls on equivalent field sets render the
// same line.
func sortedExtensionKeys(data logrus.Fields) []string {
	reserved := map[string]bool{
		FieldKeyVendor: true, FieldKeyProduct: true, FieldKeyVersion: true,
		FieldKeyEventCode: true, FieldKeySeverity: true,
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// prepareString trims surrounding whitespace, replaces newlines and tabs
// with spaces, and backslash-escapes the characters CEF reserves as
// delimiters (\, | and =) so a field value can never be mistaken for the
// next field or key/value pair.
func prepareString(value string) string {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\t", " ")
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "|", `\|`)
	v = strings.ReplaceAll(v, "=", `\=`)
	return v
}

func severityByLevel(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel:
		return 0
	case logrus.InfoLevel:
		return 1
	case logrus.WarnLevel:
		return 3
	case logrus.ErrorLevel:
		return 6
	case logrus.FatalLevel:
		return 8
	case logrus.PanicLevel:
		return 10
	default:
		return 0
	}
}

func needsQuoting(text string) bool {
	if text == "" {
		return true
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == '/' || ch == '@' || ch == '^' || ch == '+') {
			return true
		}
	}
	return false
}
