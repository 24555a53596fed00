package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AttributeValueKind tags the variant held by an AttributeValue.
type AttributeValueKind int

const (
	ValueKindText AttributeValueKind = iota
	ValueKindNumber
	ValueKindDate
	ValueKindBoolean
	ValueKindFileRef
	ValueKindOptions
)

// AttributeValue is the typed form of a dynamic attribute value. Values are
// validated and normalized into this union internally and serialized back to
// text only at the storage boundary.
type AttributeValue struct {
	Kind    AttributeValueKind
	Text    string
	Number  float64
	Date    time.Time
	Boolean bool
	FileRef string
	Options []string
}

const attributeDateLayout = "2006-01-02"

// Encode serializes the value into its canonical text representation.
func (v AttributeValue) Encode() string {
	switch v.Kind {
	case ValueKindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueKindDate:
		return v.Date.Format(attributeDateLayout)
	case ValueKindBoolean:
		return strconv.FormatBool(v.Boolean)
	case ValueKindFileRef:
		return v.FileRef
	case ValueKindOptions:
		opts := append([]string(nil), v.Options...)
		sort.Strings(opts)
		return strings.Join(opts, ",")
	default:
		return v.Text
	}
}

// DisplayString renders the value for report output.
func (v AttributeValue) DisplayString() string {
	if v.Kind == ValueKindOptions {
		return strings.Join(v.Options, ", ")
	}
	return v.Encode()
}

// TextValue builds a text variant.
func TextValue(s string) AttributeValue {
	return AttributeValue{Kind: ValueKindText, Text: s}
}

// NumberValue builds a number variant.
func NumberValue(f float64) AttributeValue {
	return AttributeValue{Kind: ValueKindNumber, Number: f}
}

// DateValue builds a date variant (day precision).
func DateValue(t time.Time) AttributeValue {
	return AttributeValue{Kind: ValueKindDate, Date: t}
}

// BooleanValue builds a boolean variant.
func BooleanValue(b bool) AttributeValue {
	return AttributeValue{Kind: ValueKindBoolean, Boolean: b}
}

// FileRefValue builds a file reference variant.
func FileRefValue(path string) AttributeValue {
	return AttributeValue{Kind: ValueKindFileRef, FileRef: path}
}

// OptionsValue builds a select/multiselect variant.
func OptionsValue(opts []string) AttributeValue {
	return AttributeValue{Kind: ValueKindOptions, Options: opts}
}

// ParseDate parses the canonical ISO-8601 date encoding.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(attributeDateLayout, raw)
	if err != nil {
		// accept full timestamps too, truncated to day
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		return ts.Truncate(24 * time.Hour), nil
	}
	return t, nil
}
