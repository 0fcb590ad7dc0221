package bubble

import (
	"time"
)

// Bubble field names present on every record.
const (
	fieldID       = "_id"
	fieldModified = "Modified Date"
	fieldCreated  = "Created Date"
)

// timeLayouts are the timestamp formats Bubble emits. The Data API
// normally returns RFC3339 with milliseconds, older records sometimes
// come back without the fraction.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
}

// Record is one raw object from the Bubble Data API. Field names are
// the display names Bubble exposes, spaces included.
type Record map[string]any

// ID returns the record's unique Bubble ID.
func (r Record) ID() string {
	return r.String(fieldID)
}

// Modified returns the record's Modified Date, zero if absent or unparseable.
func (r Record) Modified() time.Time {
	return r.Time(fieldModified)
}

// Created returns the record's Created Date, zero if absent or unparseable.
func (r Record) Created() time.Time {
	return r.Time(fieldCreated)
}

// String returns the named field as a string, "" when absent or not a string.
func (r Record) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// StringList returns the named field as a string slice. Bubble list
// fields decode as []any; non-string members are dropped.
func (r Record) StringList(field string) []string {
	raw, ok := r[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Float returns the named field as a float64, 0 when absent or not numeric.
func (r Record) Float(field string) float64 {
	if v, ok := r[field].(float64); ok {
		return v
	}
	return 0
}

// Bool returns the named field as a bool, false when absent.
func (r Record) Bool(field string) bool {
	if v, ok := r[field].(bool); ok {
		return v
	}
	return false
}

// Time parses the named field as a Bubble timestamp. Returns the zero
// time when the field is absent or not parseable.
func (r Record) Time(field string) time.Time {
	s, ok := r[field].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// TimePtr is Time with absent values as nil, for nullable columns.
func (r Record) TimePtr(field string) *time.Time {
	t := r.Time(field)
	if t.IsZero() {
		return nil
	}
	return &t
}
