package types

import (
	"fmt"
	"regexp"
	"time"
)

// IDField is the key under which every collection stores the store-assigned
// identifier.
const IDField = "_id"

// Document is a schema-less record. Values are scalars (string, bool, the
// integer and float kinds, time.Time, nil), nested Documents, or []any of
// either. Backends normalize what they read into this shape.
type Document map[string]any

// ID returns the store-assigned identifier, or "" if the document has none.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a deep copy of the document. Nested documents and slices are
// copied; scalars are values already.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]any:
		return Document(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// String returns the field as a string. ok is false when the field is
// absent or not a string.
func (d Document) String(field string) (string, bool) {
	s, ok := d[field].(string)
	return s, ok
}

// Int returns the field as an int. Any integer kind is accepted, as is a
// float64 with no fractional part (JSON-decoded numbers).
func (d Document) Int(field string) (int, bool) {
	switch n := d[field].(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Time returns the field as a time.Time.
func (d Document) Time(field string) (time.Time, bool) {
	t, ok := d[field].(time.Time)
	return t, ok
}

// Doc returns the field as a nested Document.
func (d Document) Doc(field string) (Document, bool) {
	switch v := d[field].(type) {
	case Document:
		return v, true
	case map[string]any:
		return Document(v), true
	}
	return nil, false
}

// Has reports whether the field is present, even if its value is nil.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// Condition is one equality predicate of a Query.
type Condition struct {
	Field string
	Value any
}

// Query selects documents by field equality, in insertion order, with
// optional skip and limit. The zero Query matches every document.
type Query struct {
	Conditions []Condition
	Skip       int64
	Limit      int64
}

// Where returns a copy of q with an added equality condition. Field may be a
// dotted path into nested documents.
func (q Query) Where(field string, value any) Query {
	conds := make([]Condition, len(q.Conditions), len(q.Conditions)+1)
	copy(conds, q.Conditions)
	q.Conditions = append(conds, Condition{Field: field, Value: value})
	return q
}

// WithSkip returns a copy of q that skips the first n matches.
func (q Query) WithSkip(n int64) Query {
	q.Skip = n
	return q
}

// WithLimit returns a copy of q that returns at most n matches. Zero means
// no limit.
func (q Query) WithLimit(n int64) Query {
	q.Limit = n
	return q
}

var (
	fieldPathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks field paths and bounds. Condition values must be scalars.
func (q Query) Validate() error {
	if q.Skip < 0 || q.Limit < 0 {
		return fmt.Errorf("%w: negative skip or limit", ErrInvalidQuery)
	}
	for _, c := range q.Conditions {
		if !fieldPathPattern.MatchString(c.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, c.Field)
		}
		switch c.Value.(type) {
		case string, bool, int, int32, int64, float64:
		default:
			return fmt.Errorf("%w: unsupported value type %T for field %q", ErrInvalidQuery, c.Value, c.Field)
		}
	}
	return nil
}

// ValidateChanges checks an update's field set: at least one top-level
// field, never the identifier.
func ValidateChanges(changes Document) error {
	if len(changes) == 0 {
		return fmt.Errorf("%w: empty update", ErrInvalidDocument)
	}
	for field := range changes {
		if field == IDField {
			return fmt.Errorf("%w: %s cannot be updated", ErrInvalidDocument, IDField)
		}
		if !fieldNamePattern.MatchString(field) {
			return fmt.Errorf("%w: field %q", ErrInvalidDocument, field)
		}
	}
	return nil
}
