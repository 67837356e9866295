// Package model defines the shape records take between the store and the
// HTTP layer.
//
// Every resource shares the same envelope: a server-assigned integer id and
// two timestamps. Everything else is declared per resource in
// internal/resource, so a record is carried as a map keyed by the field's
// JSON name rather than as twelve hand-written structs.
package model

// Field names the store sets itself. Clients never write them.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is one persisted row, keyed by JSON field name.
type Record map[string]any

// ID returns the record's identifier, or 0 if it has none yet.
func (r Record) ID() int64 {
	switch v := r[FieldID].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// IDs returns the connected ids stored under a relation field.
func (r Record) IDs(field string) []int64 {
	ids, _ := r[field].([]int64)
	return ids
}

// Clone returns a shallow copy; relation slices are copied too.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if ids, ok := v.([]int64); ok {
			v = append([]int64(nil), ids...)
		}
		out[k] = v
	}
	return out
}
