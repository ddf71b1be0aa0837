// Package schema defines the wire types shared by the server and the SDK.
package schema

import (
	"encoding/json"
	"time"
)

// Record is a single stored submission (appointment, feedback or payment).
// Beyond the identifier and creation timestamp the shape is open: whatever
// fields the client sent are kept verbatim and travel through store,
// snapshot and restore untouched.
type Record struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// NewRecord builds a Record from a raw field map, lifting out "id" and
// "createdAt" if the caller supplied them.
func NewRecord(fields map[string]any) Record {
	rec := Record{Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		switch k {
		case "id":
			if s, ok := v.(string); ok {
				rec.ID = s
				continue
			}
		case "createdAt":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					rec.CreatedAt = ts
					continue
				}
			}
		}
		rec.Fields[k] = v
	}
	return rec
}

// Clone returns a deep-enough copy: the field map is copied so callers can
// hold a Record without sharing mutable state with the store.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, CreatedAt: r.CreatedAt, Fields: fields}
}

// MarshalJSON flattens the record: id, createdAt and every extra field all
// live at the top level of the JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["createdAt"] = r.CreatedAt.Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRecord(raw)
	return nil
}
