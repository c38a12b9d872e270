// Package schema defines the typed field, schema, and record types that
// flow through the event ingestion pipeline, and the rules for merging new
// fields into an existing schema without disturbing field positions.
package schema

import (
	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
)

// Field is a single named, typed column. Names are unique within a Schema;
// two fields with the same name and same type are interchangeable, but a
// name clash with differing types is a hard error at reconciliation time.
type Field struct {
	Name     string
	Type     fieldtype.Type
	Nullable bool
}

// NewField returns a Field that is nullable by construction: every field in
// this model is conceptually nullable in the record encoding, since events
// need not carry every known field.
func NewField(name string, typ fieldtype.Type) Field {
	return Field{Name: name, Type: typ, Nullable: true}
}

// Schema is the ordered, append-only field list for one (project,
// collection). Position in Fields is stable: Merge never reorders or
// removes an existing field, it only appends.
type Schema struct {
	Fields []Field
}

// New returns a Schema over the given fields, in the order given.
func New(fields ...Field) Schema {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Schema{Fields: cp}
}

// IndexOf returns the position of the named field, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field and whether it exists.
func (s Schema) Field(name string) (Field, bool) {
	i := s.IndexOf(name)
	if i < 0 {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Has reports whether name exists in the schema.
func (s Schema) Has(name string) bool {
	return s.IndexOf(name) >= 0
}

// Merge returns a new Schema that is the union of s and extra, appending
// any field in extra not already present by name and preserving the
// position of every field already in s. A name collision with a differing
// type is ErrTypeConflict; a collision with a matching type is a no-op for
// that field. Merge never mutates s or extra.
func Merge(s Schema, extra []Field) (Schema, error) {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)

	for _, f := range extra {
		if existing, ok := (Schema{Fields: fields}).Field(f.Name); ok {
			if existing.Type != f.Type {
				return Schema{}, errors.WrapFatal(errors.ErrTypeConflict, "schema", "Merge",
					"field "+f.Name+" type does not match existing field")
			}
			continue
		}
		fields = append(fields, f)
	}
	return Schema{Fields: fields}, nil
}

// Record is a value bound to one specific Schema version. Values are
// addressed positionally; a field with no value stored is nil.
type Record struct {
	schema Schema
	values []any
}

// NewRecord allocates a Record bound to schema, with every field absent
// (nil) initially.
func NewRecord(s Schema) *Record {
	return &Record{schema: s, values: make([]any, len(s.Fields))}
}

// Schema returns the Schema this record is bound to.
func (r *Record) Schema() Schema {
	return r.schema
}

// Set stores value at the position of the named field. It is a no-op if
// name is not present in the record's schema.
func (r *Record) Set(name string, value any) {
	if i := r.schema.IndexOf(name); i >= 0 {
		r.values[i] = value
	}
}

// Get returns the value stored for name, or nil if absent or unset.
func (r *Record) Get(name string) any {
	if i := r.schema.IndexOf(name); i >= 0 {
		return r.values[i]
	}
	return nil
}

// GetAt returns the value at a field position.
func (r *Record) GetAt(pos int) any {
	if pos < 0 || pos >= len(r.values) {
		return nil
	}
	return r.values[pos]
}

// Rebind copies every populated column of r, by name, into a new Record
// bound to target. Used when a schema evolves mid-event: the record built
// against the pre-evolution schema is re-pointed at the canonical
// post-evolution schema without losing already-decoded values.
func (r *Record) Rebind(target Schema) *Record {
	out := NewRecord(target)
	for _, f := range r.schema.Fields {
		if v := r.Get(f.Name); v != nil {
			out.Set(f.Name, v)
		}
	}
	return out
}
