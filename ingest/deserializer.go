// Package ingest implements the event deserializer: the component that
// drives the rewindable JSON parser across one event, resolves it against
// the schema cache and metastore, evolves the schema when the event
// introduces new fields, and emits a (schema, record) pair.
package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c360/eventschema/dependency"
	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/event"
	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/jsonstream"
	"github.com/c360/eventschema/metastore"
	"github.com/c360/eventschema/schema"
	"github.com/c360/eventschema/schemacache"
)

// Deserializer orchestrates jsonstream, schemacache, a metastore.Metastore,
// and a dependency.Registry to turn a raw event payload into an
// event.Event. A Deserializer is safe for concurrent use by many workers;
// each call to Deserialize owns its own parser and record state.
type Deserializer struct {
	store    metastore.Metastore
	cache    *schemacache.Cache
	registry *dependency.Registry
	onCreate metastore.NewCollectionListener
	logger   *slog.Logger
	metrics  *Metrics
}

// New returns a Deserializer. registry may be dependency.Empty() if no
// module contributes constant or dependent fields. onCreate is invoked,
// via the metastore, exactly once per newly created collection; metrics
// may be nil to disable instrumentation.
func New(store metastore.Metastore, cache *schemacache.Cache, registry *dependency.Registry, onCreate metastore.NewCollectionListener, logger *slog.Logger, metrics *Metrics) *Deserializer {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = dependency.Empty()
	}
	return &Deserializer{store: store, cache: cache, registry: registry, onCreate: onCreate, logger: logger, metrics: metrics}
}

// Deserialize parses payload as a single top-level JSON object with fields
// drawn from {project, collection, properties, ...}, in any order, and
// returns the resulting event.
func (d *Deserializer) Deserialize(ctx context.Context, payload []byte) (event.Event, error) {
	start := time.Now()
	ev, err := d.deserialize(ctx, payload)
	d.metrics.observeDuration(time.Since(start))
	if err != nil {
		d.metrics.recordRejected(rejectReason(err))
		return event.Event{}, err
	}
	d.metrics.recordDecoded(ev.Project)
	return ev, nil
}

func rejectReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrNestedNotSupported):
		return "nested_not_supported"
	case stderrors.Is(err, errors.ErrProjectNotExists):
		return "project_not_exists"
	case stderrors.Is(err, errors.ErrMalformedEvent):
		return "malformed_event"
	case stderrors.Is(err, errors.ErrTypeConflict):
		return "type_conflict"
	default:
		return "unknown"
	}
}

func (d *Deserializer) deserialize(ctx context.Context, payload []byte) (event.Event, error) {
	p := jsonstream.New(payload)

	tok, _, err := p.Token()
	if err != nil {
		return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "read top-level token")
	}
	if tok != fieldtype.TokenStartObject {
		return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "input is not a JSON object")
	}

	var project, collection string
	var havePropertiesSeen bool
	var rec *schema.Record

	for p.More() {
		keyTok, keyVal, err := p.Token()
		if err != nil {
			return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "read field name")
		}
		name, _ := keyVal.(string)
		if keyTok != fieldtype.TokenString {
			return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "field name is not a string")
		}

		switch name {
		case "project":
			v, err := decodeTopLevelString(p)
			if err != nil {
				return event.Event{}, err
			}
			project = v

		case "collection":
			v, err := decodeTopLevelString(p)
			if err != nil {
				return event.Event{}, err
			}
			collection = strings.ToLower(v)

		case "properties":
			if havePropertiesSeen {
				return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "properties present more than once")
			}
			havePropertiesSeen = true

			if project != "" && collection != "" {
				rec, err = d.parseProperties(ctx, project, collection, p)
				if err != nil {
					return event.Event{}, err
				}
			} else {
				if err := p.Save(); err != nil {
					return event.Event{}, errors.Wrap(err, "Deserializer", "Deserialize", "save parser position")
				}
				d.metrics.recordRewind()
				if err := p.Skip(); err != nil {
					return event.Event{}, err
				}
			}

		default:
			if err := p.Skip(); err != nil {
				return event.Event{}, err
			}
		}
	}
	if _, _, err := p.Token(); err != nil && !stderrors.Is(err, io.EOF) {
		return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "read closing brace")
	}

	if project == "" || collection == "" {
		return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "missing project or collection")
	}

	if rec == nil {
		if !p.IsSaved() {
			return event.Event{}, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "properties missing")
		}
		if err := p.Load(); err != nil {
			return event.Event{}, errors.Wrap(err, "Deserializer", "Deserialize", "rewind to properties")
		}
		rec, err = d.parseProperties(ctx, project, collection, p)
		if err != nil {
			return event.Event{}, err
		}
	}

	return event.Event{Project: project, Collection: collection, Record: rec}, nil
}

// decodeTopLevelString reads a single JSON string value for a top-level
// header field.
func decodeTopLevelString(p *jsonstream.Parser) (string, error) {
	tok, v, err := p.Token()
	if err != nil {
		return "", errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "read header value")
	}
	if tok != fieldtype.TokenString {
		return "", errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "Deserialize", "header field is not a string")
	}
	s, _ := v.(string)
	return s, nil
}

// parseProperties resolves the current schema for (project, collection)
// and dispatches to the fast or cold path. p must be positioned with the
// "properties" object's opening brace as the next token.
func (d *Deserializer) parseProperties(ctx context.Context, project, collection string, p *jsonstream.Parser) (*schema.Record, error) {
	if sc, ok := d.cache.Get(project, collection); ok {
		return d.parsePropertiesFast(ctx, project, collection, p, sc)
	}

	sc, ok, err := d.store.GetCollection(ctx, project, collection)
	if err != nil {
		return nil, errors.Wrap(err, "Deserializer", "parseProperties", "metastore lookup")
	}
	if ok {
		d.cache.Put(project, collection, sc)
		return d.parsePropertiesFast(ctx, project, collection, p, sc)
	}

	return d.parsePropertiesCold(ctx, project, collection, p)
}

// parsePropertiesFast implements spec §4.G's fast path: the schema is
// already known, so each property is decoded positionally against it, and
// any field the event introduces is collected and merged in one batch at
// the end.
func (d *Deserializer) parsePropertiesFast(ctx context.Context, project, collection string, p *jsonstream.Parser, sc schema.Schema) (*schema.Record, error) {
	rec := schema.NewRecord(sc)

	tok, _, err := p.Token()
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesFast", "read properties object")
	}
	if tok != fieldtype.TokenStartObject {
		return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesFast", "properties is not an object")
	}

	var newFields []schema.Field
	extended := sc

	for p.More() {
		keyTok, keyVal, err := p.Token()
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesFast", "read property name")
		}
		if keyTok != fieldtype.TokenString {
			return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesFast", "property name is not a string")
		}
		name, _ := keyVal.(string)

		valTok, val, err := readValue(p)
		if err != nil {
			return nil, err
		}

		if f, ok := extended.Field(name); ok {
			decoded, accepted := decodeScalar(f.Type, valTok, val)
			if accepted {
				rec.Set(name, decoded)
			}
			continue
		}

		inferredType, ok, err := fieldtype.FromToken(valTok)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Deserializer", "parsePropertiesFast", "infer type for "+name)
		}
		if !ok {
			continue
		}

		newField := schema.NewField(name, inferredType)
		newFields = append(newFields, newField)
		extended, err = schema.Merge(extended, []schema.Field{newField})
		if err != nil {
			return nil, errors.Wrap(err, "Deserializer", "parsePropertiesFast", "extend temporary schema")
		}
		rec = rec.Rebind(extended)
		rec.Set(name, nativeValue(valTok, val))
	}
	if _, _, err := p.Token(); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesFast", "read properties closing brace")
	}

	if len(newFields) == 0 {
		return rec, nil
	}

	toApply := d.registry.ApplyDependents(newFields)
	toApply = d.registry.ApplyConstants(toApply)

	canonical, err := d.store.CreateOrGetCollectionField(ctx, project, collection, toApply, d.onCreate)
	if err != nil {
		return nil, errors.Wrap(err, "Deserializer", "parsePropertiesFast", "evolve schema")
	}
	d.metrics.recordSchemaEvolved()
	d.cache.Put(project, collection, canonical)

	return rec.Rebind(canonical), nil
}

// parsePropertiesCold implements spec §4.G's cold path: no schema exists
// yet for (project, collection), so the entire properties object is read
// into a generic tree, a schema is inferred from it in one pass, module
// fields are applied, and the collection is created.
func (d *Deserializer) parsePropertiesCold(ctx context.Context, project, collection string, p *jsonstream.Parser) (*schema.Record, error) {
	var tree map[string]any
	if err := p.Decode(&tree); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "parsePropertiesCold", "decode properties")
	}

	var fields []schema.Field
	for name, v := range tree {
		typ, ok, err := fieldtype.FromJSONValue(v)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Deserializer", "parsePropertiesCold", "infer type for "+name)
		}
		if !ok {
			continue
		}
		fields = append(fields, schema.NewField(name, typ))
	}
	// Map iteration order is random; sort by name so the inferred field
	// order is the same for every run over the same properties.
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	fields = d.registry.ApplyConstants(fields)
	fields = d.registry.ApplyDependents(fields)

	if err := d.store.CreateProject(ctx, project); err != nil {
		return nil, errors.Wrap(err, "Deserializer", "parsePropertiesCold", "provision project")
	}

	canonical, err := d.store.CreateOrGetCollectionField(ctx, project, collection, fields, d.onCreate)
	if err != nil {
		return nil, errors.Wrap(err, "Deserializer", "parsePropertiesCold", "create collection")
	}
	d.metrics.recordSchemaEvolved()
	d.cache.Put(project, collection, canonical)

	rec := schema.NewRecord(canonical)
	for _, f := range canonical.Fields {
		v, present := tree[f.Name]
		if !present {
			continue
		}
		typ, ok, err := fieldtype.FromJSONValue(v)
		if err != nil || !ok || typ != f.Type {
			continue
		}
		rec.Set(f.Name, coerceJSONValue(f.Type, v))
	}

	return rec, nil
}

// readValue reads the next JSON value off p, classifying scalars directly
// and materializing array values as a []any of decoded elements. A nested
// object or array-of-array fails with ErrNestedNotSupported.
func readValue(p *jsonstream.Parser) (fieldtype.Token, any, error) {
	tok, v, err := p.Token()
	if err != nil {
		return fieldtype.TokenNull, nil, errors.WrapInvalid(errors.ErrMalformedEvent, "jsonstream", "readValue", "read value token")
	}

	switch tok {
	case fieldtype.TokenStartObject:
		return tok, nil, errors.WrapInvalid(errors.ErrNestedNotSupported, "Deserializer", "readValue", "object-valued property")

	case fieldtype.TokenStartArray:
		var elems []any
		for p.More() {
			elemTok, elemVal, err := p.Token()
			if err != nil {
				return elemTok, nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "readValue", "read array element")
			}
			if elemTok == fieldtype.TokenStartObject || elemTok == fieldtype.TokenStartArray {
				return elemTok, nil, errors.WrapInvalid(errors.ErrNestedNotSupported, "Deserializer", "readValue", "array-of-array or object element")
			}
			elems = append(elems, elemVal)
		}
		if _, _, err := p.Token(); err != nil {
			return fieldtype.TokenStartArray, nil, errors.WrapInvalid(errors.ErrMalformedEvent, "Deserializer", "readValue", "read array closing bracket")
		}
		return fieldtype.TokenStartArray, elems, nil

	default:
		return tok, v, nil
	}
}

// nativeValue converts a just-read token directly to the Go value its
// inferred type naturally holds. Used when a property introduces a brand
// new field: since the type was inferred from this very token, there is
// no declared-type/token mismatch to police, so the fast path's
// drop-on-mismatch table (and its BOOLEAN quirk) does not apply.
func nativeValue(tok fieldtype.Token, val any) any {
	switch tok {
	case fieldtype.TokenInt:
		f, _ := val.(float64)
		return int64(f)
	case fieldtype.TokenStartArray:
		elems, _ := val.([]any)
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			out = append(out, stringifyElement(e))
		}
		return out
	default:
		return val
	}
}

// decodeScalar applies the fast-path scalar decoding table from spec §4.G:
// a token whose kind does not match the declared type is silently
// dropped (accepted=false) rather than rejecting the whole event.
func decodeScalar(declared fieldtype.Type, tok fieldtype.Token, val any) (any, bool) {
	switch declared {
	case fieldtype.STRING:
		if tok == fieldtype.TokenString {
			return val, true
		}
	case fieldtype.LONG:
		if tok == fieldtype.TokenInt {
			f, _ := val.(float64)
			return int64(f), true
		}
	case fieldtype.DOUBLE:
		if tok == fieldtype.TokenFloat {
			return val, true
		}
	case fieldtype.BOOLEAN:
		// Historical quirk: only a string token is accepted, never a JSON
		// true/false literal. See the BOOLEAN decoding decision in
		// DESIGN.md.
		if tok == fieldtype.TokenString {
			s, _ := val.(string)
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, false
			}
			return b, true
		}
	case fieldtype.ARRAY:
		if tok == fieldtype.TokenStartArray {
			elems, _ := val.([]any)
			out := make([]string, 0, len(elems))
			for _, e := range elems {
				out = append(out, stringifyElement(e))
			}
			return out, true
		}
	}
	return nil, false
}

func stringifyElement(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// coerceJSONValue converts a generic decoded JSON value to the Go
// representation a record column of typ expects, used on the cold path
// where the value came from an already fully-decoded tree rather than a
// token stream.
func coerceJSONValue(typ fieldtype.Type, v any) any {
	switch typ {
	case fieldtype.LONG:
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	case fieldtype.ARRAY:
		if arr, ok := v.([]any); ok {
			out := make([]string, 0, len(arr))
			for _, e := range arr {
				out = append(out, stringifyElement(e))
			}
			return out
		}
	}
	return v
}
