// Package natskv implements metastore.Metastore over a NATS JetStream
// KeyValue bucket, using natsclient.KVStore's CAS retry loop to make
// CreateOrGetCollectionField's set-union merge safe under concurrent
// callers racing on the same (project, collection).
package natskv

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/metastore"
	"github.com/c360/eventschema/natsclient"
	"github.com/c360/eventschema/schema"
)

const (
	projectKeyPrefix    = "project."
	collectionKeyPrefix = "collection."
)

// Store is a durable metastore.Metastore backed by a NATS JetStream KV
// bucket. One key per known project (projectKeyPrefix+project, empty
// marker value) and one key per known collection
// (collectionKeyPrefix+project+"."+collection, JSON-encoded schema.Schema).
type Store struct {
	kv     *natsclient.KVStore
	logger *slog.Logger
}

var _ metastore.Metastore = (*Store)(nil)

// New wraps an already-constructed natsclient.KVStore as a Metastore.
func New(kv *natsclient.KVStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

func collectionKey(project, collection string) string {
	return collectionKeyPrefix + project + "." + collection
}

func projectKey(project string) string {
	return projectKeyPrefix + project
}

func (s *Store) GetProjects(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "natskv", "GetProjects", "list keys")
	}

	var out []string
	for _, k := range keys {
		if p, ok := strings.CutPrefix(k, projectKeyPrefix); ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, project string) error {
	_, err := s.kv.Create(ctx, projectKey(project), []byte("{}"))
	if err != nil && !stderrors.Is(err, natsclient.ErrKVKeyExists) {
		return errors.WrapTransient(err, "natskv", "CreateProject", project)
	}
	return nil
}

func (s *Store) GetAllCollections(ctx context.Context) (map[string][]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "natskv", "GetAllCollections", "list keys")
	}

	out := make(map[string][]string)
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, collectionKeyPrefix)
		if !ok {
			continue
		}
		project, collection, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		out[project] = append(out[project], collection)
	}
	for _, k := range keys {
		if p, ok := strings.CutPrefix(k, projectKeyPrefix); ok {
			if _, exists := out[p]; !exists {
				out[p] = nil
			}
		}
	}
	for p := range out {
		sort.Strings(out[p])
	}
	return out, nil
}

func (s *Store) GetCollectionNames(ctx context.Context, project string) ([]string, error) {
	all, err := s.GetAllCollections(ctx)
	if err != nil {
		return nil, err
	}
	return all[project], nil
}

func (s *Store) GetCollections(ctx context.Context, project string) (map[string]schema.Schema, error) {
	names, err := s.GetCollectionNames(ctx, project)
	if err != nil {
		return nil, err
	}

	out := make(map[string]schema.Schema, len(names))
	for _, name := range names {
		sc, ok, err := s.GetCollection(ctx, project, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out[name] = sc
		}
	}
	return out, nil
}

func (s *Store) GetCollection(ctx context.Context, project, collection string) (schema.Schema, bool, error) {
	entry, err := s.kv.Get(ctx, collectionKey(project, collection))
	if err != nil {
		if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
			return schema.Schema{}, false, nil
		}
		return schema.Schema{}, false, errors.Wrap(err, "natskv", "GetCollection", collection)
	}

	sc, err := decodeSchema(entry.Value)
	if err != nil {
		return schema.Schema{}, false, errors.WrapFatal(err, "natskv", "GetCollection", "decode stored schema")
	}
	return sc, true, nil
}

// CreateOrGetCollectionField merges fields into the stored schema through
// natsclient.KVStore.UpdateJSON, whose CAS retry loop makes two concurrent
// callers introducing disjoint fields both succeed: each retry re-reads
// the current revision, re-applies schema.Merge, and races the CAS write
// again on conflict.
func (s *Store) CreateOrGetCollectionField(ctx context.Context, project, collection string, fields []schema.Field, onCreate metastore.NewCollectionListener) (schema.Schema, error) {
	if _, err := s.kv.Get(ctx, projectKey(project)); err != nil {
		if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
			return schema.Schema{}, errors.WrapInvalid(errors.ErrProjectNotExists, "natskv", "CreateOrGetCollectionField", project)
		}
		return schema.Schema{}, errors.Wrap(err, "natskv", "CreateOrGetCollectionField", "check project")
	}

	key := collectionKey(project, collection)
	var created bool
	var merged schema.Schema

	err := s.kv.UpdateJSON(ctx, key, func(current map[string]any) error {
		existing, err := decodeSchemaMap(current)
		if err != nil {
			return err
		}
		created = len(current) == 0

		m, err := schema.Merge(existing, fields)
		if err != nil {
			return err
		}
		merged = m

		encoded, err := encodeSchemaMap(m)
		if err != nil {
			return err
		}
		for k := range current {
			delete(current, k)
		}
		for k, v := range encoded {
			current[k] = v
		}
		return nil
	})
	if err != nil {
		return schema.Schema{}, errors.Wrap(err, "natskv", "CreateOrGetCollectionField", "update schema")
	}

	if created && onCreate != nil {
		onCreate(ctx, metastore.ProjectCollection{Project: project, Collection: collection})
	}
	return merged, nil
}

type storedField struct {
	Name     string `json:"name"`
	Type     int    `json:"type"`
	Nullable bool   `json:"nullable"`
}

type storedSchema struct {
	Fields []storedField `json:"fields"`
}

func decodeSchema(raw []byte) (schema.Schema, error) {
	var ss storedSchema
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ss); err != nil {
			return schema.Schema{}, err
		}
	}
	return toSchema(ss), nil
}

func decodeSchemaMap(m map[string]any) (schema.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return schema.Schema{}, err
	}
	return decodeSchema(raw)
}

func encodeSchemaMap(s schema.Schema) (map[string]any, error) {
	raw, err := json.Marshal(fromSchema(s))
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toSchema(ss storedSchema) schema.Schema {
	fields := make([]schema.Field, len(ss.Fields))
	for i, f := range ss.Fields {
		fields[i] = schema.Field{Name: f.Name, Type: fieldtype.Type(f.Type), Nullable: f.Nullable}
	}
	return schema.New(fields...)
}

func fromSchema(s schema.Schema) storedSchema {
	ss := storedSchema{Fields: make([]storedField, len(s.Fields))}
	for i, f := range s.Fields {
		ss.Fields[i] = storedField{Name: f.Name, Type: int(f.Type), Nullable: f.Nullable}
	}
	return ss
}
