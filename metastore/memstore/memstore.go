// Package memstore implements metastore.Metastore entirely in memory. It
// carries no external dependency and exists as the reference/testing
// Metastore used by the deserializer's own tests and by any caller that
// does not need durability across restarts.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/metastore"
	"github.com/c360/eventschema/schema"
)

type collectionKey struct {
	project    string
	collection string
}

// Store is an in-memory metastore.Metastore. The zero value is not usable;
// construct with New.
type Store struct {
	mu          sync.Mutex
	projects    map[string]struct{}
	collections map[collectionKey]schema.Schema
}

var _ metastore.Metastore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:    make(map[string]struct{}),
		collections: make(map[collectionKey]schema.Schema),
	}
}

func (s *Store) GetProjects(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.projects))
	for p := range s.projects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateProject(_ context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[project] = struct{}{}
	return nil
}

func (s *Store) GetAllCollections(_ context.Context) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string)
	for k := range s.collections {
		out[k.project] = append(out[k.project], k.collection)
	}
	for p := range s.projects {
		if _, ok := out[p]; !ok {
			out[p] = nil
		}
	}
	for p := range out {
		sort.Strings(out[p])
	}
	return out, nil
}

func (s *Store) GetCollectionNames(_ context.Context, project string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for k := range s.collections {
		if k.project == project {
			out = append(out, k.collection)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetCollections(_ context.Context, project string) (map[string]schema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]schema.Schema)
	for k, v := range s.collections {
		if k.project == project {
			out[k.collection] = v
		}
	}
	return out, nil
}

func (s *Store) GetCollection(_ context.Context, project, collection string) (schema.Schema, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.collections[collectionKey{project, collection}]
	return sc, ok, nil
}

// CreateOrGetCollectionField holds the Store's single mutex for the
// duration of the merge, which is sufficient to serialize concurrent
// callers for the same (project, collection) (and, in this simple
// implementation, for every other pair too). A durable implementation
// backed by a distributed store needs a CAS retry loop instead; see
// metastore/natskv.
func (s *Store) CreateOrGetCollectionField(ctx context.Context, project, collection string, fields []schema.Field, onCreate metastore.NewCollectionListener) (schema.Schema, error) {
	s.mu.Lock()

	if _, known := s.projects[project]; !known {
		s.mu.Unlock()
		return schema.Schema{}, errors.WrapInvalid(errors.ErrProjectNotExists, "memstore", "CreateOrGetCollectionField", project)
	}

	key := collectionKey{project, collection}
	existing, existed := s.collections[key]

	merged, err := schema.Merge(existing, fields)
	if err != nil {
		s.mu.Unlock()
		return schema.Schema{}, errors.Wrap(err, "memstore", "CreateOrGetCollectionField", "merge fields")
	}

	s.collections[key] = merged
	s.mu.Unlock()

	if !existed && onCreate != nil {
		onCreate(ctx, metastore.ProjectCollection{Project: project, Collection: collection})
	}

	return merged, nil
}
