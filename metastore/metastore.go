// Package metastore defines the external contract for durable schema
// persistence: the authority a Metastore implementation must honor so that
// concurrent schema evolution across many ingestion workers stays correct.
package metastore

import (
	"context"

	"github.com/c360/eventschema/schema"
)

// ProjectCollection identifies one collection within one project. It is the
// argument passed to a newly-created collection's listeners.
type ProjectCollection struct {
	Project    string
	Collection string
}

// NewCollectionListener is invoked exactly once, on whatever goroutine
// triggered creation, when createOrGetCollectionField causes a collection
// to come into existence for the first time.
type NewCollectionListener func(ctx context.Context, pc ProjectCollection)

// Metastore is the external authority for schema state. Implementations
// must be safe for concurrent use and must serialize concurrent
// CreateOrGetCollectionField calls for the same (project, collection): the
// expected semantic is set-union, so two concurrent callers introducing
// disjoint fields must both succeed and the merged schema must contain
// both sets of fields, with pre-existing field positions preserved.
type Metastore interface {
	// GetProjects returns the set of known project names.
	GetProjects(ctx context.Context) ([]string, error)

	// CreateProject registers project as known. Idempotent: creating an
	// already-known project is not an error.
	CreateProject(ctx context.Context, project string) error

	// GetAllCollections returns every known collection name, grouped by
	// project, in a single call. Used by the bootstrap reconciler to
	// avoid an O(projects) fan-out of GetCollections.
	GetAllCollections(ctx context.Context) (map[string][]string, error)

	// GetCollectionNames returns the collection names known within
	// project, without fetching their schemas.
	GetCollectionNames(ctx context.Context, project string) ([]string, error)

	// GetCollections returns every collection in project together with
	// its current schema.
	GetCollections(ctx context.Context, project string) (map[string]schema.Schema, error)

	// GetCollection returns the current schema for (project, collection),
	// or ok=false if the collection does not exist yet.
	GetCollection(ctx context.Context, project, collection string) (schema.Schema, bool, error)

	// CreateOrGetCollectionField merges fields into the stored schema for
	// (project, collection) and returns the canonical post-merge schema.
	// If the call causes the collection to be created, onCreate is
	// invoked exactly once with the new (project, collection) pair.
	// Returns ErrProjectNotExists if project is unknown.
	CreateOrGetCollectionField(ctx context.Context, project, collection string, fields []schema.Field, onCreate NewCollectionListener) (schema.Schema, error)
}
