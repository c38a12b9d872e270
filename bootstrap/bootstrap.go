// Package bootstrap implements the startup reconciliation walk that
// ensures every known collection already carries every module-mandated
// field before ingestion begins, so that most events hit the fast path.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/c360/eventschema/dependency"
	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/metastore"
	"github.com/c360/eventschema/schema"
)

// Reconciler walks every (project, collection) known to a Metastore at
// startup and evolves each schema to include every constant and dependent
// field the Field Dependency Registry mandates.
type Reconciler struct {
	store    metastore.Metastore
	registry *dependency.Registry
	onCreate metastore.NewCollectionListener
	logger   *slog.Logger
}

// New returns a Reconciler over store, applying registry's fields, firing
// onCreate for any collection reconciliation happens to create (it
// normally does not, since reconciliation only ever touches already-known
// collections, but the metastore contract still requires a listener be
// supplied).
func New(store metastore.Metastore, registry *dependency.Registry, onCreate metastore.NewCollectionListener, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, registry: registry, onCreate: onCreate, logger: logger}
}

// Summary reports what a Run accomplished, for a structured startup log
// line.
type Summary struct {
	Projects     int
	Collections  int
	FieldsAdded  int
}

// Run performs the reconciliation walk described in the component design:
// for every (project, collection), compute the missing constant fields,
// compute the missing fields dependent on whatever already exists, and if
// either set is non-empty, evolve the schema through
// CreateOrGetCollectionField.
//
// A TypeConflict encountered while reconciling one collection is fatal per
// the error handling policy: reconciliation logs it and halts rather than
// silently skipping a module/schema mismatch, but does not abort
// reconciliation of collections already processed.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	all, err := r.store.GetAllCollections(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "Reconciler", "Run", "list all collections")
	}
	summary.Projects = len(all)

	for project, collections := range all {
		for _, collection := range collections {
			summary.Collections++

			existing, ok, err := r.store.GetCollection(ctx, project, collection)
			if err != nil {
				return summary, errors.Wrap(err, "Reconciler", "Run", "get schema for "+project+"/"+collection)
			}
			if !ok {
				continue
			}

			toAdd := missingConstants(r.registry, existing.Fields)
			toAdd = missingDependents(r.registry, existing.Fields, toAdd)

			if len(toAdd) == 0 {
				continue
			}

			if _, err := r.store.CreateOrGetCollectionField(ctx, project, collection, toAdd, r.onCreate); err != nil {
				if errors.IsFatal(err) {
					r.logger.Error("schema reconciliation failed", "project", project, "collection", collection, "error", err)
					return summary, err
				}
				return summary, errors.Wrap(err, "Reconciler", "Run", "reconcile "+project+"/"+collection)
			}
			summary.FieldsAdded += len(toAdd)
		}
	}

	r.logger.Info("bootstrap reconciliation complete",
		"projects", summary.Projects, "collections", summary.Collections, "fields_added", summary.FieldsAdded)
	return summary, nil
}

// missingConstants returns the constant fields the registry mandates that
// are not already present in existing with the same name and type (a
// same-named field with a different type is kept, so that
// CreateOrGetCollectionField rejects it as a TypeConflict; the reconciler
// does not pre-filter type mismatches away).
func missingConstants(r *dependency.Registry, existing []schema.Field) []schema.Field {
	var toAdd []schema.Field
	for _, c := range r.ApplyConstants(nil) {
		matched := false
		for _, f := range existing {
			if f.Name == c.Name && f.Type == c.Type {
				matched = true
				break
			}
		}
		if !matched {
			toAdd = append(toAdd, c)
		}
	}
	return toAdd
}

// missingDependents adds, for every field already present in existing, any
// dependent fields not already present (in existing or already queued in
// toAdd).
func missingDependents(r *dependency.Registry, existing []schema.Field, toAdd []schema.Field) []schema.Field {
	for _, f := range existing {
		withTrigger := []schema.Field{f}
		dependents := r.ApplyDependents(withTrigger)
		for _, d := range dependents {
			if d.Name == f.Name {
				continue
			}
			if !hasName(existing, d.Name) && !hasName(toAdd, d.Name) {
				toAdd = append(toAdd, d)
			}
		}
	}
	return toAdd
}

func hasName(fields []schema.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
