// Package dependency implements the Field Dependency Registry: the
// immutable set of constant and conditional fields module-style
// contributors add to every collection's schema.
package dependency

import (
	"fmt"

	"github.com/c360/eventschema/schema"
)

// EventMapper contributes constant and dependent fields to the registry at
// startup. Implementations are registered once, via Build; the registry is
// frozen and read-only thereafter, matching the concurrency model's
// requirement that module fields be lock-free once ingestion begins.
type EventMapper interface {
	// Name identifies the contributor for diagnostics.
	Name() string
	// ConstantFields returns fields unconditionally added to every
	// collection.
	ConstantFields() []schema.Field
	// DependentFields returns, for each trigger field name, the extra
	// fields that must exist whenever the trigger is present.
	DependentFields() map[string][]schema.Field
}

// Registry is the immutable, built Field Dependency Registry.
type Registry struct {
	constants  []schema.Field
	dependents map[string][]schema.Field
}

// Build aggregates every mapper's contributions into a single immutable
// Registry. A constant field name contributed by two mappers with
// conflicting types is a build-time error: module wiring mistakes should
// fail at startup, not surface as a runtime TypeConflict deep in
// ingestion.
func Build(mappers ...EventMapper) (*Registry, error) {
	r := &Registry{dependents: make(map[string][]schema.Field)}

	seen := make(map[string]schema.Field)
	addConstant := func(f schema.Field, from string) error {
		if existing, ok := seen[f.Name]; ok {
			if existing.Type != f.Type {
				return fmt.Errorf("dependency: constant field %q contributed by %s conflicts in type with an earlier contributor", f.Name, from)
			}
			return nil
		}
		seen[f.Name] = f
		r.constants = append(r.constants, f)
		return nil
	}

	for _, m := range mappers {
		for _, f := range m.ConstantFields() {
			if err := addConstant(f, m.Name()); err != nil {
				return nil, err
			}
		}
		for trigger, extras := range m.DependentFields() {
			r.dependents[trigger] = append(r.dependents[trigger], extras...)
		}
	}

	return r, nil
}

// Empty returns a Registry with no contributed fields, useful for tests and
// for deployments with no module extensions.
func Empty() *Registry {
	return &Registry{dependents: make(map[string][]schema.Field)}
}

// applyField is the shared rule used by both ApplyConstants and
// ApplyDependents: if fields already contains a same-named field with a
// matching type, it is a no-op; with a different type, the incumbent is
// replaced; if absent, the field is appended.
func applyField(fields []schema.Field, f schema.Field) []schema.Field {
	for i, existing := range fields {
		if existing.Name == f.Name {
			if existing.Type == f.Type {
				return fields
			}
			fields = append(fields[:i], fields[i+1:]...)
			break
		}
	}
	return append(fields, f)
}

// ApplyConstants applies every registered constant field to fields,
// in place semantics via the returned slice (callers should always use the
// return value, since replacement may reallocate).
func (r *Registry) ApplyConstants(fields []schema.Field) []schema.Field {
	for _, c := range r.constants {
		fields = applyField(fields, c)
	}
	return fields
}

// ApplyDependents applies, for each trigger field already present in
// fields, every field dependent on that trigger.
func (r *Registry) ApplyDependents(fields []schema.Field) []schema.Field {
	for trigger, extras := range r.dependents {
		if !containsName(fields, trigger) {
			continue
		}
		for _, extra := range extras {
			fields = applyField(fields, extra)
		}
	}
	return fields
}

func containsName(fields []schema.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
