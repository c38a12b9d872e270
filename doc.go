// Package eventschema implements an event ingestion deserializer with
// adaptive schema evolution: self-describing JSON documents carrying a
// project, a collection, and a free-form properties object are decoded
// against a per-(project, collection) schema that grows to accommodate
// new fields as they appear, without ever reordering or discarding
// positions already assigned to existing fields.
//
// # Architecture
//
//	┌──────────────┐   raw JSON    ┌──────────────┐
//	│  jsonstream  │──────────────▶│    ingest    │
//	│ (rewindable  │               │(Deserializer)│
//	│   parser)    │               └──────┬───────┘
//	└──────────────┘                      │
//	                          reads/writes │ evolves
//	                                       ▼
//	                    ┌──────────────────────────────────┐
//	                    │            schemacache            │  process-local,
//	                    │      (advisory, write-through)    │  eventually
//	                    └──────────────┬───────────────────┘  consistent
//	                                   │ backed by
//	                                   ▼
//	                    ┌──────────────────────────────────┐
//	                    │             metastore             │  durable,
//	                    │   (memstore for tests, natskv     │  authoritative
//	                    │    for a JetStream KV deployment) │
//	                    └──────────────────────────────────┘
//
// On startup, bootstrap.Reconciler walks every known (project, collection)
// pair and ensures the fields the dependency.Registry mandates already
// exist, so that ingestion mostly exercises the fast decode path rather
// than discovering module fields one event at a time.
//
// # Packages
//
//   - jsonstream: single-savepoint rewindable JSON tokenizer, for documents
//     whose "properties" field may arrive before "project"/"collection".
//   - fieldtype: the scalar/array type system and JSON token-to-type
//     inference rules.
//   - schema: Schema and Record, and the position-preserving Merge used
//     when a collection's schema grows.
//   - schemacache: the process-local write-through cache in front of a
//     metastore.
//   - metastore: the external contract for durable schema persistence,
//     with memstore (in-process, for tests) and natskv (NATS JetStream KV)
//     implementations.
//   - dependency: the Field Dependency Registry, built once at startup
//     from pluggable EventMapper contributors.
//   - bootstrap: the startup reconciliation walk.
//   - listener: the SystemEventListener registry fired on collection
//     creation.
//   - ingest: the Deserializer that ties the above together.
//   - errors: error classification (transient, invalid, fatal) shared
//     across every package.
//   - config, cmd/ingestd: the standalone daemon wiring a NATS JetStream
//     consumer to the Deserializer.
package eventschema
