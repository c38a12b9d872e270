// Package natsclient provides a thin KV abstraction over NATS JetStream for
// durable key-value storage with compare-and-swap semantics.
//
// KVStore wraps a jetstream.KeyValue bucket and adds automatic CAS retry with
// exponential backoff (via pkg/retry), consistent error classification, and a
// JSON-aware update helper (UpdateJSON) for read-modify-write operations that
// must tolerate concurrent writers racing on the same key.
package natsclient
