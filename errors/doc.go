// Package errors provides standardized error handling patterns for the event
// ingestion pipeline.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// This classification enables intelligent error handling strategies
// throughout schema resolution and event deserialization, allowing callers
// to make informed decisions about retries, rejecting a malformed event, or
// halting bootstrap without hardcoded error string matching.
//
// # Error Classification
//
// Errors are automatically classified based on their type or content:
//
//   - Transient: context deadline/cancellation, plus anything matching a
//     recognizable timeout/connection/network pattern (retry recommended)
//   - Invalid: malformed events, unsupported nesting, unknown projects (do
//     not retry, reject the event)
//   - Fatal: schema type conflicts, plus anything matching a recognizable
//     corruption/resource-exhaustion pattern (stop processing)
//
// The classification system integrates seamlessly with Go's standard error handling patterns,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	// Return standard error for known conditions
//	if !projectExists {
//	    return errors.ErrProjectNotExists
//	}
//
// Wrap errors with context for debugging:
//
//	// Wrap third-party errors with component context
//	if err := metastore.AddField(ctx, project, collection, field); err != nil {
//	    return errors.Wrap(err, "Metastore", "AddField", "persist schema field")
//	}
//
// Check classification for retry logic:
//
//	// Make retry decisions based on error class
//	if err := operation(); err != nil {
//	    if errors.IsTransient(err) {
//	        // retry via pkg/retry
//	    } else if errors.IsFatal(err) {
//	        // Stop processing, escalate to operator
//	        log.Fatalf("Unrecoverable error: %v", err)
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing, debugging, and operational
// monitoring across the ingestion pipeline. The Wrap family of functions
// automatically applies this pattern while preserving error classification
// through the chain.
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")  // Preserves original class
//
// # Standard Error Variables
//
// The package provides pre-defined error variables for the event ingestion domain:
//
//   - ErrMalformedEvent: the raw event document could not be parsed
//   - ErrNestedNotSupported: a field holds a nested object or array-of-array
//   - ErrProjectNotExists: the event names a project with no provisioned metastore entry
//   - ErrTypeConflict: a field merged into a schema has a different type than the same-named existing field
//   - ErrListenerFailure: a NewCollectionListener callback failed
//
// Use these variables instead of creating custom error messages for consistency:
//
//	// Good - uses standard variable
//	if hasNestedObject {
//	    return errors.ErrNestedNotSupported
//	}
//
//	// Avoid - custom error message
//	if hasNestedObject {
//	    return errors.New("nested properties not supported")
//	}
//
// # Retry Integration
//
// IsTransient classifies an error as retryable; the actual retry loop and
// backoff policy live in pkg/retry, not in this package:
//
//	cfg := retry.Config{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond}
//	err := retry.Do(ctx, cfg, func() error {
//	    return operation(ctx)
//	})
//
// # Migration from fmt.Errorf
//
// Replace manual error wrapping with classification-aware wrappers:
//
//	// Before
//	return fmt.Errorf("component: operation failed: %w", err)
//
//	// After - preserves classification
//	return errors.Wrap(err, "Component", "method", "operation")
//
//	// After - sets classification
//	return errors.WrapTransient(err, "Component", "method", "operation")
//
// Replace string-based error inspection with classification checks:
//
//	// Before
//	if strings.Contains(err.Error(), "timeout") {
//	    // retry logic
//	}
//
//	// After
//	if errors.IsTransient(err) {
//	    // retry logic with proper backoff
//	}
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	// Check error classification
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	// Check for specific standard errors
//	if errors.Is(err, errors.ErrProjectNotExists) {
//	    // Handle missing project specifically
//	}
//
//	// Classification is preserved through error chains
//	wrapped := errors.Wrap(errors.ErrTypeConflict, "Schema", "AddField", "evolve")
//	if errors.IsFatal(wrapped) {  // true - classification preserved
//	    // Halt bootstrap
//	}
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are automatically
// classified as Transient, enabling consistent handling of context-based timeouts:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	if err := operation(ctx); err != nil {
//	    if errors.IsTransient(err) {
//	        // Handles both network timeouts AND context timeouts
//	        log.Printf("Transient error (retry recommended): %v", err)
//	    }
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable constants safe for concurrent access. The ClassifiedError type
// is safe to share across goroutines after creation.
//
// # Architecture Integration
//
// The errors package integrates with other ingestion components:
//
//   - listener: wraps ErrListenerFailure when a listener panics, logging and swallowing it
//   - metastore: wraps NATS JetStream KV errors with component context
//   - bootstrap: treats ErrTypeConflict as fatal, halting reconciliation
//   - ingest: treats ErrMalformedEvent/ErrNestedNotSupported/ErrProjectNotExists as invalid, rejecting the event without retry
//   - cmd/ingestd: naks transient deserialize failures for redelivery, acks invalid ones
//
// # Design Philosophy
//
// The errors package follows these design principles:
//
//   - Classification over string matching: Errors are classified by type, not content
//   - Wrapping over replacement: Preserve original errors, add context via wrapping
//   - Standards over invention: Use Go's error handling idioms (Is/As/Unwrap)
//   - Simplicity over completeness: Three classes cover the cases that matter here
//
// # Examples
//
// Complete service integration example:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "time"
//
//	    "github.com/c360/eventschema/errors"
//	)
//
//	type Service struct {
//	    connected bool
//	}
//
//	func (s *Service) Connect() error {
//	    if err := s.dial(); err != nil {
//	        return errors.WrapTransient(err, "Service", "Connect", "dial")
//	    }
//	    s.connected = true
//	    return nil
//	}
//
//	func (s *Service) Process(ctx context.Context, data []byte) error {
//	    if len(data) == 0 {
//	        return errors.WrapInvalid(
//	            errors.ErrMalformedEvent,
//	            "Service", "Process", "empty event body")
//	    }
//
//	    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	    defer cancel()
//
//	    select {
//	    case <-ctx.Done():
//	        return errors.WrapTransient(ctx.Err(), "Service", "Process", "processing")
//	    case <-time.After(100 * time.Millisecond):
//	        return nil
//	    }
//	}
//
//	func main() {
//	    service := &Service{}
//	    ctx := context.Background()
//	    if err := service.Process(ctx, []byte("test data")); err != nil {
//	        if errors.IsInvalid(err) {
//	            log.Printf("Invalid input (do not retry): %v", err)
//	        } else if errors.IsTransient(err) {
//	            log.Printf("Transient error (retry recommended): %v", err)
//	        } else if errors.IsFatal(err) {
//	            log.Fatalf("Fatal error (stop processing): %v", err)
//	        }
//	    }
//	}
package errors
