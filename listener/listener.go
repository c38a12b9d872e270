// Package listener provides the SystemEventListener registry: the set of
// callbacks fired when a collection is created for the first time.
package listener

import (
	"context"
	"log/slog"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/metastore"
)

// SystemEventListener reacts to collection lifecycle events. OnCreateCollection
// is invoked exactly once per newly created collection, on whatever
// goroutine triggered creation.
type SystemEventListener interface {
	OnCreateCollection(ctx context.Context, project, collection string)
}

// Registry holds zero or more SystemEventListeners and dispatches to all of
// them. A listener that panics or whose error is otherwise unrecoverable
// is isolated: one listener's failure never prevents another from running,
// and never propagates to the caller that triggered collection creation.
type Registry struct {
	listeners []SystemEventListener
	logger    *slog.Logger
}

// New returns a Registry dispatching to listeners, in registration order.
func New(logger *slog.Logger, listeners ...SystemEventListener) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{listeners: listeners, logger: logger}
}

// Notify implements metastore.NewCollectionListener: it fans out to every
// registered SystemEventListener, logging and swallowing any failure so
// that ingestion proceeds regardless of listener health.
func (r *Registry) Notify(ctx context.Context, pc metastore.ProjectCollection) {
	for _, l := range r.listeners {
		r.safeCall(ctx, l, pc)
	}
}

func (r *Registry) safeCall(ctx context.Context, l SystemEventListener, pc metastore.ProjectCollection) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.Wrap(errors.ErrListenerFailure, "Registry", "Notify", "onCreateCollection")
			r.logger.Error(err.Error(),
				"project", pc.Project, "collection", pc.Collection, "panic", rec)
		}
	}()
	l.OnCreateCollection(ctx, pc.Project, pc.Collection)
}

// LoggingListener is a trivial SystemEventListener that logs collection
// creation, useful as a default when no domain-specific listener is wired.
type LoggingListener struct {
	Logger *slog.Logger
}

func (l LoggingListener) OnCreateCollection(_ context.Context, project, collection string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("collection created", "project", project, "collection", collection)
}
