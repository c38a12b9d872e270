// Command ingestd runs the event ingestion deserializer as a standalone
// NATS JetStream consumer: it pulls raw event documents off one subject,
// decodes them against the adaptively evolving per-collection schema, and
// republishes the decoded (schema, record) pairs on another subject.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/eventschema/bootstrap"
	"github.com/c360/eventschema/config"
	"github.com/c360/eventschema/dependency"
	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/event"
	"github.com/c360/eventschema/ingest"
	"github.com/c360/eventschema/listener"
	"github.com/c360/eventschema/metastore/natskv"
	"github.com/c360/eventschema/natsclient"
	"github.com/c360/eventschema/schemacache"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	streamName   = "EVENTSCHEMA_INGEST"
	consumerName = "eventschema-ingestd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("ingestd exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("starting ingestd", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, js, err := connectNATS(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := setupMetastore(ctx, js, cfg, logger)
	if err != nil {
		return err
	}

	registry := dependency.Empty()
	listeners := listener.New(logger, listener.LoggingListener{Logger: logger})

	if _, err := bootstrap.New(store, registry, listeners.Notify, logger).Run(ctx); err != nil {
		return fmt.Errorf("bootstrap reconciliation: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metrics, err := ingest.NewMetrics(metricsRegistry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	deserializer := ingest.New(store, schemacache.New(), registry, listeners.Notify, logger, metrics)

	consumer, err := setupConsumer(ctx, js, cfg)
	if err != nil {
		return err
	}

	return consumeLoop(ctx, consumer, js, cfg, deserializer, logger)
}

// connectNATS dials the configured NATS server and opens a JetStream
// context over the connection.
func connectNATS(cfg *config.Config) (*nats.Conn, jetstream.JetStream, error) {
	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name("eventschema-ingestd"),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return conn, js, nil
}

// setupMetastore creates or opens the JetStream KV bucket the durable
// metastore reads and writes, and wraps it in a natskv.Store.
// Both project markers and collection schemas share one bucket (named by
// ProjectsBucket); CollectionBucket is kept in config for deployments that
// want to split the two onto separate buckets later, but the current
// natskv.Store implementation only needs the one handle.
func setupMetastore(ctx context.Context, js jetstream.JetStream, cfg *config.Config, logger *slog.Logger) (*natskv.Store, error) {
	bucket, err := js.KeyValue(ctx, cfg.Metastore.ProjectsBucket)
	if err != nil {
		bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Metastore.ProjectsBucket,
			Description: "event ingestion schema metastore: known projects and per-collection schemas",
		})
		if err != nil {
			return nil, fmt.Errorf("create metastore KV bucket: %w", err)
		}
	}

	kv := natsclient.NewKVStore(bucket, logger)
	return natskv.New(kv, logger), nil
}

// setupConsumer ensures the ingest stream and a durable pull consumer
// exist, creating either if this is the first run.
func setupConsumer(ctx context.Context, js jetstream.JetStream, cfg *config.Config) (jetstream.Consumer, error) {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{cfg.Subjects.Ingest},
	})
	if err != nil {
		return nil, fmt.Errorf("create or update ingest stream: %w", err)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: cfg.Subjects.Ingest,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return nil, fmt.Errorf("create or update consumer: %w", err)
	}
	return consumer, nil
}

// consumeLoop pulls batches of raw event documents, deserializes each one,
// and republishes the decoded result. A message is acknowledged once it
// has either been successfully deserialized and republished, or rejected
// for a reason classified as invalid (a malformed or unsupported document
// that will never succeed on redelivery). Any other failure, transient or
// not, is nak'd so JetStream redelivers it.
func consumeLoop(ctx context.Context, consumer jetstream.Consumer, js jetstream.JetStream, cfg *config.Config, d *ingest.Deserializer, logger *slog.Logger) error {
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		handleMessage(ctx, msg, js, cfg, d, logger)
	})
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	defer cc.Stop()

	logger.Info("ingestd ready", "subject", cfg.Subjects.Ingest)
	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cc.Stop()
	<-drainCtx.Done()
	return nil
}

func handleMessage(ctx context.Context, msg jetstream.Msg, js jetstream.JetStream, cfg *config.Config, d *ingest.Deserializer, logger *slog.Logger) {
	ev, err := d.Deserialize(ctx, msg.Data())
	if err != nil {
		if errors.IsInvalid(err) {
			logger.Warn("rejecting malformed event", "error", err)
			msg.Ack()
			return
		}
		if errors.IsTransient(err) {
			logger.Warn("transient deserialize failure, will redeliver", "error", err)
		} else {
			logger.Error("deserialize failed, will redeliver", "error", err)
		}
		msg.Nak()
		return
	}

	if err := publishEvent(ctx, js, cfg.Subjects.Deserialized, ev); err != nil {
		logger.Error("publish decoded event failed, will redeliver", "error", err)
		msg.Nak()
		return
	}
	msg.Ack()
}

type decodedEnvelope struct {
	Project    string         `json:"project"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
}

func publishEvent(ctx context.Context, js jetstream.JetStream, subject string, ev event.Event) error {
	fields := make(map[string]any, len(ev.Schema().Fields))
	for _, f := range ev.Schema().Fields {
		fields[f.Name] = ev.Record.Get(f.Name)
	}

	payload, err := json.Marshal(decodedEnvelope{
		Project:    ev.Project,
		Collection: ev.Collection,
		Fields:     fields,
	})
	if err != nil {
		return fmt.Errorf("marshal decoded event: %w", err)
	}

	_, err = js.Publish(ctx, subject, payload)
	return err
}
