// Package config defines the ingestion daemon's configuration: where to
// reach NATS, which JetStream KV buckets back the metastore, and which
// subjects carry events in and decoded records out.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the complete configuration for cmd/ingestd.
type Config struct {
	NATS      NATSConfig      `json:"nats"`
	Metastore MetastoreConfig `json:"metastore"`
	Subjects  SubjectsConfig  `json:"subjects"`
}

// NATSConfig holds the connection settings for the NATS server backing
// both message transport and the JetStream KV metastore.
type NATSConfig struct {
	URL           string        `json:"url"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
}

// MetastoreConfig names the JetStream KV buckets for the durable metastore.
// cmd/ingestd opens only ProjectsBucket, which holds both project markers
// and collection schemas; CollectionBucket is validated but not opened.
type MetastoreConfig struct {
	ProjectsBucket   string `json:"projects_bucket"`
	CollectionBucket string `json:"collections_bucket"`
}

// SubjectsConfig names the NATS subjects the ingestion daemon subscribes
// to and publishes on.
type SubjectsConfig struct {
	Ingest       string `json:"ingest"`
	Deserialized string `json:"deserialized"`
}

// Default returns the configuration used when no overrides are supplied.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Metastore: MetastoreConfig{
			ProjectsBucket:   "eventschema_projects",
			CollectionBucket: "eventschema_collections",
		},
		Subjects: SubjectsConfig{
			Ingest:       "events.ingest",
			Deserialized: "events.deserialized",
		},
	}
}

// envPrefix namespaces every environment variable this package reads.
const envPrefix = "EVENTSCHEMA"

// Load returns the default configuration with environment overrides
// applied, then validated.
func Load() (*Config, error) {
	cfg := Default()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envPrefix + "_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv(envPrefix + "_PROJECTS_BUCKET"); v != "" {
		c.Metastore.ProjectsBucket = v
	}
	if v := os.Getenv(envPrefix + "_COLLECTIONS_BUCKET"); v != "" {
		c.Metastore.CollectionBucket = v
	}
	if v := os.Getenv(envPrefix + "_INGEST_SUBJECT"); v != "" {
		c.Subjects.Ingest = v
	}
	if v := os.Getenv(envPrefix + "_DESERIALIZED_SUBJECT"); v != "" {
		c.Subjects.Deserialized = v
	}
}

// Validate checks that every field required to start the daemon is
// present and well-formed.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return fmt.Errorf("nats.url %q must use the nats:// or tls:// scheme", c.NATS.URL)
	}
	if c.Metastore.ProjectsBucket == "" {
		return errors.New("metastore.projects_bucket is required")
	}
	if c.Metastore.CollectionBucket == "" {
		return errors.New("metastore.collections_bucket is required")
	}
	if c.Subjects.Ingest == "" {
		return errors.New("subjects.ingest is required")
	}
	if c.Subjects.Deserialized == "" {
		return errors.New("subjects.deserialized is required")
	}
	return nil
}

// String returns an indented JSON representation, useful for a startup
// log line.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
