package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsMissingURL(t *testing.T) {
	cfg := Default()
	cfg.NATS.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadScheme(t *testing.T) {
	cfg := Default()
	cfg.NATS.URL = "http://localhost:4222"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsMissingBuckets(t *testing.T) {
	cfg := Default()
	cfg.Metastore.ProjectsBucket = ""
	assert.Error(t, cfg.Validate())
}

func TestLoad_AppliesEnvOverride(t *testing.T) {
	t.Setenv("EVENTSCHEMA_NATS_URL", "nats://example.com:4222")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://example.com:4222", cfg.NATS.URL)
}
