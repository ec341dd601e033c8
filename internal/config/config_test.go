package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/farmshare/internal/negotiation"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "negotiation", cfg.Method)
	assert.Equal(t, 100.0, cfg.InitialResource)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Oracle.Backoff)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmshare.yaml")
	payload := `
rounds: 25
method: needs_based
initial_resource: 250
negotiation:
  max_principles: 2
oracle:
  max_attempts: 5
  backoff: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Rounds)
	assert.Equal(t, "needs_based", cfg.Method)
	assert.Equal(t, 250.0, cfg.InitialResource)
	assert.Equal(t, 2, cfg.Negotiation.MaxPrinciples)
	assert.Equal(t, 5, cfg.Oracle.MaxAttempts)
	assert.Equal(t, Duration(time.Second), cfg.Oracle.Backoff)

	// Untouched tables keep their defaults.
	assert.Equal(t, negotiation.DefaultConfig().BaseRatios, cfg.Negotiation.BaseRatios)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rounds: 0\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::"), 0644))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
