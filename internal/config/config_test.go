package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyw0ng95/recodex-broker/internal/brokerrors"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
clients:
  port: 9001
workers:
  port: 9002
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "*", cfg.Clients.Address)
	assert.Equal(t, uint16(9001), cfg.Clients.Port)
	assert.Equal(t, "127.0.0.1", cfg.Monitor.Address)
	assert.Equal(t, uint16(7894), cfg.Monitor.Port)
	assert.Equal(t, uint(4), cfg.MaxWorkerLiveness)
	assert.Equal(t, uint(1000), cfg.WorkerPingIntervalMs)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
clients:
  address: 10.0.0.1
  port: 9001
workers:
  port: 9002
max_worker_liveness: 10
worker_ping_interval_ms: 500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Clients.Address)
	assert.Equal(t, uint(10), cfg.MaxWorkerLiveness)
	assert.Equal(t, uint(500), cfg.WorkerPingIntervalMs)
}

func TestLoad_MissingFileIsConfigNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, brokerrors.ErrConfigNotFound))
}

func TestLoad_MissingClientsPortIsInvalid(t *testing.T) {
	path := writeConfig(t, `
workers:
  port: 9002
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, brokerrors.ErrConfigInvalid))
}

func TestLoad_MissingWorkersPortIsInvalid(t *testing.T) {
	path := writeConfig(t, `
clients:
  port: 9001
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, brokerrors.ErrConfigInvalid))
}

func TestLoad_ZeroLivenessIsInvalid(t *testing.T) {
	path := writeConfig(t, `
clients:
  port: 9001
workers:
  port: 9002
max_worker_liveness: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, brokerrors.ErrConfigInvalid))
}

func TestLoad_MalformedYAMLIsInvalid(t *testing.T) {
	path := writeConfig(t, "clients: [this is not a mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, brokerrors.ErrConfigInvalid))
}
