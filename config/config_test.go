package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stickyhost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, host.DefaultQueueSize, cfg.QueueSize)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
host:
  name: worker
  queueSize: 8
  handleLimit: 16
log:
  level: debug
  development: true
metrics:
  addr: ":9100"
wasm:
  path: add.wasm
  memoryLimitPages: 32
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Name:        "worker",
		QueueSize:   8,
		HandleLimit: 16,
		LogLevel:    "debug",
		Development: true,
		MetricsAddr: ":9100",
		WasmPath:    "add.wasm",
		WasmPages:   32,
	}, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, "log:\n  development: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, host.DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Development)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "host:\n  queueSize: 8\n")
	t.Setenv("STICKYHOST_QUEUE_SIZE", "3")
	t.Setenv("STICKYHOST_NAME", " envhost ")
	t.Setenv("STICKYHOST_LOG_DEVELOPMENT", "true")
	t.Setenv("STICKYHOST_HANDLE_LIMIT", "not-a-number")
	t.Setenv("STICKYHOST_METRICS_ADDR", "127.0.0.1:0")
	t.Setenv("STICKYHOST_WASM", "/tmp/x.wasm")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.QueueSize)
	assert.Equal(t, "envhost", cfg.Name)
	assert.True(t, cfg.Development)
	assert.Zero(t, cfg.HandleLimit)
	assert.Equal(t, "127.0.0.1:0", cfg.MetricsAddr)
	assert.Equal(t, "/tmp/x.wasm", cfg.WasmPath)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, err = Load(writeFile(t, "host: [unclosed"))
	assert.Equal(t, errors.KindInvalidData, errors.KindOf(err))

	_, err = Load(writeFile(t, "host:\n  queueSize: -1\n"))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = Load(writeFile(t, "log:\n  level: chatty\n"))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestConfig_HostOptions(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.HostOptions(nil), 1)

	cfg.Name = "named"
	cfg.HandleLimit = 4
	table := cfg.NewTable()
	opts := cfg.HostOptions(table, host.WithLogger(nil))
	assert.Len(t, opts, 4)

	ref, err := host.Create(func() (*struct{ n int }, error) {
		return &struct{ n int }{}, nil
	}, cfg.HostOptions(table)...)
	require.NoError(t, err)
	assert.Equal(t, "named", ref.Name())
	assert.Equal(t, 1, table.Len())

	_, err = ref.Release()
	require.NoError(t, err)
	<-ref.Done()
	assert.Zero(t, table.Len())
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := Default()
	l, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))

	cfg.LogLevel = "debug"
	cfg.Development = true
	l, err = cfg.NewLogger()
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}
