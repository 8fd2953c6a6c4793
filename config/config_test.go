package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, uint16(1), config.Node.NodeNo)
	assert.True(t, config.IsDevelopment())
	assert.False(t, config.IsProduction())
	assert.True(t, config.IsDebugEnabled())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "invalid app name",
			modify:  func(c *Config) { c.App.Name = "" },
			wantErr: ErrInvalidAppName,
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.App.Environment = "moon" },
			wantErr: ErrInvalidEnvironment,
		},
		{
			name:    "zero node number",
			modify:  func(c *Config) { c.Node.NodeNo = 0 },
			wantErr: ErrInvalidNodeNo,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
		{
			name:    "invalid mailbox size",
			modify:  func(c *Config) { c.Actor.DefaultMailboxSize = 0 },
			wantErr: ErrInvalidMailboxSize,
		},
		{
			name: "invalid metrics port",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: ErrInvalidPort,
		},
		{
			name:   "metrics port ignored when disabled",
			modify: func(c *Config) { c.Metrics.Port = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	config := DefaultConfig()
	config.App.Metadata = map[string]string{"team": "core"}
	config.Custom["limit"] = 10

	clone := config.Clone()
	clone.App.Metadata["team"] = "edge"
	clone.Custom["limit"] = 20
	clone.Node.NodeNo = 9

	assert.Equal(t, "core", config.App.Metadata["team"])
	assert.Equal(t, 10, config.Custom["limit"])
	assert.Equal(t, uint16(1), config.Node.NodeNo)

	var nilConfig *Config
	assert.Nil(t, nilConfig.Clone())
}

func TestLoaderYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test-config.yaml", `
app:
  name: test-app
  version: "1.0.0"
  environment: development

node:
  node_no: 7

log:
  level: debug
  format: json

actor:
  timeouts:
    request: 5s
`)

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-app", config.App.Name)
	assert.Equal(t, EnvDevelopment, config.App.Environment)
	assert.Equal(t, uint16(7), config.Node.NodeNo)
	assert.Equal(t, LogLevelDebug, config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, 5*time.Second, config.Actor.Timeouts.Request)

	// Missing fields come from the defaults.
	assert.Equal(t, 1000, config.Actor.DefaultMailboxSize)
	assert.Equal(t, 10*time.Second, config.Actor.Timeouts.Shutdown)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}

func TestLoaderJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test-config.json", `{
	"app": {
		"name": "json-test-app",
		"version": "2.0.0",
		"environment": "production"
	},
	"node": {"node_no": 3},
	"log": {
		"level": "warn",
		"format": "text"
	},
	"metrics": {
		"enabled": true,
		"port": 9191
	}
}`)

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "json-test-app", config.App.Name)
	assert.True(t, config.IsProduction())
	assert.Equal(t, uint16(3), config.Node.NodeNo)
	assert.Equal(t, LogLevelWarn, config.Log.Level)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, 9191, config.Metrics.Port)
}

func TestLoaderRejects(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader()

	_, err := loader.LoadFromFile(writeFile(t, dir, "config.toml", "name = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = loader.LoadFromFile(writeFile(t, dir, "broken.yaml", "app: [unclosed"))
	assert.Error(t, err)

	_, err = loader.LoadFromFile(writeFile(t, dir, "bad.yaml", "log:\n  level: loud\n"))
	assert.ErrorIs(t, err, ErrInvalidLogLevel)

	_, err = loader.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromReader(t *testing.T) {
	config, err := NewLoader().LoadFromReader(strings.NewReader("node:\n  node_no: 12\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, uint16(12), config.Node.NodeNo)
	assert.Equal(t, "sngo-app", config.App.Name)

	_, err = NewLoader().LoadFromReader(strings.NewReader("{}"), "ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SNGO_APP_NAME", "env-test-app")
	t.Setenv("SNGO_NODE_NO", "42")
	t.Setenv("SNGO_LOG_LEVEL", "error")
	t.Setenv("SNGO_METRICS_ENABLED", "true")
	t.Setenv("SNGO_METRICS_PORT", "7777")

	path := writeFile(t, t.TempDir(), "env-test-config.yaml", `
app:
  name: base-app
  environment: development
node:
  node_no: 2
`)

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-test-app", config.App.Name)
	assert.Equal(t, uint16(42), config.Node.NodeNo)
	assert.Equal(t, LogLevelError, config.Log.Level)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, 7777, config.Metrics.Port)
}

func TestEnvironmentBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"SNGO_NODE_NO":      "70000",
		"SNGO_METRICS_PORT": "0",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)

			_, err := NewLoader().Load("")
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestAutoLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
app:
  name: auto-load-app
  environment: development
`)

	config, err := NewLoader().SetSearchPaths([]string{dir}).AutoLoad()
	require.NoError(t, err)
	assert.Equal(t, "auto-load-app", config.App.Name)

	// Nothing to discover: defaults.
	config, err = NewLoader().SetSearchPaths([]string{t.TempDir()}).AutoLoad()
	require.NoError(t, err)
	assert.Equal(t, "sngo-app", config.App.Name)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(LogConfig{
		Level:  LogLevelWarn,
		Format: "json",
		Fields: map[string]interface{}{"service": "test"},
	}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "n", 1)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"service":"test"`)

	_, err = newLogger(LogConfig{Format: "xml"}, &buf)
	assert.ErrorIs(t, err, ErrInvalidLogFormat)
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, closer, err := NewLogger(LogConfig{Level: LogLevelInfo, Format: "text", Output: path})
	require.NoError(t, err)

	logger.Info("hello file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watch-test-config.yaml", `
app:
  name: watch-test-app
  environment: development
node:
  node_no: 1
`)

	watcher, err := NewWatcher(path, NewLoader())
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Equal(t, uint16(1), watcher.GetConfig().Node.NodeNo)

	changed := make(chan *Config, 1)
	watcher.OnConfigChange(func(oldConfig, newConfig *Config) {
		if oldConfig.Node.NodeNo == 1 && newConfig.Node.NodeNo == 5 {
			changed <- newConfig
		}
	})
	require.NoError(t, watcher.Start())

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "watch-test-config.yaml", `
app:
  name: watch-test-app
  environment: development
node:
  node_no: 5
`)

	select {
	case config := <-changed:
		assert.Equal(t, "watch-test-app", config.App.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration change was not detected")
	}
	assert.Equal(t, uint16(5), watcher.GetConfig().Node.NodeNo)

	require.NoError(t, watcher.Stop())
	require.NoError(t, watcher.Stop())
}

func TestWatcherManualReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "manual.yaml", "node:\n  node_no: 4\n")

	watcher, err := NewWatcher(path, NewLoader())
	require.NoError(t, err)
	defer watcher.Stop()

	done := make(chan struct{})
	watcher.OnConfigChange(func(_, newConfig *Config) {
		assert.Equal(t, uint16(8), newConfig.Node.NodeNo)
		close(done)
	})

	writeFile(t, dir, "manual.yaml", "node:\n  node_no: 8\n")
	require.NoError(t, watcher.Reload())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback was not called")
	}

	writeFile(t, dir, "manual.yaml", "node:\n  node_no: 0\nlog:\n  level: nope\n")
	assert.Error(t, watcher.Reload())
	assert.Equal(t, uint16(8), watcher.GetConfig().Node.NodeNo)
}

func TestNewWatcherUnsupportedFormat(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "config.ini"), NewLoader())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
