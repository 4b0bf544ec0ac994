package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/render"
	"github.com/a-delannoy/yaani/internal/transform"
)

// writePipeline lays out a complete two-source pipeline on disk and
// returns the configuration file path.
func writePipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	devices := write("devices.json",
		`[{"id":5,"name":"r1","tenant":"t1"},{"id":6,"name":"r2","tenant":null}]`)
	addrs := write("addrs.json",
		`[{"id":5,"ip":"10.0.0.1"}]`)

	return write("yaani.hcl", fmt.Sprintf(`
data_source "file" "devfile" {
  path = %q
}

data_source "file" "addrfile" {
  path = %q
}

data_set "extract" "devices" {
  source = "devfile"
  format = "json"
}

data_set "extract" "addresses" {
  source = "addrfile"
  format = "json"
}

data_set "merge" "merged" {
  input "devices" {
    pivot     = ".id"
    tie_break = true
  }
  input "addresses" {
    pivot = ".id"
  }
}

data_set "decorate" "enriched" {
  main  = "merged"
  pivot = ".id"

  decorator "addresses" {
    pivot  = ".id"
    anchor = "addr"
  }
}

render {
  element "devices" {
    dataset       = "enriched"
    pre_condition = ".tenant != null"
    index         = ".name"
    host_vars = {
      tenant = ".tenant"
      ip     = ".addr.ip"
    }
  }
}

transform {
  hooks = ["tag"]
}
`, devices, addrs))
}

func taggingHooks() *transform.Registry {
	hooks := transform.NewRegistry()
	hooks.Register("tag", func(ctx context.Context, inv *render.Inventory) error {
		for _, vars := range inv.HostVars {
			vars["managed"] = true
		}
		return nil
	})
	return hooks
}

func newTestApp(t *testing.T, cfg Config, hooks *transform.Registry) *App {
	t.Helper()
	appCfg, err := NewConfig(cfg)
	require.NoError(t, err)
	return New(io.Discard, appCfg, hooks)
}

func TestRunList(t *testing.T) {
	path := writePipeline(t)
	a := newTestApp(t, Config{ConfigPath: path, List: true, LogLevel: "error"}, taggingHooks())

	result, err := a.Run(context.Background())
	require.NoError(t, err)

	t.Run("pre_condition drops the tenantless host", func(t *testing.T) {
		all, ok := result["all"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []string{"r1"}, all["hosts"])
	})

	t.Run("host variables flow through merge, decorate and hooks", func(t *testing.T) {
		meta := result["_meta"].(map[string]any)
		hostvars := meta["hostvars"].(map[string]any)
		assert.Equal(t, map[string]any{
			"tenant":  "t1",
			"ip":      "10.0.0.1",
			"managed": true,
		}, hostvars["r1"])
		assert.NotContains(t, hostvars, "r2")
	})
}

func TestRunHost(t *testing.T) {
	path := writePipeline(t)

	t.Run("known host returns its variables", func(t *testing.T) {
		a := newTestApp(t, Config{ConfigPath: path, Host: "r1", LogLevel: "error"}, taggingHooks())
		result, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"tenant":  "t1",
			"ip":      "10.0.0.1",
			"managed": true,
		}, result)
	})

	t.Run("unknown host returns an empty mapping", func(t *testing.T) {
		a := newTestApp(t, Config{ConfigPath: path, Host: "ghost", LogLevel: "error"}, taggingHooks())
		result, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestRunNoMode(t *testing.T) {
	// Neither --list nor --host: nothing is loaded or fetched.
	a := newTestApp(t, Config{ConfigPath: "/nonexistent/yaani.hcl"}, nil)
	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRunRejectsBeforeFetch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("dangling reference is a configuration error", func(t *testing.T) {
		// The source file does not exist; a fetch attempt would fail
		// differently, proving validation runs first.
		path := write("bad.hcl", `
data_source "file" "f" {
  path = "/nonexistent/devices.json"
}

data_set "filter" "active" {
  input = "missing"
  expr  = "."
}
`)
		a := newTestApp(t, Config{ConfigPath: path, List: true, LogLevel: "error"}, nil)
		_, err := a.Run(context.Background())
		var cfgErr *config.Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, err.Error(), `undeclared data_set "missing"`)
	})

	t.Run("unregistered hook is rejected at startup", func(t *testing.T) {
		path := write("hooks.hcl", `
data_source "file" "f" {
  path = "/nonexistent/devices.json"
}

data_set "extract" "devices" {
  source = "f"
  format = "json"
}

transform {
  hooks = ["nope"]
}
`)
		a := newTestApp(t, Config{ConfigPath: path, List: true, LogLevel: "error"}, nil)
		_, err := a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"nope"`)
	})

	t.Run("missing configuration path", func(t *testing.T) {
		a := newTestApp(t, Config{ConfigPath: "/nonexistent/yaani.hcl", List: true}, nil)
		_, err := a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "locating configuration")
	})
}

func TestNewConfig(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "/from/env.hcl")
		cfg, err := NewConfig(Config{ConfigPath: "/from/flag.hcl"})
		require.NoError(t, err)
		assert.Equal(t, "/from/flag.hcl", cfg.ConfigPath)
	})

	t.Run("environment variable is the fallback", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "/from/env.hcl")
		cfg, err := NewConfig(Config{})
		require.NoError(t, err)
		assert.Equal(t, "/from/env.hcl", cfg.ConfigPath)
	})

	t.Run("default path when nothing is set", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "")
		cfg, err := NewConfig(Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultConfigFile, cfg.ConfigPath)
	})

	t.Run("invalid log format", func(t *testing.T) {
		_, err := NewConfig(Config{LogFormat: "xml"})
		assert.ErrorContains(t, err, "log-format")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := NewConfig(Config{LogLevel: "loud"})
		assert.ErrorContains(t, err, "log-level")
	})
}
