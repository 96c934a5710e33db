package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/backend"
)

// clearEnv keeps the caller's environment out of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MATHPAD_BACKEND_URL", "MATHPAD_BACKEND_TIMEOUT", "MATHPAD_LOG_LEVEL", "MATHPAD_LOG_FORMAT", "MATHPAD_ADDR"} {
		t.Setenv(k, "")
	}
	for _, m := range backend.Methods() {
		t.Setenv("MATHPAD_"+m.EnvKey()+"_URL", "")
	}
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, mathpad.RuleSimpson, cfg.GetDefaultRule())
	assert.Equal(t, 200, cfg.Integration.SamplePoints)
	assert.Equal(t, 1_000_000, cfg.Integration.MaxSubintervals)
	assert.Len(t, cfg.Endpoints(), 10)
	assert.Equal(t, 30*time.Second, cfg.GetBackendTimeout())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "mathpad.yaml")

	cfg := DefaultConfig()
	cfg.Backend.Endpoints[string(backend.Simpson)] = "http://integrals:9000/solve"
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, "http://integrals:9000/solve", loaded.Endpoints()[backend.Simpson])
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mathpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  endpoints:\n    euler: http://ode:7000/solve\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	eps := cfg.Endpoints()
	assert.Equal(t, "http://ode:7000/solve", eps[backend.Euler])
	assert.Equal(t, "http://localhost:5001/solve", eps[backend.Bisection])
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mathpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATHPAD_NEWTON_RAPHSON_URL", "http://nr:9999/solve")
	t.Setenv("MATHPAD_LOG_LEVEL", "warn")
	t.Setenv("MATHPAD_ADDR", "127.0.0.1:9090")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://nr:9999/solve", cfg.Endpoints()[backend.NewtonRaphson])
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
}

func TestConfig_RunnerRoutesEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATHPAD_BACKEND_URL", "http://runner:8000/")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	eps := cfg.Endpoints()
	assert.Len(t, eps, 10)
	assert.Equal(t, "http://runner:8000/solve/gauss-seidel", eps[backend.GaussSeidel])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad rule", func(c *Config) { c.Integration.DefaultRule = "romberg" }},
		{"odd simpson n", func(c *Config) { c.Integration.DefaultSubintervals = 3 }},
		{"zero samples", func(c *Config) { c.Integration.SamplePoints = 0 }},
		{"zero max subintervals", func(c *Config) { c.Integration.MaxSubintervals = 0 }},
		{"max below default samples", func(c *Config) { c.Integration.MaxSubintervals = 100 }},
		{"bad timeout", func(c *Config) { c.Backend.Timeout = "soon" }},
		{"unknown method", func(c *Config) { c.Backend.Endpoints["regula-falsi"] = "http://x/solve" }},
		{"relative endpoint", func(c *Config) { c.Backend.Endpoints["euler"] = "/solve" }},
		{"bad runner", func(c *Config) { c.Backend.RunnerURL = "ftp://runner" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("odd n is fine for trapezoid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Integration.DefaultRule = "trapezoid"
		cfg.Integration.DefaultSubintervals = 3
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Timeout = "nonsense"
	cfg.Server.ReadTimeout = ""
	assert.Equal(t, 30*time.Second, cfg.GetBackendTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetWriteTimeout())
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mathpad.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil, func(c *Config) { changes <- c }) }()

	// give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Backend.Endpoints["secant"] = "http://secant:7004/solve"
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-changes:
		assert.Equal(t, "http://secant:7004/solve", got.Endpoints()[backend.Secant])
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_InvalidReloadSkipped(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mathpad.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	go func() { _ = Watch(ctx, path, nil, func(c *Config) { changes <- c }) }()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	select {
	case <-changes:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
