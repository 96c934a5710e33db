package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/backend"
)

// Config holds all mathpad configuration.
type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Integration IntegrationConfig `yaml:"integration"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BackendConfig locates the numerical-method services.
type BackendConfig struct {
	// RunnerURL, when set, routes every method through a runner exposing
	// POST /solve/<method>; Endpoints is then ignored.
	RunnerURL string            `yaml:"runner_url"`
	Endpoints map[string]string `yaml:"endpoints"` // method -> full solve URL
	Timeout   string            `yaml:"timeout"`
}

// IntegrationConfig holds defaults for local integration and plotting.
type IntegrationConfig struct {
	DefaultRule         string `yaml:"default_rule"` // trapezoid, simpson
	DefaultSubintervals int    `yaml:"default_subintervals"`
	SamplePoints        int    `yaml:"sample_points"`
	MaxSubintervals     int    `yaml:"max_subintervals"` // caps n and sample points
}

// ServerConfig configures the tool server.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration. The endpoint table
// follows the usual one-service-per-port deployment; none of these
// addresses is assumed by the client itself.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Endpoints: map[string]string{
				string(backend.Bisection):     "http://localhost:5001/solve",
				string(backend.FixedPoint):    "http://localhost:5002/solve",
				string(backend.NewtonRaphson): "http://localhost:5003/solve",
				string(backend.Secant):        "http://localhost:5004/solve",
				string(backend.Jacobi):        "http://localhost:5006/solve",
				string(backend.GaussSeidel):   "http://localhost:5007/solve",
				string(backend.Euler):         "http://localhost:5008/solve",
				string(backend.Simpson):       "http://localhost:5009/solve",
				string(backend.Trapezoid):     "http://localhost:5010/solve",
				string(backend.Romberg):       "http://localhost:5011/solve",
			},
			Timeout: "30s",
		},

		Integration: IntegrationConfig{
			DefaultRule:         string(mathpad.RuleSimpson),
			DefaultSubintervals: 4,
			SamplePoints:        mathpad.DefaultSamplePoints,
			MaxSubintervals:     mathpad.MaxSubintervals,
		},

		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "10s",
			WriteTimeout: "30s",
			MaxBodyBytes: 1 << 20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("MATHPAD_BACKEND_URL"); u != "" {
		c.Backend.RunnerURL = u
	}
	for _, m := range backend.Methods() {
		if u := os.Getenv("MATHPAD_" + m.EnvKey() + "_URL"); u != "" {
			if c.Backend.Endpoints == nil {
				c.Backend.Endpoints = map[string]string{}
			}
			c.Backend.Endpoints[string(m)] = u
		}
	}
	if t := os.Getenv("MATHPAD_BACKEND_TIMEOUT"); t != "" {
		c.Backend.Timeout = t
	}
	if lvl := os.Getenv("MATHPAD_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if f := os.Getenv("MATHPAD_LOG_FORMAT"); f != "" {
		c.Logging.Format = f
	}
	if addr := os.Getenv("MATHPAD_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// Endpoints resolves the endpoint table handed to the backend client.
func (c *Config) Endpoints() map[backend.Method]string {
	out := make(map[backend.Method]string)
	if base := strings.TrimRight(c.Backend.RunnerURL, "/"); base != "" {
		for _, m := range backend.Methods() {
			out[m] = base + "/solve/" + string(m)
		}
		return out
	}
	for name, u := range c.Backend.Endpoints {
		m, err := backend.ParseMethod(name)
		if err != nil || u == "" {
			continue
		}
		out[m] = u
	}
	return out
}

// GetBackendTimeout returns the backend request timeout as a duration.
func (c *Config) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetDefaultRule returns the configured integration rule.
func (c *Config) GetDefaultRule() mathpad.Rule {
	r, err := mathpad.ParseRule(c.Integration.DefaultRule)
	if err != nil {
		return mathpad.RuleSimpson
	}
	return r
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// ValidFormats lists the accepted log formats.
var ValidFormats = []string{"json", "console"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if !contains(ValidFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidFormats)
	}

	rule, err := mathpad.ParseRule(c.Integration.DefaultRule)
	if err != nil {
		return fmt.Errorf("integration.default_rule: %w", err)
	}
	n := c.Integration.DefaultSubintervals
	if n < 1 || (rule == mathpad.RuleSimpson && n%2 != 0) {
		return fmt.Errorf("integration.default_subintervals: %d is not valid for %s", n, rule)
	}
	if c.Integration.SamplePoints < 1 {
		return fmt.Errorf("integration.sample_points must be at least 1")
	}
	limit := c.Integration.MaxSubintervals
	if limit < 1 {
		return fmt.Errorf("integration.max_subintervals must be at least 1")
	}
	if n > limit || c.Integration.SamplePoints > limit {
		return fmt.Errorf("integration.max_subintervals: %d is below the configured defaults", limit)
	}

	for _, d := range []struct{ name, value string }{
		{"backend.timeout", c.Backend.Timeout},
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}

	if c.Backend.RunnerURL != "" {
		if err := checkURL(c.Backend.RunnerURL); err != nil {
			return fmt.Errorf("backend.runner_url: %w", err)
		}
	}
	names := make([]string, 0, len(c.Backend.Endpoints))
	for name := range c.Backend.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := backend.ParseMethod(name); err != nil {
			return fmt.Errorf("backend.endpoints: %w", err)
		}
		if err := checkURL(c.Backend.Endpoints[name]); err != nil {
			return fmt.Errorf("backend.endpoints.%s: %w", name, err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
