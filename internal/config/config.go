// Package config loads and validates the harness configuration. Settings
// come from an optional YAML file, environment variables with the APICHECK
// prefix, and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Errors returned by the config package.
var (
	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: file not found")
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. APICHECK_BASE_URL, APICHECK_TIMEOUT.
const EnvPrefix = "APICHECK"

// Target describes the backend under test.
type Target struct {
	// BaseURL is the absolute root URL of the backend, e.g. http://localhost:8000.
	BaseURL string `yaml:"baseUrl" envconfig:"BASE_URL"`

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	// TLSSkipVerify disables certificate verification. Staging environments
	// run on self-signed certificates.
	TLSSkipVerify bool `yaml:"tlsSkipVerify" envconfig:"TLS_SKIP_VERIFY"`

	// Headers are added to every request, e.g. an Authorization token.
	Headers map[string]string `yaml:"headers" envconfig:"HEADERS"`
}

// RateLimit throttles outgoing requests. Zero means unlimited.
type RateLimit struct {
	// RequestsPerSecond caps the request rate across all scenarios.
	RequestsPerSecond float64 `yaml:"requestsPerSecond" envconfig:"REQUESTS_PER_SECOND"`
}

// Output controls console reporting.
type Output struct {
	// Verbose prints every step outcome, not just failures.
	Verbose bool `yaml:"verbose" envconfig:"VERBOSE"`

	// NoColor disables ANSI colors in the report.
	NoColor bool `yaml:"noColor" envconfig:"NO_COLOR"`
}

// Config is the full harness configuration.
type Config struct {
	// Name labels the run in logs and reports.
	Name string `yaml:"name" envconfig:"NAME"`

	Target    Target    `yaml:"target"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Output    Output    `yaml:"output"`

	// ScenariosDir holds additional YAML scenario files loaded alongside
	// the built-in catalog. Missing directory is not an error.
	ScenariosDir string `yaml:"scenariosDir" envconfig:"SCENARIOS_DIR"`

	// Seed fixes the fixture random source for reproducible payloads.
	// Zero selects a random seed.
	Seed uint64 `yaml:"seed" envconfig:"SEED"`

	// OpenAPISpec is an optional path to the backend's OpenAPI document;
	// when set, scenario paths are cross-checked against it.
	OpenAPISpec string `yaml:"openapiSpec" envconfig:"OPENAPI_SPEC"`

	// MetricsAddr exposes Prometheus metrics while the run is in flight,
	// e.g. ":9901". Empty disables the listener.
	MetricsAddr string `yaml:"metricsAddr" envconfig:"METRICS_ADDR"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Name: "apicheck",
		Target: Target{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path and applies environment overrides and
// defaults. An empty path skips the file and builds the configuration from
// environment and defaults alone. Callers validate after applying their
// own overrides (command-line flags).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Target.Timeout <= 0 {
		c.Target.Timeout = defaults.Target.Timeout
	}
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("%w: target.baseUrl is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: target.baseUrl must be an absolute URL: %s", ErrInvalidConfig, c.Target.BaseURL)
	}

	if c.Target.Timeout < 0 {
		return fmt.Errorf("%w: target.timeout must be non-negative", ErrInvalidConfig)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: rateLimit.requestsPerSecond must be non-negative", ErrInvalidConfig)
	}

	if c.ScenariosDir != "" {
		if info, err := os.Stat(c.ScenariosDir); err == nil && !info.IsDir() {
			return fmt.Errorf("%w: scenariosDir is not a directory: %s", ErrInvalidConfig, c.ScenariosDir)
		}
	}

	return nil
}
