/*
PURPOSE:
  Defines the configuration structure and loading logic for chatprobe.
  Credentials and model identifiers always come from here, never from code.

REQUIREMENTS:
  User-specified:
  - Configure target base URL, API key, model, timeout and probes.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs environment overrides (CHATPROBE_...) and a .env file so the API
    key does not have to live in the YAML file.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3, github.com/joho/godotenv

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default files fall back to defaults.
  - Validate() reports every problem at once.

USAGE:
  cfg, err := config.Load("chatprobe.yaml")
  err = cfg.Validate()

RELATED FILES:
  - internal/cli/root.go
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/daryltucker/chatprobe/internal/model"
)

// Environment variables that override file values.
const (
	EnvBaseURL      = "CHATPROBE_BASE_URL"
	EnvAPIKey       = "CHATPROBE_API_KEY"
	EnvModel        = "CHATPROBE_MODEL"
	EnvCompareModel = "CHATPROBE_COMPARE_MODEL"
	EnvTimeout      = "CHATPROBE_TIMEOUT"
)

// DefaultFiles are searched in order when no config path is given.
var DefaultFiles = []string{"chatprobe.yaml", "chatprobe.yml"}

// Config represents the full configuration for chatprobe.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	// CompareModel, when set, is probed after Model with the same settings.
	CompareModel string        `yaml:"compare_model"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	Probes       []model.Probe `yaml:"probes"`
	OutputDir    string        `yaml:"output_dir"`
	// PreviewChars bounds the reply preview printed per probe.
	PreviewChars int `yaml:"preview_chars"`
	// MaxStreamLine bounds a single event line of an incremental response.
	MaxStreamLine int `yaml:"max_stream_line"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://api.openai.com",
		Temperature:   0.7,
		Timeout:       30 * time.Second,
		Probes:        model.DefaultProbes(),
		PreviewChars:  200,
		MaxStreamLine: 1024 * 1024,
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles in order.
// Environment overrides are applied last, after a .env file in the working
// directory (if any) has been loaded into the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from CHATPROBE_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvCompareModel); v != "" {
		c.CompareModel = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	return nil
}

// LoadProbes reads a YAML list of probes, replacing the configured set.
func (c *Config) LoadProbes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read probes file: %w", err)
	}
	var probes []model.Probe
	if err := yaml.Unmarshal(data, &probes); err != nil {
		return fmt.Errorf("failed to parse probes file %s: %w", path, err)
	}
	c.Probes = probes
	return nil
}

// Endpoint returns the chat completions URL.
func (c *Config) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1/chat/completions"
}

// ModelsEndpoint returns the model listing URL.
func (c *Config) ModelsEndpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1/models"
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("api_key is required (set %s)", EnvAPIKey))
	}
	if c.Model == "" {
		errs = append(errs, fmt.Errorf("model is required (set %s or --model)", EnvModel))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if len(c.Probes) == 0 {
		errs = append(errs, errors.New("at least one probe is required"))
	}
	for i, p := range c.Probes {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("probe %d: name is required", i+1))
		}
		if p.MaxTokens <= 0 {
			errs = append(errs, fmt.Errorf("probe %q: max_tokens must be positive", p.Name))
		}
	}
	return errors.Join(errs...)
}
