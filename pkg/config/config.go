// Package config loads annactl/annad settings from YAML with environment
// overrides. The result is read once at startup and passed down explicitly.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	MaxLoops             int            `yaml:"max_loops"`
	OrchestrationTimeout Duration       `yaml:"orchestration_timeout"`
	ProbeTimeout         Duration       `yaml:"probe_timeout"`
	ProbeConcurrency     int            `yaml:"probe_concurrency"`
	Thresholds           ThresholdTable `yaml:"thresholds"`
	FastPath             bool           `yaml:"fast_path"`
	CatalogPath          string         `yaml:"catalog,omitempty"`
	LLM                  LLMConfig      `yaml:"llm"`
	Debug                DebugConfig    `yaml:"debug"`
	Server               ServerConfig   `yaml:"server"`
}

// ThresholdTable is the score floor for each confidence level.
type ThresholdTable struct {
	Green  float64 `yaml:"green"`
	Yellow float64 `yaml:"yellow"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key,omitempty"`
	JuniorModel string  `yaml:"junior_model"`
	SeniorModel string  `yaml:"senior_model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// DebugConfig controls forensic output.
type DebugConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TraceFile string `yaml:"trace_file,omitempty"`
	Stream    bool   `yaml:"stream"`
}

// ServerConfig configures annad.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses "30s" style values.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxLoops:             3,
		OrchestrationTimeout: Duration(60 * time.Second),
		ProbeTimeout:         Duration(5 * time.Second),
		ProbeConcurrency:     4,
		Thresholds:           ThresholdTable{Green: 0.90, Yellow: 0.70},
		FastPath:             true,
		LLM: LLMConfig{
			Endpoint:    "http://127.0.0.1:11434/v1",
			JuniorModel: "qwen3:4b",
			SeniorModel: "qwen3:8b",
			Temperature: 0.1,
		},
		Server: ServerConfig{Addr: "127.0.0.1:7865"},
	}
}

// LoadFile reads path on top of Default. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		applyEnv(&cfg, os.LookupEnv)
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes YAML strictly on top of Default, then applies ANNA_*
// environment overrides and validates.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	return cfg, cfg.Validate()
}

// applyEnv overlays ANNA_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("ANNA_LLM_ENDPOINT"); ok && v != "" {
		cfg.LLM.Endpoint = v
	}
	if v, ok := lookup("ANNA_LLM_API_KEY"); ok && v != "" {
		cfg.LLM.APIKey = v
	}
	if v, ok := lookup("ANNA_JUNIOR_MODEL"); ok && v != "" {
		cfg.LLM.JuniorModel = v
	}
	if v, ok := lookup("ANNA_SENIOR_MODEL"); ok && v != "" {
		cfg.LLM.SeniorModel = v
	}
	if v, ok := lookup("ANNA_MAX_LOOPS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxLoops = n
		}
	}
	if v, ok := lookup("ANNA_DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug.Enabled = b
		}
	}
	if v, ok := lookup("ANNA_TRACE_FILE"); ok && v != "" {
		cfg.Debug.TraceFile = v
	}
}

// Validate checks ranges and threshold monotonicity.
func (c Config) Validate() error {
	var errs []error
	if c.MaxLoops < 1 {
		errs = append(errs, fmt.Errorf("max_loops must be >= 1, got %d", c.MaxLoops))
	}
	if c.OrchestrationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("orchestration_timeout must be positive"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probe_timeout must be positive"))
	}
	if c.ProbeConcurrency < 1 {
		errs = append(errs, fmt.Errorf("probe_concurrency must be >= 1"))
	}
	t := c.Thresholds
	if t.Yellow < 0 || t.Green > 1 || t.Yellow > t.Green {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= yellow <= green <= 1, got yellow=%.2f green=%.2f", t.Yellow, t.Green))
	}
	return errors.Join(errs...)
}
