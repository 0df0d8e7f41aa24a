package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the domainmap tool.
type Config struct {
	Scan      ScanConfig      `yaml:"scan"`
	Batch     BatchConfig     `yaml:"batch"`
	LLM       LLMConfig       `yaml:"llm"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Classify  ClassifyConfig  `yaml:"classify"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ScanConfig holds mapping-generation configuration.
type ScanConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// BatchConfig holds batch-building configuration.
type BatchConfig struct {
	TokenBudget int `yaml:"token_budget"`
}

// LLMConfig holds text-generation provider configuration.
type LLMConfig struct {
	Provider       string  `yaml:"provider"`    // "openai", "deepseek", "local", "mock"
	Model          string  `yaml:"model"`       // e.g. "gpt-4o-mini"
	BaseURL        string  `yaml:"base_url"`    // override for custom endpoints
	APIKeyEnv      string  `yaml:"api_key_env"` // environment variable for API key
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
}

// SummarizeConfig holds summarization-stage configuration.
type SummarizeConfig struct {
	ContinueOnError bool `yaml:"continue_on_error"`
}

// ClassifyConfig holds classification-stage configuration.
type ClassifyConfig struct {
	Workers            int `yaml:"workers"`
	CheckpointEvery    int `yaml:"checkpoint_every"`
	MaxRetries         int `yaml:"max_retries"`
	BackoffBaseSeconds int `yaml:"backoff_base_seconds"`
	BackoffCapSeconds  int `yaml:"backoff_cap_seconds"`
	MaxContentBytes    int `yaml:"max_content_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Includes: []string{"**/*.go", "**/*.py", "**/*.js", "**/*.ts", "**/*.java", "**/*.cs", "**/*.c", "**/*.cpp", "**/*.h", "**/*.rs", "**/*.rb"},
			Excludes: []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.min.js", "**/*_test.go", "**/test_*.py"},
		},
		Batch: BatchConfig{
			TokenBudget: 100000,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      4096,
			TimeoutSeconds: 120,
			Temperature:    0.2,
		},
		Summarize: SummarizeConfig{
			ContinueOnError: false,
		},
		Classify: ClassifyConfig{
			Workers:            20,
			CheckpointEvery:    10,
			MaxRetries:         5,
			BackoffBaseSeconds: 1,
			BackoffCapSeconds:  60,
			MaxContentBytes:    48 * 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for domainmap.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "domainmap.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".domainmap", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RunStorePath returns the path to the summary cache database.
func RunStorePath(dir string) string {
	return filepath.Join(dir, "domainmap.db")
}
