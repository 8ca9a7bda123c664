// Package config loads the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Oracle providers.
const (
	ProviderNone   = ""
	ProviderGemini = "gemini"
)

// Config is the full service configuration.
type Config struct {
	DBPath  string  `yaml:"db_path"`
	Workers int     `yaml:"workers"`
	Pairing Pairing `yaml:"pairing"`
	Model   Model   `yaml:"model"`
	Oracle  Oracle  `yaml:"oracle"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

type Pairing struct {
	Window     time.Duration `yaml:"window"`
	BucketSize int           `yaml:"bucket_size"`
}

type Model struct {
	Path      string        `yaml:"path"`
	VocabPath string        `yaml:"vocab_path"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Oracle struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Workers: 4,
		Pairing: Pairing{Window: 3 * time.Minute, BucketSize: 8},
		Model:   Model{MaxTokens: 64, Timeout: 2 * time.Second},
		Oracle:  Oracle{Model: "gemini-2.0-flash", Timeout: 5 * time.Second},
		Server:  Server{Addr: ":8080"},
		Log:     Log{Level: "info", Console: true},
	}
}

// Load reads path over the defaults. An empty path yields the defaults. The
// oracle API key falls back to GEMINI_API_KEY.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Pairing.Window <= 0 {
		errs = append(errs, fmt.Errorf("pairing.window must be positive, got %s", c.Pairing.Window))
	}
	if c.Pairing.BucketSize <= 0 {
		errs = append(errs, fmt.Errorf("pairing.bucket_size must be positive, got %d", c.Pairing.BucketSize))
	}
	if c.Model.MaxTokens < 8 {
		errs = append(errs, fmt.Errorf("model.max_tokens must be at least 8, got %d", c.Model.MaxTokens))
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("model.timeout must be positive, got %s", c.Model.Timeout))
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("oracle.timeout must be positive, got %s", c.Oracle.Timeout))
	}
	switch c.Oracle.Provider {
	case ProviderNone:
	case ProviderGemini:
		if c.Oracle.APIKey == "" {
			errs = append(errs, errors.New("oracle.api_key (or GEMINI_API_KEY) is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown oracle.provider %q", c.Oracle.Provider))
	}
	return errors.Join(errs...)
}
