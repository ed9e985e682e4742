// Package config loads qnagen settings from a YAML file, a .env file and
// QNAGEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/theanmol-raj/qnagen/internal/llm"
)

// Config is the resolved configuration.
type Config struct {
	Provider string `validate:"required"`
	Model    string
	APIKey   string
	BaseURL  string `validate:"omitempty,url"`

	MaxTokens int           `validate:"gt=0,lte=65536"`
	Timeout   time.Duration `validate:"gte=0"`

	TemplateFile       string
	StrictPlaceholders bool

	Gateway GatewayConfig
	Server  ServerConfig

	DB        string
	NoHistory bool
	LogLevel  string `validate:"oneof=debug info warn error"`
}

// GatewayConfig configures the managed model gateway.
type GatewayConfig struct {
	Region           string
	AnthropicVersion string
}

// ServerConfig configures `qnagen serve`.
type ServerConfig struct {
	Addr        string `validate:"required"`
	MaxUploadMB int    `validate:"gt=0"`
}

// rawConfig is the YAML shape (snake_case fields, durations as strings).
type rawConfig struct {
	Provider           string           `yaml:"provider"`
	Model              string           `yaml:"model"`
	APIKey             string           `yaml:"api_key"`
	BaseURL            string           `yaml:"base_url"`
	MaxTokens          int              `yaml:"max_tokens"`
	Timeout            string           `yaml:"timeout"`
	TemplateFile       string           `yaml:"template_file"`
	StrictPlaceholders *bool            `yaml:"strict_placeholders"`
	Gateway            rawGatewayConfig `yaml:"gateway"`
	Server             rawServerConfig  `yaml:"server"`
	DB                 string           `yaml:"db"`
	NoHistory          *bool            `yaml:"no_history"`
	LogLevel           string           `yaml:"log_level"`
}

type rawGatewayConfig struct {
	Region           string `yaml:"region"`
	AnthropicVersion string `yaml:"anthropic_version"`
}

type rawServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// Options tells Load where to look.
type Options struct {
	// ConfigPath is the YAML file. Empty means DefaultPath, which may be absent.
	ConfigPath string
	// DotEnvPath is the .env file. Empty means ".env" in the working directory.
	DotEnvPath string
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:  string(llm.KindOpenAI),
		MaxTokens: llm.DefaultMaxTokens,
		Timeout:   llm.DefaultTimeout,
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 32,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/qnagen/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "qnagen", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file, the .env file
// and the environment, in increasing precedence. It does not validate;
// callers apply flag overrides first and then call Validate.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	dotenv := opts.DotEnvPath
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := loadDotEnv(dotenv); err != nil {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.Provider, raw.Provider)
	setString(&c.Model, raw.Model)
	setString(&c.APIKey, raw.APIKey)
	setString(&c.BaseURL, raw.BaseURL)
	if raw.MaxTokens != 0 {
		c.MaxTokens = raw.MaxTokens
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout %q: %w", raw.Timeout, err)
		}
		c.Timeout = d
	}
	setString(&c.TemplateFile, raw.TemplateFile)
	if raw.StrictPlaceholders != nil {
		c.StrictPlaceholders = *raw.StrictPlaceholders
	}
	setString(&c.Gateway.Region, raw.Gateway.Region)
	setString(&c.Gateway.AnthropicVersion, raw.Gateway.AnthropicVersion)
	setString(&c.Server.Addr, raw.Server.Addr)
	if raw.Server.MaxUploadMB != 0 {
		c.Server.MaxUploadMB = raw.Server.MaxUploadMB
	}
	setString(&c.DB, raw.DB)
	if raw.NoHistory != nil {
		c.NoHistory = *raw.NoHistory
	}
	setString(&c.LogLevel, raw.LogLevel)
	return nil
}

// mergeEnv applies QNAGEN_* variables.
func (c *Config) mergeEnv() error {
	setString(&c.Provider, os.Getenv("QNAGEN_PROVIDER"))
	setString(&c.Model, os.Getenv("QNAGEN_MODEL"))
	setString(&c.APIKey, os.Getenv("QNAGEN_API_KEY"))
	setString(&c.BaseURL, os.Getenv("QNAGEN_BASE_URL"))
	setString(&c.TemplateFile, os.Getenv("QNAGEN_TEMPLATE_FILE"))
	setString(&c.Gateway.Region, os.Getenv("QNAGEN_GATEWAY_REGION"))
	setString(&c.Server.Addr, os.Getenv("QNAGEN_SERVER_ADDR"))
	setString(&c.DB, os.Getenv("QNAGEN_DB"))
	setString(&c.LogLevel, os.Getenv("QNAGEN_LOG_LEVEL"))

	if v := os.Getenv("QNAGEN_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse QNAGEN_MAX_TOKENS %q: %w", v, err)
		}
		c.MaxTokens = n
	}
	if v := os.Getenv("QNAGEN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse QNAGEN_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("QNAGEN_STRICT_PLACEHOLDERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse QNAGEN_STRICT_PLACEHOLDERS %q: %w", v, err)
		}
		c.StrictPlaceholders = b
	}
	return nil
}

// Validate checks field constraints and the provider name. It does not
// require a credential; see ProviderConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := llm.ParseKind(c.Provider); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ProviderConfig resolves the backend selection. An empty API key falls
// back to the backend's conventional variable (OPENAI_API_KEY and so on).
func (c *Config) ProviderConfig() (llm.ProviderConfig, error) {
	kind, err := llm.ParseKind(c.Provider)
	if err != nil {
		return llm.ProviderConfig{}, err
	}
	key := c.APIKey
	if key == "" {
		key = llm.DiscoverAPIKey(kind)
	}
	return llm.ProviderConfig{
		Kind:    kind,
		Model:   c.Model,
		APIKey:  key,
		BaseURL: c.BaseURL,
	}.WithDefaults(), nil
}

// LLMGatewayConfig converts the gateway settings for the llm package.
func (c *Config) LLMGatewayConfig() llm.GatewayConfig {
	return llm.GatewayConfig{
		Region:           c.Gateway.Region,
		AnthropicVersion: c.Gateway.AnthropicVersion,
	}
}

// loadDotEnv loads environment variables from path. Missing files are
// ignored and variables already set win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
