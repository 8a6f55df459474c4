package azureopenai

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/magentic/llmclients/pkg/providers/model"
	"github.com/spf13/viper"
)

// ProviderName is the only accepted value of LLM_PROVIDER for this package.
const ProviderName = "azure_openai"

// DefaultAPIVersion is used when AZURE_OPENAI_API_VERSION is unset.
const DefaultAPIVersion = "2025-04-01-preview"

// Environment variables read by ConfigFromEnv, in addition to the shared
// LLM_* variables of package model.
const (
	EnvEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAPIVersion = "AZURE_OPENAI_API_VERSION"
	EnvAPIKey     = "AZURE_OPENAI_API_KEY" //nolint:gosec // variable name, not a secret
	EnvUseEntraID = "AZURE_OPENAI_USE_ENTRA_ID"
)

// Configuration keys, as used in YAML files and viper.
const (
	KeyEndpoint   = "azure_endpoint"
	KeyAPIVersion = "api_version"
	KeyAPIKey     = "api_key"
	KeyUseEntraID = "use_entra_id"
)

const redacted = "********"

// Config describes how to reach and authenticate against one Azure OpenAI
// resource. Only the fields hashed by CacheKey decide client reuse; Model
// settings (deployment name, temperature, max tokens, max concurrency) and
// the API key do not.
type Config struct {
	model.Model `yaml:",inline" mapstructure:",squash"`

	Endpoint   string `yaml:"azure_endpoint" mapstructure:"azure_endpoint"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	UseEntraID bool   `yaml:"use_entra_id" mapstructure:"use_entra_id"`
}

// NewViper returns a viper instance carrying the package defaults with every
// AZURE_OPENAI_* and LLM_* variable bound. Empty variables count as unset.
func NewViper() *viper.Viper {
	v := viper.New()

	model.BindEnv(v, ProviderName)

	v.SetDefault(KeyAPIVersion, DefaultAPIVersion)
	v.SetDefault(KeyUseEntraID, true)

	_ = v.BindEnv(KeyEndpoint, EnvEndpoint)
	_ = v.BindEnv(KeyAPIVersion, EnvAPIVersion)
	_ = v.BindEnv(KeyAPIKey, EnvAPIKey)
	_ = v.BindEnv(KeyUseEntraID, EnvUseEntraID)

	return v
}

// ConfigFromEnv builds a Config from the process environment.
func ConfigFromEnv() (Config, error) {
	return Load("")
}

// Load resolves a Config from, in increasing precedence, the defaults, the
// YAML file at path (skipped when path is empty) and the environment.
// ${VAR} and $VAR references in the file are expanded before parsing, so
// secrets can stay in the environment.
func Load(path string) (Config, error) {
	v := NewViper()

	if path != "" {
		if err := ReadConfigFile(v, path); err != nil {
			return Config{}, err
		}
	}

	return Decode(v)
}

// ReadConfigFile reads the YAML file at path into v.
func ReadConfigFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return fmt.Errorf("azureopenai: load config: %w", err)
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(os.ExpandEnv(string(data)))); err != nil {
		return fmt.Errorf("azureopenai: parse config: %w", err)
	}

	return nil
}

// Decode unmarshals the settings held by v and validates the result.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("azureopenai: config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent. A missing
// API key in API-key mode is reported at client construction, not here.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("azureopenai: config: %w", err)
	}

	if c.Provider != ProviderName {
		return fmt.Errorf("azureopenai: config: provider must be %q, got %q", ProviderName, c.Provider)
	}

	if c.Endpoint == "" {
		return fmt.Errorf("azureopenai: config: endpoint is required (set %s)", EnvEndpoint)
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("azureopenai: config: endpoint %q must be an absolute http(s) URL", c.Endpoint)
	}

	if c.APIVersion == "" {
		return errors.New("azureopenai: config: api version is required")
	}

	return nil
}

// AuthMode names the authentication strategy selected by the configuration.
func (c Config) AuthMode() string {
	if c.UseEntraID {
		return "entra_id"
	}
	return "api_key"
}

// identity is the canonical form hashed by CacheKey. Field order is fixed by
// the struct declaration.
type identity struct {
	Provider   string `json:"provider"`
	Endpoint   string `json:"azure_endpoint"`
	APIVersion string `json:"api_version"`
	UseEntraID bool   `json:"use_entra_id"`
}

// CacheKey returns the hex SHA-256 of the identity-relevant fields. Configs
// that differ only in model settings or API key share a key.
func (c Config) CacheKey() string {
	raw, _ := json.Marshal(identity{
		Provider:   c.Provider,
		Endpoint:   c.Endpoint,
		APIVersion: c.APIVersion,
		UseEntraID: c.UseEntraID,
	})
	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])
}

// Redacted returns a copy safe to print or serialize.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = redacted
	}
	return c
}

// String describes the configuration without the API key.
func (c Config) String() string {
	return fmt.Sprintf("%s(endpoint=%s api_version=%s auth=%s model=%s)",
		c.Provider, c.Endpoint, c.APIVersion, c.AuthMode(), c.Name)
}

// LogValue implements slog.LogValuer. The API key is never included.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.String("api_version", c.APIVersion),
		slog.String("auth", c.AuthMode()),
		slog.String("model", c.Name),
	)
}
