// Package model holds the provider-agnostic settings every LLM provider
// configuration embeds.
package model

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Environment variables shared by all providers.
const (
	EnvProvider       = "LLM_PROVIDER"
	EnvModel          = "LLM_MODEL"
	EnvTemperature    = "LLM_TEMPERATURE"
	EnvMaxTokens      = "LLM_MAX_TOKENS"
	EnvMaxConcurrency = "LLM_MAX_CONCURRENCY"
)

// Configuration keys of the shared settings.
const (
	KeyProvider       = "provider"
	KeyModel          = "model"
	KeyTemperature    = "temperature"
	KeyMaxTokens      = "max_tokens"
	KeyMaxConcurrency = "max_concurrency"
)

// Model holds provider-agnostic LLM configuration.
// Zero and nil fields mean "use provider default"; a nil MaxConcurrency means
// no bound on concurrent requests.
type Model struct {
	Provider       string   `yaml:"provider" mapstructure:"provider"`
	Name           string   `yaml:"model" mapstructure:"model"`
	Temperature    *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens      int      `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	MaxConcurrency *int     `yaml:"max_concurrency,omitempty" mapstructure:"max_concurrency"`
}

// BindEnv binds the shared LLM_* variables on v and defaults the provider to
// provider.
func BindEnv(v *viper.Viper, provider string) {
	v.SetDefault(KeyProvider, provider)

	_ = v.BindEnv(KeyProvider, EnvProvider)
	_ = v.BindEnv(KeyModel, EnvModel)
	_ = v.BindEnv(KeyTemperature, EnvTemperature)
	_ = v.BindEnv(KeyMaxTokens, EnvMaxTokens)
	_ = v.BindEnv(KeyMaxConcurrency, EnvMaxConcurrency)
}

// Validate checks value ranges.
func (m Model) Validate() error {
	if m.Provider == "" {
		return errors.New("model: provider is required")
	}
	if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
		return fmt.Errorf("model: temperature %v out of range [0, 2]", *m.Temperature)
	}
	if m.MaxTokens < 0 {
		return fmt.Errorf("model: max_tokens must not be negative, got %d", m.MaxTokens)
	}
	if m.MaxConcurrency != nil && *m.MaxConcurrency <= 0 {
		return fmt.Errorf("model: max_concurrency must be positive, got %d", *m.MaxConcurrency)
	}
	return nil
}

// ConcurrencyLimit returns MaxConcurrency, or 0 for unlimited.
func (m Model) ConcurrencyLimit() int {
	if m.MaxConcurrency == nil {
		return 0
	}
	return *m.MaxConcurrency
}
