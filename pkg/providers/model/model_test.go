package model_test

import (
	"testing"

	"github.com/magentic/llmclients/pkg/providers/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		model.EnvProvider,
		model.EnvModel,
		model.EnvTemperature,
		model.EnvMaxTokens,
		model.EnvMaxConcurrency,
	} {
		t.Setenv(name, "")
	}
}

func decode(t *testing.T) model.Model {
	t.Helper()

	v := viper.New()
	model.BindEnv(v, "azure_openai")

	var m model.Model
	require.NoError(t, v.Unmarshal(&m))

	return m
}

func TestModel_ZeroValue(t *testing.T) {
	var m model.Model

	assert.Empty(t, m.Name)
	assert.Nil(t, m.Temperature)
	assert.Zero(t, m.MaxTokens)
	assert.Zero(t, m.ConcurrencyLimit())
}

func TestModel_Embedding(t *testing.T) {
	type Config struct {
		model.Model
		Endpoint string
	}

	cfg := Config{
		Model:    model.Model{Name: "gpt-4o"},
		Endpoint: "https://x.example/",
	}

	assert.Equal(t, "gpt-4o", cfg.Name)
	assert.Equal(t, "https://x.example/", cfg.Endpoint)
}

func TestBindEnv_Defaults(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, model.Model{Provider: "azure_openai"}, decode(t))
}

func TestBindEnv_AllSet(t *testing.T) {
	clearEnv(t)
	t.Setenv(model.EnvProvider, "openai")
	t.Setenv(model.EnvModel, "gpt-4o-mini")
	t.Setenv(model.EnvTemperature, "0.3")
	t.Setenv(model.EnvMaxTokens, "512")
	t.Setenv(model.EnvMaxConcurrency, "4")

	m := decode(t)

	assert.Equal(t, "openai", m.Provider)
	assert.Equal(t, "gpt-4o-mini", m.Name)
	require.NotNil(t, m.Temperature)
	assert.InDelta(t, 0.3, *m.Temperature, 1e-9)
	assert.Equal(t, 512, m.MaxTokens)
	assert.Equal(t, 4, m.ConcurrencyLimit())
	assert.NoError(t, m.Validate())
}

func TestBindEnv_Unparsable(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		key  string
	}{
		{"bad temperature", model.EnvTemperature, "hot", model.KeyTemperature},
		{"bad max tokens", model.EnvMaxTokens, "lots", model.KeyMaxTokens},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.val)

			v := viper.New()
			model.BindEnv(v, "azure_openai")

			var m model.Model
			assert.ErrorContains(t, v.Unmarshal(&m), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	zero := 0
	hot := 3.0
	tests := []struct {
		name    string
		m       model.Model
		wantErr string
	}{
		{"no provider", model.Model{}, "model: provider is required"},
		{"zero concurrency", model.Model{Provider: "p", MaxConcurrency: &zero}, "model: max_concurrency must be positive, got 0"},
		{"temperature range", model.Model{Provider: "p", Temperature: &hot}, "model: temperature 3 out of range [0, 2]"},
		{"negative max tokens", model.Model{Provider: "p", MaxTokens: -1}, "model: max_tokens must not be negative, got -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.m.Validate(), tt.wantErr)
		})
	}
}
