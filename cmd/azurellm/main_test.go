package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/magentic/llmclients/pkg/providers/azureopenai"
	"github.com/magentic/llmclients/pkg/providers/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolateEnv blanks every variable the command reads.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		model.EnvProvider, model.EnvModel, model.EnvTemperature, model.EnvMaxTokens, model.EnvMaxConcurrency,
		azureopenai.EnvEndpoint, azureopenai.EnvAPIVersion, azureopenai.EnvAPIKey, azureopenai.EnvUseEntraID,
	} {
		t.Setenv(name, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "none.env")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestLoadDotEnv(t *testing.T) {
	const name = "AZURELLM_TEST_DOTENV"
	t.Cleanup(func() { _ = os.Unsetenv(name) })

	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, loadDotEnv(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(name+"=https://dotenv.example/\n"), 0o600))
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "https://dotenv.example/", os.Getenv(name))

	bad := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("BAD-KEY=1\n"), 0o600))
	assert.Error(t, loadDotEnv(bad))
}

func TestKeyCmd(t *testing.T) {
	isolateEnv(t)
	t.Setenv(azureopenai.EnvEndpoint, "https://x.example/")
	t.Setenv(azureopenai.EnvAPIVersion, "v1")

	out, _, err := execute(t, "", "key")
	require.NoError(t, err)

	cfg, err := azureopenai.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cfg.CacheKey()+"\n", out)

	t.Setenv(model.EnvModel, "another-deployment")

	again, _, err := execute(t, "", "key")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestConfigCmd_RedactsKey(t *testing.T) {
	isolateEnv(t)
	t.Setenv(azureopenai.EnvEndpoint, "https://x.example/")
	t.Setenv(azureopenai.EnvAPIKey, "super-secret")
	t.Setenv(azureopenai.EnvUseEntraID, "false")

	out, _, err := execute(t, "", "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://x.example/", got["azure_endpoint"])
	assert.Equal(t, azureopenai.DefaultAPIVersion, got["api_version"])
	assert.Equal(t, false, got["use_entra_id"])
	assert.Equal(t, azureopenai.ProviderName, got["provider"])
}

func TestConfigCmd_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv(azureopenai.EnvAPIVersion, "from-env")
	t.Setenv(model.EnvModel, "gpt-4o-mini")

	path := filepath.Join(t.TempDir(), "azure.yaml")
	require.NoError(t, os.WriteFile(path, []byte("azure_endpoint: https://file.example/\nmodel: gpt-4o\n"), 0o600))

	out, _, err := execute(t, "", "--config", path, "config")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://file.example/", got["azure_endpoint"])
	assert.Equal(t, "from-env", got["api_version"])
	assert.Equal(t, "gpt-4o-mini", got["model"])
}

func TestConfigCmd_MissingEndpoint(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "", "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), azureopenai.EnvEndpoint)
}

func TestCompleteCmd(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/override/chat/completions", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("api-key"))

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "pong"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)

	isolateEnv(t)
	t.Setenv(azureopenai.EnvEndpoint, srv.URL)
	t.Setenv(azureopenai.EnvAPIKey, "k")
	t.Setenv(azureopenai.EnvUseEntraID, "false")
	t.Setenv(model.EnvModel, "gpt-4o")

	out, stderr, err := execute(t, "", "-v", "complete", "--model", "override", "--system", "be brief", "--developer", "no markdown", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
	assert.Contains(t, stderr, "azure openai client created")
	assert.Contains(t, stderr, "completion_tokens=1")

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "developer", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "no markdown", msgs[1].(map[string]any)["content"])
	assert.Equal(t, "ping", msgs[2].(map[string]any)["content"])
}

func TestCompleteCmd_MissingAPIKey(t *testing.T) {
	isolateEnv(t)
	t.Setenv(azureopenai.EnvEndpoint, "https://x.example/")
	t.Setenv(azureopenai.EnvUseEntraID, "false")

	_, _, err := execute(t, "", "complete", "hi")
	require.ErrorIs(t, err, azureopenai.ErrMissingAPIKey)
}

func TestReadPrompt(t *testing.T) {
	p, err := readPrompt(strings.NewReader("ignored"), []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", p)

	p, err = readPrompt(strings.NewReader("  from stdin\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", p)

	_, err = readPrompt(strings.NewReader(" \n"), nil)
	assert.EqualError(t, err, "prompt is empty")
}
