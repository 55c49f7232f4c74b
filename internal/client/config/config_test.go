package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func defaults() *Config {
	var c Config
	c.LoadDefaults()
	return &c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "JWT", c.AuthScheme)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_NoSources(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempConfig(t, `{
		// comments are allowed
		"base_url": "http://file.example:8000",
		"request_timeout": "30s",
		"auth_scheme": "Bearer",
		"log_level": "debug",
	}`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"-c", path})
		require.NoError(t, err)

		want := defaults()
		want.BaseURL = "http://file.example:8000"
		want.RequestTimeout = 30 * time.Second
		want.AuthScheme = "Bearer"
		want.LogLevel = "debug"
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("ACCOUNTS_BASE_URL", "https://env.example")
		t.Setenv("ACCOUNTS_REQUEST_TIMEOUT", "5s")

		cfg, err := LoadConfig([]string{"--config", path})
		require.NoError(t, err)
		assert.Equal(t, "https://env.example", cfg.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("ACCOUNTS_BASE_URL", "https://env.example")

		cfg, err := LoadConfig([]string{"--config=" + path, "-s", "http://flag.example", "--timeout", "2s", "--log-format", "json"})
		require.NoError(t, err)
		assert.Equal(t, "http://flag.example", cfg.BaseURL)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"missing file", func(t *testing.T) []string {
			return []string{"-c", filepath.Join(t.TempDir(), "absent.json")}
		}},
		{"invalid json", func(t *testing.T) []string {
			return []string{"-c", writeTempConfig(t, `{ this is not json`)}
		}},
		{"bad duration in file", func(t *testing.T) []string {
			return []string{"-c", writeTempConfig(t, `{"request_timeout": "soon"}`)}
		}},
		{"unknown flag", func(t *testing.T) []string { return []string{"--nope"} }},
		{"bad timeout flag", func(t *testing.T) []string { return []string{"--timeout", "abc"} }},
		{"relative base url", func(t *testing.T) []string { return []string{"-s", "/api"} }},
		{"zero timeout", func(t *testing.T) []string { return []string{"--timeout", "0s"} }},
		{"unknown log level", func(t *testing.T) []string { return []string{"--log-level", "loud"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args(t))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("ACCOUNTS_REQUEST_TIMEOUT", "forever")
	_, err := LoadConfig(nil)
	assert.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Duration)

	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`"x"`)))
}

func TestParseFile_KeepsAbsentKeys(t *testing.T) {
	cfg := defaults()
	require.NoError(t, parseFile(cfg, writeTempConfig(t, `{"log_format": "json"}`)))

	want := defaults()
	want.LogFormat = "json"
	assert.Empty(t, cmp.Diff(want, cfg))
}
