package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "text", cfg.Logging.LogFormat)
	assert.Equal(t, "30s", cfg.Network.RequestTimeout)
	require.NoError(t, Validate(cfg))
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://smac.example.org"

[logging]
log_level = "debug"
log_format = "json"

[network]
connect_timeout = "5s"
request_timeout = "1m"
user_agent = "smacctl-ci"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://smac.example.org", cfg.ServerURL)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "smacctl-ci", cfg.Network.UserAgent)
}

func TestLoad_UnknownKeySuggestion(t *testing.T) {
	path := writeConfig(t, `
server_uri = "https://smac.example.org"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_uri")
	assert.Contains(t, err.Error(), `did you mean "server_url"`)
}

func TestLoad_UnknownSectionKey(t *testing.T) {
	path := writeConfig(t, `
[logging]
log_levle = "debug"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_levle")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.ServerURL = "ftp://smac" }, "scheme"},
		{"no host", func(c *Config) { c.ServerURL = "https://" }, "missing host"},
		{"bad level", func(c *Config) { c.Logging.LogLevel = "trace" }, "log_level"},
		{"bad format", func(c *Config) { c.Logging.LogFormat = "yaml" }, "log_format"},
		{"bad timeout", func(c *Config) { c.Network.RequestTimeout = "soon" }, "request_timeout"},
		{"bad delimiter", func(c *Config) { c.Export.Delimiter = ";;" }, "delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeConfig(t, `server_url = "https://from-file"`)

	// File only.
	cfg, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://from-file", cfg.ServerURL)

	// Env beats file.
	cfg, err = Resolve(EnvOverrides{ConfigPath: path, ServerURL: "https://from-env"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://from-env", cfg.ServerURL)

	// CLI beats env.
	cfg, err = Resolve(
		EnvOverrides{ConfigPath: path, ServerURL: "https://from-env"},
		CLIOverrides{ServerURL: "https://from-flag"},
	)
	require.NoError(t, err)
	assert.Equal(t, "https://from-flag", cfg.ServerURL)
}

func TestResolve_RequiresServerURL(t *testing.T) {
	_, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server URL configured")
}

func TestPaths_XDGOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgc")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdgd")

	assert.Equal(t, filepath.Join("/tmp/xdgc", "smacctl"), linuxConfigDir("/home/x"))
	assert.Equal(t, filepath.Join("/tmp/xdgd", "smacctl"), linuxDataDir("/home/x"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 1, levenshtein("abc", "abd"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, "", closestMatch("zzzzzzzz", knownKeysList))
}
