package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig = "SMACCTL_CONFIG"
	EnvServer = "SMACCTL_SERVER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SMACCTL_CONFIG: override config file path
	ServerURL  string // SMACCTL_SERVER: backend base URL
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ServerURL:  os.Getenv(EnvServer),
	}
}
