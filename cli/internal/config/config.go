// Package config loads CLI configuration from files and environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config and query file access.
// Tests swap in an in-memory filesystem.
var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	ServerURL string
	APIKey    string
	Timeout   time.Duration
	Telemetry bool
}

// Load reads configuration from .streamql.yaml (working directory,
// home, or ~/.config/streamql), STREAMQL_* environment variables, and
// an optional .env file.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".streamql")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "streamql"))

	viper.SetEnvPrefix("STREAMQL")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8088")
	viper.SetDefault("timeout", "30s")
	viper.SetDefault("telemetry", false)

	// Missing config file is fine; flags and env still apply.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		ServerURL: viper.GetString("server_url"),
		APIKey:    viper.GetString("api_key"),
		Timeout:   viper.GetDuration("timeout"),
		Telemetry: viper.GetBool("telemetry"),
	}
	if key := os.Getenv("STREAMQL_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return cfg, nil
}

// ReadQueryFile reads statement text from a file through AppFs.
func ReadQueryFile(path string) (string, error) {
	data, err := afero.ReadFile(AppFs, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
