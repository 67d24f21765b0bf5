package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config is the command line client's configuration. Flags win over
// STAFFDESK_* environment variables, which win over the config file.
type Config struct {
	APIURL      string `mapstructure:"api_url"`
	SessionFile string `mapstructure:"session_file"`
	Output      string `mapstructure:"output"`
	GeocoderURL string `mapstructure:"geocoder_url"`
	Verbose     bool   `mapstructure:"verbose"`
}

var outputFormats = []string{"table", "json", "yaml"}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".staffdesk"
	}
	return filepath.Join(home, ".staffdesk")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("session_file", filepath.Join(configDir(), "session.json"))
	v.SetDefault("output", "table")
	v.SetDefault("geocoder_url", "https://nominatim.openstreetmap.org")
}

// loadConfig reads path, or ~/.staffdesk/config.yaml when path is empty.
// A missing default file is fine.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("STAFFDESK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if strings.HasPrefix(cfg.SessionFile, "~") {
		home, _ := os.UserHomeDir()
		cfg.SessionFile = filepath.Join(home, cfg.SessionFile[1:])
	}
	if !slices.Contains(outputFormats, cfg.Output) {
		return Config{}, fmt.Errorf("output must be one of %s", strings.Join(outputFormats, ", "))
	}
	return cfg, nil
}
