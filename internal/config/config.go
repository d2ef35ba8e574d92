package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Version is the settings schema version written into new config files.
const Version = 20000 // 2.0.0, encoded major*10000 + minor*100 + patch

// Config holds the persisted user settings. Everything here is a default the
// CLI can override per run; site credentials deliberately live in the
// environment, never in this file.
type Config struct {
	Version   int    `mapstructure:"version"`
	Announce  string `mapstructure:"announce"`
	Private   bool   `mapstructure:"private"`
	OutputDir string `mapstructure:"output_dir"`
	CreatedBy string `mapstructure:"created_by"`
}

func defaults() *Config {
	return &Config{
		Version:   Version,
		Private:   true,
		CreatedBy: fmt.Sprintf("Quick Torrent Maker 2, v%d.%d.%d", Version/10000, Version/100%100, Version%100),
	}
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "qtm2", "qtm2.toml"), nil
}

// Load reads the TOML settings file at path. A missing file is not an error:
// defaults are written there first, so the user has something to edit.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := defaults()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.Set("version", cfg.Version)
	v.Set("announce", cfg.Announce)
	v.Set("private", cfg.Private)
	v.Set("output_dir", cfg.OutputDir)
	v.Set("created_by", cfg.CreatedBy)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
