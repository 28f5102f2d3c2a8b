// Package config loads the server configuration from a YAML file with
// sensible defaults for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shenglong/mealboard/mealplan"
)

// Config is the server configuration.
//
// Example file:
//
//	listen: ":8080"
//	database_path: "./data/mealboard.db"
//	timezone: "Asia/Shanghai"
//	cutoffs:
//	  morning: 6
//	  noon: 9
//	  evening: 14
//	auth_secret: "change-me"
//	allowed_origins:
//	  - "http://localhost:5173"
type Config struct {
	Listen         string         `yaml:"listen"`
	DatabasePath   string         `yaml:"database_path"`
	Timezone       string         `yaml:"timezone"`
	Cutoffs        map[string]int `yaml:"cutoffs"`
	AuthSecret     string         `yaml:"auth_secret"`
	TokenTTL       string         `yaml:"token_ttl"` // Go duration, e.g. "24h"
	AllowedOrigins []string       `yaml:"allowed_origins"`
}

// Default returns the development defaults. An empty AuthSecret means
// open-edit mode: no tokens are issued and no ownership is enforced.
func Default() Config {
	return Config{
		Listen:       ":8080",
		DatabasePath: "mealboard.db",
		Timezone:     "Asia/Shanghai",
		TokenTTL:     "24h",
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var slotNames = map[string]mealplan.Slot{
	"morning": mealplan.SlotMorning,
	"noon":    mealplan.SlotNoon,
	"evening": mealplan.SlotEvening,
}

func (c Config) validate() error {
	for name, hour := range c.Cutoffs {
		if _, ok := slotNames[name]; !ok {
			return fmt.Errorf("unknown cutoff slot %q (want morning, noon or evening)", name)
		}
		if hour < 0 || hour > 23 {
			return fmt.Errorf("cutoff hour %d for %q out of range", hour, name)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := time.ParseDuration(c.TokenTTL); err != nil {
		return fmt.Errorf("token_ttl: %w", err)
	}
	return nil
}

// TokenDuration parses the configured token lifetime.
func (c Config) TokenDuration() (time.Duration, error) {
	return time.ParseDuration(c.TokenTTL)
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// CutoffHours merges the configured overrides over the standing defaults.
func (c Config) CutoffHours() mealplan.CutoffHours {
	cutoffs := mealplan.DefaultCutoffs()
	for name, hour := range c.Cutoffs {
		if slot, ok := slotNames[name]; ok {
			cutoffs[slot] = hour
		}
	}
	return cutoffs
}
