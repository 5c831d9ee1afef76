package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server settings. Values come from the optional YAML config
// file, then STOCKROOM_* environment variables, then command-line flags,
// each layer overriding the previous one.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	StaticDir    string `yaml:"static_dir"`
	CompanyName  string `yaml:"company_name"`
	CompanyEmail string `yaml:"company_email"`
	SessionHours int    `yaml:"session_hours"`
}

var cfg Config

func defaultConfig() Config {
	return Config{
		Port:         9000,
		DBPath:       "stockroom.db",
		StaticDir:    "static",
		CompanyName:  "Stockroom",
		CompanyEmail: "",
		SessionHours: 24,
	}
}

// loadConfig reads the YAML file at path over the defaults. A missing file
// is not an error; a malformed one is.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STOCKROOM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("STOCKROOM_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("STOCKROOM_STATIC"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("STOCKROOM_COMPANY_NAME"); v != "" {
		c.CompanyName = v
	}
	if v := os.Getenv("STOCKROOM_COMPANY_EMAIL"); v != "" {
		c.CompanyEmail = v
	}
	if v := os.Getenv("STOCKROOM_SESSION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SessionHours = n
		}
	}
}

// sessionDuration is how long a login session lives. Reads also slide the
// expiry forward by this much.
func sessionDuration() time.Duration {
	h := cfg.SessionHours
	if h <= 0 {
		h = 24
	}
	return time.Duration(h) * time.Hour
}
