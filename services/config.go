package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownStore = errors.New("SPEARMINT_STORE must be one of sqlite, mongo or memory")
	ErrBadPort      = errors.New("SPEARMINT_PORT must be a number between 1 and 65535")
)

// Config holds server and CLI settings.
type Config struct {
	Port           string   `yaml:"port"`
	Store          string   `yaml:"store"`
	SQLitePath     string   `yaml:"sqlite_path"`
	MongoURI       string   `yaml:"mongo_uri"`
	MongoDatabase  string   `yaml:"mongo_database"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	FocusMinutes   int      `yaml:"focus_minutes"`
	SessionFile    string   `yaml:"session_file"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{
		Port:           "3000",
		Store:          "sqlite",
		SQLitePath:     "./spearmint.db",
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "spearmint",
		AllowedOrigins: []string{"*"},
		FocusMinutes:   MinFocusMinutes,
		SessionFile:    filepath.Join(home, ".spearmint", "session.yaml"),
	}
}

// LoadConfig reads .env, then the optional YAML file at path, then SPEARMINT_*
// environment variables. Later sources win.
func LoadConfig(path string) (Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.Port = envOrDefault("SPEARMINT_PORT", cfg.Port)
	cfg.Store = envOrDefault("SPEARMINT_STORE", cfg.Store)
	cfg.SQLitePath = envOrDefault("SPEARMINT_SQLITE_PATH", cfg.SQLitePath)
	cfg.MongoURI = envOrDefault("SPEARMINT_MONGO_URI", envOrDefault("MONGO_URI", cfg.MongoURI))
	cfg.MongoDatabase = envOrDefault("SPEARMINT_MONGO_DB", cfg.MongoDatabase)
	cfg.SessionFile = envOrDefault("SPEARMINT_SESSION_FILE", cfg.SessionFile)
	if v := os.Getenv("SPEARMINT_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SPEARMINT_FOCUS_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("SPEARMINT_FOCUS_MINUTES: %w", err)
		}
		cfg.FocusMinutes = n
	}

	switch cfg.Store {
	case "sqlite", "mongo", "memory":
	default:
		return Config{}, fmt.Errorf("%w: got %q", ErrUnknownStore, cfg.Store)
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n < 1 || n > 65535 {
		return Config{}, fmt.Errorf("%w: got %q", ErrBadPort, cfg.Port)
	}
	if cfg.FocusMinutes < MinFocusMinutes {
		cfg.FocusMinutes = MinFocusMinutes
	}

	return cfg, nil
}

// StoreOptions converts the config into database.Open options.
func (c Config) StoreOptions() database.Options {
	return database.Options{
		Driver:        c.Store,
		SQLitePath:    c.SQLitePath,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
