package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the client.
type Config struct {
	AppName     string
	API         APIConfig
	Credentials CredentialsConfig
	Tasks       TasksConfig
	Autosave    AutosaveConfig
	Logger      LoggerConfig
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type CredentialsConfig struct {
	Path string
}

type TasksConfig struct {
	PageLimit int
}

type AutosaveConfig struct {
	Enabled  bool
	Interval time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally
// .env) and applies defaults so the client runs with zero setup
// against a local backend.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName: getString("APP_NAME", "tracklite"),
		API: APIConfig{
			BaseURL:        getString("TRACKLITE_API_URL", "http://127.0.0.1:8000"),
			RequestTimeout: getDuration("TRACKLITE_TIMEOUT", 5*time.Second),
		},
		Credentials: CredentialsConfig{
			Path: getString("TRACKLITE_CREDENTIALS_PATH", defaultCredentialsPath()),
		},
		Tasks: TasksConfig{
			PageLimit: getInt("TRACKLITE_PAGE_LIMIT", 15),
		},
		Autosave: AutosaveConfig{
			Enabled:  getBool("TRACKLITE_AUTOSAVE", true),
			Interval: getDuration("TRACKLITE_AUTOSAVE_INTERVAL", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "console"),
		},
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./tracklite-credentials.db"
	}
	return filepath.Join(home, ".tracklite", "credentials.db")
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
