package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port          string
	AllowedOrigin string

	// Remote support backend
	APIBaseURL string

	// Optional YAML file overriding the built-in texts
	LocaleFile string

	// Theme preference
	ThemeFile  string
	SystemDark bool

	SessionTTL time.Duration
	LogLevel   string
	MetricsOn  bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:          getEnvDefault("PORT", "8080"),
		AllowedOrigin: getEnvDefault("ALLOWED_ORIGIN", "*"),
		APIBaseURL:    getEnvDefault("API_BASE_URL", "http://127.0.0.1:8000"),
		LocaleFile:    os.Getenv("LOCALE_FILE"),
		ThemeFile:     getEnvDefault("THEME_FILE", "data/theme.json"),
		SystemDark:    strings.EqualFold(strings.TrimSpace(os.Getenv("SYSTEM_THEME")), "dark"),
		SessionTTL:    getEnvDurationDefault("SESSION_IDLE_TTL", 30*time.Minute),
		LogLevel:      getEnvDefault("LOG_LEVEL", "info"),
		MetricsOn:     getEnvBoolDefault("METRICS_ENABLED", true),
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err == nil {
			return d
		}
		log.WithField(key, v).Warn("invalid duration, using default")
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
