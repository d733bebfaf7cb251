// Package config loads application configuration from command-line flags,
// environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	TMDB      TMDBConfig
	Inference InferenceConfig
	Catalog   CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string // Badger cache and Bleve index live under here
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// TMDBConfig holds movie metadata provider settings.
type TMDBConfig struct {
	APIKey            string // Empty disables the remote catalog
	BaseURL           string
	ImageBaseURL      string
	Language          string
	Region            string
	RequestsPerSecond float64
	Burst             int
}

// InferenceConfig holds emotion-detection endpoint settings.
type InferenceConfig struct {
	URL           string
	Timeout       time.Duration
	MaxImageBytes int
}

// CatalogConfig controls how the candidate pool is assembled and cached.
type CatalogConfig struct {
	CacheTTL      time.Duration
	PoolPages     int    // Pages fetched per TMDB category when the pool is cold
	FixturePath   string // Optional JSON catalog used without a TMDB key
	WatchFixtures bool
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("cinemood", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for cache and search index")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")

	tmdbKey := fs.String("tmdb-api-key", "", "TMDB v3 API key")
	tmdbBaseURL := fs.String("tmdb-base-url", "", "TMDB API base URL")
	tmdbLanguage := fs.String("tmdb-language", "", "TMDB response language (default: en-US)")
	tmdbRegion := fs.String("tmdb-region", "", "TMDB release region")
	tmdbRPS := fs.String("tmdb-rps", "", "TMDB requests per second (default: 20)")

	inferenceURL := fs.String("inference-url", "", "Emotion detection endpoint")
	inferenceTimeout := fs.String("inference-timeout", "", "Emotion detection timeout (default: 15s)")

	cacheTTL := fs.String("catalog-cache-ttl", "", "How long fetched movies stay cached (default: 6h)")
	poolPages := fs.String("catalog-pool-pages", "", "TMDB pages per category for the candidate pool (default: 3)")
	fixturePath := fs.String("fixture-path", "", "JSON catalog used when TMDB is not configured")
	watchFixtures := fs.String("watch-fixtures", "", "Reload the fixture catalog on change (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		TMDB: TMDBConfig{
			APIKey:       getConfigValue(*tmdbKey, "TMDB_API_KEY", ""),
			BaseURL:      getConfigValue(*tmdbBaseURL, "TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getConfigValue("", "TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
			Language:     getConfigValue(*tmdbLanguage, "TMDB_LANGUAGE", "en-US"),
			Region:       getConfigValue(*tmdbRegion, "TMDB_REGION", ""),
			Burst:        getIntConfigValue("", "TMDB_BURST", 10),
		},
		Inference: InferenceConfig{
			URL:           getConfigValue(*inferenceURL, "INFERENCE_URL", "http://localhost:8000/detect-emotion"),
			MaxImageBytes: getIntConfigValue("", "INFERENCE_MAX_IMAGE_BYTES", 5<<20),
		},
		Catalog: CatalogConfig{
			PoolPages:     getIntConfigValue(*poolPages, "CATALOG_POOL_PAGES", 3),
			FixturePath:   getConfigValue(*fixturePath, "FIXTURE_PATH", ""),
			WatchFixtures: getBoolConfigValue(*watchFixtures, "WATCH_FIXTURES", true),
		},
	}

	rps, err := strconv.ParseFloat(getConfigValue(*tmdbRPS, "TMDB_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tmdb rps: %w", err)
	}
	cfg.TMDB.RequestsPerSecond = rps

	durations := []struct {
		flagValue, envKey, def, name string
		dst                          *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
		{*inferenceTimeout, "INFERENCE_TIMEOUT", "15s", "inference timeout", &cfg.Inference.Timeout},
		{*cacheTTL, "CATALOG_CACHE_TTL", "6h", "catalog cache ttl", &cfg.Catalog.CacheTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Catalog.FixturePath != "" {
		expanded, err := expandPath(cfg.Catalog.FixturePath, "")
		if err != nil {
			return nil, fmt.Errorf("invalid fixture path: %w", err)
		}
		cfg.Catalog.FixturePath = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if _, err := url.ParseRequestURI(c.TMDB.BaseURL); err != nil {
		return fmt.Errorf("invalid tmdb base url: %w", err)
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		return errors.New("tmdb rps must be positive")
	}

	if c.Inference.URL != "" {
		if _, err := url.ParseRequestURI(c.Inference.URL); err != nil {
			return fmt.Errorf("invalid inference url: %w", err)
		}
	}
	if c.Inference.Timeout <= 0 {
		return errors.New("inference timeout must be positive")
	}

	if c.Catalog.PoolPages < 1 {
		return errors.New("catalog pool pages must be at least 1")
	}

	return nil
}

// HasTMDB reports whether the remote catalog is configured.
func (c *Config) HasTMDB() bool {
	return c.TMDB.APIKey != ""
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, ".cinemood"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines (# for comments) into the environment.
// Variables already set in the environment win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- operator supplied path
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
