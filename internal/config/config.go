// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/raindrop213/bibi-library/internal/validation"
)

// cleanTimePattern matches a 24h HH:MM time of day.
var cleanTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Library    LibraryConfig
	Gate       GateConfig
	Pagination PaginationConfig
	Thumbnails ThumbnailConfig
	Server     ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// LibraryConfig holds the Calibre library location.
type LibraryConfig struct {
	// Path is the library root directory, the one containing metadata.db
	// and the per-book asset directories.
	Path string `validate:"required"`
	// CachePath is the directory for derived artifacts (default: {path}/.cache).
	CachePath string `validate:"required"`
}

// GateConfig holds the content-visibility gate settings.
type GateConfig struct {
	// AccessPassword is the shared secret that unlocks restricted-tag
	// content. Empty means the gate never opens.
	AccessPassword string
	// ExcludedTags are tag names hidden from callers without the secret.
	ExcludedTags []string
}

// PaginationConfig holds default page sizes.
type PaginationConfig struct {
	PageSize       int `validate:"required,min=1"`
	SeriesPageSize int `validate:"required,min=1"`
}

// ThumbnailConfig holds thumbnail cache eviction settings.
type ThumbnailConfig struct {
	// CleanIntervalDays is the number of days between scheduled purges.
	CleanIntervalDays int `validate:"required,min=1"`
	// CleanTime is the time of day for scheduled purges, 24h "HH:MM".
	CleanTime string `validate:"required"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        `validate:"required"`
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	EnableCORS   bool          // Allow cross-origin requests (default: true)
}

// DatabasePath returns the path to the Calibre metadata database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Library.Path, "metadata.db")
}

// ThumbnailCachePath returns the directory holding derived thumbnails.
func (c *Config) ThumbnailCachePath() string {
	return filepath.Join(c.Library.CachePath, "thumbnails")
}

// CleanClock parses the configured purge time of day.
func (c *ThumbnailConfig) CleanClock() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(c.CleanTime, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse clean time %q: %w", c.CleanTime, err)
	}
	return hour, minute, nil
}

// Flags holds raw command-line flag values before merging.
type Flags struct {
	Env            string
	LogLevel       string
	LibraryPath    string
	CachePath      string
	AccessPassword string
	ExcludedTags   string
	PageSize       string
	SeriesPageSize string
	CleanInterval  string
	CleanTime      string
	Port           string
	ReadTimeout    string
	WriteTimeout   string
	IdleTimeout    string
	EnableCORS     string
	EnvFile        string
}

// LoadConfig parses command-line flags and loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	f := &Flags{}

	flag.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.LibraryPath, "library-path", "", "Path to the Calibre library root")
	flag.StringVar(&f.CachePath, "cache-path", "", "Path for derived artifacts (default: {library}/.cache)")
	flag.StringVar(&f.AccessPassword, "access-password", "", "Shared secret unlocking restricted tags")
	flag.StringVar(&f.ExcludedTags, "excluded-tags", "", "Comma-separated tag names hidden without the secret")
	flag.StringVar(&f.PageSize, "page-size", "", "Default listing page size (default: 20)")
	flag.StringVar(&f.SeriesPageSize, "series-page-size", "", "Default series page size (default: 20)")
	flag.StringVar(&f.CleanInterval, "thumbnail-clean-interval", "", "Days between thumbnail purges (default: 7)")
	flag.StringVar(&f.CleanTime, "thumbnail-clean-time", "", "Time of day for thumbnail purges (default: 03:00)")
	flag.StringVar(&f.Port, "port", "", "Server port (default: 4545)")
	flag.StringVar(&f.ReadTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	flag.StringVar(&f.WriteTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	flag.StringVar(&f.IdleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	flag.StringVar(&f.EnableCORS, "enable-cors", "", "Allow cross-origin requests (default: true)")
	flag.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")

	flag.Parse()

	return Load(f)
}

// Load builds the configuration from flag values, environment variables,
// an optional .env file, and defaults, in that precedence order.
func Load(f *Flags) (*Config, error) {
	if f == nil {
		f = &Flags{}
	}

	envFile := f.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			Path:      getConfigValue(f.LibraryPath, "LIBRARY_PATH", ""),
			CachePath: getConfigValue(f.CachePath, "CACHE_PATH", ""),
		},
		Gate: GateConfig{
			AccessPassword: getConfigValue(f.AccessPassword, "ACCESS_PASSWORD", ""),
			ExcludedTags:   splitTags(getConfigValue(f.ExcludedTags, "EXCLUDED_TAGS", "ECHI")),
		},
		Pagination: PaginationConfig{
			PageSize:       getIntConfigValue(f.PageSize, "PAGE_SIZE", 20),
			SeriesPageSize: getIntConfigValue(f.SeriesPageSize, "SERIES_PAGE_SIZE", 20),
		},
		Thumbnails: ThumbnailConfig{
			CleanIntervalDays: getIntConfigValue(f.CleanInterval, "THUMBNAIL_CLEAN_INTERVAL", 7),
			CleanTime:         getConfigValue(f.CleanTime, "THUMBNAIL_CLEAN_TIME", "03:00"),
		},
		Server: ServerConfig{
			Port:       getConfigValue(f.Port, "SERVER_PORT", "4545"),
			EnableCORS: getBoolConfigValue(f.EnableCORS, "ENABLE_CORS", true),
		},
	}

	// Parse server timeouts.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(f.ReadTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(f.WriteTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(f.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	// Expand the library path and derive the cache path from it.
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid library path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
// The process must refuse to start on any failure here.
func (c *Config) Validate() error {
	v := validation.New()
	if err := v.ValidateAll(c.App, c.Logger, c.Library, c.Pagination, c.Thumbnails, c.Server); err != nil {
		return err
	}

	// Cross-field rules the struct tags cannot express.
	if !cleanTimePattern.MatchString(c.Thumbnails.CleanTime) {
		return fmt.Errorf("thumbnail clean time %q must be HH:MM", c.Thumbnails.CleanTime)
	}
	hour, minute, err := c.Thumbnails.CleanClock()
	if err != nil {
		return err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("thumbnail clean time %q out of range", c.Thumbnails.CleanTime)
	}

	for _, tag := range c.Gate.ExcludedTags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("excluded tag list contains an empty entry")
		}
	}

	return nil
}

// expandPaths expands ~ and makes the library path absolute.
// The cache path defaults to {library}/.cache.
func (c *Config) expandPaths() error {
	if c.Library.Path == "" {
		return fmt.Errorf("library path is required (set LIBRARY_PATH or -library-path)")
	}

	expanded, err := expandPath(c.Library.Path, "")
	if err != nil {
		return err
	}
	c.Library.Path = expanded

	defaultCache := filepath.Join(c.Library.Path, ".cache")
	expanded, err = expandPath(c.Library.CachePath, defaultCache)
	if err != nil {
		return err
	}
	c.Library.CachePath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
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

// splitTags parses a comma-separated tag list, trimming whitespace and
// dropping empty entries.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
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

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", str, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
