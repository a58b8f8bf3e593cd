package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// AppConfig holds environment driven configuration values.
// Everything has a workable default; a deployment only overrides what it needs.
type AppConfig struct {
	AppPort string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Storage layout
	StorageDir   string // directory holding the media files
	MetadataPath string // JSON document holding the recording collection
	MaxUploadMB  int    // per-upload size cap
	// HTTP behaviour
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Retention: when enabled, recordings older than RetentionMaxAgeHours are
	// deleted by the background cleaner.
	RetentionEnabled     bool
	RetentionMaxAgeHours int
	// Redis for best-effort playback counters
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loadOnce sync.Once

// Load loads the application configuration on first call and returns the
// cached value afterwards. Safe for concurrent use; background goroutines read
// config while handlers are serving.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	loadOnce.Do(func() {
		_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
		applyDefaults(&cfg)
		applyEnvOverrides(&cfg)
	})
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	return Load()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a JSON file into cfg if present. Returns error only for
// invalid JSON. Supports both grouped sections and flat keys.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		switch t := m[key].(type) {
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key].(bool); ok {
			return v
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if st, ok := raw["storage"].(map[string]any); ok {
		out.StorageDir = getString(st, "Dir")
		out.MetadataPath = getString(st, "MetadataPath")
		if v := getInt(st, "MaxUploadMB"); v != 0 {
			out.MaxUploadMB = v
		}
	}

	if rt, ok := raw["retention"].(map[string]any); ok {
		out.RetentionEnabled = getBool(rt, "Enabled")
		if v := getInt(rt, "MaxAgeHours"); v != 0 {
			out.RetentionMaxAgeHours = v
		}
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	// Also support reading flat keys directly for backward compatibility.
	if v := getString(raw, "AppPort"); v != "" && out.AppPort == "" {
		out.AppPort = v
	}
	if v := getString(raw, "StorageDir"); v != "" && out.StorageDir == "" {
		out.StorageDir = v
	}
	if v := getString(raw, "MetadataPath"); v != "" && out.MetadataPath == "" {
		out.MetadataPath = v
	}
	if v := getInt(raw, "MaxUploadMB"); v != 0 && out.MaxUploadMB == 0 {
		out.MaxUploadMB = v
	}
	if v := getInt(raw, "RateLimitPerMinute"); v != 0 && out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = v
	}
	if list := getStringSlice(raw, "AllowedOrigins"); len(list) > 0 && len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = list
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.StorageDir == "" {
		c.StorageDir = "uploads"
	}
	if c.MetadataPath == "" {
		c.MetadataPath = "recordings-metadata.json"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 500
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.RetentionMaxAgeHours == 0 {
		c.RetentionMaxAgeHours = 24 * 30
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("PORT", ""); v != "" { // compatibility with the old deployment
		c.AppPort = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("STORAGE_DIR", ""); v != "" {
		c.StorageDir = v
	}
	if v := getEnv("METADATA_PATH", ""); v != "" {
		c.MetadataPath = v
	}
	if v := getEnv("MAX_UPLOAD_MB", ""); v != "" {
		c.MaxUploadMB = parseIntOrZero(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = parseIntOrZero(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("RETENTION_ENABLED", ""); v != "" {
		c.RetentionEnabled = v == "true"
	}
	if v := getEnv("RETENTION_MAX_AGE_HOURS", ""); v != "" {
		c.RetentionMaxAgeHours = parseIntOrZero(v)
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = parseIntOrZero(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = parseIntOrZero(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = parseIntOrZero(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = parseIntOrZero(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = parseIntOrZero(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func parseIntOrZero(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
