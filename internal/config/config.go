package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/turbopilot/chunkopt/internal/optimizer"
)

// Config holds all application configuration.
type Config struct {
	// Server Configuration
	ServerPort string
	LogLevel   string
	LogFormat  string

	// Redis Configuration (metric-oracle memoization cache)
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	CacheEnabled   bool
	CacheKeyPrefix string

	// Optimizer parameter overrides
	CompareWithCount         int
	DuplicationThreshold     float64
	ContainedThreshold       float64
	LocalChunkMergeThreshold int
	TotalChunkMergeThreshold int
	MaxChunkItemsPerChunk    int

	// Watch Configuration
	WatchPaths      []string
	WatchDebounceMS int
	// WatchModulePaths maps a watched filesystem path to the module
	// identities it defines, so the watcher can resolve a raw fsnotify
	// event back to the module graph entries that need invalidating.
	WatchModulePaths map[string][]string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "json"),

		RedisURL:       getEnvOrDefault("REDIS_URL", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		CacheEnabled:   getEnvAsBool("CACHE_ENABLED", false),
		CacheKeyPrefix: getEnvOrDefault("CACHE_KEY_PREFIX", "chunkopt:"),

		CompareWithCount:         getEnvAsInt("COMPARE_WITH_COUNT", 100),
		DuplicationThreshold:     getEnvAsFloat("DUPLICATION_THRESHOLD", 0.10),
		ContainedThreshold:       getEnvAsFloat("CONTAINED_THRESHOLD", 0.05),
		LocalChunkMergeThreshold: getEnvAsInt("LOCAL_CHUNK_MERGE_THRESHOLD", 20),
		TotalChunkMergeThreshold: getEnvAsInt("TOTAL_CHUNK_MERGE_THRESHOLD", 20),
		MaxChunkItemsPerChunk:    getEnvAsInt("MAX_CHUNK_ITEMS_PER_CHUNK", 3000),

		WatchDebounceMS: getEnvAsInt("WATCH_DEBOUNCE_MS", 300),
	}

	if paths := os.Getenv("WATCH_PATHS"); paths != "" {
		cfg.WatchPaths = splitAndTrim(paths)
	}

	if mapping := os.Getenv("WATCH_MODULE_PATHS"); mapping != "" {
		cfg.WatchModulePaths = parseModulePathMapping(mapping)
	}

	if cfg.ServerPort == "" {
		return nil, fmt.Errorf("SERVER_PORT must be set")
	}

	return cfg, nil
}

// Params translates the config's threshold overrides into an
// optimizer.Params value, falling back to DefaultParams for anything
// left at its zero value.
func (c *Config) Params() optimizer.Params {
	p := optimizer.DefaultParams()
	if c.CompareWithCount != 0 {
		p.CompareWithCount = c.CompareWithCount
	}
	if c.DuplicationThreshold != 0 {
		p.DuplicationThreshold = c.DuplicationThreshold
	}
	if c.ContainedThreshold != 0 {
		p.ContainedThreshold = c.ContainedThreshold
	}
	if c.LocalChunkMergeThreshold != 0 {
		p.LocalChunkMergeThreshold = c.LocalChunkMergeThreshold
	}
	if c.TotalChunkMergeThreshold != 0 {
		p.TotalChunkMergeThreshold = c.TotalChunkMergeThreshold
	}
	if c.MaxChunkItemsPerChunk != 0 {
		p.MaxChunkItemsPerChunk = c.MaxChunkItemsPerChunk
	}
	return p
}

// parseModulePathMapping parses a "path=mod1|mod2;path2=mod3" mapping
// into the per-path module id lists watch-invalidation needs. Entries
// that don't contain "=" are skipped rather than treated as an error,
// since this is optional configuration a deployment may omit.
func parseModulePathMapping(value string) map[string][]string {
	out := make(map[string][]string)
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		path, modules, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		out[path] = splitAndTrim(strings.ReplaceAll(modules, "|", ","))
	}
	return out
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		fmt.Sscanf(value, "%d", &i)
		return i
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		fmt.Sscanf(value, "%f", &f)
		return f
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}
