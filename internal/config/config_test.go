package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	defer os.Clearenv()

	t.Run("defaults when missing", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ServerPort != "8080" {
			t.Errorf("ServerPort = %v, want default", cfg.ServerPort)
		}
		if cfg.RedisURL != "localhost:6379" {
			t.Errorf("RedisURL = %v, want default", cfg.RedisURL)
		}
		if cfg.MaxChunkItemsPerChunk != 3000 {
			t.Errorf("MaxChunkItemsPerChunk = %v, want 3000", cfg.MaxChunkItemsPerChunk)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		envVars := map[string]string{
			"SERVER_PORT":                 "9090",
			"LOG_LEVEL":                   "debug",
			"LOG_FORMAT":                  "text",
			"REDIS_URL":                   "custom-redis:6379",
			"REDIS_DB":                    "1",
			"CACHE_ENABLED":               "true",
			"COMPARE_WITH_COUNT":          "50",
			"DUPLICATION_THRESHOLD":       "0.2",
			"CONTAINED_THRESHOLD":         "0.1",
			"LOCAL_CHUNK_MERGE_THRESHOLD": "10",
			"TOTAL_CHUNK_MERGE_THRESHOLD": "15",
			"MAX_CHUNK_ITEMS_PER_CHUNK":   "1000",
			"WATCH_PATHS":                 "/src, /lib",
			"WATCH_DEBOUNCE_MS":           "500",
			"WATCH_MODULE_PATHS":          "/src/a.js=m1|m2; /lib/b.js=m3",
		}
		for k, v := range envVars {
			os.Setenv(k, v)
			defer os.Unsetenv(k)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ServerPort != "9090" {
			t.Errorf("ServerPort = %v", cfg.ServerPort)
		}
		if cfg.RedisDB != 1 {
			t.Errorf("RedisDB = %v", cfg.RedisDB)
		}
		if !cfg.CacheEnabled {
			t.Errorf("CacheEnabled = %v, want true", cfg.CacheEnabled)
		}
		if cfg.DuplicationThreshold != 0.2 {
			t.Errorf("DuplicationThreshold = %v", cfg.DuplicationThreshold)
		}
		if len(cfg.WatchPaths) != 2 || cfg.WatchPaths[0] != "/src" || cfg.WatchPaths[1] != "/lib" {
			t.Errorf("WatchPaths = %v, want [/src /lib]", cfg.WatchPaths)
		}
		if cfg.WatchDebounceMS != 500 {
			t.Errorf("WatchDebounceMS = %v", cfg.WatchDebounceMS)
		}
		if mods := cfg.WatchModulePaths["/src/a.js"]; len(mods) != 2 || mods[0] != "m1" || mods[1] != "m2" {
			t.Errorf("WatchModulePaths[/src/a.js] = %v, want [m1 m2]", mods)
		}
		if mods := cfg.WatchModulePaths["/lib/b.js"]; len(mods) != 1 || mods[0] != "m3" {
			t.Errorf("WatchModulePaths[/lib/b.js] = %v, want [m3]", mods)
		}
	})

	t.Run("Params overrides only non-zero fields", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("COMPARE_WITH_COUNT", "0")
		defer os.Unsetenv("COMPARE_WITH_COUNT")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		params := cfg.Params()
		if params.CompareWithCount != 100 {
			t.Errorf("expected default CompareWithCount to survive a zero override, got %d", params.CompareWithCount)
		}
	})
}
