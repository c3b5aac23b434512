package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string

	// HTTP API
	ListenAddr  string
	MetricsAddr string

	// Fetching
	FetchTimeout time.Duration
	ProxyURL     string
	ProxyURLs    []string
	MinBodyBytes int

	// Extraction engine
	MaxConcurrency    int
	BatchPacing       time.Duration
	RetryDelay        time.Duration
	GenericMaxAnchors int

	// Normalizer limits
	MaxScreenshots   int
	MaxMagnetLinks   int
	MaxDownloadLinks int

	// Ranking weights
	RankExactCode       float64
	RankSubstringCode   float64
	RankTitleSimilarity float64
	RankProvenanceBonus float64

	// Cache configuration
	CacheBackend       string
	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	// Redis configuration
	RedisAddr      string
	RedisDB        int
	RedisPassword  string
	RedisKeyPrefix string

	// Memcache configuration
	MemcacheAddr string

	// Bolt configuration
	BoltPath string

	// Activity hook
	ActivityStream  string
	ActivityLogFile string

	// Snapshot storage
	S3Endpoint string
	S3Bucket   string
	S3Region   string
	S3User     string
	S3Password string

	// URLs for the supported sites
	JavbusURL     string
	JavdbURL      string
	JavlibraryURL string
	JableURL      string
	MissavURL     string
	SukebeiURL    string
	BtsowURL      string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("APP_ENVIRONMENT", "development"),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ""),

		FetchTimeout: getMillis("FETCH_TIMEOUT_MS", 15000),
		ProxyURL:     getEnv("FETCH_PROXY_URL", ""),
		ProxyURLs:    getList("FETCH_PROXY_URLS"),
		MinBodyBytes: getInt("MIN_BODY_BYTES", 200),

		MaxConcurrency:    getInt("MAX_CONCURRENCY", 4),
		BatchPacing:       getMillis("BATCH_PACING_MS", 1000),
		RetryDelay:        getMillis("RETRY_DELAY_MS", 2000),
		GenericMaxAnchors: getInt("GENERIC_MAX_ANCHORS", 300),

		MaxScreenshots:   getInt("MAX_SCREENSHOTS", 20),
		MaxMagnetLinks:   getInt("MAX_MAGNET_LINKS", 30),
		MaxDownloadLinks: getInt("MAX_DOWNLOAD_LINKS", 30),

		RankExactCode:       getFloat("RANK_EXACT_CODE", 40),
		RankSubstringCode:   getFloat("RANK_SUBSTRING_CODE", 25),
		RankTitleSimilarity: getFloat("RANK_TITLE_SIMILARITY", 30),
		RankProvenanceBonus: getFloat("RANK_PROVENANCE_BONUS", 12),

		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:           time.Duration(getInt("CACHE_TTL_SECONDS", 86400)) * time.Second,
		CacheMaxEntries:    getInt("CACHE_MAX_ENTRIES", 5000),
		CacheSweepInterval: time.Duration(getInt("CACHE_SWEEP_SECONDS", 600)) * time.Second,

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getInt("REDIS_DB", 0),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "metaworker:cache:"),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),

		BoltPath: getEnv("BOLT_PATH", "./data/cache.db"),

		ActivityStream:  getEnv("ACTIVITY_STREAM", ""),
		ActivityLogFile: getEnv("ACTIVITY_LOG_FILE", ""),

		S3Endpoint: getEnv("S3_ENDPOINT", ""),
		S3Bucket:   getEnv("S3_BUCKET", "metaworker-snapshots"),
		S3Region:   getEnv("S3_REGION", "us-east-1"),
		S3User:     getEnv("S3_USER", ""),
		S3Password: getEnv("S3_PASSWORD", ""),

		JavbusURL:     getEnv("JAVBUS_URL", "https://www.javbus.com"),
		JavdbURL:      getEnv("JAVDB_URL", "https://javdb.com"),
		JavlibraryURL: getEnv("JAVLIBRARY_URL", "https://www.javlibrary.com"),
		JableURL:      getEnv("JABLE_URL", "https://jable.tv"),
		MissavURL:     getEnv("MISSAV_URL", "https://missav.com"),
		SukebeiURL:    getEnv("SUKEBEI_URL", "https://sukebei.nyaa.si"),
		BtsowURL:      getEnv("BTSOW_URL", "https://btsow.com"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "memory", "redis", "memcache", "bolt":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_MS must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries)
	}
	if c.GenericMaxAnchors <= 0 {
		return fmt.Errorf("GENERIC_MAX_ANCHORS must be positive")
	}
	if c.CacheBackend == "bolt" && strings.TrimSpace(c.BoltPath) == "" {
		return fmt.Errorf("BOLT_PATH is required for the bolt cache backend")
	}
	return nil
}

// SiteURLs returns the configured base URL for every named source
func (c *Config) SiteURLs() map[string]string {
	return map[string]string{
		"javbus":     c.JavbusURL,
		"javdb":      c.JavdbURL,
		"javlibrary": c.JavlibraryURL,
		"jable":      c.JableURL,
		"missav":     c.MissavURL,
		"sukebei":    c.SukebeiURL,
		"btsow":      c.BtsowURL,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getList splits a comma separated variable, dropping blanks
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Millisecond
}
