package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StorefrontCfg struct {
	URL     string
	Token   string
	Version string
	Timeout time.Duration
}

type CacheCfg struct {
	Driver     string
	TTL        time.Duration
	MemorySize int
	OpTimeout  time.Duration
	RedisAddr  string
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type InvalidationCfg struct {
	Enabled       bool
	Brokers       []string
	Topic         string
	GroupID       string
	InitialOldest bool
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	Storefront      StorefrontCfg
	DefaultCountry  string
	DefaultLanguage string
	Cache           CacheCfg
	Events          EventsCfg
	Invalidation    InvalidationCfg
	MetricsEnabled  bool
	MetricsAddr     string
	MetricsPath     string
}

const (
	CacheDriverNone   = "none"
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// FromEnv reads an optional .env file and then the process environment.
func FromEnv() Config {
	_ = godotenv.Load()

	driver := strings.ToLower(strings.TrimSpace(getenv("CACHE_DRIVER", CacheDriverMemory)))
	switch driver {
	case CacheDriverNone, CacheDriverMemory, CacheDriverRedis:
	default:
		driver = CacheDriverMemory
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		Storefront: StorefrontCfg{
			URL:     strings.TrimRight(getenv("STOREFRONT_API_URL", "https://hydrogen-preview.myshopify.com"), "/"),
			Token:   getenv("STOREFRONT_API_TOKEN", ""),
			Version: getenv("STOREFRONT_API_VERSION", "2024-01"),
			Timeout: getduration("STOREFRONT_TIMEOUT", 10*time.Second),
		},
		DefaultCountry:  strings.ToUpper(getenv("DEFAULT_COUNTRY", "US")),
		DefaultLanguage: strings.ToUpper(getenv("DEFAULT_LANGUAGE", "EN")),
		Cache: CacheCfg{
			Driver:     driver,
			TTL:        getduration("CACHE_TTL", time.Hour),
			MemorySize: getint("CACHE_MEMORY_SIZE", 512),
			OpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("EVENTS_TOPIC", "storefront-listing-views"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Invalidation: InvalidationCfg{
			Enabled:       getbool("INVALIDATION_ENABLED", false),
			Brokers:       splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:         getenv("INVALIDATION_TOPIC", "storefront-catalog-changes"),
			GroupID:       getenv("INVALIDATION_GROUP_ID", "storefront-cache-invalidator"),
			InitialOldest: getbool("INVALIDATION_FROM_OLDEST", false),
		},
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
