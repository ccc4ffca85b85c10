package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv      string `yaml:"app_env"`
	LogLevel    string `yaml:"log_level"`
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	Sources       []string `yaml:"sources"`
	HostawayBase  string   `yaml:"hostaway_base_url"`
	HostawayToken string   `yaml:"hostaway_token"`
	MirrorURL     string   `yaml:"mirror_url"`
	FetchTimeout  int      `yaml:"fetch_timeout_seconds"`
	CacheTTLSec   int      `yaml:"cache_ttl_seconds"`
	SourceRPS     int      `yaml:"source_rps"`
	PageSize      int      `yaml:"page_size"`
	Workers       int      `yaml:"fetch_workers"`

	SnapshotBackend string `yaml:"snapshot_backend"`
	SnapshotPath    string `yaml:"snapshot_path"`
	SnapshotName    string `yaml:"snapshot_name"`
	SQLitePath      string `yaml:"sqlite_path"`
	MySQLDSN        string `yaml:"mysql_dsn"`
	WatchSnapshot   bool   `yaml:"watch_snapshot"`

	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_password"`
	RedisDB   int    `yaml:"redis_db"`
}

func (c Config) FetchTimeoutDur() time.Duration { return time.Duration(c.FetchTimeout) * time.Second }
func (c Config) CacheTTL() time.Duration        { return time.Duration(c.CacheTTLSec) * time.Second }

func defaults() Config {
	return Config{
		AppEnv:          "prod",
		LogLevel:        "info",
		HTTPAddr:        ":8080",
		Sources:         []string{"hostaway", "mirror", "snapshot"},
		HostawayBase:    "https://api.hostaway.com/v1",
		FetchTimeout:    10,
		CacheTTLSec:     900,
		SourceRPS:       5,
		PageSize:        100,
		Workers:         4,
		SnapshotBackend: "file",
		SnapshotPath:    "mock_reviews.json",
		SnapshotName:    "hostaway",
		SQLitePath:      "reviews.db",
		WatchSnapshot:   true,
	}
}

// Load builds the config from defaults, the optional YAML file named by
// REVIEWS_CONFIG, a .env file and finally the process environment.
func Load() Config {
	c := defaults()
	if path := os.Getenv("REVIEWS_CONFIG"); path != "" {
		if err := loadYAML(path, &c); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file ignored")
		}
	}
	// .env never overrides variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.Sources = list(env("REVIEW_SOURCES", strings.Join(c.Sources, ",")))
	c.HostawayBase = env("HOSTAWAY_BASE_URL", c.HostawayBase)
	c.HostawayToken = env("HOSTAWAY_TOKEN", c.HostawayToken)
	c.MirrorURL = env("MIRROR_URL", c.MirrorURL)
	c.FetchTimeout = atoi("FETCH_TIMEOUT_SECONDS", c.FetchTimeout)
	c.CacheTTLSec = atoi("CACHE_TTL_SECONDS", c.CacheTTLSec)
	c.SourceRPS = atoi("SOURCE_RPS", c.SourceRPS)
	c.PageSize = atoi("PAGE_SIZE", c.PageSize)
	c.Workers = atoi("FETCH_WORKERS", c.Workers)
	c.SnapshotBackend = strings.ToLower(env("SNAPSHOT_BACKEND", c.SnapshotBackend))
	c.SnapshotPath = env("SNAPSHOT_PATH", c.SnapshotPath)
	c.SnapshotName = env("SNAPSHOT_NAME", c.SnapshotName)
	c.SQLitePath = env("SQLITE_PATH", c.SQLitePath)
	c.MySQLDSN = env("MYSQL_DSN", c.MySQLDSN)
	c.WatchSnapshot = envBool("WATCH_SNAPSHOT", c.WatchSnapshot)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)

	if c.HostawayToken == "" && contains(c.Sources, "hostaway") {
		log.Warn().Msg("HOSTAWAY_TOKEN is empty")
	}
	return c
}

func loadYAML(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
