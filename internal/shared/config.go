package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	CORSOrigin  string

	StoreBackend string // file|mysql
	DBFile       string
	MySQLDSN     string

	RedisAddr string // empty disables the query cache
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	HostawayBase      string
	HostawayAccountID string
	HostawayKey       string
	HostawayTimeout   time.Duration
	HostawayRPS       int
	HostawayAttempts  int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		CORSOrigin:  env("CORS_ORIGIN", "*"),

		StoreBackend: env("STORE_BACKEND", "file"),
		DBFile:       env("DB_FILE", "db.json"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		HostawayBase:      env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", "61148"),
		HostawayKey:       env("HOSTAWAY_API_KEY", ""),
		HostawayTimeout:   time.Duration(atoi("HOSTAWAY_TIMEOUT_MS", 4000)) * time.Millisecond,
		HostawayRPS:       atoi("HOSTAWAY_RPS", 5),
		HostawayAttempts:  atoi("HOSTAWAY_RETRIES", 2),
	}
	if c.HostawayKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty, ingestion will use the fallback dataset")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
