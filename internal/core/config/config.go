package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type FenceSourceCfg struct {
	Source         string // sql | redis | file
	DBDriver       string // sqlite3 | pgx
	DBDSN          string
	RedisAddr      string
	RedisKeyPrefix string
	RedisDB        int
	RedisPoolSize  int
	RedisTimeout   time.Duration
	File           string
	ParseCacheSize int
}

type ExportEventsCfg struct {
	Enabled   bool
	Brokers   string
	Topic     string
	QueueSize int
}

type UpdateCheckCfg struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

type Config struct {
	Addr         string
	LogLevel     string
	LogConsole   bool
	LogSampleN   int
	PluginDir    string
	InstanceID   int
	AuthUser     string
	AuthPassword string
	Fences       FenceSourceCfg
	ExportEvents ExportEventsCfg
	UpdateCheck  UpdateCheckCfg
	Metrics      bool
}

func FromEnv() Config {
	interval := getduration("UPDATE_CHECK_INTERVAL", time.Hour)
	if interval <= 0 {
		interval = time.Hour
	}

	return Config{
		Addr:         getenv("ADDR", ":8090"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogConsole:   getbool("LOG_CONSOLE", false),
		LogSampleN:   getint("LOG_SAMPLE_N", 0),
		PluginDir:    getenv("PLUGIN_DIR", "."),
		InstanceID:   getint("INSTANCE_ID", 1),
		AuthUser:     getenv("AUTH_USER", ""),
		AuthPassword: getenv("AUTH_PASSWORD", ""),
		Fences: FenceSourceCfg{
			Source:         strings.ToLower(getenv("FENCE_SOURCE", "sql")),
			DBDriver:       getenv("DB_DRIVER", "sqlite3"),
			DBDSN:          getenv("DB_DSN", "file:mad.db?mode=ro"),
			RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
			RedisKeyPrefix: getenv("REDIS_KEY_PREFIX", "gfhelper:fences"),
			RedisDB:        getint("REDIS_DB", 0),
			RedisPoolSize:  getint("REDIS_POOL_SIZE", 16),
			RedisTimeout:   getduration("REDIS_TIMEOUT", 2*time.Second),
			File:           getenv("FENCE_FILE", "fences.yaml"),
			ParseCacheSize: getint("FENCE_PARSE_CACHE_SIZE", 1024),
		},
		ExportEvents: ExportEventsCfg{
			Enabled:   getbool("EXPORT_EVENTS_ENABLED", false),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     getenv("KAFKA_TOPIC", "gfhelper-exports"),
			QueueSize: getint("EXPORT_EVENTS_QUEUE", 256),
		},
		UpdateCheck: UpdateCheckCfg{
			Enabled:  getbool("UPDATE_CHECK_ENABLED", true),
			Interval: interval,
			Timeout:  getduration("UPDATE_CHECK_TIMEOUT", 15*time.Second),
		},
		Metrics: getbool("METRICS_ENABLED", true),
	}
}

// BrokerList splits the comma separated broker list, dropping blanks.
func (c ExportEventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
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
