package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"fiber-ent-blog/internal/logx"
)

var configLogger = logx.GetScope("config")

// Supported record store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppEnv string
	Server struct {
		Addr string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text, json
	}
	DB struct {
		Driver     string // postgres | sqlite
		SQLitePath string
	}
	PG struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
	}
	Blog struct {
		// PostsOnPage is the process-wide feed page size. Not hot-reloadable.
		PostsOnPage int
	}
	JWT struct {
		Algo         string // HS256 | RS256
		HSSecret     string
		RSPrivateKey string
		RSPublicKey  string
		Issuer       string
		Audience     string
		AccessMin    int
	}
	Auth struct {
		LoginURL   string
		CookieName string
	}
	RateLimit struct {
		WindowSec int
		Max       int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MQ struct {
		URL      string // RabbitMQ URL
		Exchange string
	}
	ES struct {
		Addrs    string // comma separated
		Username string
		Password string
		Index    string
	}
	Apollo struct {
		Enable    bool
		AppID     string
		Cluster   string
		Namespace string
		Addrs     string
		AccessKey string
	}
}

// Load loads config from env, and if enabled, overrides with Apollo values.
// Returns config, the hot-reload store, optional apollo closer, and error.
func Load() (*Config, *Store, func(), error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	store := NewStore(cfg)

	if cfg.Apollo.Enable {
		closer, err := overrideFromApollo(cfg, store)
		if err != nil {
			configLogger.Sugar().Errorf("apollo override failed: %v", err)
			return cfg, store, closer, err
		}
		return cfg, store, closer, nil
	}

	return cfg, store, nil, nil
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Server.Addr = getEnv("SERVER_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "text")

	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	cfg.DB.SQLitePath = getEnv("SQLITE_PATH", "data/blog.db")
	cfg.PG.URL = getEnv("POSTGRES_URL", "")
	cfg.PG.MaxOpenConns = getInt("PG_MAX_OPEN", 10)
	cfg.PG.MaxIdleConns = getInt("PG_MAX_IDLE", 5)

	cfg.Blog.PostsOnPage = getInt("POSTS_ON_PAGE", 10)

	cfg.JWT.Algo = getEnv("JWT_ALGO", "HS256")
	cfg.JWT.HSSecret = getEnv("JWT_HS_SECRET", "change-me")
	cfg.JWT.RSPrivateKey = getEnv("JWT_RS_PRIVATE_KEY", "")
	cfg.JWT.RSPublicKey = getEnv("JWT_RS_PUBLIC_KEY", "")
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", "fiber-ent-blog")
	cfg.JWT.Audience = getEnv("JWT_AUDIENCE", "fiber-ent-blog")
	cfg.JWT.AccessMin = getInt("JWT_ACCESS_MIN", 60*24)

	cfg.Auth.LoginURL = getEnv("AUTH_LOGIN_URL", "/auth/login/")
	cfg.Auth.CookieName = getEnv("AUTH_COOKIE_NAME", "access_token")

	cfg.RateLimit.WindowSec = getInt("RATE_LIMIT_WINDOW_SEC", 60)
	cfg.RateLimit.Max = getInt("RATE_LIMIT_MAX", 30)

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	// RabbitMQ
	cfg.MQ.URL = getEnv("RABBITMQ_URL", "")
	cfg.MQ.Exchange = getEnv("MQ_EXCHANGE", "blog.events")

	// Elasticsearch
	cfg.ES.Addrs = getEnv("ES_ADDRS", "")
	cfg.ES.Username = getEnv("ES_USERNAME", "")
	cfg.ES.Password = getEnv("ES_PASSWORD", "")
	cfg.ES.Index = getEnv("ES_INDEX", "posts")

	cfg.Apollo.Enable = getBool("APOLLO_ENABLE", false)
	cfg.Apollo.AppID = getEnv("APOLLO_APP_ID", "")
	cfg.Apollo.Cluster = getEnv("APOLLO_CLUSTER", "default")
	cfg.Apollo.Namespace = getEnv("APOLLO_NAMESPACE", "application")
	cfg.Apollo.Addrs = getEnv("APOLLO_ADDRS", "")
	cfg.Apollo.AccessKey = getEnv("APOLLO_ACCESS_KEY", "")

	return cfg
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Blog.PostsOnPage < 1 {
		return fmt.Errorf("POSTS_ON_PAGE must be >= 1, got %d", c.Blog.PostsOnPage)
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.PG.URL == "" {
			return fmt.Errorf("POSTGRES_URL required for DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH required for DB_DRIVER=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.PG.MaxIdleConns > c.PG.MaxOpenConns {
		return fmt.Errorf("PG_MAX_IDLE cannot exceed PG_MAX_OPEN")
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
