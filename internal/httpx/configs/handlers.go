// Package configs exposes the live runtime configuration to staff.
package configs

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/kit"
)

// Snapshot is the effective configuration with secrets masked.
// swagger:model ConfigSnapshot
type Snapshot struct {
	AppEnv      string `json:"app_env" example:"dev"`
	Addr        string `json:"addr" example:":8080"`
	LogLevel    string `json:"log_level" example:"info"`
	LogFormat   string `json:"log_format" example:"text"`
	DBDriver    string `json:"db_driver" example:"postgres"`
	PGMaxOpen   int    `json:"pg_max_open" example:"10"`
	PGMaxIdle   int    `json:"pg_max_idle" example:"5"`
	PostsOnPage int    `json:"posts_on_page" example:"10"`
	JWTAlgo     string `json:"jwt_algo" example:"HS256"`
	JWTSecret   string `json:"jwt_secret" example:"***"`
	RateLimit   int    `json:"rate_limit" example:"30"`
	RateWindow  int    `json:"rate_limit_window_sec" example:"60"`
	Redis       bool   `json:"redis"`
	RabbitMQ    bool   `json:"rabbitmq"`
	Search      bool   `json:"search"`
	Apollo      bool   `json:"apollo"`
}

func mask(s string) string { return lo.Ternary(s == "", "", "***") }

// SnapshotOf describes cfg without leaking credentials.
func SnapshotOf(cfg *config.Config) Snapshot {
	return Snapshot{
		AppEnv:      cfg.AppEnv,
		Addr:        cfg.Server.Addr,
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
		DBDriver:    cfg.DB.Driver,
		PGMaxOpen:   cfg.PG.MaxOpenConns,
		PGMaxIdle:   cfg.PG.MaxIdleConns,
		PostsOnPage: cfg.Blog.PostsOnPage,
		JWTAlgo:     cfg.JWT.Algo,
		JWTSecret:   mask(cfg.JWT.HSSecret),
		RateLimit:   cfg.RateLimit.Max,
		RateWindow:  cfg.RateLimit.WindowSec,
		Redis:       cfg.Redis.Addr != "",
		RabbitMQ:    cfg.MQ.URL != "",
		Search:      cfg.ES.Addrs != "",
		Apollo:      cfg.Apollo.Enable,
	}
}

// GetConfigHandler returns the configuration currently held by store,
// including values hot-reloaded from Apollo.
//
//	@Summary      Runtime config
//	@Description  Effective configuration with secrets masked (staff only)
//	@Tags         admin
//	@Produce      json
//	@Security     BearerAuth
//	@Success      200  {object}  configs.Snapshot
//	@Failure      401  {object}  map[string]interface{}
//	@Failure      403  {object}  map[string]interface{}
//	@Router       /admin/config/ [get]
func GetConfigHandler(store *config.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return kit.OK(c, SnapshotOf(store.Get()))
	}
}

// Mount registers the config view on r, which is expected to carry the
// staff gate.
func Mount(r fiber.Router, store *config.Store) {
	r.Get("/config/", GetConfigHandler(store))
}
