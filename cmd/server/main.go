// Package main is the entry point for the blog server
//
//	@title			Yatube Blog API
//	@version		1.0
//	@description	Posts, groups and author feeds. Every page is also available as JSON with Accept: application/json.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in						header
//	@name					Authorization
//
//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/db"
	"fiber-ent-blog/internal/esx"
	"fiber-ent-blog/internal/httpx"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/mqx"
	"fiber-ent-blog/internal/redisx"
	"fiber-ent-blog/internal/server"
	"fiber-ent-blog/internal/store"

	_ "fiber-ent-blog/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load config (env first; optional Apollo override)
	cfg, cfgStore, apClose, err := config.Load()
	if err != nil {
		panic(err)
	}
	if apClose != nil {
		defer apClose()
	}

	// Init global logger first
	logx.Init(cfg.Log.Level, cfg.Log.Format)
	mainLogger := logx.GetScope("main")

	mainLogger.Info("config loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.Server.Addr),
		zap.String("db.driver", cfg.DB.Driver),
		zap.Int("posts_on_page", cfg.Blog.PostsOnPage),
		zap.String("log.level", cfg.Log.Level),
		zap.String("log.format", cfg.Log.Format),
	)

	drv, closeDB, err := db.Open(cfg)
	if err != nil {
		mainLogger.Error("open db error", zap.Error(err))
		panic(err)
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, drv); err != nil {
		mainLogger.Error("migrate error", zap.Error(err))
		panic(err)
	}
	st := store.New(drv)

	// Optional deps: Redis, MQ, ES. A failing provider is left out.
	rdb, redisClose, err := redisx.Open(cfg)
	if err != nil {
		mainLogger.Warn("redis init failed", zap.Error(err))
	} else {
		defer redisClose()
	}

	var opts []blog.Option
	if pub, mqClose, err := mqx.Open(cfg); err != nil {
		mainLogger.Warn("mq init failed", zap.Error(err))
	} else if pub != nil {
		defer mqClose()
		opts = append(opts, blog.WithPublisher(pub))
	}

	if esClient, esClose, err := esx.Open(cfg); err != nil {
		mainLogger.Warn("es init failed", zap.Error(err))
	} else if esClient != nil {
		defer esClose()
		ix := esx.NewIndex(esClient, cfg.ES.Index)
		opts = append(opts, blog.WithIndexer(ix), blog.WithSearcher(ix))
	}

	svc := blog.New(st, cfg.Blog.PostsOnPage, opts...)

	app := httpx.NewApp()
	httpx.RegisterCommonMiddlewares(app)
	httpx.Register(app, httpx.Deps{Config: cfg, ConfigStore: cfgStore, Store: st, Blog: svc, Redis: rdb})

	// Watch for dynamic config changes (Apollo)
	// Validators: rollback strategy for invalid config
	cfgStore.AddValidator(func(newCfg *config.Config, changed map[string]bool) error {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			if newCfg.PG.MaxIdleConns > newCfg.PG.MaxOpenConns {
				return fmt.Errorf("PG_MAX_IDLE cannot exceed PG_MAX_OPEN")
			}
		}
		if changed["blog.posts_on_page"] && newCfg.Blog.PostsOnPage < 1 {
			return fmt.Errorf("POSTS_ON_PAGE must be >= 1")
		}
		return nil
	})

	cfgStore.Watch(func(newCfg *config.Config, changed map[string]bool) {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			db.UpdatePool(newCfg.PG.MaxOpenConns, newCfg.PG.MaxIdleConns)
			mainLogger.Info("db pool updated",
				zap.Int("max_open", newCfg.PG.MaxOpenConns),
				zap.Int("max_idle", newCfg.PG.MaxIdleConns),
			)
		}
		if changed["pg.url"] {
			mainLogger.Warn("pg.url changed; restart required to reconnect")
		}
		if changed["server.addr"] {
			mainLogger.Warn("server.addr changed; restart required to take effect",
				zap.String("addr", newCfg.Server.Addr),
			)
		}
		if changed["blog.posts_on_page"] {
			mainLogger.Warn("posts_on_page changed; restart required to take effect",
				zap.Int("posts_on_page", newCfg.Blog.PostsOnPage),
			)
		}
		if changed["log.level"] || changed["log.format"] {
			logx.Init(newCfg.Log.Level, newCfg.Log.Format)
			mainLogger.Info("logger reconfigured",
				zap.String("level", newCfg.Log.Level),
				zap.String("format", newCfg.Log.Format),
			)
		}
	})

	// Graceful shutdown
	go func() {
		ln, err := server.GetListener(cfg.Server.Addr)
		if err != nil {
			mainLogger.Sugar().Errorf("listener error: %v", err)
			return
		}
		if err := app.Listener(ln); err != nil {
			mainLogger.Sugar().Infof("fiber exit: %v", err)
		}
	}()
	mainLogger.Sugar().Infof("server started on %s", cfg.Server.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLogger.Sugar().Info("shutting down...")
	_ = app.Shutdown()
}
