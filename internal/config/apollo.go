package config

import (
	"strconv"

	agollo "github.com/apolloconfig/agollo/v4"
	apconf "github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// overrideFromApollo starts Apollo client and overrides config values if present.
// Returns a closer to stop the Apollo client.
func overrideFromApollo(cfg *Config, store *Store) (func(), error) {
	if cfg.Apollo.Addrs == "" || cfg.Apollo.AppID == "" {
		configLogger.Warn("apollo: missing APOLLO_ADDRS or APOLLO_APP_ID; skip")
		return nil, nil
	}

	ns := lo.Ternary(cfg.Apollo.Namespace != "", cfg.Apollo.Namespace, "application")

	appCfg := &apconf.AppConfig{
		AppID:         cfg.Apollo.AppID,
		Cluster:       cfg.Apollo.Cluster,
		NamespaceName: ns,
		IP:            cfg.Apollo.Addrs, // 支持逗号分隔
		Secret:        cfg.Apollo.AccessKey,
	}

	client, err := agollo.StartWithConfig(func() (*apconf.AppConfig, error) { return appCfg, nil })
	if err != nil {
		return nil, err
	}

	next := cloneConfig(cfg)
	applyOverrides(cacheLookup(client, ns), next)
	if store.UpdateValidated(next, map[string]bool{"apollo.init": true}) {
		*cfg = *next
	} else {
		configLogger.Warn("apollo: initial override rejected by validators")
	}

	client.AddChangeListener(&changeListener{ns: ns, client: client, store: store})

	closer := func() {
		// agollo v4 没有公开 Stop 接口，这里保留为空
	}
	return closer, nil
}

// lookupFunc returns the raw string value for an Apollo key.
type lookupFunc func(key string) (string, bool)

func cacheLookup(client agollo.Client, namespace string) lookupFunc {
	cache := client.GetConfigCache(namespace)
	return func(key string) (string, bool) {
		if cache == nil {
			return "", false
		}
		v, err := cache.Get(key)
		if err != nil {
			return "", false
		}
		s, _ := v.(string)
		return s, true
	}
}

// applyOverrides copies every known key from get into cfg. Empty strings
// are ignored except for secrets, which may legitimately be cleared.
// blog.posts_on_page is deliberately absent: the page size is fixed per process.
func applyOverrides(get lookupFunc, cfg *Config) {
	str := func(key string, dst *string, allowEmpty bool) {
		if s, ok := get(key); ok && (allowEmpty || s != "") {
			*dst = s
		}
	}
	num := func(key string, dst *int) {
		if s, ok := get(key); ok && s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*dst = n
			}
		}
	}

	str("app.env", &cfg.AppEnv, false)
	str("server.addr", &cfg.Server.Addr, false)
	str("log.level", &cfg.Log.Level, false)
	str("log.format", &cfg.Log.Format, false)
	str("pg.url", &cfg.PG.URL, false)
	num("pg.max_open", &cfg.PG.MaxOpenConns)
	num("pg.max_idle", &cfg.PG.MaxIdleConns)
	num("ratelimit.window_sec", &cfg.RateLimit.WindowSec)
	num("ratelimit.max", &cfg.RateLimit.Max)
	// Redis
	str("redis.addr", &cfg.Redis.Addr, false)
	str("redis.password", &cfg.Redis.Password, true)
	num("redis.db", &cfg.Redis.DB)
	// MQ
	str("mq.url", &cfg.MQ.URL, false)
	// ES
	str("es.addrs", &cfg.ES.Addrs, false)
	str("es.username", &cfg.ES.Username, true)
	str("es.password", &cfg.ES.Password, true)
}

type changeListener struct {
	ns     string
	client agollo.Client
	store  *Store
}

func (c *changeListener) OnChange(e *storage.ChangeEvent) {
	configLogger.Info("apollo change", zap.String("namespace", e.Namespace), zap.Int("changes", len(e.Changes)))
	next := cloneConfig(c.store.Get())
	applyOverrides(cacheLookup(c.client, c.ns), next)
	changed := map[string]bool{}
	for k := range e.Changes {
		changed[k] = true
	}
	if !c.store.UpdateValidated(next, changed) {
		configLogger.Warn("apollo change rejected by validators", zap.String("namespace", e.Namespace))
	}
}

func (c *changeListener) OnNewestChange(e *storage.FullChangeEvent) {
	configLogger.Debug("apollo newest change", zap.String("namespace", e.Namespace), zap.Int("keys", len(e.Changes)))
}
