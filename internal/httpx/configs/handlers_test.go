package configs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/kit/testutil"
)

func TestGetConfig_FollowsStoreAndMasksSecrets(t *testing.T) {
	cfg := &config.Config{AppEnv: "test"}
	cfg.JWT.HSSecret = "super-secret"
	cfg.Blog.PostsOnPage = 10
	cfg.Log.Level = "info"
	store := config.NewStore(cfg)
	app := testutil.NewApp(func(app *fiber.App) { Mount(app.Group("/admin"), store) })

	res, body := testutil.Do(t, app, testutil.GetJSON("/admin/config/"))
	if res.StatusCode != 200 || strings.Contains(body, "super-secret") {
		t.Fatalf("status=%d body=%s", res.StatusCode, body)
	}
	var env struct{ Data Snapshot }
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.JWTSecret != "***" || env.Data.LogLevel != "info" || env.Data.Search {
		t.Fatalf("snapshot = %+v", env.Data)
	}

	next := *cfg
	next.Log.Level = "debug"
	store.Update(&next, map[string]bool{"log.level": true})
	_, body = testutil.Do(t, app, testutil.GetJSON("/admin/config/"))
	if !strings.Contains(body, `"log_level":"debug"`) {
		t.Fatalf("snapshot does not follow the store: %s", body)
	}
}
