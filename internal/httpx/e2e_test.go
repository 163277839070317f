// Package httpx provides HTTP handling utilities and middleware
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/db/dbtest"
	"fiber-ent-blog/internal/httpx/auth"
	"fiber-ent-blog/internal/httpx/kit/testutil"
	"fiber-ent-blog/internal/store"
)

func newE2EApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	cfg := config.FromEnv()
	cfg.JWT.Algo = "HS256"
	cfg.JWT.HSSecret = "e2e-secret"
	cfg.Blog.PostsOnPage = 10
	cfg.RateLimit.Max = 1000
	st := store.New(dbtest.NewDriver(t))
	app := NewApp()
	RegisterCommonMiddlewares(app)
	Register(app, Deps{Config: cfg, ConfigStore: config.NewStore(cfg), Store: st, Blog: blog.New(st, cfg.Blog.PostsOnPage)})
	return app, st
}

func withCookie(req *http.Request, ck *http.Cookie) *http.Request {
	req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	return req
}

func TestE2E_Health(t *testing.T) {
	app, _ := newE2EApp(t)

	res, body := testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	var env struct {
		Code string         `json:"code"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != "OK" || env.Data["status"] != "ok" || env.Data["db"] != "ok" || env.Data["redis"] != "disabled" {
		t.Fatalf("unexpected body: %+v", env)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Fatalf("request id missing")
	}
}

func TestE2E_NotFound(t *testing.T) {
	app, _ := newE2EApp(t)

	res, body := testutil.Do(t, app, testutil.Get("/nope/"))
	if res.StatusCode != http.StatusNotFound || !strings.Contains(body, "does not exist") {
		t.Fatalf("html 404: %d", res.StatusCode)
	}
	res, body = testutil.Do(t, app, testutil.GetJSON("/nope/"))
	var env map[string]any
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.StatusCode != http.StatusNotFound || env["code"] != "E_NOT_FOUND" {
		t.Fatalf("json 404: %d %v", res.StatusCode, env)
	}
}

func TestE2E_SignupPostEdit(t *testing.T) {
	app, _ := newE2EApp(t)

	res, _ := testutil.Do(t, app, testutil.Get("/create/"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/auth/login/?next=/create/" {
		t.Fatalf("anonymous create: %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	res, _ = testutil.Do(t, app, testutil.PostForm("/auth/signup/", url.Values{"username": {"leo"}, "password": {"correct-horse"}}))
	var session *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == "access_token" {
			session = ck
		}
	}
	if res.StatusCode != http.StatusFound || session == nil {
		t.Fatalf("signup: %d", res.StatusCode)
	}

	res, body := testutil.Do(t, app, withCookie(testutil.Get("/create/"), session))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "New post") {
		t.Fatalf("create form: %d", res.StatusCode)
	}
	res, _ = testutil.Do(t, app, withCookie(testutil.PostForm("/create/", url.Values{"text": {"hello from e2e"}}), session))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/profile/leo/" {
		t.Fatalf("create: %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	res, body = testutil.Do(t, app, testutil.GetJSON("/profile/leo/"))
	var feed struct {
		Data struct{ Posts []store.Post }
	}
	if err := json.Unmarshal([]byte(body), &feed); err != nil || len(feed.Data.Posts) != 1 {
		t.Fatalf("profile feed: %d %s", res.StatusCode, body)
	}
	id := feed.Data.Posts[0].ID
	detail := "/posts/" + strconv.FormatInt(id, 10) + "/"

	res, _ = testutil.Do(t, app, withCookie(testutil.PostForm(detail+"edit/", url.Values{"text": {"edited in e2e"}}), session))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != detail {
		t.Fatalf("edit: %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	_, body = testutil.Do(t, app, testutil.Get("/"))
	if !strings.Contains(body, "edited in e2e") || strings.Contains(body, "hello from e2e") {
		t.Fatalf("front page does not show the edit")
	}
}

func TestE2E_StaffRoutes(t *testing.T) {
	app, st := newE2EApp(t)
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ctx := context.Background()
	if err := st.CreateUser(ctx, &store.User{Username: "boss", PasswordHash: hash, IsStaff: true}); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	if res, _ := testutil.Do(t, app, testutil.GetJSON("/admin/ping")); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous admin: %d", res.StatusCode)
	}

	b, _ := json.Marshal(auth.LoginRequest{Username: "boss", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	_, body := testutil.Do(t, app, req)
	var login struct{ Data auth.TokenResponse }
	if err := json.Unmarshal([]byte(body), &login); err != nil || login.Data.AccessToken == "" {
		t.Fatalf("login: %s", body)
	}
	bearer := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+login.Data.AccessToken)
		return req
	}

	gb, _ := json.Marshal(map[string]string{"title": "Cats", "slug": "cats"})
	req = httptest.NewRequest(http.MethodPost, "/admin/groups/", bytes.NewReader(gb))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if res, body := testutil.Do(t, app, bearer(req)); res.StatusCode != http.StatusCreated {
		t.Fatalf("create group: %d %s", res.StatusCode, body)
	}
	if res, _ := testutil.Do(t, app, testutil.Get("/group/cats/")); res.StatusCode != http.StatusOK {
		t.Fatalf("group page: %d", res.StatusCode)
	}
	res, body := testutil.Do(t, app, bearer(testutil.GetJSON("/admin/config/")))
	if res.StatusCode != http.StatusOK || strings.Contains(body, "e2e-secret") {
		t.Fatalf("config view: %d", res.StatusCode)
	}
	if res, _ := testutil.Do(t, app, bearer(testutil.GetJSON("/admin/users/"))); res.StatusCode != http.StatusOK {
		t.Fatalf("user list: %d", res.StatusCode)
	}
}
