package groups

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/db/dbtest"
	"fiber-ent-blog/internal/httpx/kit/testutil"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/store"
)

func fakeParser(token string) (*blog.Principal, error) {
	switch token {
	case "leo":
		return &blog.Principal{UserID: 1, Username: "leo"}, nil
	case "boss":
		return &blog.Principal{UserID: 2, Username: "boss", Roles: []string{blog.RoleStaff}}, nil
	}
	return nil, errors.New("bad token")
}

func newTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	st := store.New(dbtest.NewDriver(t))
	svc := blog.New(st, 10)
	app := testutil.NewApp(
		func(app *fiber.App) { app.Use(mw.JWTMiddleware(fakeParser, "access_token")) },
		func(app *fiber.App) {
			Mount(app, app.Group("/admin", mw.RequireRoles(blog.RoleStaff)), svc, st)
		},
	)
	return app, st
}

func jsonReq(method, target, token string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestGroups_Create_List_Delete(t *testing.T) {
	app, st := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, body := testutil.Do(t, app, jsonReq(http.MethodPost, "/admin/groups/", "boss", CreateGroupRequest{Title: " Cats ", Slug: "cats", Description: "meow"}))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", res.StatusCode, body)
	}
	var env struct{ Data store.Group }
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.ID == 0 || env.Data.Title != "Cats" || env.Data.Slug != "cats" {
		t.Fatalf("created = %+v", env.Data)
	}

	res, body = testutil.Do(t, app, testutil.Get("/groups/"))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `<a href="/group/cats/">Cats</a>`) {
		t.Fatalf("list status=%d", res.StatusCode)
	}

	author := &store.User{Username: "writer", PasswordHash: "x"}
	if err := st.CreateUser(ctx, author); err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := &store.Post{Text: "in cats", AuthorID: author.ID, GroupID: lo.ToPtr(env.Data.ID)}
	if err := st.CreatePost(ctx, p); err != nil {
		t.Fatalf("create post: %v", err)
	}

	res, _ = testutil.Do(t, app, jsonReq(http.MethodDelete, "/admin/groups/cats/", "boss", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status=%d", res.StatusCode)
	}
	got, err := st.PostByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("post deleted with its group: %v", err)
	}
	if got.GroupID != nil || got.Group != nil {
		t.Fatalf("post still references the deleted group: %+v", got)
	}

	res, _ = testutil.Do(t, app, jsonReq(http.MethodDelete, "/admin/groups/cats/", "boss", nil))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status=%d", res.StatusCode)
	}
}

func TestGroups_CreateRejects(t *testing.T) {
	app, _ := newTestApp(t)

	if res, _ := testutil.Do(t, app, jsonReq(http.MethodPost, "/admin/groups/", "boss", CreateGroupRequest{Title: "Cats", Slug: "cats"})); res.StatusCode != http.StatusCreated {
		t.Fatalf("seed status=%d", res.StatusCode)
	}

	cases := []struct {
		name  string
		req   CreateGroupRequest
		field string
	}{
		{"duplicate slug", CreateGroupRequest{Title: "More cats", Slug: "cats"}, "slug"},
		{"bad slug", CreateGroupRequest{Title: "Dogs", Slug: "dogs and more"}, "slug"},
		{"missing title", CreateGroupRequest{Slug: "dogs"}, "title"},
		{"long slug", CreateGroupRequest{Title: "Dogs", Slug: strings.Repeat("d", 51)}, "slug"},
	}
	for _, tc := range cases {
		res, body := testutil.Do(t, app, jsonReq(http.MethodPost, "/admin/groups/", "boss", tc.req))
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", tc.name, res.StatusCode)
		}
		var env struct{ Details map[string][]string }
		_ = json.Unmarshal([]byte(body), &env)
		if len(env.Details[tc.field]) == 0 {
			t.Fatalf("%s: no %s error in %s", tc.name, tc.field, body)
		}
	}
}

func TestGroups_StaffOnly(t *testing.T) {
	app, _ := newTestApp(t)
	req := CreateGroupRequest{Title: "Cats", Slug: "cats"}

	if res, _ := testutil.Do(t, app, jsonReq(http.MethodPost, "/admin/groups/", "", req)); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", res.StatusCode)
	}
	if res, _ := testutil.Do(t, app, jsonReq(http.MethodPost, "/admin/groups/", "leo", req)); res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-staff status=%d", res.StatusCode)
	}
	if res, _ := testutil.Do(t, app, jsonReq(http.MethodDelete, "/admin/groups/cats/", "leo", nil)); res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-staff delete status=%d", res.StatusCode)
	}
}
