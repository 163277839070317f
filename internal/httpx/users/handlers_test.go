package users

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/db/dbtest"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/httpx/kit/testutil"
	"fiber-ent-blog/internal/store"
)

func TestGetUsers_Paged(t *testing.T) {
	st := store.New(dbtest.NewDriver(t))
	for _, name := range []string{"zoe", "ann", "leo"} {
		u := &store.User{Username: name, PasswordHash: "secret-hash"}
		if err := st.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	app := testutil.NewApp(func(app *fiber.App) { Mount(app.Group("/admin"), st, 2) })

	res, body := testutil.Do(t, app, testutil.GetJSON("/admin/users/?page=2"))
	if res.StatusCode != 200 {
		t.Fatalf("status=%d", res.StatusCode)
	}
	var env struct {
		Data []map[string]any
		Meta kit.PageMeta
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0]["username"] != "zoe" {
		t.Fatalf("data = %v", env.Data)
	}
	if _, leaked := env.Data[0]["password_hash"]; leaked {
		t.Fatalf("password hash leaked")
	}
	if env.Meta.Page != 2 || env.Meta.Total != 3 || env.Meta.NumPages != 2 || env.Meta.HasNext {
		t.Fatalf("meta = %+v", env.Meta)
	}
}
