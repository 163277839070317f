package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/db/dbtest"
	testutil "fiber-ent-blog/internal/httpx/kit/testutil"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/store"
)

type fixture struct {
	st   *store.Store
	app  *fiber.App
	leo  *store.User
	ann  *store.User
	cats *store.Group
	dogs *store.Group
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{st: store.New(dbtest.NewDriver(t))}
	f.leo = &store.User{Username: "leo", PasswordHash: "x"}
	f.ann = &store.User{Username: "ann", PasswordHash: "x"}
	for _, u := range []*store.User{f.leo, f.ann} {
		if err := f.st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	f.cats = &store.Group{Title: "Cats", Slug: "cats", Description: "all about cats"}
	f.dogs = &store.Group{Title: "Dogs", Slug: "dogs"}
	for _, g := range []*store.Group{f.cats, f.dogs} {
		if err := f.st.CreateGroup(ctx, g); err != nil {
			t.Fatalf("create group: %v", err)
		}
	}

	// The bearer token is the username.
	users := map[string]*store.User{"leo": f.leo, "ann": f.ann}
	parse := func(token string) (*blog.Principal, error) {
		u, ok := users[token]
		if !ok {
			return nil, errors.New("unknown token")
		}
		return &blog.Principal{UserID: u.ID, Username: u.Username}, nil
	}

	cfg := &config.Config{}
	cfg.Auth.LoginURL = "/auth/login/"
	cfg.Auth.CookieName = "access_token"
	svc := blog.New(f.st, pageSize)
	f.app = testutil.NewApp(
		func(app *fiber.App) { app.Use(mw.JWTMiddleware(parse, cfg.Auth.CookieName)) },
		func(app *fiber.App) { Mount(app, cfg, svc, nil) },
	)
	return f
}

func (f *fixture) post(t *testing.T, author *store.User, group *store.Group, text string, at time.Time) *store.Post {
	t.Helper()
	p := &store.Post{Text: text, AuthorID: author.ID, PubDate: at}
	if group != nil {
		p.GroupID = lo.ToPtr(group.ID)
	}
	if err := f.st.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.st.CountPosts(context.Background(), store.PostFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func as(req *http.Request, username string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+username)
	return req
}

func cards(body string) int { return strings.Count(body, `<article class="post">`) }

func postJSON(target string, in blog.PostInput) *http.Request {
	b, _ := json.Marshal(in)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("Accept", fiber.MIMEApplicationJSON)
	return req
}

func editURL(id int64) string { return fmt.Sprintf("/posts/%d/edit/", id) }

func TestFeeds_SplitAcrossPages(t *testing.T) {
	f := newFixture(t, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		f.post(t, f.leo, f.cats, "cat post "+strconv.Itoa(i), base.Add(time.Duration(i)*time.Minute))
	}
	f.post(t, f.ann, f.dogs, "dog post", base.Add(-time.Hour))

	cases := []struct {
		path        string
		first, last int
	}{
		{"/", 10, 4},
		{"/group/cats/", 10, 3},
		{"/profile/leo/", 10, 3},
	}
	for _, tc := range cases {
		res, body := testutil.Do(t, f.app, testutil.Get(tc.path))
		if res.StatusCode != http.StatusOK || cards(body) != tc.first {
			t.Fatalf("%s page 1: status=%d cards=%d", tc.path, res.StatusCode, cards(body))
		}
		_, body = testutil.Do(t, f.app, testutil.Get(tc.path+"?page=2"))
		if cards(body) != tc.last {
			t.Fatalf("%s page 2: cards=%d want %d", tc.path, cards(body), tc.last)
		}
	}

	_, body := testutil.Do(t, f.app, testutil.Get("/group/cats/"))
	if strings.Contains(body, "dog post") || !strings.Contains(body, "all about cats") {
		t.Fatalf("group page shows the wrong posts or misses the description")
	}
	_, body = testutil.Do(t, f.app, testutil.Get("/"))
	if !strings.Contains(body, "cat post 12") || strings.Contains(body, "cat post 2<") {
		t.Fatalf("front page is not newest first")
	}
}

func TestFeed_JSONMetaAndClamping(t *testing.T) {
	f := newFixture(t, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		f.post(t, f.leo, nil, "post "+strconv.Itoa(i), base.Add(time.Duration(i)*time.Minute))
	}

	for _, page := range []string{"2", "99", "-1"} {
		res, body := testutil.Do(t, f.app, testutil.GetJSON("/?page="+page))
		if res.StatusCode != http.StatusOK {
			t.Fatalf("page=%s status=%d", page, res.StatusCode)
		}
		var env struct {
			Code string
			Data struct {
				Posts []store.Post `json:"posts"`
			}
			Meta struct {
				Page     int  `json:"page"`
				Count    int  `json:"count"`
				Total    int  `json:"total"`
				NumPages int  `json:"num_pages"`
				HasNext  bool `json:"has_next"`
			}
		}
		if err := json.Unmarshal([]byte(body), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Code != "OK" || env.Meta.Page != 2 || env.Meta.Count != 3 || env.Meta.Total != 13 || env.Meta.NumPages != 2 || env.Meta.HasNext {
			t.Fatalf("page=%s meta=%+v", page, env.Meta)
		}
		if len(env.Data.Posts) != 3 || env.Data.Posts[0].Text != "post 2" {
			t.Fatalf("page=%s posts=%d", page, len(env.Data.Posts))
		}
	}

	_, body := testutil.Do(t, f.app, testutil.GetJSON("/?page=abc"))
	if !strings.Contains(body, `"page":1`) {
		t.Fatalf("non-numeric page should be page 1: %s", body)
	}
}

func TestEmptyFeed(t *testing.T) {
	f := newFixture(t, 10)
	res, body := testutil.Do(t, f.app, testutil.Get("/profile/ann/"))
	if res.StatusCode != http.StatusOK || cards(body) != 0 || !strings.Contains(body, "No posts yet.") {
		t.Fatalf("status=%d", res.StatusCode)
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, 10)
	p := f.post(t, f.leo, nil, "hello", time.Now())

	for _, path := range []string{
		"/group/nope/",
		"/profile/nobody/",
		"/posts/999/",
		"/posts/abc/",
		"/posts/0/",
		"/nowhere/",
		fmt.Sprintf("/posts/%d/extra/", p.ID),
	} {
		res, body := testutil.Do(t, f.app, testutil.Get(path))
		if res.StatusCode != http.StatusNotFound || !strings.Contains(body, "does not exist") {
			t.Fatalf("%s: status=%d", path, res.StatusCode)
		}
	}
	if res, _ := testutil.Do(t, f.app, as(testutil.Get(editURL(999)), "leo")); res.StatusCode != http.StatusNotFound {
		t.Fatalf("edit of missing post: %d", res.StatusCode)
	}
	if res, _ := testutil.Do(t, f.app, testutil.GetJSON("/posts/999/")); res.StatusCode != http.StatusNotFound {
		t.Fatalf("json missing post: %d", res.StatusCode)
	}
}

func TestDetail(t *testing.T) {
	f := newFixture(t, 10)
	p := f.post(t, f.leo, f.cats, "the long text of the post", time.Now())
	f.post(t, f.leo, nil, "another", time.Now())

	res, body := testutil.Do(t, f.app, testutil.Get(detailURL(p.ID)))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", res.StatusCode)
	}
	for _, want := range []string{"the long text of the post", "<span>2</span>", `href="/group/cats/"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("detail misses %q", want)
		}
	}
	if strings.Contains(body, "Edit post") {
		t.Fatalf("anonymous visitor sees the edit link")
	}
	_, body = testutil.Do(t, f.app, as(testutil.Get(detailURL(p.ID)), "leo"))
	if !strings.Contains(body, "Edit post") {
		t.Fatalf("author does not see the edit link")
	}
	_, body = testutil.Do(t, f.app, as(testutil.Get(detailURL(p.ID)), "ann"))
	if strings.Contains(body, "Edit post") {
		t.Fatalf("other user sees the edit link")
	}
}

func TestCreate_RequiresLogin(t *testing.T) {
	f := newFixture(t, 10)

	res, _ := testutil.Do(t, f.app, testutil.Get("/create/"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/auth/login/?next=/create/" {
		t.Fatalf("GET status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	res, _ = testutil.Do(t, f.app, testutil.PostForm("/create/", url.Values{"text": {"sneaky"}}))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/auth/login/?next=/create/" {
		t.Fatalf("POST status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	if f.count(t) != 0 {
		t.Fatalf("anonymous create persisted a post")
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t, 10)

	res, body := testutil.Do(t, f.app, as(testutil.Get("/create/"), "leo"))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `<option value="`+strconv.FormatInt(f.cats.ID, 10)+`">Cats</option>`) {
		t.Fatalf("empty form: status=%d", res.StatusCode)
	}

	form := url.Values{"text": {"  fresh post  "}, "group": {strconv.FormatInt(f.cats.ID, 10)}}
	res, _ = testutil.Do(t, f.app, as(testutil.PostForm("/create/", form), "leo"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/profile/leo/" {
		t.Fatalf("status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	if f.count(t) != 1 {
		t.Fatalf("post not created")
	}
	posts, err := f.st.ListPosts(context.Background(), store.PostFilter{}, 1, 0)
	if err != nil || len(posts) != 1 {
		t.Fatalf("list: %v", err)
	}
	p := posts[0]
	if p.Text != "fresh post" || p.AuthorID != f.leo.ID || p.GroupID == nil || *p.GroupID != f.cats.ID {
		t.Fatalf("stored post = %+v", p)
	}

	_, body = testutil.Do(t, f.app, testutil.Get("/group/cats/"))
	if cards(body) != 1 {
		t.Fatalf("new post missing from its group")
	}
	_, body = testutil.Do(t, f.app, testutil.Get("/group/dogs/"))
	if cards(body) != 0 {
		t.Fatalf("new post shown in another group")
	}
}

func TestCreate_InvalidReRenders(t *testing.T) {
	f := newFixture(t, 10)

	res, body := testutil.Do(t, f.app, as(testutil.PostForm("/create/", url.Values{"text": {"   "}, "group": {"424242"}}), "leo"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", res.StatusCode)
	}
	if !strings.Contains(body, "This field is required.") || !strings.Contains(body, "Select a valid choice.") {
		t.Fatalf("form errors missing")
	}

	res, body = testutil.Do(t, f.app, as(postJSON("/create/", blog.PostInput{Text: ""}), "leo"))
	if res.StatusCode != http.StatusBadRequest || !strings.Contains(body, "E_INVALID_PARAM") {
		t.Fatalf("json status=%d body=%s", res.StatusCode, body)
	}
	if f.count(t) != 0 {
		t.Fatalf("invalid submission persisted a post")
	}
}

func TestEdit_Author(t *testing.T) {
	f := newFixture(t, 10)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := f.post(t, f.leo, f.cats, "before", at)

	res, body := testutil.Do(t, f.app, as(testutil.Get(editURL(p.ID)), "leo"))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, ">before</textarea>") || !strings.Contains(body, " selected>Cats") {
		t.Fatalf("edit form: status=%d", res.StatusCode)
	}

	form := url.Values{"text": {"after"}, "group": {strconv.FormatInt(f.dogs.ID, 10)}}
	res, _ = testutil.Do(t, f.app, as(testutil.PostForm(editURL(p.ID), form), "leo"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != detailURL(p.ID) {
		t.Fatalf("status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}

	got, err := f.st.PostByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Text != "after" || *got.GroupID != f.dogs.ID || got.AuthorID != f.leo.ID || !got.PubDate.Equal(at) {
		t.Fatalf("edited post = %+v", got)
	}
	_, body = testutil.Do(t, f.app, testutil.Get("/group/cats/"))
	if cards(body) != 0 {
		t.Fatalf("moved post still in its old group")
	}
}

func TestEdit_InvalidKeepsPost(t *testing.T) {
	f := newFixture(t, 10)
	p := f.post(t, f.leo, nil, "before", time.Now())

	res, body := testutil.Do(t, f.app, as(testutil.PostForm(editURL(p.ID), url.Values{"text": {""}}), "leo"))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "This field is required.") || !strings.Contains(body, "Edit post") {
		t.Fatalf("status=%d", res.StatusCode)
	}
	got, _ := f.st.PostByID(context.Background(), p.ID)
	if got.Text != "before" {
		t.Fatalf("invalid edit changed the post: %q", got.Text)
	}
}

func TestEdit_NotAuthorRedirectsToDetail(t *testing.T) {
	f := newFixture(t, 10)
	p := f.post(t, f.leo, f.cats, "mine", time.Now())

	res, _ := testutil.Do(t, f.app, as(testutil.Get(editURL(p.ID)), "ann"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != detailURL(p.ID) {
		t.Fatalf("GET status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	res, _ = testutil.Do(t, f.app, as(testutil.PostForm(editURL(p.ID), url.Values{"text": {"hijacked"}}), "ann"))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != detailURL(p.ID) {
		t.Fatalf("POST status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	got, _ := f.st.PostByID(context.Background(), p.ID)
	if got.Text != "mine" || got.AuthorID != f.leo.ID {
		t.Fatalf("post changed by a non-author: %+v", got)
	}
}

func TestEdit_RequiresLogin(t *testing.T) {
	f := newFixture(t, 10)
	p := f.post(t, f.leo, nil, "mine", time.Now())

	want := "/auth/login/?next=" + editURL(p.ID)
	res, _ := testutil.Do(t, f.app, testutil.Get(editURL(p.ID)))
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != want {
		t.Fatalf("status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}
	res, _ = testutil.Do(t, f.app, testutil.PostForm(editURL(p.ID), url.Values{"text": {"x"}}))
	if res.Header.Get("Location") != want {
		t.Fatalf("POST location=%q", res.Header.Get("Location"))
	}
}

func TestSearch_WithoutIndex(t *testing.T) {
	f := newFixture(t, 10)
	f.post(t, f.leo, nil, "findable", time.Now())

	res, body := testutil.Do(t, f.app, testutil.Get("/search/?q=findable"))
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "Nothing found.") {
		t.Fatalf("status=%d", res.StatusCode)
	}
	res, body = testutil.Do(t, f.app, testutil.Get("/search/"))
	if res.StatusCode != http.StatusOK || strings.Contains(body, "result(s)") {
		t.Fatalf("empty query should render the bare form")
	}
}
