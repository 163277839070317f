package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/views"
)

// NewApp creates a Fiber app with the standard error handler and the
// embedded views, and applies the given mount functions to register
// selective routes. Useful for tests.
func NewApp(mounts ...func(*fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:      kit.ErrorHandler(),
		Views:             views.New(),
		ViewsLayout:       views.Layout,
		PassLocalsToViews: true,
	})
	for _, m := range mounts {
		if m != nil {
			m(app)
		}
	}
	return app
}

// AsPrincipal injects pr as the authenticated principal, the way the JWT
// middleware does.
func AsPrincipal(pr *blog.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pr != nil {
			c.Locals("auth", pr)
		}
		return c.Next()
	}
}

// Do runs req against app and returns the response with its body read.
func Do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL, err)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = res.Body.Close()
	return res, string(b)
}

// Get builds a browser GET.
func Get(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html")
	return req
}

// GetJSON builds a GET that asks for the JSON envelope.
func GetJSON(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", fiber.MIMEApplicationJSON)
	return req
}

// PostForm builds a browser form submission.
func PostForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	req.Header.Set("Accept", "text/html")
	return req
}
