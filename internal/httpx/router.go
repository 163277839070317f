package httpx

import (
	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/admin"
	"fiber-ent-blog/internal/httpx/auth"
	"fiber-ent-blog/internal/httpx/configs"
	"fiber-ent-blog/internal/httpx/groups"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/httpx/posts"
	"fiber-ent-blog/internal/httpx/users"
	"fiber-ent-blog/internal/redisx"
	"fiber-ent-blog/internal/store"
	"fiber-ent-blog/internal/views"
)

// Deps is everything the routes need. ConfigStore and Redis may be nil.
type Deps struct {
	Config      *config.Config
	ConfigStore *config.Store
	Store       *store.Store
	Blog        *blog.Service
	Redis       *redisx.Client
}

// NewApp returns a Fiber app that renders the embedded views and reports
// errors through kit.ErrorHandler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler:      kit.ErrorHandler(),
		Views:             views.New(),
		ViewsLayout:       views.Layout,
		PassLocalsToViews: true,
	})
}

// Register mounts every route on app. Anything left unmatched is a 404.
func Register(app *fiber.App, d Deps) {
	cfg := d.Config
	app.Use(mw.JWTMiddleware(auth.Parser(cfg), cfg.Auth.CookieName))

	app.Get("/health", HealthHandler(d.Store, d.Redis))
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	limit := mw.RateLimit(d.Redis, cfg.RateLimit.WindowSec, cfg.RateLimit.Max)
	auth.Mount(app.Group("/auth"), cfg, d.Store, limit)
	posts.Mount(app, cfg, d.Blog, limit)

	staff := app.Group("/admin", mw.RequireRoles(blog.RoleStaff))
	groups.Mount(app, staff, d.Blog, d.Store)
	admin.Mount(staff, d.Store)
	users.Mount(staff, d.Store, cfg.Blog.PostsOnPage)
	if d.ConfigStore != nil {
		configs.Mount(staff, d.ConfigStore)
	}

	app.Use(func(c *fiber.Ctx) error { return kit.NotFound("page not found") })
}
