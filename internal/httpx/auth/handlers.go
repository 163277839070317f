// Package auth provides signup, login and logout for the session cookie
// and bearer tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/store"
)

var authLogger = logx.GetScope("auth")

const msgBadCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."

func issue(c *fiber.Ctx, cfg *config.Config, u *store.User, next string) (TokenResponse, error) {
	access, _, err := SignAccess(cfg, u)
	if err != nil {
		return TokenResponse{}, kit.InternalError("sign access failed", err.Error())
	}
	SetAccessCookie(c, cfg, access)
	return TokenResponse{AccessToken: access, TokenType: "Bearer", ExpiresIn: cfg.JWT.AccessMin * 60, Username: u.Username, Next: next}, nil
}

// SignupFormHandler renders the signup form.
func SignupFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return kit.Render(c, fiber.StatusOK, "auth/signup", fiber.Map{"username": "", "errors": map[string][]string{}}, nil)
	}
}

// SignupHandler creates a user, signs them in and redirects to the front page.
//
//	@Summary      Sign up
//	@Description  Create a user with a password and issue a session token
//	@Tags         auth
//	@Accept       json,x-www-form-urlencoded
//	@Produce      json,html
//	@Param        body  body      auth.SignupRequest  true  "signup"
//	@Success      201   {object}  auth.TokenResponse
//	@Success      302   "redirect to /"
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      429   {object}  map[string]interface{}
//	@Router       /auth/signup/ [post]
func SignupHandler(cfg *config.Config, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		invalid := func(errs map[string][]string) error {
			if kit.WantsJSON(c) {
				return kit.BadRequest("invalid input", errs)
			}
			return kit.Render(c, fiber.StatusOK, "auth/signup", fiber.Map{"username": req.Username, "errors": errs}, nil)
		}
		if errs := req.validate(); len(errs) > 0 {
			return invalid(errs)
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			return kit.InternalError("hash password failed", err.Error())
		}
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		u := &store.User{Username: req.Username, PasswordHash: hash}
		if err := st.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return invalid(map[string][]string{"username": {"A user with that username already exists."}})
			}
			return kit.InternalError("create user failed", err.Error())
		}
		authLogger.Info("user signed up", zap.Int64("user_id", u.ID), zap.String("username", u.Username))

		tok, err := issue(c, cfg, u, "/")
		if err != nil {
			return err
		}
		if kit.WantsJSON(c) {
			return kit.Created(c, tok)
		}
		return c.Redirect("/", fiber.StatusFound)
	}
}

// LoginFormHandler renders the login form, carrying ?next= through.
func LoginFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return kit.Render(c, fiber.StatusOK, "auth/login", fiber.Map{"username": "", "next": c.Query("next"), "error": ""}, nil)
	}
}

// LoginHandler checks credentials, sets the session cookie and redirects to
// a local next path or the front page.
//
//	@Summary      Log in
//	@Description  Authenticate by username/password and issue a session token
//	@Tags         auth
//	@Accept       json,x-www-form-urlencoded
//	@Produce      json,html
//	@Param        body  body      auth.LoginRequest  true  "login"
//	@Success      200   {object}  auth.TokenResponse
//	@Success      302   "redirect to next"
//	@Failure      401   {object}  map[string]interface{}
//	@Failure      429   {object}  map[string]interface{}
//	@Header       200   {string}  X-RateLimit-Limit      "Requests per window"
//	@Header       200   {string}  X-RateLimit-Remaining  "Remaining requests"
//	@Header       429   {string}  Retry-After            "Seconds to wait"
//	@Router       /auth/login/ [post]
func LoginHandler(cfg *config.Config, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.Next == "" {
			req.Next = c.Query("next")
		}
		next := SafeNext(req.Next, "/")
		rejected := func() error {
			if kit.WantsJSON(c) {
				return kit.NewAPIError(http.StatusUnauthorized, "E_UNAUTHORIZED", msgBadCredentials, nil)
			}
			return kit.Render(c, fiber.StatusOK, "auth/login", fiber.Map{"username": req.Username, "next": req.Next, "error": msgBadCredentials}, nil)
		}
		if req.Username == "" || req.Password == "" {
			return rejected()
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		u, err := st.UserByUsername(ctx, req.Username)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return kit.InternalError("query user failed", err.Error())
			}
			VerifyPassword(req.Password, dummyHash)
			return rejected()
		}
		if !VerifyPassword(req.Password, u.PasswordHash) {
			return rejected()
		}

		tok, err := issue(c, cfg, u, next)
		if err != nil {
			return err
		}
		if kit.WantsJSON(c) {
			return kit.OK(c, tok)
		}
		return c.Redirect(next, fiber.StatusFound)
	}
}

// LogoutHandler clears the session cookie.
//
//	@Summary      Log out
//	@Description  Clear the session cookie
//	@Tags         auth
//	@Produce      json,html
//	@Success      200  {object}  map[string]string
//	@Router       /auth/logout/ [post]
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ClearAccessCookie(c, cfg)
		c.Locals("auth", nil)
		return kit.Render(c, fiber.StatusOK, "auth/logged_out", fiber.Map{"status": "ok"}, nil)
	}
}

// Mount registers the auth routes under r.
func Mount(r fiber.Router, cfg *config.Config, st *store.Store, limit fiber.Handler) {
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}
	r.Get("/signup/", SignupFormHandler())
	r.Post("/signup/", limit, SignupHandler(cfg, st))
	r.Get("/login/", LoginFormHandler())
	r.Post("/login/", limit, LoginHandler(cfg, st))
	r.Get("/logout/", LogoutHandler(cfg))
	r.Post("/logout/", LogoutHandler(cfg))
}
