// Package mw contains HTTP middleware including authentication and rate limiting.
package mw

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/httpx/kit"
)

// TokenParser parses a token string into the principal it was issued for.
type TokenParser func(token string) (*blog.Principal, error)

// JWTMiddleware attaches the principal parsed from the bearer token, or
// from the named cookie when no bearer token is sent. Invalid tokens are
// ignored and the request continues anonymously.
func JWTMiddleware(parse TokenParser, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if authz := c.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[len("Bearer "):])
		} else if cookieName != "" {
			token = c.Cookies(cookieName)
		}
		if token == "" {
			return c.Next()
		}
		if pr, err := parse(token); err == nil && pr != nil {
			c.Locals("auth", pr)
		}
		return c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal, or nil.
func CurrentPrincipal(c *fiber.Ctx) *blog.Principal {
	pr, _ := c.Locals("auth").(*blog.Principal)
	return pr
}

// LoginURL builds loginURL?next=<next> with slashes left readable.
func LoginURL(loginURL, next string) string {
	sep := lo.Ternary(strings.Contains(loginURL, "?"), "&", "?")
	return loginURL + sep + "next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// RequireUser redirects anonymous requests to the login page with the
// requested path in ?next=.
func RequireUser(loginURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentPrincipal(c) == nil {
			return kit.Redirect(c, LoginURL(loginURL, c.OriginalURL()))
		}
		return c.Next()
	}
}

// RequireRoles enforces that the authenticated principal has at least one of the roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pr := CurrentPrincipal(c)
		if pr == nil {
			return kit.Unauthorized("authentication required")
		}
		if len(roles) == 0 {
			return c.Next()
		}
		for _, need := range roles {
			if pr.HasRole(need) {
				return c.Next()
			}
		}
		return kit.Forbidden("insufficient role")
	}
}
