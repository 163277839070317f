package httpx

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/redisx"
	"fiber-ent-blog/internal/store"
)

// HealthHandler reports whether the database and Redis answer.
//
//	@Summary		Health check
//	@Description	Checks the database and, when configured, Redis
//	@Tags			health
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]string	"healthy"
//	@Failure		503	{object}	map[string]string	"a dependency is down"
//	@Router			/health [get]
func HealthHandler(st *store.Store, rdb *redisx.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		checks := fiber.Map{"db": "ok", "redis": "ok"}
		healthy := true
		if st != nil {
			if err := st.Ping(ctx); err != nil {
				checks["db"], healthy = err.Error(), false
			}
		}
		if rdb == nil {
			checks["redis"] = "disabled"
		} else if err := redisx.Ping(ctx, rdb); err != nil {
			checks["redis"], healthy = err.Error(), false
		}
		if !healthy {
			return kit.NewAPIError(fiber.StatusServiceUnavailable, "E_UNAVAILABLE", "unhealthy", checks)
		}
		checks["status"] = "ok"
		return kit.OK(c, checks)
	}
}
