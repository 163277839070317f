package admin

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/store"
)

var adminLogger = logx.GetScope("admin")

// PingHandler example protected route
//
//	@Summary      Admin Ping
//	@Description  Protected route requiring the staff role
//	@Tags         admin
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Success      200  {object}  map[string]string  "pong"
//	@Failure      401  {object}  map[string]interface{}  "unauthorized"
//	@Failure      403  {object}  map[string]interface{}  "forbidden"
//	@Router       /admin/ping [get]
func PingHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		pr := mw.CurrentPrincipal(c)
		return kit.OK(c, fiber.Map{"message": "pong", "username": pr.Username})
	}
}

// PromoteUserHandler grants the staff flag. It shows up in the user's
// token at their next login.
//
//	@Summary      Promote user to staff
//	@Tags         admin
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        username  path      string  true  "username"
//	@Success      200       {object}  map[string]string  "ok"
//	@Failure      401       {object}  map[string]interface{}
//	@Failure      403       {object}  map[string]interface{}
//	@Failure      404       {object}  map[string]interface{}
//	@Router       /admin/users/{username}/promote/ [post]
func PromoteUserHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := c.Params("username")
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if err := st.SetStaff(ctx, username, true); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("user not found")
			}
			return kit.InternalError("promote user failed", err.Error())
		}
		adminLogger.Info("user promoted", zap.String("username", username), zap.String("by", mw.CurrentPrincipal(c).Username))
		return kit.OK(c, fiber.Map{"status": "ok"})
	}
}

// DeleteUserHandler deletes a user together with their posts.
//
//	@Summary      Delete user
//	@Tags         admin
//	@Produce      json
//	@Security     BearerAuth
//	@Param        username  path      string  true  "username"
//	@Success      200       {object}  map[string]string
//	@Failure      400       {object}  map[string]interface{}
//	@Failure      401       {object}  map[string]interface{}
//	@Failure      403       {object}  map[string]interface{}
//	@Failure      404       {object}  map[string]interface{}
//	@Router       /admin/users/{username}/ [delete]
func DeleteUserHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := c.Params("username")
		pr := mw.CurrentPrincipal(c)
		if pr != nil && pr.Username == username {
			return kit.BadRequest("cannot delete yourself", nil)
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if err := st.DeleteUser(ctx, username); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("user not found")
			}
			return kit.InternalError("delete user failed", err.Error())
		}
		adminLogger.Info("user deleted", zap.String("username", username))
		return kit.OK(c, fiber.Map{"status": "deleted"})
	}
}

// Mount registers the user management routes on r, which is expected to
// carry the staff gate.
func Mount(r fiber.Router, st *store.Store) {
	r.Get("/ping", PingHandler())
	r.Post("/users/:username/promote/", PromoteUserHandler(st))
	r.Delete("/users/:username/", DeleteUserHandler(st))
}
