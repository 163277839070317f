// Package users provides the staff listing of registered users.
package users

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/paging"
	"fiber-ent-blog/internal/store"
)

// GetUsersHandler lists users ordered by username, one page at a time.
//
//	@Summary      List users
//	@Description  Registered users ordered by username (staff only)
//	@Tags         admin
//	@Produce      json
//	@Security     BearerAuth
//	@Param        page  query     int  false  "page number"
//	@Success      200   {array}   users.UserView
//	@Failure      401   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Router       /admin/users/ [get]
func GetUsersHandler(st *store.Store, pageSize int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		total, err := st.CountUsers(ctx)
		if err != nil {
			return kit.InternalError("count users failed", err.Error())
		}
		w := paging.NewWindow(total, pageSize, kit.PageParam(c))
		us, err := st.ListUsers(ctx, w.Limit(), w.Offset())
		if err != nil {
			return kit.InternalError("query users failed", err.Error())
		}
		page := paging.FromWindow(w, lo.Map(us, func(u *store.User, _ int) UserView { return viewOf(u) }))
		return kit.List(c, page.Items, kit.NewPageMeta(page))
	}
}

// Mount registers the listing on r, which is expected to carry the staff
// gate.
func Mount(r fiber.Router, st *store.Store, pageSize int) {
	r.Get("/users/", GetUsersHandler(st, pageSize))
}
