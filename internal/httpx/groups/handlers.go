// Package groups provides HTTP handlers for listing and managing groups.
package groups

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/store"
)

var groupsLogger = logx.GetScope("groups")

const (
	maxTitleLen = 200
	maxSlugLen  = 50
)

var slugRe = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// CreateGroupRequest is the request payload to create a group.
// swagger:model CreateGroupRequest
type CreateGroupRequest struct {
	Title       string `json:"title" form:"title" example:"Cats"`
	Slug        string `json:"slug" form:"slug" example:"cats"`
	Description string `json:"description" form:"description" example:"All about cats"`
}

func (r *CreateGroupRequest) validate() map[string][]string {
	errs := map[string][]string{}
	r.Title = strings.TrimSpace(r.Title)
	r.Slug = strings.TrimSpace(r.Slug)
	switch {
	case r.Title == "":
		errs["title"] = append(errs["title"], "This field is required.")
	case utf8.RuneCountInString(r.Title) > maxTitleLen:
		errs["title"] = append(errs["title"], "Ensure this value has at most 200 characters.")
	}
	switch {
	case r.Slug == "":
		errs["slug"] = append(errs["slug"], "This field is required.")
	case len(r.Slug) > maxSlugLen:
		errs["slug"] = append(errs["slug"], "Ensure this value has at most 50 characters.")
	case !slugRe.MatchString(r.Slug):
		errs["slug"] = append(errs["slug"], "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
	return errs
}

// ListHandler lists every group.
//
//	@Summary      List groups
//	@Tags         groups
//	@Produce      html,json
//	@Success      200  {array}  store.Group
//	@Router       /groups/ [get]
func ListHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		gs, err := svc.Groups(ctx)
		if err != nil {
			return kit.InternalError("list groups failed", err.Error())
		}
		return kit.Render(c, fiber.StatusOK, "posts/groups", fiber.Map{"groups": gs}, nil)
	}
}

// CreateGroupHandler creates a group.
//
//	@Summary      Create group
//	@Description  Create a group with a unique slug (staff only)
//	@Tags         admin
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        body  body      groups.CreateGroupRequest  true  "group payload"
//	@Success      201   {object}  store.Group
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      401   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Router       /admin/groups/ [post]
func CreateGroupHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateGroupRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if errs := req.validate(); len(errs) > 0 {
			return kit.BadRequest("invalid input", errs)
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		g := &store.Group{Title: req.Title, Slug: req.Slug, Description: strings.TrimSpace(req.Description)}
		if err := st.CreateGroup(ctx, g); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return kit.BadRequest("invalid input", map[string][]string{"slug": {"Group with this Slug already exists."}})
			}
			return kit.InternalError("create group failed", err.Error())
		}
		groupsLogger.Info("group created", zap.Int64("group_id", g.ID), zap.String("slug", g.Slug))
		return kit.Created(c, g)
	}
}

// DeleteGroupHandler deletes a group. Its posts stay without a group.
//
//	@Summary      Delete group
//	@Tags         admin
//	@Produce      json
//	@Security     BearerAuth
//	@Param        slug  path      string  true  "group slug"
//	@Success      200   {object}  map[string]string
//	@Failure      401   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /admin/groups/{slug}/ [delete]
func DeleteGroupHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if err := st.DeleteGroup(ctx, slug); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("group not found")
			}
			return kit.InternalError("delete group failed", err.Error())
		}
		groupsLogger.Info("group deleted", zap.String("slug", slug))
		return kit.OK(c, fiber.Map{"status": "deleted"})
	}
}

// Mount registers the public list on r and the management routes on admin.
// admin is expected to carry the staff gate.
func Mount(r, admin fiber.Router, svc *blog.Service, st *store.Store) {
	r.Get("/groups/", ListHandler(svc))
	admin.Post("/groups/", CreateGroupHandler(st))
	admin.Delete("/groups/:slug/", DeleteGroupHandler(st))
}
