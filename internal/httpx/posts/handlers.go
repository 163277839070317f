// Package posts serves the feeds, the post detail page and the post form.
package posts

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/store"
)

const storeTimeout = 3 * time.Second

func profileURL(username string) string { return "/profile/" + url.PathEscape(username) + "/" }

func detailURL(id int64) string { return "/posts/" + strconv.FormatInt(id, 10) + "/" }

// postID parses the :id route parameter. Anything but a positive integer
// is a missing page.
func postID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, kit.NotFound("post not found")
	}
	return id, nil
}

func items(posts []*store.Post) []*store.Post {
	return lo.Ternary(posts != nil, posts, []*store.Post{})
}

func feedPage(c *fiber.Ctx, name string, f blog.Feed, data fiber.Map) error {
	data["posts"] = items(f.Page.Items)
	return kit.Render(c, fiber.StatusOK, name, data, kit.NewPageMeta(f.Page))
}

// IndexHandler renders the global feed.
//
//	@Summary      Global feed
//	@Description  Every post, newest first, one page at a time
//	@Tags         posts
//	@Produce      html,json
//	@Param        page  query     int  false  "page number"
//	@Success      200   {object}  map[string]interface{}
//	@Router       / [get]
func IndexHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		f, err := svc.Feed(ctx, kit.PageParam(c))
		if err != nil {
			return kit.InternalError("load feed failed", err.Error())
		}
		return feedPage(c, "posts/index", f, fiber.Map{})
	}
}

// GroupHandler renders the feed of one group.
//
//	@Summary      Group feed
//	@Tags         posts
//	@Produce      html,json
//	@Param        slug  path      string  true   "group slug"
//	@Param        page  query     int     false  "page number"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /group/{slug}/ [get]
func GroupHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		f, err := svc.GroupFeed(ctx, c.Params("slug"), kit.PageParam(c))
		if err != nil {
			return err
		}
		return feedPage(c, "posts/group_list", f, fiber.Map{"group": f.Group})
	}
}

// ProfileHandler renders the feed of one author.
//
//	@Summary      Author feed
//	@Tags         posts
//	@Produce      html,json
//	@Param        username  path      string  true   "author username"
//	@Param        page      query     int     false  "page number"
//	@Success      200       {object}  map[string]interface{}
//	@Failure      404       {object}  map[string]interface{}
//	@Router       /profile/{username}/ [get]
func ProfileHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		f, err := svc.AuthorFeed(ctx, c.Params("username"), kit.PageParam(c))
		if err != nil {
			return err
		}
		return feedPage(c, "posts/profile", f, fiber.Map{"author": f.Author})
	}
}

// DetailHandler renders one post.
//
//	@Summary      Post detail
//	@Tags         posts
//	@Produce      html,json
//	@Param        id   path      int  true  "post id"
//	@Success      200  {object}  blog.PostDetail
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /posts/{id}/ [get]
func DetailHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		d, err := svc.Post(ctx, id)
		if err != nil {
			return err
		}
		return kit.Render(c, fiber.StatusOK, "posts/post_detail", fiber.Map{
			"post":              d.Post,
			"author_post_count": d.AuthorPostCount,
		}, nil)
	}
}

// form renders the create/edit form. status is 200 for HTML clients; a
// *blog.ValidationError is returned as is to JSON clients.
func form(c *fiber.Ctx, svc *blog.Service, in blog.PostInput, verr *blog.ValidationError, post *store.Post) error {
	if verr != nil && kit.WantsJSON(c) {
		return verr
	}
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	groups, err := svc.Groups(ctx)
	if err != nil {
		return kit.InternalError("load groups failed", err.Error())
	}
	errs := map[string][]string{}
	if verr != nil {
		errs = verr.Fields
	}
	return kit.Render(c, fiber.StatusOK, "posts/create_post", fiber.Map{
		"form":    in,
		"errors":  errs,
		"groups":  groups,
		"is_edit": post != nil,
		"post":    post,
	}, nil)
}

func inputOf(p *store.Post) blog.PostInput {
	in := blog.PostInput{Text: p.Text}
	if p.GroupID != nil {
		in.Group = strconv.FormatInt(*p.GroupID, 10)
	}
	return in
}

// mutationError turns service errors into the responses the post form
// uses: the login page for a vanished principal and the detail page for a
// post the caller did not write.
func mutationError(c *fiber.Ctx, cfg *config.Config, id int64, err error) error {
	switch {
	case errors.Is(err, blog.ErrAuthenticationRequired):
		return kit.Redirect(c, mw.LoginURL(cfg.Auth.LoginURL, c.OriginalURL()))
	case errors.Is(err, blog.ErrNotAuthor):
		return kit.Redirect(c, detailURL(id))
	}
	return err
}

// CreateFormHandler renders an empty post form.
func CreateFormHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return form(c, svc, blog.PostInput{}, nil, nil)
	}
}

// CreateHandler publishes a post by the caller and redirects to their
// profile.
//
//	@Summary      Create post
//	@Tags         posts
//	@Accept       json,x-www-form-urlencoded
//	@Produce      html,json
//	@Security     BearerAuth
//	@Param        body  body      blog.PostInput  true  "post"
//	@Success      302   "redirect to /profile/{username}/"
//	@Failure      400   {object}  map[string]interface{}
//	@Router       /create/ [post]
func CreateHandler(cfg *config.Config, svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in blog.PostInput
		if err := c.BodyParser(&in); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		pr := mw.CurrentPrincipal(c)
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		_, err := svc.CreatePost(ctx, pr, in)
		var verr *blog.ValidationError
		if errors.As(err, &verr) {
			return form(c, svc, in, verr, nil)
		}
		if err != nil {
			return mutationError(c, cfg, 0, err)
		}
		return kit.Redirect(c, profileURL(pr.Username))
	}
}

// EditFormHandler renders the form filled with the post. Callers who did
// not write the post are sent to its detail page.
func EditFormHandler(cfg *config.Config, svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		p, err := svc.EditablePost(ctx, mw.CurrentPrincipal(c), id)
		if err != nil {
			return mutationError(c, cfg, id, err)
		}
		return form(c, svc, inputOf(p), nil, p)
	}
}

// EditHandler saves the post and redirects to its detail page.
//
//	@Summary      Edit post
//	@Tags         posts
//	@Accept       json,x-www-form-urlencoded
//	@Produce      html,json
//	@Security     BearerAuth
//	@Param        id    path      int             true  "post id"
//	@Param        body  body      blog.PostInput  true  "post"
//	@Success      302   "redirect to /posts/{id}/"
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /posts/{id}/edit/ [post]
func EditHandler(cfg *config.Config, svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return err
		}
		var in blog.PostInput
		if err := c.BodyParser(&in); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
		defer cancel()
		p, err := svc.EditPost(ctx, mw.CurrentPrincipal(c), id, in)
		var verr *blog.ValidationError
		if errors.As(err, &verr) {
			return form(c, svc, in, verr, p)
		}
		if err != nil {
			return mutationError(c, cfg, id, err)
		}
		return kit.Redirect(c, detailURL(p.ID))
	}
}

// SearchHandler renders posts matching ?q=.
//
//	@Summary      Search posts
//	@Tags         posts
//	@Produce      html,json
//	@Param        q     query     string  false  "query"
//	@Param        page  query     int     false  "page number"
//	@Success      200   {object}  map[string]interface{}
//	@Router       /search/ [get]
func SearchHandler(svc *blog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		res, err := svc.Search(ctx, c.Query("q"), kit.PageParam(c))
		if err != nil {
			return kit.InternalError("search failed", err.Error())
		}
		return kit.Render(c, fiber.StatusOK, "posts/search", fiber.Map{
			"query": res.Query,
			"posts": items(res.Page.Items),
		}, kit.NewPageMeta(res.Page))
	}
}

// Mount registers the post routes on r. limit guards the write
// endpoints and may be nil.
func Mount(r fiber.Router, cfg *config.Config, svc *blog.Service, limit fiber.Handler) {
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}
	auth := mw.RequireUser(cfg.Auth.LoginURL)

	r.Get("/", IndexHandler(svc))
	r.Get("/group/:slug/", GroupHandler(svc))
	r.Get("/profile/:username/", ProfileHandler(svc))
	r.Get("/posts/:id/", DetailHandler(svc))
	r.Get("/create/", auth, CreateFormHandler(svc))
	r.Post("/create/", auth, limit, CreateHandler(cfg, svc))
	r.Get("/posts/:id/edit/", auth, EditFormHandler(cfg, svc))
	r.Post("/posts/:id/edit/", auth, limit, EditHandler(cfg, svc))
	r.Get("/search/", SearchHandler(svc))
}
