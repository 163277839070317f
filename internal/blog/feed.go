package blog

import (
	"context"

	"fiber-ent-blog/internal/paging"
	"fiber-ent-blog/internal/store"
)

// Feed is one page of posts. Group or Author is set for the filtered feeds.
type Feed struct {
	Group  *store.Group              `json:"group,omitempty"`
	Author *store.User               `json:"author,omitempty"`
	Page   paging.Page[*store.Post] `json:"page"`
}

func (s *Service) page(ctx context.Context, f store.PostFilter, requested string) (paging.Page[*store.Post], error) {
	total, err := s.store.CountPosts(ctx, f)
	if err != nil {
		return paging.Page[*store.Post]{}, err
	}
	w := paging.NewWindow(total, s.pageSize, requested)
	posts, err := s.store.ListPosts(ctx, f, w.Limit(), w.Offset())
	if err != nil {
		return paging.Page[*store.Post]{}, err
	}
	return paging.FromWindow(w, posts), nil
}

// Feed returns a page of every post, newest first.
func (s *Service) Feed(ctx context.Context, requested string) (Feed, error) {
	p, err := s.page(ctx, store.PostFilter{}, requested)
	return Feed{Page: p}, err
}

// GroupFeed returns a page of the posts in the group with the given slug.
func (s *Service) GroupFeed(ctx context.Context, slug, requested string) (Feed, error) {
	g, err := s.store.GroupBySlug(ctx, slug)
	if err != nil {
		return Feed{}, translate(err)
	}
	p, err := s.page(ctx, store.PostFilter{GroupID: g.ID}, requested)
	return Feed{Group: g, Page: p}, err
}

// AuthorFeed returns a page of the posts written by username.
func (s *Service) AuthorFeed(ctx context.Context, username, requested string) (Feed, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return Feed{}, translate(err)
	}
	p, err := s.page(ctx, store.PostFilter{AuthorID: u.ID}, requested)
	return Feed{Author: u, Page: p}, err
}

// Groups lists every group for navigation and the post form.
func (s *Service) Groups(ctx context.Context) ([]*store.Group, error) {
	return s.store.ListGroups(ctx)
}
