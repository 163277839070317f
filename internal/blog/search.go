package blog

import (
	"context"
	"strings"

	"fiber-ent-blog/internal/paging"
	"fiber-ent-blog/internal/store"
)

// SearchResult is one page of search hits.
type SearchResult struct {
	Query string                   `json:"query"`
	Page  paging.Page[*store.Post] `json:"page"`
}

// Search returns a page of posts matching query. Without a searcher, or
// with a blank query, the page is empty.
func (s *Service) Search(ctx context.Context, query, requested string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	res := SearchResult{Query: query, Page: paging.FromWindow[*store.Post](paging.NewWindow(0, s.pageSize, requested), nil)}
	if query == "" || s.searcher == nil {
		return res, nil
	}

	// The total is only known after the first query, so an out-of-range
	// request is fetched again at the clamped page.
	n, ok := paging.ParseNumber(requested)
	if !ok || n < 1 {
		n = 1
	}
	guess := paging.Window{Number: n, Size: s.pageSize}
	ids, total, err := s.searcher.SearchPostIDs(ctx, query, guess.Offset(), guess.Limit())
	if err != nil {
		return res, err
	}
	w := paging.NewWindow(total, s.pageSize, requested)
	if w.Number != n && total > 0 {
		if ids, _, err = s.searcher.SearchPostIDs(ctx, query, w.Offset(), w.Limit()); err != nil {
			return res, err
		}
	}
	posts, err := s.store.PostsByIDs(ctx, ids)
	if err != nil {
		return res, err
	}
	res.Page = paging.FromWindow(w, posts)
	return res, nil
}
