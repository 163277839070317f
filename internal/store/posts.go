package store

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

var postColumns = []string{"id", "text", "pub_date", "author_id", "group_id"}

func (f PostFilter) predicate() *entsql.Predicate {
	var ps []*entsql.Predicate
	if f.AuthorID != 0 {
		ps = append(ps, entsql.EQ("author_id", f.AuthorID))
	}
	if f.GroupID != 0 {
		ps = append(ps, entsql.EQ("group_id", f.GroupID))
	}
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	default:
		return entsql.And(ps...)
	}
}

func (s *Store) postSelector(f PostFilter) *entsql.Selector {
	b := s.builder()
	q := b.Select(postColumns...).From(b.Table("posts"))
	if p := f.predicate(); p != nil {
		q.Where(p)
	}
	return q
}

func (s *Store) scanPosts(ctx context.Context, q *entsql.Selector) ([]*Post, error) {
	out := []*Post{}
	err := s.each(ctx, q, func(rows *entsql.Rows) error {
		p := &Post{}
		var gid sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Text, &p.PubDate, &p.AuthorID, &gid); err != nil {
			return err
		}
		if gid.Valid {
			p.GroupID = lo.ToPtr(gid.Int64)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, s.loadEdges(ctx, out)
}

// loadEdges fills Author and Group with one query per edge.
func (s *Store) loadEdges(ctx context.Context, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}
	authors, err := s.usersByIDs(ctx, lo.Uniq(lo.Map(posts, func(p *Post, _ int) int64 { return p.AuthorID })))
	if err != nil {
		return err
	}
	gids := lo.Uniq(lo.FilterMap(posts, func(p *Post, _ int) (int64, bool) {
		return lo.FromPtr(p.GroupID), p.GroupID != nil
	}))
	groups, err := s.groupsByIDs(ctx, gids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Author = authors[p.AuthorID]
		p.Group = nil
		if p.GroupID != nil {
			p.Group = groups[*p.GroupID]
		}
	}
	return nil
}

// CountPosts counts posts matching f.
func (s *Store) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	b := s.builder()
	q := b.Select(entsql.Count("*")).From(b.Table("posts"))
	if p := f.predicate(); p != nil {
		q.Where(p)
	}
	return s.count(ctx, q)
}

// ListPosts returns posts matching f, newest first, with ties broken by
// descending id.
func (s *Store) ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]*Post, error) {
	q := s.postSelector(f).
		OrderBy(entsql.Desc("pub_date"), entsql.Desc("id")).
		Limit(limit).
		Offset(offset)
	return s.scanPosts(ctx, q)
}

// PostByID looks up a single post with its author and group.
func (s *Store) PostByID(ctx context.Context, id int64) (*Post, error) {
	q := s.postSelector(PostFilter{}).Where(entsql.EQ("id", id))
	ps, err := s.scanPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, ErrNotFound
	}
	return ps[0], nil
}

// PostsByIDs returns the posts with the given ids in the order given.
// Unknown ids are skipped.
func (s *Store) PostsByIDs(ctx context.Context, ids []int64) ([]*Post, error) {
	if len(ids) == 0 {
		return []*Post{}, nil
	}
	q := s.postSelector(PostFilter{}).Where(entsql.In("id", lo.ToAnySlice(ids)...))
	ps, err := s.scanPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(ps, func(p *Post) int64 { return p.ID })
	return lo.FilterMap(ids, func(id int64, _ int) (*Post, bool) {
		p, ok := byID[id]
		return p, ok
	}), nil
}

// CreatePost inserts p and sets its ID. PubDate defaults to now.
func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	if p.PubDate.IsZero() {
		p.PubDate = time.Now().UTC().Truncate(time.Microsecond)
	}
	id, err := s.insert(ctx, s.builder().Insert("posts").
		Columns("text", "pub_date", "author_id", "group_id").
		Values(p.Text, p.PubDate, p.AuthorID, nullInt(p.GroupID)))
	if err != nil {
		return err
	}
	p.ID = id
	return s.loadEdges(ctx, []*Post{p})
}

// UpdatePost writes the text and group of p. Author and publication date
// never change.
func (s *Store) UpdatePost(ctx context.Context, p *Post) error {
	n, err := s.exec(ctx, s.builder().Update("posts").
		Set("text", p.Text).
		Set("group_id", nullInt(p.GroupID)).
		Where(entsql.EQ("id", p.ID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.loadEdges(ctx, []*Post{p})
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
