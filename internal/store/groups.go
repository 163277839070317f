package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

var groupColumns = []string{"id", "title", "slug", "description"}

func (s *Store) groups(ctx context.Context, p *entsql.Predicate) ([]*Group, error) {
	b := s.builder()
	q := b.Select(groupColumns...).From(b.Table("groups")).OrderBy("title", "id")
	if p != nil {
		q.Where(p)
	}
	out := []*Group{}
	err := s.each(ctx, q, func(rows *entsql.Rows) error {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	return out, err
}

func (s *Store) oneGroup(ctx context.Context, p *entsql.Predicate) (*Group, error) {
	gs, err := s.groups(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return nil, ErrNotFound
	}
	return gs[0], nil
}

// GroupBySlug looks up a group by its slug.
func (s *Store) GroupBySlug(ctx context.Context, slug string) (*Group, error) {
	return s.oneGroup(ctx, entsql.EQ("slug", slug))
}

// GroupByID looks up a group by id.
func (s *Store) GroupByID(ctx context.Context, id int64) (*Group, error) {
	return s.oneGroup(ctx, entsql.EQ("id", id))
}

// ListGroups returns every group ordered by title.
func (s *Store) ListGroups(ctx context.Context) ([]*Group, error) {
	return s.groups(ctx, nil)
}

func (s *Store) groupsByIDs(ctx context.Context, ids []int64) (map[int64]*Group, error) {
	if len(ids) == 0 {
		return map[int64]*Group{}, nil
	}
	gs, err := s.groups(ctx, entsql.In("id", lo.ToAnySlice(ids)...))
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(gs, func(g *Group) int64 { return g.ID }), nil
}

// CreateGroup inserts g and sets its ID. A taken slug yields ErrConflict.
func (s *Store) CreateGroup(ctx context.Context, g *Group) error {
	if _, err := s.GroupBySlug(ctx, g.Slug); err == nil {
		return fmt.Errorf("%w: slug %q", ErrConflict, g.Slug)
	} else if err != ErrNotFound {
		return err
	}
	id, err := s.insert(ctx, s.builder().Insert("groups").
		Columns("title", "slug", "description").
		Values(g.Title, g.Slug, g.Description))
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

// DeleteGroup removes a group. Its posts stay and lose the group.
func (s *Store) DeleteGroup(ctx context.Context, slug string) error {
	n, err := s.exec(ctx, s.builder().Delete("groups").Where(entsql.EQ("slug", slug)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
