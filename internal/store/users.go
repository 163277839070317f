package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

var userColumns = []string{"id", "username", "password_hash", "is_staff", "date_joined"}

func scanUser(rows *entsql.Rows) (*User, error) {
	u := &User{}
	if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.DateJoined); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) users(ctx context.Context, p *entsql.Predicate) ([]*User, error) {
	b := s.builder()
	q := b.Select(userColumns...).From(b.Table("users")).Where(p).OrderBy("id")
	var out []*User
	err := s.each(ctx, q, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func (s *Store) oneUser(ctx context.Context, p *entsql.Predicate) (*User, error) {
	us, err := s.users(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(us) == 0 {
		return nil, ErrNotFound
	}
	return us[0], nil
}

// UserByUsername looks up a user by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.oneUser(ctx, entsql.EQ("username", username))
}

// UserByID looks up a user by id.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.oneUser(ctx, entsql.EQ("id", id))
}

func (s *Store) usersByIDs(ctx context.Context, ids []int64) (map[int64]*User, error) {
	if len(ids) == 0 {
		return map[int64]*User{}, nil
	}
	us, err := s.users(ctx, entsql.In("id", lo.ToAnySlice(ids)...))
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(us, func(u *User) int64 { return u.ID }), nil
}

// CreateUser inserts u and sets its ID. A taken username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if _, err := s.UserByUsername(ctx, u.Username); err == nil {
		return fmt.Errorf("%w: username %q", ErrConflict, u.Username)
	} else if err != ErrNotFound {
		return err
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC().Truncate(time.Microsecond)
	}
	ins := s.builder().Insert("users").
		Columns("username", "password_hash", "is_staff", "date_joined").
		Values(u.Username, u.PasswordHash, u.IsStaff, u.DateJoined)
	id, err := s.insert(ctx, ins)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// SetStaff grants or revokes the staff flag.
func (s *Store) SetStaff(ctx context.Context, username string, staff bool) error {
	n, err := s.exec(ctx, s.builder().Update("users").
		Set("is_staff", staff).
		Where(entsql.EQ("username", username)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. Their posts are removed with them.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	n, err := s.exec(ctx, s.builder().Delete("users").Where(entsql.EQ("username", username)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	b := s.builder()
	return s.count(ctx, b.Select(entsql.Count("*")).From(b.Table("users")))
}

// ListUsers returns one window of users ordered by username.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	b := s.builder()
	q := b.Select(userColumns...).From(b.Table("users")).
		OrderBy("username", "id").
		Limit(limit).Offset(offset)
	out := []*User{}
	err := s.each(ctx, q, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}
