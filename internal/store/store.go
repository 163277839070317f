// Package store reads and writes users, groups and posts through the ent
// SQL builder.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"

	"fiber-ent-blog/internal/logx"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("store: conflict")
	// ErrInvalidReference is returned when a write points at a missing
	// user or group.
	ErrInvalidReference = errors.New("store: invalid reference")
)

var storeLogger = logx.GetScope("store")

// Store runs queries against the record store. A Store created by WithTx is
// bound to the transaction and must not outlive the callback.
type Store struct {
	drv     *entsql.Driver
	conn    dialect.ExecQuerier
	dialect string
}

// New returns a Store backed by drv.
func New(drv *entsql.Driver) *Store {
	return &Store{drv: drv, conn: drv, dialect: drv.Dialect()}
}

// Dialect reports the SQL dialect of the underlying driver.
func (s *Store) Dialect() string { return s.dialect }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.drv == nil {
		return errors.New("store: ping inside a transaction")
	}
	return s.drv.DB().PingContext(ctx)
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Nested calls reuse the outer
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.drv == nil {
		return fn(s)
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&Store{conn: tx, dialect: s.dialect}); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			storeLogger.Sugar().Warnf("rollback: %v", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *Store) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

// each runs q and calls fn once per row.
func (s *Store) each(ctx context.Context, q entsql.Querier, fn func(*entsql.Rows) error) error {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := s.conn.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) count(ctx context.Context, q entsql.Querier) (int, error) {
	var n int
	err := s.each(ctx, q, func(rows *entsql.Rows) error { return rows.Scan(&n) })
	return n, err
}

// exec runs a write and returns the number of affected rows.
func (s *Store) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := s.conn.Exec(ctx, query, args, &res); err != nil {
		return 0, mapConstraint(err)
	}
	return res.RowsAffected()
}

// insert runs ins and returns the generated id.
func (s *Store) insert(ctx context.Context, ins *entsql.InsertBuilder) (int64, error) {
	if s.dialect == dialect.Postgres {
		var id int64
		found := false
		err := s.each(ctx, ins.Returning("id"), func(rows *entsql.Rows) error {
			found = true
			return rows.Scan(&id)
		})
		if err != nil {
			return 0, mapConstraint(err)
		}
		if !found {
			return 0, errors.New("store: insert returned no id")
		}
		return id, nil
	}
	query, args := ins.Query()
	var res sql.Result
	if err := s.conn.Exec(ctx, query, args, &res); err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func mapConstraint(err error) error {
	switch {
	case sqlgraph.IsUniqueConstraintError(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case sqlgraph.IsForeignKeyConstraintError(err):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return err
}
