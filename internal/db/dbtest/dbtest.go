// Package dbtest opens throwaway, migrated SQLite record stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"fiber-ent-blog/internal/db"
)

// NewDriver returns an ent driver over a fresh SQLite file in t.TempDir(),
// with the full schema applied. The driver is closed on cleanup.
func NewDriver(t testing.TB) *entsql.Driver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.db")
	sqldb, err := sql.Open("sqlite", db.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	drv := entsql.OpenDB(dialect.SQLite, sqldb)
	t.Cleanup(func() { _ = drv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, drv); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return drv
}
