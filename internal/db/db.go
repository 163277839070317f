// Package db opens the record store connection and migrates its schema.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for PostgreSQL
	_ "modernc.org/sqlite"             // register sqlite driver for dev mode

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/logx"
)

var dbLogger = logx.GetScope("db")

var (
	poolMu sync.Mutex
	baseDB *sql.DB
)

// Open opens a DB connection for the configured driver and wraps it in an
// ent SQL driver.
func Open(cfg *config.Config) (*entsql.Driver, func(), error) {
	var (
		sqldb *sql.DB
		name  string
		err   error
	)
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DB.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, func() {}, err
			}
		}
		sqldb, err = sql.Open("sqlite", SQLiteDSN(cfg.DB.SQLitePath))
		name = dialect.SQLite
	default:
		sqldb, err = sql.Open("pgx", cfg.PG.URL)
		name = dialect.Postgres
	}
	if err != nil {
		return nil, func() {}, err
	}
	sqldb.SetMaxOpenConns(cfg.PG.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.PG.MaxIdleConns)

	poolMu.Lock()
	baseDB = sqldb
	poolMu.Unlock()

	drv := entsql.OpenDB(name, sqldb)
	closer := func() {
		poolMu.Lock()
		baseDB = nil
		poolMu.Unlock()
		if err := drv.Close(); err != nil {
			dbLogger.Sugar().Errorf("close db: %v", err)
		}
	}
	return drv, closer, nil
}

// SQLiteDSN builds a modernc DSN for path with foreign keys enforced on
// every pooled connection.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?%s", filepath.ToSlash(path), strings.Join([]string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_time_format=sqlite",
	}, "&"))
}

// UpdatePool updates DB pool settings at runtime.
func UpdatePool(maxOpen, maxIdle int) {
	poolMu.Lock()
	defer poolMu.Unlock()
	if baseDB == nil {
		return
	}
	if maxOpen > 0 {
		baseDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		baseDB.SetMaxIdleConns(maxIdle)
	}
}
