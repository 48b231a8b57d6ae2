// Package sqlite opens the recoverfit database: workout sessions and the browser session store.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/recoverfit/internal/errors"
)

//go:embed schema.sql
var schemaDefinition string

const (
	driverName   = "sqlite3_recoverfit"
	maxReadConns = 10
	connLifetime = time.Hour
)

// Database has a single-connection pool for writes and a larger read-only pool. SQLite allows one writer at a time,
// so funnelling writes through one connection avoids SQLITE_BUSY under load.
// See https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

//nolint:gochecknoglobals // sql.Register panics when called twice.
var registerDriver = sync.OnceFunc(func() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA temp_store = memory; "+
				"PRAGMA mmap_size = 30000000000; "+
				"PRAGMA wal_autocheckpoint = 1000;", nil)
			if err != nil {
				return fmt.Errorf("connection pragmas: %w", err)
			}
			return nil
		},
	})
})

// NewDatabase opens path and migrates the schema. ":memory:" gives a private in-memory database shared by both pools.
func NewDatabase(ctx context.Context, path string, logger *slog.Logger) (*Database, error) {
	registerDriver()

	readWriteDSN, readOnlyDSN := dataSourceNames(path)
	db := &Database{ReadWrite: nil, ReadOnly: nil, logger: logger}

	var err error
	if db.ReadWrite, err = openPool(ctx, readWriteDSN, 1); err != nil {
		return nil, errors.Wrap(err, "open read-write pool")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))
	if db.ReadOnly, err = openPool(ctx, readOnlyDSN, maxReadConns); err != nil {
		return nil, errors.Join(errors.Wrap(err, "open read-only pool"), db.ReadWrite.Close())
	}

	if err = db.migrate(ctx); err != nil {
		return nil, errors.Join(errors.Wrap(err, "migrate"), db.Close())
	}
	return db, nil
}

// dataSourceNames builds the DSNs of the two pools. Parameters without a leading underscore are SQLite URI
// parameters (https://www.sqlite.org/uri.html), the rest are go-sqlite3 options.
func dataSourceNames(path string) (string, string) {
	common := url.Values{}
	common.Set("_loc", "auto")
	common.Set("_journal_mode", "wal")
	common.Set("_busy_timeout", "5000")
	common.Set("_synchronous", "normal")
	common.Set("_foreign_keys", "on")
	common.Set("_defer_foreign_keys", "1")
	if strings.Contains(path, ":memory:") {
		// A unique name keeps parallel tests apart while cache=shared lets both pools see the same data.
		path = rand.Text()
		common.Set("mode", "memory")
		common.Set("cache", "shared")
	}

	dsn := func(extra map[string]string) string {
		q := url.Values{}
		for k, v := range common {
			q[k] = v
		}
		for k, v := range extra {
			if k == "mode" && q.Has("mode") {
				continue
			}
			q.Set(k, v)
		}
		return "file:" + path + "?" + q.Encode()
	}
	return dsn(map[string]string{"mode": "rwc", "_txlock": "immediate"}),
		dsn(map[string]string{"mode": "ro", "_txlock": "deferred", "_query_only": "true"})
}

func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(connLifetime)
	db.SetConnMaxIdleTime(connLifetime)
	// sql.Open is lazy, the ping applies the pragmas and surfaces a bad path early.
	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Join(errors.Wrap(err, "ping"), db.Close())
	}
	return db, nil
}

// WithTx runs fn in a write transaction. The transaction is committed when fn returns nil and rolled back otherwise.
func (db *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, errors.Wrap(rollbackErr, "rollback transaction"))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
