// Package gormsqlite opens the settings database with split read and write
// handles: readers fan out across connections while all writes funnel
// through a single one, which keeps SQLite's writer lock uncontended.
package gormsqlite

import (
	"database/sql"
	"fmt"
	"io"
	"runtime"

	gormdriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type DB struct {
	R *gorm.DB
	W *gorm.DB
}

func Open(file string) (*DB, error) {
	cfg := &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	}

	reader, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: file}, cfg)
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}
	writer, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: file}, cfg)
	if err != nil {
		_ = closeGORM(reader)
		return nil, fmt.Errorf("open write db: %w", err)
	}

	rdb, err := reader.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("reader sql db: %w", err)
	}
	wdb, err := writer.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("writer sql db: %w", err)
	}

	rdb.SetMaxOpenConns(runtime.NumCPU())
	rdb.SetMaxIdleConns(runtime.NumCPU())
	wdb.SetMaxOpenConns(1)
	wdb.SetMaxIdleConns(1)

	if err := applyPragmas(rdb, true); err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("reader pragmas: %w", err)
	}
	if err := applyPragmas(wdb, false); err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("writer pragmas: %w", err)
	}

	return &DB{R: reader, W: writer}, nil
}

// WriteSQLDB exposes the writer handle for migrations.
func (db *DB) WriteSQLDB() (*sql.DB, error) {
	return db.W.DB()
}

func (db *DB) Close() error {
	var firstErr error
	for _, g := range []*gorm.DB{db.R, db.W} {
		if err := closeGORM(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ io.Closer = (*DB)(nil)

func applyPragmas(db *sql.DB, readOnly bool) error {
	stmts := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA foreign_keys = ON;",
	}
	if readOnly {
		stmts = append(stmts, "PRAGMA query_only = ON;")
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
