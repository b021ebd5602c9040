// Package sqlite
package sqlite

import (
	"database/sql"
	"fmt"

	"telemetry-collector/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

func NewSqliteDB(dbPath string, log logger.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	// One cycle, one writer.
	db.SetMaxOpenConns(1)

	log.Debug("sqlite connection established", "path", dbPath)

	if err := runMigration(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigration(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS node_rows (
		id INTEGER PRIMARY KEY,
		collected_at TEXT NOT NULL,
		node_id INTEGER,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS node_rows_collected_at ON node_rows (collected_at);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate node_rows table: %w", err)
	}
	return nil
}
