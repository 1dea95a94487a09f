package database

import (
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// InitDB opens the raw sql.DB connection used by the thumbnails side
// table. The catalog itself lives behind GORM; this layer stays on
// database/sql because its queries are built dynamically with squirrel.
func InitDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable write-ahead logging for better concurrency
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}

	sqlStmt := `
	CREATE TABLE IF NOT EXISTS thumbnails (
		image_path TEXT PRIMARY KEY,
		thumbnail_path TEXT NOT NULL,
		last_modified INTEGER NOT NULL
	);
	`
	_, err = db.Exec(sqlStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create thumbnails table: %w", err)
	}

	log.Println("database initialized successfully at", dataSourceName)
	return db, nil
}
