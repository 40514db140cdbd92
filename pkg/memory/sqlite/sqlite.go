// Package sqlite provides a SQLite-backed memory store using ent's SQL driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/memory"
	entdriver "github.com/papercomputeco/recall/pkg/memory/ent/driver"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chat_memory (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_memory_conversation_seq ON chat_memory (conversation_id, seq)`,
}

// Store implements memory.Store using SQLite via the ent driver.
type Store struct {
	*entdriver.EntDriver
}

var _ memory.Store = (*Store)(nil)

// NewStore creates a new SQLite-backed memory store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	// Wrap the database connection with ent's SQL driver
	drv := entsql.OpenDB(dialect.SQLite, db)
	ed := &entdriver.EntDriver{Driver: drv}

	if err := ed.Migrate(ctx, schema...); err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{EntDriver: ed}, nil
}
