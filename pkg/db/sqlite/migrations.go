package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order and recorded in schema_version. Append new
// entries, never edit an applied one.
var migrations = []migration{
	{
		version: 1,
		name:    "baskets, participants and items",
		// last_item_id is the per-basket id counter. It only grows, so ids of
		// deleted items are never handed out again.
		stmt: `
CREATE TABLE IF NOT EXISTS baskets (
    code TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    last_item_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS participants (
    basket_code TEXT NOT NULL,
    name TEXT NOT NULL,
    joined_seq INTEGER PRIMARY KEY AUTOINCREMENT,
    UNIQUE (basket_code, name),
    FOREIGN KEY (basket_code) REFERENCES baskets(code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS items (
    basket_code TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    product TEXT NOT NULL,
    price TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),
    added_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (basket_code, item_id),
    FOREIGN KEY (basket_code) REFERENCES baskets(code) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_basket_code ON participants(basket_code);
`,
	},
	{
		version: 2,
		name:    "items require added_by",
		stmt: `
CREATE TRIGGER IF NOT EXISTS items_added_by_required
BEFORE INSERT ON items
WHEN NEW.added_by = ''
BEGIN
    SELECT RAISE(ABORT, 'added_by is required');
END;
`,
	},
}

// SchemaVersion is the version Migrate brings a database to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies every migration newer than the recorded version, each in
// its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s', 'now') AS INTEGER))
)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// CurrentVersion reports the highest applied migration, 0 for a new database.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
