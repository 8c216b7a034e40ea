package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the subscriptions store (SQLite).
var Migrations = migrate.NewGroup("subscriptions")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_sub_collections",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sub_collections (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    uri               TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    currency          TEXT NOT NULL DEFAULT 'wei',
    merchant          TEXT NOT NULL,
    sale_price        INTEGER NOT NULL DEFAULT 0,
    default_capacity  INTEGER NOT NULL DEFAULT 0,
    start_sec         INTEGER NOT NULL DEFAULT 0,
    start_nsec        INTEGER NOT NULL DEFAULT 0,
    treasury          INTEGER NOT NULL DEFAULT 0,
    tiers             TEXT NOT NULL DEFAULT '[]',
    entries           TEXT NOT NULL DEFAULT '[]',
    version           INTEGER NOT NULL DEFAULT 1,
    created_sec       INTEGER NOT NULL,
    created_nsec      INTEGER NOT NULL DEFAULT 0,
    updated_sec       INTEGER NOT NULL,
    updated_nsec      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sub_collections_merchant ON sub_collections (merchant);
CREATE INDEX IF NOT EXISTS idx_sub_collections_created ON sub_collections (created_sec, created_nsec, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sub_collections`)
				return err
			},
		},
	)
}
