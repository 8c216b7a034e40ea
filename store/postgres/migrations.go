package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the subscriptions store.
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
    sale_price        BIGINT NOT NULL DEFAULT 0,
    default_capacity  BIGINT NOT NULL DEFAULT 0,
    start_time        TIMESTAMPTZ NOT NULL DEFAULT '0001-01-01 00:00:00+00',
    treasury          BIGINT NOT NULL DEFAULT 0,
    tiers             JSONB NOT NULL DEFAULT '[]',
    entries           JSONB NOT NULL DEFAULT '[]',
    version           BIGINT NOT NULL DEFAULT 1,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sub_collections_merchant ON sub_collections (merchant);
CREATE INDEX IF NOT EXISTS idx_sub_collections_created ON sub_collections (created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sub_collections`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_sub_collections_entries",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_sub_collections_entries ON sub_collections USING GIN (entries jsonb_path_ops);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_sub_collections_entries`)
				return err
			},
		},
	)
}
