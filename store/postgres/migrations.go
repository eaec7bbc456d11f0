package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rentledger store (PostgreSQL).
var Migrations = migrate.NewGroup("rentledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rentledger_rooms",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_rooms (
    id                     TEXT PRIMARY KEY,
    name                   TEXT NOT NULL DEFAULT '',
    base_rent              BIGINT NOT NULL DEFAULT 0,
    currency               TEXT NOT NULL DEFAULT 'vnd',
    pinned                 BOOLEAN NOT NULL DEFAULT FALSE,
    position               INTEGER NOT NULL DEFAULT 0,
    tenants                JSONB NOT NULL DEFAULT '[]',
    usage_history          JSONB NOT NULL DEFAULT '[]',
    archived_usage_history JSONB NOT NULL DEFAULT '[]',
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rentledger_rooms_order ON rentledger_rooms (pinned, position);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_rooms`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rentledger_users",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL DEFAULT '',
    name          TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'staff',
    password_hash TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rentledger_users_username ON rentledger_users (username);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_users`)
				return err
			},
		},
	)
}
