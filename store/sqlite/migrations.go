package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rentledger store (SQLite).
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
    base_rent              INTEGER NOT NULL DEFAULT 0,
    currency               TEXT NOT NULL DEFAULT 'vnd',
    pinned                 INTEGER NOT NULL DEFAULT 0,
    position               INTEGER NOT NULL DEFAULT 0,
    tenants                TEXT NOT NULL DEFAULT '[]',
    usage_history          TEXT NOT NULL DEFAULT '[]',
    archived_usage_history TEXT NOT NULL DEFAULT '[]',
    created_at             TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at             TEXT NOT NULL DEFAULT (datetime('now'))
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
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
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
