package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the issuance store (SQLite).
var Migrations = migrate.NewGroup("issuance")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_issuance_entries",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS issuance_entries (
    id        TEXT PRIMARY KEY,
    sequence  INTEGER NOT NULL,
    operation TEXT NOT NULL DEFAULT '',
    caller    TEXT NOT NULL DEFAULT '',
    timestamp DATETIME NOT NULL,
    changes   TEXT NOT NULL DEFAULT '[]',
    records   TEXT NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_issuance_entries_sequence ON issuance_entries (sequence);
CREATE INDEX IF NOT EXISTS idx_issuance_entries_operation ON issuance_entries (operation, sequence);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS issuance_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_issuance_snapshots",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS issuance_snapshots (
    id        TEXT PRIMARY KEY,
    sequence  INTEGER NOT NULL,
    timestamp DATETIME NOT NULL,
    changes   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_issuance_snapshots_sequence ON issuance_snapshots (sequence);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS issuance_snapshots`)
				return err
			},
		},
	)
}
