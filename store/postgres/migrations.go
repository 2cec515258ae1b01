package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the issuance store.
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
    sequence  BIGINT NOT NULL,
    operation TEXT NOT NULL DEFAULT '',
    caller    TEXT NOT NULL DEFAULT '',
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    changes   JSONB NOT NULL DEFAULT '[]',
    records   JSONB NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_issuance_entries_sequence ON issuance_entries (sequence);
CREATE INDEX IF NOT EXISTS idx_issuance_entries_operation ON issuance_entries (operation, sequence);
CREATE INDEX IF NOT EXISTS idx_issuance_entries_caller ON issuance_entries (caller);
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
    sequence  BIGINT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    changes   JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_issuance_snapshots_sequence ON issuance_snapshots (sequence DESC);
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
