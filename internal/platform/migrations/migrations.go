// Package migrations creates the relational schema for manifests, assets and
// their associations.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// statements run in order on every start; each is idempotent.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS bundle_assets (
		id          TEXT PRIMARY KEY,
		locator     TEXT NOT NULL,
		backend     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		sha256      TEXT NOT NULL DEFAULT '',
		size_bytes  BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS bundle_assets_backend_locator
		ON bundle_assets (backend, locator)`,

	`CREATE TABLE IF NOT EXISTS bundle_manifests (
		id                   TEXT PRIMARY KEY,
		uuid                 TEXT NOT NULL UNIQUE,
		platform             TEXT NOT NULL,
		bundler              TEXT NOT NULL,
		channel              TEXT NOT NULL,
		version              TEXT NOT NULL,
		federation           JSONB NOT NULL DEFAULT '{}',
		type_index_asset_id  TEXT REFERENCES bundle_assets (id),
		created_at           TIMESTAMPTZ NOT NULL,
		deleted_at           TIMESTAMPTZ
	)`,

	// Tuple uniqueness holds among active manifests only; soft-deleting a
	// manifest frees its tuple for re-creation.
	`CREATE UNIQUE INDEX IF NOT EXISTS bundle_manifests_active_tuple
		ON bundle_manifests (platform, bundler, channel, version)
		WHERE deleted_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS bundle_manifests_channel_lookup
		ON bundle_manifests (platform, channel)
		WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS bundle_manifest_assets (
		manifest_id  TEXT NOT NULL REFERENCES bundle_manifests (id),
		asset_id     TEXT NOT NULL REFERENCES bundle_assets (id),
		role         TEXT NOT NULL,
		position     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (manifest_id, asset_id)
	)`,
}

// Apply executes all schema statements against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
