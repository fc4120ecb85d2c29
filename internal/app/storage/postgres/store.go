package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.ManifestStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- AssetStore -------------------------------------------------------------

func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bundle_assets (id, locator, backend, kind, sha256, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Locator, a.Backend, a.Kind, a.SHA256, a.SizeBytes, a.CreatedAt)
	if err != nil {
		return asset.Asset{}, err
	}
	return a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, locator, backend, kind, sha256, size_bytes, created_at
		FROM bundle_assets
		WHERE id = $1
	`, id)
	return scanAsset(row)
}

func (s *Store) GetAssetByLocator(ctx context.Context, backend asset.Backend, locator string) (asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, locator, backend, kind, sha256, size_bytes, created_at
		FROM bundle_assets
		WHERE backend = $1 AND locator = $2
	`, backend, locator)
	return scanAsset(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (asset.Asset, error) {
	var a asset.Asset
	err := row.Scan(&a.ID, &a.Locator, &a.Backend, &a.Kind, &a.SHA256, &a.SizeBytes, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Asset{}, storage.ErrNotFound
	}
	if err != nil {
		return asset.Asset{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// --- ManifestStore ----------------------------------------------------------

// CreateManifest commits the manifest row and all association rows in a
// single transaction; any failure rolls the whole creation back.
func (s *Store) CreateManifest(ctx context.Context, m manifest.Manifest) (manifest.Manifest, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	m.DeletedAt = nil

	federationJSON, err := json.Marshal(m.Federation)
	if err != nil {
		return manifest.Manifest{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return manifest.Manifest{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bundle_manifests (id, uuid, platform, bundler, channel, version, federation, type_index_asset_id, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
	`, m.ID, m.UUID, m.Platform, m.Bundler, m.Channel, m.Version, federationJSON, toNullString(m.TypeIndexAssetID), m.CreatedAt)
	if err != nil {
		return manifest.Manifest{}, mapPQError(err, m)
	}

	for _, ref := range m.Assets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bundle_manifest_assets (manifest_id, asset_id, role, position)
			VALUES ($1, $2, $3, $4)
		`, m.ID, ref.AssetID, ref.Role, ref.Position)
		if err != nil {
			return manifest.Manifest{}, mapPQError(err, m)
		}
	}

	if err := tx.Commit(); err != nil {
		return manifest.Manifest{}, err
	}
	return m, nil
}

func (s *Store) GetManifest(ctx context.Context, id string) (manifest.Manifest, error) {
	return s.getManifestWhere(ctx, "id = $1", id)
}

func (s *Store) GetManifestByUUID(ctx context.Context, manifestUUID string) (manifest.Manifest, error) {
	// No deleted_at filter: uuid lookup serves rollback and audit.
	return s.getManifestWhere(ctx, "uuid = $1", manifestUUID)
}

func (s *Store) getManifestWhere(ctx context.Context, where string, arg any) (manifest.Manifest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, platform, bundler, channel, version, federation, type_index_asset_id, created_at, deleted_at
		FROM bundle_manifests
		WHERE `+where, arg)

	m, err := scanManifest(row)
	if err != nil {
		return manifest.Manifest{}, err
	}

	refs, err := s.listAssetRefs(ctx, m.ID)
	if err != nil {
		return manifest.Manifest{}, err
	}
	m.Assets = refs
	return m, nil
}

func (s *Store) SoftDeleteManifest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bundle_manifests
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	// No row touched: either already deleted (a no-op) or unknown.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM bundle_manifests WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("manifest %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListActiveManifests(ctx context.Context, platform manifest.Platform, channel string) ([]manifest.Manifest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, platform, bundler, channel, version, federation, type_index_asset_id, created_at, deleted_at
		FROM bundle_manifests
		WHERE platform = $1 AND channel = $2 AND deleted_at IS NULL
	`, platform, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []manifest.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) ListManifestAssets(ctx context.Context, manifestID string) ([]asset.Asset, error) {
	if _, err := s.GetManifest(ctx, manifestID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.locator, a.backend, a.kind, a.sha256, a.size_bytes, a.created_at
		FROM bundle_manifest_assets ma
		JOIN bundle_assets a ON a.id = ma.asset_id
		WHERE ma.manifest_id = $1
		ORDER BY ma.position
	`, manifestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]asset.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) listAssetRefs(ctx context.Context, manifestID string) ([]manifest.AssetRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, role, position
		FROM bundle_manifest_assets
		WHERE manifest_id = $1
		ORDER BY position
	`, manifestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []manifest.AssetRef
	for rows.Next() {
		var ref manifest.AssetRef
		if err := rows.Scan(&ref.AssetID, &ref.Role, &ref.Position); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanManifest(row rowScanner) (manifest.Manifest, error) {
	var (
		m              manifest.Manifest
		federationRaw  []byte
		typeIndexID sql.NullString
		deletedAt      sql.NullTime
	)
	err := row.Scan(&m.ID, &m.UUID, &m.Platform, &m.Bundler, &m.Channel, &m.Version,
		&federationRaw, &typeIndexID, &m.CreatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return manifest.Manifest{}, storage.ErrNotFound
	}
	if err != nil {
		return manifest.Manifest{}, err
	}

	if len(federationRaw) > 0 {
		_ = json.Unmarshal(federationRaw, &m.Federation)
	}
	if typeIndexID.Valid {
		m.TypeIndexAssetID = typeIndexID.String
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		m.DeletedAt = &t
	}
	return m, nil
}

func mapPQError(err error, m manifest.Manifest) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s/%s/%s %s: %w", m.Platform, m.Bundler, m.Channel, m.Version, storage.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("manifest asset reference: %w", storage.ErrNotFound)
		}
	}
	return err
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
