package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

var (
	// ErrNoActiveVersion is returned by Load before any import was activated.
	ErrNoActiveVersion = errors.New("no active gazetteer version")
	// ErrVersionNotFound is returned for unknown or non-staged versions.
	ErrVersionNotFound = errors.New("gazetteer version not found")
)

// GazetteerRepo implements ports.GazetteerStore with pgx. Entries are
// stored per version; exactly one version is active at a time.
type GazetteerRepo struct {
	db *DB
}

// NewGazetteerRepo creates a new GazetteerRepo.
func NewGazetteerRepo(db *DB) *GazetteerRepo {
	return &GazetteerRepo{db: db}
}

// Load returns the entries of the active version in import order.
func (r *GazetteerRepo) Load(ctx context.Context) ([]domain.GazetteerEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT e.kind, e.primary_name, e.aliases, e.lat, e.lng, e.default_zoom, e.code
		FROM gazetteer_entries e
		JOIN gazetteer_versions v ON v.version = e.version
		WHERE v.status = 'active'
		ORDER BY e.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query gazetteer: %w", err)
	}
	defer rows.Close()

	var entries []domain.GazetteerEntry
	for rows.Next() {
		var e domain.GazetteerEntry
		if err := rows.Scan(&e.Kind, &e.Names.Primary, &e.Names.Aliases, &e.Lat, &e.Lng, &e.DefaultZoom, &e.Code); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoActiveVersion
	}
	return entries, nil
}

// StageVersion stores entries under a new staged version.
func (r *GazetteerRepo) StageVersion(ctx context.Context, version string, entries []domain.GazetteerEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO gazetteer_versions (version, status, entries) VALUES ($1, 'staged', $2)
	`, version, len(entries)); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"gazetteer_entries"},
		[]string{"version", "position", "kind", "primary_name", "aliases", "lat", "lng", "default_zoom", "code"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			aliases := e.Names.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			return []any{version, i, string(e.Kind), e.Names.Primary, aliases, e.Lat, e.Lng, e.DefaultZoom, e.Code}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy entries: %w", err)
	}

	return tx.Commit(ctx)
}

// ActivateVersion makes a staged version the active one and retires the
// previous active version.
func (r *GazetteerRepo) ActivateVersion(ctx context.Context, version string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		UPDATE gazetteer_versions SET status = 'retired' WHERE status = 'active'
	`); err != nil {
		return fmt.Errorf("retire active version: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE gazetteer_versions SET status = 'active', activated_at = now()
		WHERE version = $1 AND status = 'staged'
	`, version)
	if err != nil {
		return fmt.Errorf("activate version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}

	return tx.Commit(ctx)
}

// DeleteVersion removes a version that is not active. Deleting a missing
// version is not an error, so compensation can run more than once.
func (r *GazetteerRepo) DeleteVersion(ctx context.Context, version string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM gazetteer_versions WHERE version = $1 AND status <> 'active'
	`, version)
	return err
}

// ListVersions returns all versions, newest first.
func (r *GazetteerRepo) ListVersions(ctx context.Context) ([]domain.GazetteerVersion, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT version, status, entries, created_at
		FROM gazetteer_versions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []domain.GazetteerVersion
	for rows.Next() {
		var v domain.GazetteerVersion
		if err := rows.Scan(&v.Version, &v.Status, &v.Entries, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
