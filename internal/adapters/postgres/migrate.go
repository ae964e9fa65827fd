package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Direction selects which half of each migration pair is applied.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies NNN_name.<direction>.sql files from fsys in order and
// records applied versions in schema_migrations. Up skips versions already
// applied; Down reverts only the latest one. It returns the files executed.
func Migrate(ctx context.Context, db *DB, fsys fs.FS, dir Direction) ([]string, error) {
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*."+string(dir)+".sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	switch dir {
	case Up:
		var done []string
		for _, f := range files {
			v := migrationVersion(f)
			if applied[v] {
				continue
			}
			if err := execMigration(ctx, db, fsys, f, v, dir); err != nil {
				return done, err
			}
			done = append(done, f)
		}
		return done, nil

	case Down:
		for i := len(files) - 1; i >= 0; i-- {
			v := migrationVersion(files[i])
			if !applied[v] {
				continue
			}
			if err := execMigration(ctx, db, fsys, files[i], v, dir); err != nil {
				return nil, err
			}
			return []string{files[i]}, nil
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown migration direction %q", dir)
	}
}

func appliedVersions(ctx context.Context, db *DB) (map[string]bool, error) {
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func execMigration(ctx context.Context, db *DB, fsys fs.FS, file, version string, dir Direction) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if dir == Up {
		_, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", file, err)
	}
	return tx.Commit(ctx)
}

// migrationVersion turns "001_gazetteer.up.sql" into "001_gazetteer".
func migrationVersion(file string) string {
	name, _, _ := strings.Cut(file, ".")
	return name
}
