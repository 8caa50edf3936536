package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	migrationLockKey  = int64(20481107)
	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed migrations/*.sql
	migrationsFS embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)
)

type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrateUp applies pending migrations; steps <= 0 applies all of them.
func MigrateUp(ctx context.Context, db *sql.DB, steps int) (int, error) {
	return migrate(ctx, db, func(ctx context.Context, conn *sql.Conn, ms []Migration) (int, error) {
		return applyUp(ctx, conn, ms, steps)
	})
}

// MigrateDown reverts the latest migrations; steps <= 0 reverts one.
func MigrateDown(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	return migrate(ctx, db, func(ctx context.Context, conn *sql.Conn, ms []Migration) (int, error) {
		return applyDown(ctx, conn, ms, steps)
	})
}

func migrate(ctx context.Context, db *sql.DB, run func(context.Context, *sql.Conn, []Migration) (int, error)) (int, error) {
	migrations, err := LoadMigrations(migrationsFS)
	if err != nil {
		return 0, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return 0, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationTableDDL); err != nil {
		return 0, fmt.Errorf("ensure migration table: %w", err)
	}

	return run(ctx, conn, migrations)
}

func applyUp(ctx context.Context, conn *sql.Conn, migrations []Migration, steps int) (int, error) {
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := WithTransaction(ctx, conn, DefaultTxOptions(), func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("execute up migration %d_%s: %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`,
				m.Version, m.Name); err != nil {
				return fmt.Errorf("record up migration %d_%s: %w", m.Version, m.Name, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
		if steps > 0 && count >= steps {
			break
		}
	}

	return count, nil
}

func applyDown(ctx context.Context, conn *sql.Conn, migrations []Migration, steps int) (int, error) {
	byVersion := make(map[int64]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, fmt.Errorf("query applied migrations: %w", err)
	}
	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan applied migration: %w", err)
		}
		versions = append(versions, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows error: %w", err)
	}

	count := 0
	for _, v := range versions {
		m, ok := byVersion[v]
		if !ok {
			return count, fmt.Errorf("cannot rollback unknown migration version %d", v)
		}
		err := WithTransaction(ctx, conn, DefaultTxOptions(), func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
				return fmt.Errorf("execute down migration %d_%s: %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
				return fmt.Errorf("delete migration record %d_%s: %w", m.Version, m.Name, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return applied, nil
}

// LoadMigrations pairs NNNN_name.up.sql and NNNN_name.down.sql files, ordered by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*Migration)
	for _, file := range files {
		base := path.Base(file)
		matches := migrationFilePattern.FindStringSubmatch(base)
		if len(matches) != 4 {
			return nil, fmt.Errorf("invalid migration file name: %s", base)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", base, err)
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: matches[2]}
			byVersion[version] = m
		} else if m.Name != matches[2] {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, matches[2])
		}

		if matches[3] == "up" {
			m.UpSQL = body
		} else {
			m.DownSQL = body
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	return migrations, nil
}
