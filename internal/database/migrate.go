package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Version   string
	SQL       string
	AppliedAt *time.Time
}

// Migrator applies the embedded schema files in lexical order and records
// each applied version in schema_migrations.
type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator { return &Migrator{db: db} }

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version VARCHAR(255) NOT NULL PRIMARY KEY,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Up applies every migration that has not been recorded yet.  Each file
// runs statement by statement; MySQL DDL commits implicitly so a failed
// file is reported and must be fixed by hand.
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	migrations, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, mg := range migrations {
		if mg.AppliedAt != nil {
			continue
		}
		for _, stmt := range splitStatements(mg.SQL) {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s: %w", mg.Version, err)
			}
		}
		if _, err := m.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", mg.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", mg.Version, err)
		}
		log.Printf("migrate: applied %s", mg.Version)
	}
	return nil
}

// Status lists the embedded migrations with their applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	applied := map[string]time.Time{}
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		applied[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range migrations {
		if at, ok := applied[migrations[i].Version]; ok {
			at := at
			migrations[i].AppliedAt = &at
		}
	}
	return migrations, nil
}

func loadMigrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		b, err := migrationFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		out = append(out, Migration{Version: version, SQL: string(b)})
	}
	return out, nil
}

// splitStatements breaks a schema file on semicolons at line ends and
// drops "--" comment lines.  The schema files contain no procedures or
// string literals with semicolons.
func splitStatements(src string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			if stmt != "" {
				out = append(out, stmt)
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
