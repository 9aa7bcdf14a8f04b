package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

const usage = "usage: go run ./cmd/migrate [up|down|status] [steps]"

// revision pairs the up and down SQL for one schema version.
type revision struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
		log.Fatalf("ensure schema_migrations table: %v", err)
	}

	revisions, err := loadRevisions(migrationsFS)
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		n, err := migrateUp(ctx, pool, revisions)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Printf("schema up to date, %d revision(s) applied", n)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			v, err := strconv.Atoi(os.Args[2])
			if err != nil || v <= 0 {
				log.Fatalf("invalid step count %q", os.Args[2])
			}
			steps = v
		}
		n, err := migrateDown(ctx, pool, revisions, steps)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("%d revision(s) rolled back", n)
	case "status":
		version, name, err := appliedHead(ctx, pool)
		if err != nil {
			log.Fatalf("read schema version: %v", err)
		}
		if version == 0 {
			log.Println("schema is empty, no revisions applied")
			return
		}
		log.Printf("schema at revision %d (%s), %d available", version, name, len(revisions))
	default:
		log.Fatalf("unknown command %q. %s", os.Args[1], usage)
	}
}

var revisionFile = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

func loadRevisions(fsys fs.FS) ([]revision, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files embedded")
	}

	byVersion := make(map[int64]*revision)
	for _, p := range paths {
		matches := revisionFile.FindStringSubmatch(p)
		if matches == nil {
			return nil, fmt.Errorf("migration filename %s does not match NNNN_name.up|down.sql", p)
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sqlText := strings.TrimSpace(string(raw))
		if sqlText == "" {
			return nil, fmt.Errorf("migration %s is empty", p)
		}

		rev, ok := byVersion[version]
		if !ok {
			rev = &revision{Version: version, Name: matches[2]}
			byVersion[version] = rev
		} else if rev.Name != matches[2] {
			return nil, fmt.Errorf("version %d has conflicting names %s and %s", version, rev.Name, matches[2])
		}

		if matches[3] == "up" {
			if rev.UpSQL != "" {
				return nil, fmt.Errorf("version %d has two up files", version)
			}
			rev.UpSQL = sqlText
		} else {
			if rev.DownSQL != "" {
				return nil, fmt.Errorf("version %d has two down files", version)
			}
			rev.DownSQL = sqlText
		}
	}

	out := make([]revision, 0, len(byVersion))
	for _, rev := range byVersion {
		if rev.UpSQL == "" || rev.DownSQL == "" {
			return nil, fmt.Errorf("version %d needs both up and down files", rev.Version)
		}
		out = append(out, *rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// inTx runs fn inside a transaction so a failing revision leaves the
// schema and the bookkeeping row consistent.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, revisions []revision) (int, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	applied := make(map[int64]struct{})
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		applied[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, rev := range revisions {
		if _, ok := applied[rev.Version]; ok {
			continue
		}
		rev := rev
		err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, rev.UpSQL); err != nil {
				return fmt.Errorf("revision %d up: %w", rev.Version, err)
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, rev.Version, rev.Name)
			return err
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool, revisions []revision, steps int) (int, error) {
	if steps <= 0 {
		return 0, errors.New("steps must be positive")
	}

	byVersion := make(map[int64]revision, len(revisions))
	for _, rev := range revisions {
		byVersion[rev.Version] = rev
	}

	rows, err := pool.Query(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		targets = append(targets, v)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, version := range targets {
		rev, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("applied revision %d has no embedded source", version)
		}
		err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, rev.DownSQL); err != nil {
				return fmt.Errorf("revision %d down: %w", rev.Version, err)
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, rev.Version)
			return err
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func appliedHead(ctx context.Context, pool *pgxpool.Pool) (int64, string, error) {
	var version int64
	var name string
	err := pool.QueryRow(ctx,
		`SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return version, name, nil
}
