package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/abhisek/medpredict/internal/kb"
)

// Store owns the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
}

// Open connects to dsn and runs auto-migration. A postgres:// or
// postgresql:// DSN uses pgx; anything else is treated as a SQLite
// file path or URI.
func Open(dsn string) (*Store, error) {
	driverName, dialectName, source := resolveDriver(dsn)

	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	drv := entsql.OpenDB(dialectName, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, drv: drv, dialect: dialectName}, nil
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// resolveDriver maps a DSN to a database/sql driver, an ent dialect and
// the source string handed to sql.Open.
func resolveDriver(dsn string) (driverName, dialectName, source string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dialect.Postgres, dsn
	}
	return "sqlite", dialect.SQLite, withPragmas(dsn)
}

// sqlitePragmas configure SQLite for single-user performance. They are
// passed in the DSN so every pooled connection gets them; the migrator
// refuses to run without foreign keys.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

func withPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// builder returns a dialect-aware SQL builder.
func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// KnowledgeRepo returns a KnowledgeRepo backed by this store.
func (s *Store) KnowledgeRepo() KnowledgeRepo {
	return &knowledgeRepo{s: s}
}

// SubmissionRepo returns a SubmissionRepo backed by this store.
func (s *Store) SubmissionRepo() SubmissionRepo {
	return &submissionRepo{s: s}
}

// ArtifactRepo returns an ArtifactRepo backed by this store.
func (s *Store) ArtifactRepo() ArtifactRepo {
	return &artifactRepo{s: s}
}

// TrainingRunRepo returns a TrainingRunRepo backed by this store.
func (s *Store) TrainingRunRepo() TrainingRunRepo {
	return &trainingRunRepo{s: s}
}

// KnowledgeBase loads the full knowledge base.
func (s *Store) KnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error) {
	return s.KnowledgeRepo().KnowledgeBase(ctx)
}

// TrainingSubmissions returns up to limit submissions that have a primary
// prediction, newest first.
func (s *Store) TrainingSubmissions(ctx context.Context, limit int) ([]kb.SubmissionRecord, error) {
	return s.SubmissionRepo().TrainingSubmissions(ctx, limit)
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MEDPREDICT_DB environment variable
// 2. $XDG_DATA_HOME/medpredict/medpredict.db
// 3. ~/.local/share/medpredict/medpredict.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MEDPREDICT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "medpredict", "medpredict.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of a SQLite path if it doesn't
// exist. Postgres DSNs and in-memory databases are left alone.
func EnsureDir(path string) error {
	if strings.Contains(path, "://") || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
