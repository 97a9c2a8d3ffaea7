package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
//
// All operations are funneled through a single connection guarded by one
// mutex. Every mutation runs in its own transaction and is committed before
// the lock releases, so a reader that subsequently acquires the lock always
// observes fully-committed state.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	// Path is the store file location. ":memory:" opens an in-memory store.
	Path string
}

// NewSQLiteStore creates a new SQLite store instance. The store is not opened
// until Create or Open is called.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Create initializes a brand-new store, refusing to clobber an existing file,
// and applies the schema migrations.
func (s *SQLiteStore) Create(ctx context.Context) error {
	if s.path != ":memory:" {
		if _, err := os.Stat(s.path); err == nil {
			return fmt.Errorf("%w: %s", ErrStoreExists, s.path)
		}
	}

	if err := s.open(ctx); err != nil {
		return err
	}
	return s.migrate()
}

// Open connects to an existing store and applies any pending migrations.
func (s *SQLiteStore) Open(ctx context.Context) error {
	if s.path != ":memory:" {
		if _, err := os.Stat(s.path); err != nil {
			return fmt.Errorf("store %s does not exist: %w", s.path, err)
		}
	}

	if err := s.open(ctx); err != nil {
		return err
	}
	return s.migrate()
}

func (s *SQLiteStore) open(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	// One writer at a time; readers serialize through the same connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping store: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the store connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate runs the embedded schema migrations.
func (s *SQLiteStore) migrate() error {
	if s.db == nil {
		return ErrStoreNotOpen
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// write runs fn inside a committed transaction, holding the store lock for
// the full execute-and-commit window.
func (s *SQLiteStore) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// CreateResource persists a resource row, recording the version in effect.
func (s *SQLiteStore) CreateResource(ctx context.Context, rec *ResourceRecord) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO resources (path, version_major, version_minor, version_build, version_label)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				version_major = excluded.version_major,
				version_minor = excluded.version_minor,
				version_build = excluded.version_build,
				version_label = excluded.version_label
		`
		if _, err := tx.ExecContext(ctx, query,
			rec.Path, rec.VersionMajor, rec.VersionMinor, rec.VersionBuild, rec.VersionLabel); err != nil {
			return fmt.Errorf("failed to create resource: %w", err)
		}
		return nil
	})
}

// GetResource fetches a resource row by path.
func (s *SQLiteStore) GetResource(ctx context.Context, path string) (*ResourceRecord, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT path, version_major, version_minor, version_build, version_label
		FROM resources
		WHERE path = ?
	`

	rec := &ResourceRecord{}
	err := s.db.QueryRowContext(ctx, query, path).Scan(
		&rec.Path, &rec.VersionMajor, &rec.VersionMinor, &rec.VersionBuild, &rec.VersionLabel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return rec, nil
}

// DeleteResource removes a resource row; attribute rows cascade.
func (s *SQLiteStore) DeleteResource(ctx context.Context, path string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE path = ?`, path)
		if err != nil {
			return fmt.Errorf("failed to delete resource: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, path)
		}
		return nil
	})
}

// ListResourcePaths returns every persisted resource path.
func (s *SQLiteStore) ListResourcePaths(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM resources ORDER BY path ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan resource path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return paths, nil
}

// resourceID looks up the row ID for a resource path within a transaction.
func resourceID(ctx context.Context, tx *sql.Tx, path string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM resources WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up resource: %w", err)
	}
	return id, nil
}

// CreateAttribute persists one attribute value for a resource.
func (s *SQLiteStore) CreateAttribute(ctx context.Context, path, name string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		id, err := resourceID(ctx, tx, path)
		if err != nil {
			return err
		}

		query := `INSERT INTO attributes (resource_id, name, value) VALUES (?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, id, name, encoded); err != nil {
			return fmt.Errorf("failed to create attribute: %w", err)
		}
		return nil
	})
}

// UpdateAttribute overwrites one attribute value, inserting if absent.
func (s *SQLiteStore) UpdateAttribute(ctx context.Context, path, name string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		id, err := resourceID(ctx, tx, path)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO attributes (resource_id, name, value)
			VALUES (?, ?, ?)
			ON CONFLICT(resource_id, name) DO UPDATE SET value = excluded.value
		`
		if _, err := tx.ExecContext(ctx, query, id, name, encoded); err != nil {
			return fmt.Errorf("failed to update attribute: %w", err)
		}
		return nil
	})
}

// GetAttribute fetches one attribute value.
func (s *SQLiteStore) GetAttribute(ctx context.Context, path, name string) (any, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var resID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM resources WHERE path = ?`, path).Scan(&resID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up resource: %w", err)
	}

	var encoded string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM attributes WHERE resource_id = ? AND name = ?`, resID, name).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, path, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute: %w", err)
	}

	return decodeValue(encoded)
}

// DeleteAttribute removes one attribute value.
func (s *SQLiteStore) DeleteAttribute(ctx context.Context, path, name string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		id, err := resourceID(ctx, tx, path)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM attributes WHERE resource_id = ? AND name = ?`, id, name)
		if err != nil {
			return fmt.Errorf("failed to delete attribute: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, path, name)
		}
		return nil
	})
}

// CreateBlueprintModule persists one module's source text.
func (s *SQLiteStore) CreateBlueprintModule(ctx context.Context, path, data string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO blueprint_modules (path, data) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, query, path, data); err != nil {
			return fmt.Errorf("failed to create blueprint module: %w", err)
		}
		return nil
	})
}

// GetBlueprintModule fetches one module by path.
func (s *SQLiteStore) GetBlueprintModule(ctx context.Context, path string) (*ModuleRecord, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &ModuleRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT path, data FROM blueprint_modules WHERE path = ?`, path).Scan(&rec.Path, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blueprint module: %w", err)
	}

	return rec, nil
}

// ListBlueprintModules returns the full blueprint source snapshot.
func (s *SQLiteStore) ListBlueprintModules(ctx context.Context) ([]*ModuleRecord, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path, data FROM blueprint_modules ORDER BY path ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blueprint modules: %w", err)
	}
	defer rows.Close()

	modules := []*ModuleRecord{}
	for rows.Next() {
		rec := &ModuleRecord{}
		if err := rows.Scan(&rec.Path, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to scan blueprint module: %w", err)
		}
		modules = append(modules, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blueprint modules: %w", err)
	}

	return modules, nil
}

// DeleteAllBlueprintModules drops the module snapshot wholesale.
func (s *SQLiteStore) DeleteAllBlueprintModules(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blueprint_modules`); err != nil {
			return fmt.Errorf("failed to delete blueprint modules: %w", err)
		}
		return nil
	})
}

// CreateBlueprintPackage records one package path.
func (s *SQLiteStore) CreateBlueprintPackage(ctx context.Context, path string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO blueprint_packages (path) VALUES (?)`
		if _, err := tx.ExecContext(ctx, query, path); err != nil {
			return fmt.Errorf("failed to create blueprint package: %w", err)
		}
		return nil
	})
}

// ListBlueprintPackages returns all recorded package paths.
func (s *SQLiteStore) ListBlueprintPackages(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM blueprint_packages ORDER BY path ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blueprint packages: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan blueprint package: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blueprint packages: %w", err)
	}

	return paths, nil
}

// DeleteAllBlueprintPackages drops the package snapshot wholesale.
func (s *SQLiteStore) DeleteAllBlueprintPackages(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blueprint_packages`); err != nil {
			return fmt.Errorf("failed to delete blueprint packages: %w", err)
		}
		return nil
	})
}

// SetMetadata writes a metadata key, inserting or overwriting.
func (s *SQLiteStore) SetMetadata(ctx context.Context, key, value string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to set metadata: %w", err)
		}
		return nil
	})
}

// GetMetadata fetches a metadata key.
func (s *SQLiteStore) GetMetadata(ctx context.Context, key string) (string, error) {
	if s.db == nil {
		return "", ErrStoreNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrMetadataNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// DeleteMetadata removes a metadata key.
func (s *SQLiteStore) DeleteMetadata(ctx context.Context, key string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("failed to delete metadata: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrMetadataNotFound, key)
		}
		return nil
	})
}

// HealthCheck verifies the store connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreNotOpen
	}
	return s.db.PingContext(ctx)
}

// encodeValue serializes an attribute value for storage.
func encodeValue(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode attribute value: %w", err)
	}
	return string(data), nil
}

// decodeValue deserializes a stored attribute value.
func decodeValue(encoded string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(encoded), &value); err != nil {
		return nil, fmt.Errorf("failed to decode attribute value: %w", err)
	}
	return value, nil
}
