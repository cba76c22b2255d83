package modules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/config"
	"github.com/funvibe/ember/internal/vm"

	_ "modernc.org/sqlite"
)

// Store keeps module sources in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// ModuleInfo describes a stored module.
type ModuleInfo struct {
	Name      string
	UpdatedAt time.Time
}

// OpenStore opens or creates the store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening module store: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		name TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores source under name. Sources that do not compile are rejected.
func (s *Store) Put(ctx context.Context, name, source string) error {
	if err := validName(name); err != nil {
		return err
	}
	if _, err := compiler.CompileSource(name+config.SourceFileExt, source); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO modules (name, source, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		name, source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving module %s: %w", name, err)
	}
	return nil
}

// PutFile stores a source file under the name derived from its path.
func (s *Store) PutFile(ctx context.Context, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	name := config.ModuleName(path)
	return name, s.Put(ctx, name, string(src))
}

// Get returns the source stored under name.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	var source string
	err := s.db.QueryRowContext(ctx, "SELECT source FROM modules WHERE name = ?", name).Scan(&source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w in %s", name, vm.ErrModuleNotFound, filepath.Base(s.path))
		}
		return "", fmt.Errorf("querying module %s: %w", name, err)
	}
	return source, nil
}

// List returns every stored module ordered by name.
func (s *Store) List(ctx context.Context) ([]ModuleInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, updated_at FROM modules ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing modules: %w", err)
	}
	defer rows.Close()

	var out []ModuleInfo
	for rows.Next() {
		var info ModuleInfo
		var updated string
		if err := rows.Scan(&info.Name, &updated); err != nil {
			return nil, fmt.Errorf("scanning module row: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("module %s: bad updated_at: %w", info.Name, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes name from the store.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM modules WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting module %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", name, vm.ErrModuleNotFound)
	}
	return nil
}

func (s *Store) LoadModule(name string) (*bytecode.Binary, error) {
	src, err := s.Get(context.Background(), name)
	if err != nil {
		return nil, err
	}
	log.Debugf("load %s from store %s", name, s.path)
	return compiler.CompileSource(name+config.SourceFileExt, src)
}
