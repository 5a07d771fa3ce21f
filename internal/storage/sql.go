package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore implements Store on a relational database. Queries use ? placeholders and are
// rebound for the dialect.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	bind    int
}

var _ Store = (*SQLStore)(nil)
var _ Store = (*MemoryStore)(nil)

// Open returns the backend named by driver: memory, postgres or sqlite.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string, migrate bool) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return OpenPostgres(ctx, databaseURL, migrate)
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// OpenPostgres connects through lib/pq and applies the schema when migrate is set.
func OpenPostgres(ctx context.Context, dsn string, migrate bool) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &SQLStore{db: db, dialect: DialectPostgres, bind: sqlx.DOLLAR}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// OpenSQLite opens (creating if needed) a database file and always applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers
	db.SetMaxOpenConns(1)
	s := &SQLStore{db: db, dialect: DialectSQLite, bind: sqlx.QUESTION}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", s.classify(err))
		}
	}
	return nil
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) q(query string) string { return sqlx.Rebind(s.bind, query) }

func (s *SQLStore) get(ctx context.Context, dest any, query string, args ...any) error {
	return s.classify(s.db.GetContext(ctx, dest, s.q(query), args...))
}

func (s *SQLStore) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return s.classify(s.db.SelectContext(ctx, dest, s.q(query), args...))
}

// insert runs an INSERT ... RETURNING id statement.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(query+" RETURNING id"), args...).Scan(&id)
	return id, s.classify(err)
}

// exec runs a statement that must touch at least one row.
func (s *SQLStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return s.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the package sentinels, keeping the driver message.
func (s *SQLStore) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
		case "23503", "23514", "23502", "22P02":
			return fmt.Errorf("%w: %s", ErrInvalid, pqErr.Message)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %s", ErrInvalid, msg)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// setList collects the assignments of a partial UPDATE.
type setList struct {
	cols []string
	args []any
}

func (l *setList) add(col string, v any) {
	l.cols = append(l.cols, col+" = ?")
	l.args = append(l.args, v)
}

// update runs UPDATE table SET <list> WHERE where.
func (s *SQLStore) update(ctx context.Context, table string, l setList, where string, whereArgs ...any) error {
	query := "UPDATE " + table + " SET " + strings.Join(l.cols, ", ") + " WHERE " + where
	return s.exec(ctx, query, append(l.args, whereArgs...)...)
}
