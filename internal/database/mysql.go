package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/go-sql-driver/mysql"

	"wpback/internal/dump"
	"wpback/internal/logger"
)

// Config holds connection parameters for one MySQL server. Database may be
// empty for restore runs that create the schema themselves.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// MySQL is the single connection a run owns. All statements execute on one
// pinned session so session pragmas (foreign key checks, autocommit) hold
// for the whole operation. Close it on every exit path.
type MySQL struct {
	db   *sql.DB
	conn *sql.Conn
	log  logger.Logger
}

// Open connects and pins one session. The caller owns the returned
// connection for the duration of a single backup or restore run.
func Open(ctx context.Context, cfg Config) (*MySQL, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%w: ping %s:%d: %v", ErrConnection, cfg.Host, cfg.Port, err)
	}

	return &MySQL{db: db, conn: conn, log: logger.Global()}, nil
}

func buildDSN(cfg Config) string {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.Timeout = timeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// ListTables returns the table names exactly as the server reports them.
// The order is not sorted and not stable across runs.
func (m *MySQL) ListTables(ctx context.Context) ([]string, error) {
	rows, err := m.conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrIntrospection, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%w: scan table name: %v", ErrIntrospection, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrIntrospection, err)
	}
	return tables, nil
}

// CreateDefinition returns the server's verbatim CREATE TABLE statement.
func (m *MySQL) CreateDefinition(ctx context.Context, table string) (string, error) {
	row := m.conn.QueryRowContext(ctx, "SHOW CREATE TABLE `"+table+"`")

	var name, def string
	if err := row.Scan(&name, &def); err != nil {
		return "", fmt.Errorf("%w: create definition for %q: %v", ErrIntrospection, table, err)
	}
	return def, nil
}

// TableRows opens a streaming full-table read.
func (m *MySQL) TableRows(ctx context.Context, table string) (dump.RowReader, error) {
	rows, err := m.conn.QueryContext(ctx, "SELECT * FROM `"+table+"`")
	if err != nil {
		return nil, fmt.Errorf("%w: read rows of %q: %v", ErrIntrospection, table, err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: columns of %q: %v", ErrIntrospection, table, err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: column types of %q: %v", ErrIntrospection, table, err)
	}
	types := make([]string, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
	}

	return &tableReader{rows: rows, cols: cols, types: types}, nil
}

type tableReader struct {
	rows  *sql.Rows
	cols  []string
	types []string
}

func (t *tableReader) Columns() []string { return t.cols }
func (t *tableReader) Types() []string   { return t.types }

func (t *tableReader) Next() ([]any, error) {
	if !t.rows.Next() {
		if err := t.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	values := make([]any, len(t.cols))
	ptrs := make([]any, len(t.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := t.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func (t *tableReader) Close() error { return t.rows.Close() }

// Exec runs one statement on the pinned session.
func (m *MySQL) Exec(ctx context.Context, stmt string) error {
	_, err := m.conn.ExecContext(ctx, stmt)
	return err
}

// Commit issues an explicit COMMIT. Meaningful only after autocommit has
// been disabled for the session.
func (m *MySQL) Commit(ctx context.Context) error {
	_, err := m.conn.ExecContext(ctx, "COMMIT")
	if err != nil {
		return fmt.Errorf("%w: commit: %v", ErrConnection, err)
	}
	return nil
}

// EnsureDatabase creates the target schema if missing and switches the
// session to it.
func (m *MySQL) EnsureDatabase(ctx context.Context, name string) error {
	if _, err := m.conn.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS `"+name+"`"); err != nil {
		return fmt.Errorf("%w: create database %q: %v", ErrConnection, name, err)
	}
	if _, err := m.conn.ExecContext(ctx, "USE `"+name+"`"); err != nil {
		return fmt.Errorf("%w: use database %q: %v", ErrConnection, name, err)
	}
	m.log.Info("database ready", "database", name)
	return nil
}

// Close releases the pinned session and the pool behind it.
func (m *MySQL) Close() error {
	var firstErr error
	if m.conn != nil {
		firstErr = m.conn.Close()
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
