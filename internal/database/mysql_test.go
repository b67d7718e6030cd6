package database

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"wpback/internal/logger"
)

// newMockConn builds a MySQL over a sqlmock pool with one pinned session,
// the same shape Open produces.
func newMockConn(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("pin connection: %v", err)
	}
	m := &MySQL{db: db, conn: conn, log: logger.Nop()}
	t.Cleanup(func() { m.Close() })
	return m, mock
}

func TestListTables(t *testing.T) {
	m, mock := newMockConn(t)

	mock.ExpectQuery("SHOW TABLES").WillReturnRows(
		sqlmock.NewRows([]string{"Tables_in_wp"}).
			AddRow("wp_options").
			AddRow("wp_posts").
			AddRow("wp_users"),
	)

	tables, err := m.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}
	want := []string{"wp_options", "wp_posts", "wp_users"}
	if len(tables) != len(want) {
		t.Fatalf("got %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("table %d = %q, want %q", i, tables[i], want[i])
		}
	}
}

func TestListTablesError(t *testing.T) {
	m, mock := newMockConn(t)

	mock.ExpectQuery("SHOW TABLES").WillReturnError(io.ErrUnexpectedEOF)

	_, err := m.ListTables(context.Background())
	if !errors.Is(err, ErrIntrospection) {
		t.Fatalf("got %v, want ErrIntrospection", err)
	}
}

func TestCreateDefinition(t *testing.T) {
	m, mock := newMockConn(t)

	def := "CREATE TABLE `wp_posts` (\n  `ID` bigint unsigned NOT NULL\n) ENGINE=InnoDB"
	mock.ExpectQuery("SHOW CREATE TABLE `wp_posts`").WillReturnRows(
		sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("wp_posts", def),
	)

	got, err := m.CreateDefinition(context.Background(), "wp_posts")
	if err != nil {
		t.Fatalf("CreateDefinition returned error: %v", err)
	}
	if got != def {
		t.Errorf("definition altered:\ngot  %q\nwant %q", got, def)
	}
}

func TestTableRowsStreaming(t *testing.T) {
	m, mock := newMockConn(t)

	cols := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("ID").OfType("BIGINT", nil),
		sqlmock.NewColumn("post_title").OfType("VARCHAR", nil),
	).
		AddRow([]byte("1"), []byte("Hello world!")).
		AddRow([]byte("2"), []byte("Sample Page"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `wp_posts`")).WillReturnRows(cols)

	r, err := m.TableRows(context.Background(), "wp_posts")
	if err != nil {
		t.Fatalf("TableRows returned error: %v", err)
	}
	defer r.Close()

	if got := r.Columns(); len(got) != 2 || got[0] != "ID" || got[1] != "post_title" {
		t.Errorf("Columns = %v", got)
	}
	if got := r.Types(); len(got) != 2 || got[0] != "BIGINT" || got[1] != "VARCHAR" {
		t.Errorf("Types = %v", got)
	}

	count := 0
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		if len(row) != 2 {
			t.Fatalf("row has %d values, want 2", len(row))
		}
		count++
	}
	if count != 2 {
		t.Errorf("streamed %d rows, want 2", count)
	}
}

func TestEnsureDatabase(t *testing.T) {
	m, mock := newMockConn(t)

	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS `wp`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("USE `wp`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := m.EnsureDatabase(context.Background(), "wp"); err != nil {
		t.Fatalf("EnsureDatabase returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCommitIssuesExplicitStatement(t *testing.T) {
	m, mock := newMockConn(t)

	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := m.Commit(context.Background()); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
