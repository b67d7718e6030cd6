package dump

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"wpback/internal/logger"
)

// memSource serves a fixed set of tables from memory.
type memSource struct {
	tables []string
	defs   map[string]string
	cols   []string
	types  []string
	rows   map[string][][]any
}

func (s *memSource) ListTables(ctx context.Context) ([]string, error) {
	return s.tables, nil
}

func (s *memSource) CreateDefinition(ctx context.Context, table string) (string, error) {
	return s.defs[table], nil
}

func (s *memSource) TableRows(ctx context.Context, table string) (RowReader, error) {
	return &memRows{cols: s.cols, types: s.types, rows: s.rows[table]}, nil
}

type memRows struct {
	cols  []string
	types []string
	rows  [][]any
	pos   int
}

func (r *memRows) Columns() []string { return r.cols }
func (r *memRows) Types() []string   { return r.types }

func (r *memRows) Next() ([]any, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *memRows) Close() error { return nil }

func optionsSource(rowCount int) *memSource {
	rows := make([][]any, rowCount)
	for i := range rows {
		rows[i] = []any{
			[]byte(fmt.Sprint(i + 1)),
			[]byte(fmt.Sprintf("option_%d", i+1)),
			[]byte("a:1:{s:4:\"name\";s:5:\"value\";}"),
		}
	}
	return &memSource{
		tables: []string{"wp_options"},
		defs: map[string]string{
			"wp_options": "CREATE TABLE `wp_options` (\n  `option_id` bigint unsigned NOT NULL AUTO_INCREMENT,\n  `option_name` varchar(191) NOT NULL DEFAULT '',\n  `option_value` longtext NOT NULL,\n  PRIMARY KEY (`option_id`)\n)",
		},
		cols:  []string{"option_id", "option_name", "option_value"},
		types: []string{"UNSIGNED BIGINT", "VARCHAR", "LONGTEXT"},
		rows:  map[string][][]any{"wp_options": rows},
	}
}

func TestWriteScriptBatching(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, logger.Nop())

	if err := w.WriteScript(context.Background(), optionsSource(250), "wp", "localhost"); err != nil {
		t.Fatalf("WriteScript returned error: %v", err)
	}
	script := buf.String()

	inserts := strings.Count(script, "INSERT INTO `wp_options`")
	if inserts != 3 {
		t.Fatalf("got %d INSERT statements for 250 rows, want 3", inserts)
	}

	// The final batch carries the remaining 50 tuples. The statement ends
	// at ";\n\n" because serialized option values hold semicolons of their
	// own.
	last := script[strings.LastIndex(script, "INSERT INTO"):]
	last = last[:strings.Index(last, ";\n\n")]
	if tuples := strings.Count(last, "\n("); tuples != 50 {
		t.Errorf("last batch has %d tuples, want 50", tuples)
	}
}

func TestWriteScriptEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, logger.Nop())

	if err := w.WriteScript(context.Background(), optionsSource(0), "wp", "localhost"); err != nil {
		t.Fatalf("WriteScript returned error: %v", err)
	}
	script := buf.String()

	if strings.Contains(script, "INSERT INTO") {
		t.Error("empty table produced an INSERT statement")
	}
	if !strings.Contains(script, "DROP TABLE IF EXISTS `wp_options`;") {
		t.Error("missing DROP TABLE for empty table")
	}
	if !strings.Contains(script, "CREATE TABLE `wp_options`") {
		t.Error("missing CREATE TABLE for empty table")
	}
}

func TestWriteScriptLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, logger.Nop())

	if err := w.WriteScript(context.Background(), optionsSource(1), "wp", "db.example.com"); err != nil {
		t.Fatalf("WriteScript returned error: %v", err)
	}
	script := buf.String()

	wantHeader := "-- WordPress Database Backup\n-- Database: wp\n-- Host: db.example.com\n\n"
	if !strings.HasPrefix(script, wantHeader) {
		t.Errorf("script header mismatch:\n%s", script[:len(wantHeader)])
	}

	disable := strings.Index(script, "SET FOREIGN_KEY_CHECKS=0;")
	firstDrop := strings.Index(script, "DROP TABLE")
	enable := strings.Index(script, "SET FOREIGN_KEY_CHECKS=1;")
	if disable < 0 || firstDrop < 0 || enable < 0 {
		t.Fatalf("missing pragma or DROP in script:\n%s", script)
	}
	if !(disable < firstDrop && firstDrop < enable) {
		t.Error("foreign key pragmas do not bracket the table statements")
	}
	if !strings.Contains(script, "SET SQL_MODE='NO_AUTO_VALUE_ON_ZERO';") {
		t.Error("missing SQL_MODE pragma")
	}
}

// A small wp_options table with an apostrophe in the blog name and a NULL
// value, checked through the whole write, split, decode path.
func TestWriteScriptOptionsTable(t *testing.T) {
	src := optionsSource(0)
	src.rows["wp_options"] = [][]any{
		{[]byte("1"), []byte("siteurl"), []byte("http://localhost")},
		{[]byte("2"), []byte("blogdescription"), nil},
		{[]byte("3"), []byte("blogname"), []byte("O'Brien's Blog")},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, logger.Nop())
	if err := w.WriteScript(context.Background(), src, "wp", "localhost"); err != nil {
		t.Fatalf("WriteScript returned error: %v", err)
	}

	stmts, err := Split(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	var insert string
	for _, s := range stmts {
		if strings.HasPrefix(s, "INSERT INTO `wp_options`") {
			insert = s
			break
		}
	}
	if insert == "" {
		t.Fatalf("no INSERT statement survived the split: %q", stmts)
	}

	if !strings.Contains(insert, "(2, 'blogdescription', NULL)") {
		t.Errorf("NULL tuple mangled:\n%s", insert)
	}
	blogname := `'O\'Brien\'s Blog'`
	if !strings.Contains(insert, "(3, 'blogname', "+blogname+")") {
		t.Errorf("blogname tuple mangled:\n%s", insert)
	}

	got, err := DecodeLiteral(blogname)
	if err != nil {
		t.Fatalf("DecodeLiteral returned error: %v", err)
	}
	if got.Kind != Text || got.Str != "O'Brien's Blog" {
		t.Errorf("decoded blogname = %+v, want the apostrophes back", got)
	}
}

func TestWriteScriptSurvivesSplit(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, logger.Nop())

	if err := w.WriteScript(context.Background(), optionsSource(101), "wp", "localhost"); err != nil {
		t.Fatalf("WriteScript returned error: %v", err)
	}

	stmts, err := Split(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	// 2 leading pragmas + DROP + CREATE + 2 INSERT batches + trailing pragma.
	if len(stmts) != 7 {
		t.Fatalf("got %d statements, want 7: %q", len(stmts), stmts)
	}
	if stmts[0] != "SET FOREIGN_KEY_CHECKS=0;" {
		t.Errorf("first statement = %q", stmts[0])
	}
	if stmts[len(stmts)-1] != "SET FOREIGN_KEY_CHECKS=1;" {
		t.Errorf("last statement = %q", stmts[len(stmts)-1])
	}
}
