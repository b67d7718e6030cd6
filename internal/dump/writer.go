package dump

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"wpback/internal/logger"
)

// BatchSize is the fixed number of row tuples per multi-row INSERT. A table
// with R rows always produces exactly ceil(R/BatchSize) INSERT statements.
const BatchSize = 100

// Source is the live-database capability the writer dumps from.
type Source interface {
	// ListTables returns table names in server-reported order. The order is
	// not stable across runs and carries no FK-safe guarantee; the script
	// disables foreign key checks for the whole load because of that.
	ListTables(ctx context.Context) ([]string, error)

	// CreateDefinition returns the verbatim CREATE TABLE statement as the
	// server reports it. It is treated as an opaque blob.
	CreateDefinition(ctx context.Context, table string) (string, error)

	// TableRows opens a streaming read over every row of the table.
	TableRows(ctx context.Context, table string) (RowReader, error)
}

// RowReader streams one table's rows. Columns and Types are positionally
// aligned with the values returned by Next.
type RowReader interface {
	Columns() []string
	Types() []string
	Next() ([]any, error) // io.EOF after the last row
	Close() error
}

// Writer streams a complete dump script. Rows are written as they arrive;
// peak memory is bounded by one batch, not one table.
type Writer struct {
	w   *bufio.Writer
	log logger.Logger
}

func NewWriter(w io.Writer, log logger.Logger) *Writer {
	return &Writer{w: bufio.NewWriter(w), log: log}
}

// WriteScript dumps every table of src as one self-contained script:
// header comments, a pragma disabling foreign key checks (mandatory, since
// table order is arbitrary), per-table DROP + CREATE + batched INSERTs, and
// the re-enabling pragma. Re-applying the script is idempotent because each
// table is dropped before it is recreated.
func (d *Writer) WriteScript(ctx context.Context, src Source, dbName, host string) error {
	fmt.Fprintf(d.w, "-- WordPress Database Backup\n")
	fmt.Fprintf(d.w, "-- Database: %s\n", dbName)
	fmt.Fprintf(d.w, "-- Host: %s\n\n", host)
	fmt.Fprintf(d.w, "SET FOREIGN_KEY_CHECKS=0;\n")
	fmt.Fprintf(d.w, "SET SQL_MODE='NO_AUTO_VALUE_ON_ZERO';\n\n")

	tables, err := src.ListTables(ctx)
	if err != nil {
		return err
	}
	d.log.Info("dumping tables", "count", len(tables), "database", dbName)

	for _, table := range tables {
		if err := d.writeTable(ctx, src, table); err != nil {
			return fmt.Errorf("dump table %q: %w", table, err)
		}
	}

	fmt.Fprintf(d.w, "SET FOREIGN_KEY_CHECKS=1;\n")
	return d.w.Flush()
}

func (d *Writer) writeTable(ctx context.Context, src Source, table string) error {
	def, err := src.CreateDefinition(ctx, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.w, "-- Table: %s\n", table)
	fmt.Fprintf(d.w, "DROP TABLE IF EXISTS `%s`;\n", table)
	fmt.Fprintf(d.w, "%s;\n\n", def)

	rows, err := src.TableRows(ctx, table)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols := rows.Columns()
	types := rows.Types()

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "`" + c + "`"
	}
	colList := strings.Join(quoted, ", ")

	batch := make([]string, 0, BatchSize)
	rowCount := 0
	for {
		raw, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		tuple, err := encodeTuple(raw, cols, types)
		if err != nil {
			return err
		}
		batch = append(batch, tuple)
		rowCount++

		if len(batch) == BatchSize {
			d.writeBatch(table, colList, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		d.writeBatch(table, colList, batch)
	}

	d.log.Debug("table dumped", "table", table, "rows", rowCount)
	fmt.Fprintf(d.w, "\n")
	return d.w.Flush()
}

func encodeTuple(raw []any, cols, types []string) (string, error) {
	lits := make([]string, len(raw))
	for i, rv := range raw {
		v, err := Classify(rv, types[i])
		if err != nil {
			return "", fmt.Errorf("column %q: %w", cols[i], err)
		}
		lits[i] = v.Encode()
	}
	return "(" + strings.Join(lits, ", ") + ")", nil
}

func (d *Writer) writeBatch(table, colList string, tuples []string) {
	fmt.Fprintf(d.w, "INSERT INTO `%s` (%s) VALUES\n", table, colList)
	d.w.WriteString(strings.Join(tuples, ",\n"))
	d.w.WriteString(";\n")
}
