package database

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the replay engine cares about. Classification
// is by driver error number, never by matching message text.
const (
	errBadTable      = 1051 // DROP TABLE on a table that does not exist
	errBadDB         = 1008 // DROP DATABASE on a database that does not exist
	errCantDropIndex = 1091 // DROP of a missing index/column/constraint
	errDBAccess      = 1044
	errAccessDenied  = 1045
	errUnknownDB     = 1049
)

// Classifier decides how statement execution errors affect a replay:
// benign idempotence cases are swallowed, fatal connection faults abort,
// everything else is counted and skipped.
type Classifier struct{}

func NewClassifier() Classifier { return Classifier{} }

// Benign reports errors that mean a precondition was already satisfied,
// such as dropping a table that was never created.
func (Classifier) Benign(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case errBadTable, errBadDB, errCantDropIndex:
		return true
	}
	return false
}

// Fatal reports connection-level faults: transport loss and authentication
// or schema-access failures that make every following statement pointless.
func (Classifier) Fatal(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDBAccess, errAccessDenied, errUnknownDB:
			return true
		}
	}
	return false
}
