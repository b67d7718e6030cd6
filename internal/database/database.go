// Package database owns the single MySQL connection a backup or restore
// run works over, and the typed error classification the replay engine
// relies on.
package database

import "errors"

var (
	// ErrConnection marks connection-level faults. Fatal: the current
	// operation aborts immediately.
	ErrConnection = errors.New("database connection failed")

	// ErrIntrospection marks failures while reading table metadata. Fatal
	// for the run; dumping without a table's true definition is unsafe.
	ErrIntrospection = errors.New("schema introspection failed")
)
