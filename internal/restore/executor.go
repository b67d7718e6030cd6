// Package restore replays dump scripts against a target database.
package restore

import (
	"context"
	"fmt"

	"wpback/internal/database"
	"wpback/internal/logger"
)

// Conn is the execution capability the replay needs: one statement at a
// time on a single session, plus the closing commit.
type Conn interface {
	Exec(ctx context.Context, stmt string) error
	Commit(ctx context.Context) error
}

// Classifier separates benign idempotence errors (swallowed), fatal
// connection faults (abort), and genuine statement failures (counted,
// replay continues).
type Classifier interface {
	Benign(err error) bool
	Fatal(err error) bool
}

// Result summarizes one replay.
type Result struct {
	Executed int
	Failed   int
}

// maxLoggedFailures caps per-statement warning noise on badly damaged
// dumps; the counters still cover every statement.
const maxLoggedFailures = 5

// Replay executes statements strictly in order on conn.
//
// This is a best-effort, non-atomic load: a single COMMIT is issued after
// the sequence finishes, even when some statements failed along the way, so
// whatever succeeded stays committed. A fatal connection fault aborts the
// remaining statements and is returned after a best-effort commit of the
// work already done. Callers needing all-or-nothing semantics must not use
// this.
func Replay(ctx context.Context, conn Conn, stmts []string, cls Classifier, log logger.Logger) (Result, error) {
	var res Result

	for i, stmt := range stmts {
		err := conn.Exec(ctx, stmt)
		if err == nil {
			res.Executed++
			continue
		}

		if cls.Fatal(err) {
			conn.Commit(ctx)
			return res, fmt.Errorf("%w: replay aborted at statement %d of %d: %w",
				database.ErrConnection, i+1, len(stmts), err)
		}
		if cls.Benign(err) {
			log.Debug("benign statement error skipped", "statement", i+1, "error", err.Error())
			continue
		}

		res.Failed++
		if res.Failed <= maxLoggedFailures {
			log.Warn("statement failed", "statement", i+1, "error", err.Error())
		}
	}

	if err := conn.Commit(ctx); err != nil {
		return res, err
	}
	return res, nil
}
