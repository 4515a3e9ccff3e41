package dbopen

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const maxRetries = 3

// IsBusy reports whether err indicates an SQLite BUSY condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// ExecRetry runs a single statement, retrying up to 3 times with
// 100/200/300 ms backoff while the database reports BUSY.
func ExecRetry(ctx context.Context, db *sql.DB, query string, args ...any) error {
	var err error
	for i := range maxRetries {
		_, err = db.ExecContext(ctx, query, args...)
		if err == nil || !IsBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
	}
	return err
}
