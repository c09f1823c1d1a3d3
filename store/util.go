package store

import (
	"database/sql"
	"strings"
)

func isAffected(res sql.Result) bool {
	rows, err := res.RowsAffected()
	if err != nil {
		return true
	}
	return rows != 0
}

func getAffected(res sql.Result) int64 {
	ret, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return ret
}

// isBusy reports whether err is SQLite reporting that the write lock is
// held by another writer past busy_timeout (SQLITE_BUSY/SQLITE_LOCKED).
// Pop treats this as the internal "try again" case of spec.md §4.4 step 1.
//
// modernc.org/sqlite surfaces these as driver errors whose message embeds
// the SQLite symbolic name; matching on that text is the documented way to
// distinguish them without reaching into the driver's internal error type.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}
