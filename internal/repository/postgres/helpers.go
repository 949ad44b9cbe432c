package postgres

import (
	"database/sql"
	"strconv"
	"time"

	"courier/internal/repository"
)

// nullString converts an empty string to a NULL parameter.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime converts a zero time to a NULL parameter.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// requireRow returns ErrNotFound when an exec matched no rows.
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
