package database

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows signals an empty result where a row was expected, regardless
// of which driver produced it.
var ErrNoRows = errors.New("no rows in result set")

// IsNoRows matches the driver-specific empty-result errors as well as
// ErrNoRows itself, so repositories can branch without knowing the
// driver behind them.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}
