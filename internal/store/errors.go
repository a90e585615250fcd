package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrTableExists is returned by CreateTable when the table is already
	// present. Callers must not reuse such a table.
	ErrTableExists = errors.New("table already exists")

	// ErrInvalidIdentifier is returned when a table or column name would
	// have to be interpolated unsafely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

const (
	pgDuplicateTable    = "42P07"
	mysqlTableExistsErr = 1050
)

// mapError translates driver-specific "table exists" failures so callers
// can rely on errors.Is(err, ErrTableExists) whatever the driver.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgDuplicateTable {
		return errors.Join(ErrTableExists, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgDuplicateTable {
		return errors.Join(ErrTableExists, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlTableExistsErr {
		return errors.Join(ErrTableExists, err)
	}

	return err
}
