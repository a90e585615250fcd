// Package store is the gateway to the metastore database the migration tool
// rewrites.
//
// The gateway knows four table shapes, each a location string column plus a
// numeric primary key (see MetastoreTables), and issues a fixed set of
// statements against them:
//
//   - CREATE TABLE, refusing to reuse a table that already exists
//   - DROP TABLE IF EXISTS
//   - parameterized INSERT, one transaction per bulk load
//   - SELECT ... ORDER BY id, and SELECT ... WHERE location LIKE ?
//
// # Connections
//
// Every operation acquires its own *sql.Conn and releases it before
// returning, on success and failure alike. Nothing is cached client-side, so
// a write made by the migration tool is visible to the next read.
//
// # Drivers
//
//   - sqlite3 (default): github.com/mattn/go-sqlite3, WAL mode, 5s busy timeout
//   - pgx: github.com/jackc/pgx/v5/stdlib
//   - postgres: github.com/lib/pq
//   - mysql: github.com/go-sql-driver/mysql
//
// Table and column names are validated against a strict identifier pattern
// before interpolation; values are always bound as parameters.
package store
