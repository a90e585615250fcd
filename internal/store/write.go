package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTable creates the table described by desc. It never reuses an
// existing table: if one is present the call fails with ErrTableExists and
// nothing is modified.
func (g *Gateway) CreateTable(ctx context.Context, desc TableDescriptor) error {
	if err := desc.validate(); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return g.withConn(ctx, func(conn *sql.Conn) error {
		exists, err := g.tableExists(ctx, conn, desc.Name)
		if err != nil {
			return fmt.Errorf("create table %s: %w", desc.Name, err)
		}
		if exists {
			return fmt.Errorf("create table %s: %w", desc.Name, ErrTableExists)
		}

		query := fmt.Sprintf("CREATE TABLE %s (%s %s, %s %s)",
			desc.Name, desc.LocationColumn, LocationColumnType, desc.IDColumn, IDColumnType)
		if _, err := conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table %s: %w", desc.Name, mapError(err))
		}
		return nil
	})
}

// DropTableIfExists drops the named table. Dropping an absent table is a
// no-op.
func (g *Gateway) DropTableIfExists(ctx context.Context, name string) error {
	if err := validateIdentifier(name); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	return g.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
		return nil
	})
}

// BulkInsert writes uris into desc with ids 1..N in slice order. The insert
// runs in a single transaction.
func (g *Gateway) BulkInsert(ctx context.Context, desc TableDescriptor, uris []string) error {
	if err := desc.validate(); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}

	query := g.dialect.rebind(fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		desc.Name, desc.IDColumn, desc.LocationColumn))

	return g.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("bulk insert %s: begin: %w", desc.Name, err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("bulk insert %s: prepare: %w", desc.Name, err)
		}
		defer stmt.Close()

		for i, uri := range uris {
			if _, err := stmt.ExecContext(ctx, int64(i+1), uri); err != nil {
				return fmt.Errorf("bulk insert %s: row %d: %w", desc.Name, i+1, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("bulk insert %s: commit: %w", desc.Name, err)
		}
		return nil
	})
}
