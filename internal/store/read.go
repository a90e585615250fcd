package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/urioracle/internal/migspec"
)

// Row is one URI table entry.
type Row struct {
	URI string
	ID  int64
}

// TableExists reports whether a table with the given name exists, ignoring
// case.
func (g *Gateway) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := g.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		exists, err = g.tableExists(ctx, conn, name)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return exists, nil
}

func (g *Gateway) tableExists(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var n int
	if err := conn.QueryRowContext(ctx, g.dialect.rebind(g.dialect.tableExists), name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// QueryAll returns every location in desc ordered by id.
func (g *Gateway) QueryAll(ctx context.Context, desc TableDescriptor) ([]string, error) {
	if err := desc.validate(); err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC", desc.LocationColumn, desc.Name, desc.IDColumn)

	var uris []string
	err := g.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var uri string
			if err := rows.Scan(&uri); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			uris = append(uris, uri)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query all %s: %w", desc.Name, err)
	}

	// Return empty slice instead of nil
	if uris == nil {
		uris = []string{}
	}
	return uris, nil
}

// QueryMatchingWithID returns the rows whose location is LIKE pattern. The
// wildcard marker "*" in pattern is translated to "%".
func (g *Gateway) QueryMatchingWithID(ctx context.Context, desc TableDescriptor, pattern string) ([]Row, error) {
	if err := desc.validate(); err != nil {
		return nil, fmt.Errorf("query matching: %w", err)
	}

	query := g.dialect.rebind(fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s LIKE ? ORDER BY %s ASC",
		desc.LocationColumn, desc.IDColumn, desc.Name, desc.LocationColumn, desc.IDColumn))
	like := strings.ReplaceAll(pattern, migspec.Wildcard, "%")

	var out []Row
	err := g.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, like)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r Row
			if err := rows.Scan(&r.URI, &r.ID); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query matching %s: %w", desc.Name, err)
	}

	if out == nil {
		out = []Row{}
	}
	return out, nil
}
