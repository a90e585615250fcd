package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names. Each is the database/sql driver registered by the
// corresponding import.
const (
	DriverSQLite   = "sqlite3"  // github.com/mattn/go-sqlite3
	DriverPgx      = "pgx"      // github.com/jackc/pgx/v5/stdlib
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverMySQL    = "mysql"    // github.com/go-sql-driver/mysql
)

// Config describes how to reach the metastore database.
//
// For sqlite3, Database is the file path and the other connection fields are
// ignored. For the network drivers, Server is "host" or "host:port". DSN,
// when set, is passed to the driver unchanged.
type Config struct {
	Driver   string
	Server   string
	Database string
	User     string
	Password string
	DSN      string

	// Params are appended to generated DSNs, e.g. {"sslmode": "disable"}.
	Params map[string]string
}

// Gateway is the oracle's only path to the metastore database. It issues a
// fixed set of statement shapes against the known URI tables, and every call
// holds its own connection for exactly its duration.
type Gateway struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database described by cfg and verifies the
// connection. An empty driver selects sqlite3.
func Open(cfg Config) (*Gateway, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn, err = d.dsn(cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s dsn: %w", d.driver, err)
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.driver == DriverSQLite {
		// SQLite only supports one writer at a time, so limit connections.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return &Gateway{db: db, dialect: d}, nil
}

// Close closes the underlying pool.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Driver returns the database/sql driver name in use.
func (g *Gateway) Driver() string {
	return g.dialect.driver
}

// withConn runs fn on a connection acquired for this call only.
func (g *Gateway) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

type dialect struct {
	driver string

	// tableExists takes one parameter, the table name.
	tableExists string

	// positional reports whether placeholders are $1, $2, ... rather than ?.
	positional bool

	dsn func(Config) (string, error)
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver:      DriverSQLite,
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND LOWER(name) = LOWER(?)`,
		dsn:         sqliteDSN,
	},
	DriverPgx: {
		driver:      DriverPgx,
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND LOWER(table_name) = LOWER(?)`,
		positional:  true,
		dsn:         postgresDSN,
	},
	DriverPostgres: {
		driver:      DriverPostgres,
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND LOWER(table_name) = LOWER(?)`,
		positional:  true,
		dsn:         postgresDSN,
	},
	DriverMySQL: {
		driver:      DriverMySQL,
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND LOWER(table_name) = LOWER(?)`,
		dsn:         mysqlDSN,
	},
}

func lookupDialect(driver string) (dialect, error) {
	switch driver {
	case "", "sqlite":
		driver = DriverSQLite
	case "postgresql":
		driver = DriverPgx
	}
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q: must be one of %s, %s, %s, %s",
			driver, DriverSQLite, DriverPgx, DriverPostgres, DriverMySQL)
	}
	return d, nil
}

// Drivers returns the accepted driver names.
func Drivers() []string {
	return []string{DriverSQLite, DriverPgx, DriverPostgres, DriverMySQL}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqliteDSN(cfg Config) (string, error) {
	if cfg.Database == "" {
		return "", fmt.Errorf("database file path is required")
	}
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	for k, v := range cfg.Params {
		params.Set(k, v)
	}
	return "file:" + cfg.Database + "?" + params.Encode(), nil
}

func postgresDSN(cfg Config) (string, error) {
	if cfg.Server == "" || cfg.Database == "" {
		return "", fmt.Errorf("server and database are required")
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Server,
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mysqlDSN(cfg Config) (string, error) {
	if cfg.Server == "" || cfg.Database == "" {
		return "", fmt.Errorf("server and database are required")
	}
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = cfg.Server
	if _, _, err := net.SplitHostPort(cfg.Server); err != nil {
		mc.Addr = net.JoinHostPort(cfg.Server, "3306")
	}
	mc.DBName = cfg.Database
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN(), nil
}
