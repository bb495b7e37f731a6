// Package dbexec is the connection-management collaborator spec.md §1
// names as out of the core's scope: it registers the real SQL drivers,
// opens a pooled *sql.DB from environment configuration, and runs a
// compiler.Compiled statement. Never imported by compiler, dialect,
// sqlast, or mbql — the core stays a pure synchronous tree rewrite
// (spec.md §5); this package is purely a downstream consumer of its
// output.
//
// Grounded on joaosoft-db-mcp/mcp/connection.go and mcp/constant.go: same
// pool-sizing constants, same "ping, don't fail fast" startup behavior,
// same driver-name-to-blank-import wiring.
package dbexec

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/godror/godror"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/foucault-labs/mbqlsql/compiler"
)

// ErrNoConnection mirrors the teacher's requireConnection guard: callers
// that need a live database (run_query) must check for a nil *sql.DB
// before calling Run.
var ErrNoConnection = errors.NewKind("no database connection configured")

const (
	MaxOpenConns    = 25
	MaxIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute
	PingTimeout     = 5 * time.Second
)

type DriverType string

const (
	DriverSQLServer   DriverType = "sqlserver"
	DriverPostgresSQL DriverType = "postgres"
	DriverMySQL       DriverType = "mysql"
	DriverOracle      DriverType = "godror"
	DriverSQLite      DriverType = "sqlite3"
)

// OpenFromEnv mirrors the teacher's newDbConnection: DB_DRIVER defaults to
// sqlserver, a missing DB_CONNECTION_STRING returns a nil *sql.DB with no
// error (caller starts unconnected), and a failed open/ping logs a
// warning and returns nil rather than failing startup.
func OpenFromEnv(log *logrus.Logger) (*sql.DB, string, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = string(DriverSQLServer)
	}

	connString := os.Getenv("DB_CONNECTION_STRING")
	if connString == "" {
		return nil, driver, nil
	}

	return Open(driver, connString, log)
}

// Open pools connections to driver/connString, pinging with PingTimeout.
// A failed open or ping is logged (when log is non-nil) and returns a nil
// *sql.DB rather than an error, matching the teacher's "don't fail
// startup" behavior.
func Open(driver, connString string, log *logrus.Logger) (*sql.DB, string, error) {
	db, err := sql.Open(driver, connString)
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("could not open database connection")
		}
		return nil, driver, nil
	}

	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetConnMaxLifetime(ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		if log != nil {
			log.WithError(err).Warn("could not ping database")
		}
		db.Close()
		return nil, driver, nil
	}

	return db, driver, nil
}

// Run executes a compiled statement's SQL against db with its positional
// parameters.
func Run(ctx context.Context, db *sql.DB, stmt *compiler.Compiled) (*sql.Rows, error) {
	return db.QueryContext(ctx, stmt.SQL, stmt.Params...)
}
