// Package db opens the GORM connection selected by DATABASE_URI and runs
// schema migrations: a two-driver dispatch (sqlite vs postgres) keyed off
// a configured DSN, using rubenv/sql-migrate over an embed.FS of SQL files.
package db

import (
	"embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/glebarez/sqlite"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/sqlite3
var sqliteMigrations embed.FS

//go:embed migrations/postgres
var postgresMigrations embed.FS

// Dialect names the backing SQL engine selected from DATABASE_URI.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Open parses uri (a DATABASE_URI of scheme sqlite:// or postgresql://),
// opens the corresponding GORM connection, and runs pending migrations.
// sqlLogging enables GORM's verbose statement logger (SQL_LOGGING).
func Open(uri string, sqlLogging bool) (*gorm.DB, error) {
	dialect, dsn, err := parse(uri)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	var migrationFS embed.FS
	var root string
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
		migrationFS = sqliteMigrations
		root = "migrations/sqlite3"
	case DialectPostgres:
		dialector = postgres.Open(dsn)
		migrationFS = postgresMigrations
		root = "migrations/postgres"
	default:
		return nil, fmt.Errorf("db: unsupported dialect %q", dialect)
	}

	cfg := &gorm.Config{}
	if sqlLogging {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: failed to open %s database: %w", dialect, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: failed to extract raw SQL DB from GORM: %w", err)
	}

	src := migrate.EmbedFileSystemMigrationSource{FileSystem: migrationFS, Root: root}
	if _, err := migrate.Exec(sqlDB, string(dialect), src, migrate.Up); err != nil {
		return nil, fmt.Errorf("db: failed to run migrations: %w", err)
	}

	return conn, nil
}

// parse maps a DATABASE_URI to a (dialect, dsn) pair the matching GORM
// driver understands. sqlite:// carries a filesystem path; postgresql://
// is passed through as a standard libpq URL.
func parse(uri string) (Dialect, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("db: invalid DATABASE_URI: %w", err)
	}

	switch u.Scheme {
	case "sqlite":
		path := strings.TrimPrefix(uri, "sqlite://")
		return DialectSQLite, path, nil
	case "postgresql":
		return DialectPostgres, uri, nil
	default:
		return "", "", fmt.Errorf("db: unsupported DATABASE_URI scheme %q", u.Scheme)
	}
}
