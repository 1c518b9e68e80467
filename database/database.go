package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Dialect selects the SQL flavor of the vehicle store
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

var (
	DB            *sql.DB
	ActiveDialect Dialect
)

// ParseDialect maps a DB_DRIVER value to a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's form
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var builder strings.Builder
	builder.Grow(len(query) + 8)
	position := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			position++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(position))
			continue
		}
		builder.WriteByte(query[i])
	}
	return builder.String()
}

// ConnectWithConfig opens, configures and pings the pool, then publishes it as DB
func ConnectWithConfig(dbURL string, config *shared.DatabaseConfig) error {
	db, dialect, err := Open(dbURL, config)
	if err != nil {
		return err
	}

	DB = db
	ActiveDialect = dialect
	return nil
}

// Open returns a pinged pool for the configured driver without touching the package globals
func Open(dbURL string, config *shared.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(config.Driver)
	if err != nil {
		return nil, "", err
	}

	dsn := dbURL
	if dialect == DialectMySQL {
		dsn, err = normalizeMySQLDSN(dbURL)
		if err != nil {
			return nil, "", fmt.Errorf("invalid MySQL DSN: %w", err)
		}
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"driver":             dialect,
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database successfully")

	return db, dialect, nil
}

// normalizeMySQLDSN accepts a go-sql-driver DSN, optionally prefixed with mysql://,
// and forces time parsing so TIMESTAMP columns scan into time.Time.
func normalizeMySQLDSN(raw string) (string, error) {
	raw = strings.TrimPrefix(raw, "mysql://")
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logrus.Info("Database connection closed")
	}
}

// HealthCheck pings the pool and logs its statistics
func HealthCheck(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := DB.Stats()
	logrus.WithFields(logrus.Fields{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}).Debug("Database connection pool health check")

	return nil
}

// Migrate executes every statement of the schema file, continuing past statements that fail
// because the object already exists.
func Migrate(schemaPath string) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}
	return MigrateDB(DB, schemaPath)
}

// MigrateDB runs a schema file against db
func MigrateDB(db *sql.DB, schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	failed := 0
	for _, stmt := range parseSQLStatements(string(content)) {
		if _, err := db.Exec(stmt); err != nil {
			failed++
			logrus.Warnf("Migration statement failed (continuing): %v", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"schema":            schemaPath,
		"failed_statements": failed,
	}).Info("Database migration completed")
	return nil
}

// SchemaPath returns the schema file for a dialect
func SchemaPath(dialect Dialect) string {
	if dialect == DialectMySQL {
		return "database/schema_mysql.sql"
	}
	return "database/schema_postgres.sql"
}

// parseSQLStatements splits a schema file into statements, skipping comment lines
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSpace(strings.TrimSuffix(currentStatement.String(), ";"))
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	if currentStatement.Len() > 0 {
		stmt := strings.TrimSpace(currentStatement.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}
