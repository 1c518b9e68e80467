package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationResult contains the findings for one table
type ValidationResult struct {
	TableName       string
	IsValid         bool
	MissingColumns  []string
	MissingIndexes  []string
	Recommendations []string
}

// SchemaCompatibilityReport contains schema validation results for the locator tables
type SchemaCompatibilityReport struct {
	ValidationResults []ValidationResult
	OverallValid      bool
	TotalIssues       int
	CriticalIssues    int
	Recommendations   []string
}

// SchemaValidator checks that the sellers and vehicles tables carry what the search and sync need
type SchemaValidator struct {
	db      *sql.DB
	dialect Dialect
	logger  *logrus.Entry
}

var requiredTables = map[string][]string{
	"sellers": {
		"id", "account_number", "name", "type", "phone", "email", "city", "state", "zip",
		"latitude", "longitude", "updated_at",
	},
	"vehicles": {
		"id", "year", "make", "model", "trim", "body_style", "fuel_type", "transmission", "drivetrain",
		"exterior_color_generic", "price", "mileage", "condition", "certified", "seller_type",
		"seller_account_number", "seller_latitude", "seller_longitude", "seller_name", "seller_city",
		"seller_state", "seller_phone",
	},
}

var requiredIndexes = map[string]string{
	"idx_vehicles_seller_coordinates": "vehicles",
	"idx_vehicles_seller_account":     "vehicles",
}

// NewSchemaValidator creates a new schema validator instance
func NewSchemaValidator(db *sql.DB, dialect Dialect) *SchemaValidator {
	return &SchemaValidator{
		db:      db,
		dialect: dialect,
		logger:  logrus.WithFields(logrus.Fields{"component": "SchemaValidator", "driver": dialect}),
	}
}

// ValidateSchemaCompatibility inspects the catalog for missing tables, columns and indexes
func (v *SchemaValidator) ValidateSchemaCompatibility(ctx context.Context) (*SchemaCompatibilityReport, error) {
	report := &SchemaCompatibilityReport{OverallValid: true}

	tables := make([]string, 0, len(requiredTables))
	for table := range requiredTables {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		result, err := v.validateTable(ctx, table, requiredTables[table])
		if err != nil {
			return nil, fmt.Errorf("failed to validate %s table structure: %w", table, err)
		}
		report.ValidationResults = append(report.ValidationResults, *result)
	}

	indexResult, err := v.validateIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to validate indexes: %w", err)
	}
	report.ValidationResults = append(report.ValidationResults, *indexResult)

	for _, result := range report.ValidationResults {
		if !result.IsValid {
			report.OverallValid = false
			report.TotalIssues += len(result.MissingColumns) + len(result.MissingIndexes)
			report.CriticalIssues += len(result.MissingColumns)
		}
		report.Recommendations = append(report.Recommendations, result.Recommendations...)
	}

	v.logger.WithFields(logrus.Fields{
		"overall_valid":   report.OverallValid,
		"total_issues":    report.TotalIssues,
		"critical_issues": report.CriticalIssues,
	}).Info("Completed schema compatibility validation")

	return report, nil
}

func (v *SchemaValidator) validateTable(ctx context.Context, table string, columns []string) (*ValidationResult, error) {
	result := &ValidationResult{TableName: table, IsValid: true}

	existing, err := v.getTableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		result.IsValid = false
		result.MissingColumns = append(result.MissingColumns, "entire table missing")
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("Create %s table from %s", table, SchemaPath(v.dialect)))
		return result, nil
	}

	for _, column := range columns {
		if !existing[column] {
			result.IsValid = false
			result.MissingColumns = append(result.MissingColumns, column)
		}
	}
	if len(result.MissingColumns) > 0 {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("Add missing %s columns: %s", table, strings.Join(result.MissingColumns, ", ")))
	}

	return result, nil
}

func (v *SchemaValidator) validateIndexes(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{TableName: "database_indexes", IsValid: true}

	names := make([]string, 0, len(requiredIndexes))
	for name := range requiredIndexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		exists, err := v.indexExists(ctx, requiredIndexes[name], name)
		if err != nil {
			return nil, err
		}
		if !exists {
			result.IsValid = false
			result.MissingIndexes = append(result.MissingIndexes, name)
		}
	}
	if len(result.MissingIndexes) > 0 {
		result.Recommendations = append(result.Recommendations, "Create missing indexes so bounding-box queries and coordinate sync stay index-backed")
	}

	return result, nil
}

func (v *SchemaValidator) getTableColumns(ctx context.Context, table string) (map[string]bool, error) {
	query := `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?`
	if v.dialect == DialectMySQL {
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?`
	}

	rows, err := v.db.QueryContext(ctx, v.dialect.Rebind(query), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns[strings.ToLower(name)] = true
	}
	return columns, rows.Err()
}

func (v *SchemaValidator) indexExists(ctx context.Context, table, index string) (bool, error) {
	query := `SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?`
	if v.dialect == DialectMySQL {
		query = `SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`
	}

	var count int
	if err := v.db.QueryRowContext(ctx, v.dialect.Rebind(query), table, index).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateSchemaReport renders the report for debug logs
func (v *SchemaValidator) GenerateSchemaReport(report *SchemaCompatibilityReport) string {
	var builder strings.Builder

	builder.WriteString("=== Schema Compatibility Report ===\n")
	builder.WriteString(fmt.Sprintf("Overall valid: %t\n", report.OverallValid))
	builder.WriteString(fmt.Sprintf("Total issues: %d (critical: %d)\n", report.TotalIssues, report.CriticalIssues))

	for _, result := range report.ValidationResults {
		builder.WriteString(fmt.Sprintf("\n[%s] valid=%t\n", result.TableName, result.IsValid))
		for _, column := range result.MissingColumns {
			builder.WriteString("  missing column: " + column + "\n")
		}
		for _, index := range result.MissingIndexes {
			builder.WriteString("  missing index: " + index + "\n")
		}
	}

	if len(report.Recommendations) > 0 {
		builder.WriteString("\nRecommendations:\n")
		for _, recommendation := range report.Recommendations {
			builder.WriteString("  - " + recommendation + "\n")
		}
	}

	return builder.String()
}

// ValidateSchema runs the validator against the connected pool and logs the outcome
func ValidateSchema(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	validator := NewSchemaValidator(DB, ActiveDialect)
	report, err := validator.ValidateSchemaCompatibility(ctx)
	if err != nil {
		return err
	}

	if !report.OverallValid {
		logrus.WithFields(logrus.Fields{
			"total_issues":    report.TotalIssues,
			"critical_issues": report.CriticalIssues,
		}).Warn("Schema validation found issues")
		logrus.Debug("Schema validation report:\n" + validator.GenerateSchemaReport(report))
	}

	return nil
}
