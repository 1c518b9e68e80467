package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/vehicle-locator/geo"
	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

const sqlVehicleStoreName = "SQLVehicleStore"

// VehicleStore is the read side used by listings and the radius search
type VehicleStore interface {
	// FindInBoundingBox returns synced vehicles inside box that satisfy filters, in no particular order
	FindInBoundingBox(ctx context.Context, box geo.BoundingBox, filters models.VehicleFilters) ([]models.Vehicle, error)
	// ListVehicles returns one page of vehicles ordered by id descending
	ListVehicles(ctx context.Context, query models.ListQuery) (models.ListResult, error)
}

// SellerSyncStore copies seller location data onto their vehicles
type SellerSyncStore interface {
	// SyncSellerCoordinates updates every vehicle whose denormalized seller data differs from its
	// seller, for one account or for all when accountNumber is empty, and returns the rows changed.
	SyncSellerCoordinates(ctx context.Context, accountNumber string) (int64, error)
}

// SQLVehicleStore implements the stores on Postgres or MySQL
type SQLVehicleStore struct {
	db      *sql.DB
	dialect Dialect
	metrics *shared.DatabaseMetrics
	logger  *logrus.Entry
}

// NewSQLVehicleStore creates a store over an open pool. Queries slower than slowThreshold are logged.
func NewSQLVehicleStore(db *sql.DB, dialect Dialect, slowThreshold time.Duration) *SQLVehicleStore {
	return &SQLVehicleStore{
		db:      db,
		dialect: dialect,
		metrics: shared.NewDatabaseMetrics(slowThreshold),
		logger:  logrus.WithFields(logrus.Fields{"component": sqlVehicleStoreName, "driver": dialect}),
	}
}

// Metrics exposes query counters
func (s *SQLVehicleStore) Metrics() *shared.DatabaseMetrics {
	return s.metrics
}

func (s *SQLVehicleStore) quote(identifier string) string {
	if s.dialect == DialectMySQL {
		return "`" + identifier + "`"
	}
	return `"` + identifier + `"`
}

func (s *SQLVehicleStore) vehicleColumns(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	columns := []string{
		"id", "year", "make", "model", s.quote("trim"), "body_style", "fuel_type", "transmission",
		"drivetrain", "exterior_color_generic", "price", "mileage", s.quote("condition"), "certified",
		"seller_type", "seller_account_number", "seller_latitude", "seller_longitude",
		"seller_name", "seller_city", "seller_state", "seller_phone",
	}
	for i, column := range columns {
		columns[i] = prefix + column
	}
	return strings.Join(columns, ", ")
}

// filterClauses renders filters as AND-able predicates with ? placeholders
func (s *SQLVehicleStore) filterClauses(filters models.VehicleFilters) ([]string, []interface{}) {
	if filters.IsEmpty() {
		return nil, nil
	}

	var clauses []string
	var args []interface{}

	addIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, value := range values {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(strings.TrimSpace(value)))
		}
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) IN (%s)", column, strings.Join(placeholders, ", ")))
	}

	addIn("make", filters.Makes)
	addIn("model", filters.Models)
	addIn(s.quote("condition"), filters.Conditions)
	addIn("body_style", filters.BodyStyles)
	addIn("fuel_type", filters.FuelTypes)
	addIn("transmission", filters.Transmissions)
	addIn("drivetrain", filters.Drivetrains)
	addIn("seller_type", filters.SellerTypes)

	if filters.Year != nil {
		clauses = append(clauses, "year = ?")
		args = append(args, *filters.Year)
	}
	if filters.MinPrice != nil {
		clauses = append(clauses, "price >= ?")
		args = append(args, *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		clauses = append(clauses, "price <= ?")
		args = append(args, *filters.MaxPrice)
	}
	if filters.MaxMileage != nil {
		clauses = append(clauses, "mileage <= ?")
		args = append(args, *filters.MaxMileage)
	}
	if filters.Certified != nil {
		clauses = append(clauses, "certified = ?")
		args = append(args, *filters.Certified)
	}

	return clauses, args
}

func (s *SQLVehicleStore) observe(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	shared.ObserveDBQuery(operation, elapsed, err == nil)
	if slow := s.metrics.RecordQuery(err == nil, elapsed); slow {
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"duration":  elapsed,
		}).Warn("Slow database query")
	}
}

func (s *SQLVehicleStore) databaseError(operation, message string, err error) error {
	serviceErr := shared.FromSentinel(shared.ErrDatabase, message, sqlVehicleStoreName, operation, err)
	serviceErr.LogError()
	return serviceErr
}

// FindInBoundingBox runs the index-friendly stage of the radius search
func (s *SQLVehicleStore) FindInBoundingBox(ctx context.Context, box geo.BoundingBox, filters models.VehicleFilters) ([]models.Vehicle, error) {
	clauses := []string{
		"seller_latitude IS NOT NULL",
		"seller_longitude IS NOT NULL",
		"seller_latitude BETWEEN ? AND ?",
		"seller_longitude BETWEEN ? AND ?",
	}
	args := []interface{}{box.MinLat, box.MaxLat, box.MinLng, box.MaxLng}

	filterClauses, filterArgs := s.filterClauses(filters)
	clauses = append(clauses, filterClauses...)
	args = append(args, filterArgs...)

	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE %s", s.vehicleColumns(""), strings.Join(clauses, " AND "))

	start := time.Now()
	vehicles, err := s.queryVehicles(ctx, s.dialect.Rebind(query), args...)
	s.observe("find_in_bounding_box", start, err)
	if err != nil {
		return nil, s.databaseError("FindInBoundingBox", "failed to query vehicles in bounding box", err)
	}

	return vehicles, nil
}

// ListVehicles returns one page of the plain listing
func (s *SQLVehicleStore) ListVehicles(ctx context.Context, q models.ListQuery) (models.ListResult, error) {
	where := ""
	clauses, args := s.filterClauses(q.Filters)
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	start := time.Now()
	var total int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT COUNT(*) FROM vehicles"+where), args...).Scan(&total)
	s.observe("count_vehicles", start, err)
	if err != nil {
		return models.ListResult{}, s.databaseError("ListVehicles", "failed to count vehicles", err)
	}

	query := fmt.Sprintf("SELECT %s FROM vehicles%s ORDER BY id DESC LIMIT ? OFFSET ?", s.vehicleColumns(""), where)
	pageArgs := append(append([]interface{}{}, args...), q.PageSize, q.Offset())

	start = time.Now()
	vehicles, err := s.queryVehicles(ctx, s.dialect.Rebind(query), pageArgs...)
	s.observe("list_vehicles", start, err)
	if err != nil {
		return models.ListResult{}, s.databaseError("ListVehicles", "failed to list vehicles", err)
	}

	return models.ListResult{Vehicles: vehicles, Total: total}, nil
}

// SyncSellerCoordinates copies seller location data onto vehicles with one set-based UPDATE.
// Only rows whose copy differs are touched, so repeating a sync without seller changes affects 0 rows.
func (s *SQLVehicleStore) SyncSellerCoordinates(ctx context.Context, accountNumber string) (int64, error) {
	var query string
	var args []interface{}

	switch s.dialect {
	case DialectMySQL:
		query = `UPDATE vehicles v
			JOIN sellers s ON v.seller_account_number = s.account_number
			SET v.seller_latitude = s.latitude,
				v.seller_longitude = s.longitude,
				v.seller_name = s.name,
				v.seller_city = s.city,
				v.seller_state = s.state,
				v.seller_phone = s.phone
			WHERE (NOT (v.seller_latitude <=> s.latitude)
				OR NOT (v.seller_longitude <=> s.longitude)
				OR NOT (v.seller_name <=> s.name)
				OR NOT (v.seller_city <=> s.city)
				OR NOT (v.seller_state <=> s.state)
				OR NOT (v.seller_phone <=> s.phone))`
	default:
		query = `UPDATE vehicles AS v
			SET seller_latitude = s.latitude,
				seller_longitude = s.longitude,
				seller_name = s.name,
				seller_city = s.city,
				seller_state = s.state,
				seller_phone = s.phone
			FROM sellers AS s
			WHERE v.seller_account_number = s.account_number
				AND (v.seller_latitude IS DISTINCT FROM s.latitude
				OR v.seller_longitude IS DISTINCT FROM s.longitude
				OR v.seller_name IS DISTINCT FROM s.name
				OR v.seller_city IS DISTINCT FROM s.city
				OR v.seller_state IS DISTINCT FROM s.state
				OR v.seller_phone IS DISTINCT FROM s.phone)`
	}

	if accountNumber != "" {
		query += " AND s.account_number = ?"
		args = append(args, accountNumber)
	}

	start := time.Now()
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	s.observe("sync_seller_coordinates", start, err)
	if err != nil {
		return 0, s.databaseError("SyncSellerCoordinates", "failed to sync seller coordinates", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, s.databaseError("SyncSellerCoordinates", "failed to read affected rows", err)
	}
	return rows, nil
}

// UpsertSeller inserts or updates a seller by account number
func (s *SQLVehicleStore) UpsertSeller(ctx context.Context, seller models.Seller) error {
	var query string
	if s.dialect == DialectMySQL {
		query = `INSERT INTO sellers (account_number, name, type, phone, email, city, state, zip, latitude, longitude)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), type = VALUES(type), phone = VALUES(phone),
				email = VALUES(email), city = VALUES(city), state = VALUES(state), zip = VALUES(zip),
				latitude = VALUES(latitude), longitude = VALUES(longitude)`
	} else {
		query = `INSERT INTO sellers (account_number, name, type, phone, email, city, state, zip, latitude, longitude)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (account_number) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type,
				phone = EXCLUDED.phone, email = EXCLUDED.email, city = EXCLUDED.city, state = EXCLUDED.state,
				zip = EXCLUDED.zip, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
				updated_at = NOW()`
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(query),
		seller.AccountNumber, seller.Name, seller.Type, seller.Phone, seller.Email,
		seller.City, seller.State, seller.ZIP, seller.Latitude, seller.Longitude,
	)
	s.observe("upsert_seller", start, err)
	if err != nil {
		return s.databaseError("UpsertSeller", "failed to upsert seller", err)
	}
	return nil
}

// InsertVehicle inserts a listing without seller data; coordinate sync fills that in
func (s *SQLVehicleStore) InsertVehicle(ctx context.Context, v models.Vehicle) (int64, error) {
	columns := fmt.Sprintf("year, make, model, %s, body_style, fuel_type, transmission, drivetrain, exterior_color_generic, price, mileage, %s, certified, seller_type, seller_account_number",
		s.quote("trim"), s.quote("condition"))
	values := []interface{}{
		v.Year, v.Make, v.Model, v.Trim, v.BodyStyle, v.FuelType, v.Transmission, v.Drivetrain,
		v.ExteriorColor, v.Price, v.Mileage, v.Condition, v.Certified, v.SellerType, v.SellerAccountNumber,
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	query := fmt.Sprintf("INSERT INTO vehicles (%s) VALUES (%s)", columns, placeholders)

	start := time.Now()
	var id int64
	var err error
	if s.dialect == DialectPostgres {
		err = s.db.QueryRowContext(ctx, s.dialect.Rebind(query+" RETURNING id"), values...).Scan(&id)
	} else {
		var result sql.Result
		if result, err = s.db.ExecContext(ctx, query, values...); err == nil {
			id, err = result.LastInsertId()
		}
	}
	s.observe("insert_vehicle", start, err)
	if err != nil {
		return 0, s.databaseError("InsertVehicle", "failed to insert vehicle", err)
	}
	return id, nil
}

func (s *SQLVehicleStore) queryVehicles(ctx context.Context, query string, args ...interface{}) ([]models.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		var lat, lng sql.NullFloat64
		var name, city, state, phone sql.NullString

		if err := rows.Scan(
			&v.ID, &v.Year, &v.Make, &v.Model, &v.Trim, &v.BodyStyle, &v.FuelType, &v.Transmission,
			&v.Drivetrain, &v.ExteriorColor, &v.Price, &v.Mileage, &v.Condition, &v.Certified,
			&v.SellerType, &v.SellerAccountNumber, &lat, &lng, &name, &city, &state, &phone,
		); err != nil {
			return nil, err
		}

		v.SellerLatitude = nullFloat(lat)
		v.SellerLongitude = nullFloat(lng)
		v.SellerName = nullString(name)
		v.SellerCity = nullString(city)
		v.SellerState = nullString(state)
		v.SellerPhone = nullString(phone)
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

func nullFloat(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

func nullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
