package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/vehicle-locator/geo"
	"github.com/fenilmodi00/vehicle-locator/models"
)

// MemoryVehicleStore keeps sellers and vehicles in process. It backs DB_DRIVER=memory and the service tests.
type MemoryVehicleStore struct {
	mu       sync.RWMutex
	sellers  map[string]models.Seller
	vehicles map[int64]models.Vehicle
	nextID   int64
}

// NewMemoryVehicleStore creates an empty store
func NewMemoryVehicleStore() *MemoryVehicleStore {
	return &MemoryVehicleStore{
		sellers:  make(map[string]models.Seller),
		vehicles: make(map[int64]models.Vehicle),
	}
}

// UpsertSeller inserts or replaces a seller by account number
func (m *MemoryVehicleStore) UpsertSeller(_ context.Context, seller models.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sellers[seller.AccountNumber]; ok {
		seller.ID = existing.ID
	} else {
		seller.ID = int64(len(m.sellers) + 1)
	}
	seller.UpdatedAt = time.Now()
	m.sellers[seller.AccountNumber] = seller
	return nil
}

// InsertVehicle stores a vehicle, assigning an ID when it has none
func (m *MemoryVehicleStore) InsertVehicle(_ context.Context, v models.Vehicle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.ID == 0 {
		m.nextID++
		v.ID = m.nextID
	} else if v.ID > m.nextID {
		m.nextID = v.ID
	}
	m.vehicles[v.ID] = v
	return v.ID, nil
}

// FindInBoundingBox applies the box and filters the way the SQL store does
func (m *MemoryVehicleStore) FindInBoundingBox(_ context.Context, box geo.BoundingBox, filters models.VehicleFilters) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Vehicle
	for _, v := range m.vehicles {
		if !v.HasCoordinates() || !box.Contains(*v.SellerLatitude, *v.SellerLongitude) {
			continue
		}
		if filters.Matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListVehicles pages through matching vehicles ordered by id descending
func (m *MemoryVehicleStore) ListVehicles(_ context.Context, q models.ListQuery) (models.ListResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.Vehicle
	for _, v := range m.vehicles {
		if q.Filters.Matches(v) {
			matched = append(matched, v)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	result := models.ListResult{Total: len(matched)}
	offset := q.Offset()
	if offset >= len(matched) {
		return result, nil
	}
	end := offset + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	result.Vehicles = matched[offset:end]
	return result, nil
}

// SyncSellerCoordinates copies seller data onto vehicles whose copy differs
func (m *MemoryVehicleStore) SyncSellerCoordinates(_ context.Context, accountNumber string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	for id, v := range m.vehicles {
		if accountNumber != "" && v.SellerAccountNumber != accountNumber {
			continue
		}
		seller, ok := m.sellers[v.SellerAccountNumber]
		if !ok || sellerCopyMatches(v, seller) {
			continue
		}

		lat, lng := seller.Latitude, seller.Longitude
		name, city, state, phone := seller.Name, seller.City, seller.State, seller.Phone
		v.SellerLatitude = &lat
		v.SellerLongitude = &lng
		v.SellerName = &name
		v.SellerCity = &city
		v.SellerState = &state
		v.SellerPhone = &phone
		m.vehicles[id] = v
		affected++
	}
	return affected, nil
}

// Vehicle returns a stored vehicle by ID
func (m *MemoryVehicleStore) Vehicle(id int64) (models.Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	return v, ok
}

func sellerCopyMatches(v models.Vehicle, s models.Seller) bool {
	return floatEquals(v.SellerLatitude, s.Latitude) &&
		floatEquals(v.SellerLongitude, s.Longitude) &&
		stringEquals(v.SellerName, s.Name) &&
		stringEquals(v.SellerCity, s.City) &&
		stringEquals(v.SellerState, s.State) &&
		stringEquals(v.SellerPhone, s.Phone)
}

func floatEquals(p *float64, value float64) bool {
	return p != nil && *p == value
}

func stringEquals(p *string, value string) bool {
	return p != nil && *p == value
}

// SeedDemoInventory loads a small Puget Sound inventory and syncs it, for running without a database
func SeedDemoInventory(ctx context.Context, store *MemoryVehicleStore) error {
	sellers := []models.Seller{
		{AccountNumber: "D-1001", Name: "Lakewood Auto Center", Type: models.SellerTypeDealer, Phone: "253-555-0100", City: "Lakewood", State: "WA", ZIP: "98498", Latitude: 47.0379, Longitude: -122.9015},
		{AccountNumber: "D-1002", Name: "Seattle Motors", Type: models.SellerTypeDealer, Phone: "206-555-0142", City: "Seattle", State: "WA", ZIP: "98101", Latitude: 47.6101, Longitude: -122.3344},
		{AccountNumber: "D-1003", Name: "Rose City Cars", Type: models.SellerTypeDealer, Phone: "503-555-0190", City: "Portland", State: "OR", ZIP: "97201", Latitude: 45.5152, Longitude: -122.6784},
		{AccountNumber: "P-2001", Name: "Jordan Lee", Type: models.SellerTypePrivate, Phone: "360-555-0111", City: "Olympia", State: "WA", ZIP: "98501", Latitude: 47.0379, Longitude: -122.9007},
	}
	for _, seller := range sellers {
		if err := store.UpsertSeller(ctx, seller); err != nil {
			return err
		}
	}

	vehicles := []models.Vehicle{
		{Year: 2021, Make: "Toyota", Model: "Tacoma", Trim: "TRD Off-Road", BodyStyle: "Truck", FuelType: "Gasoline", Transmission: "Automatic", Drivetrain: "4WD", ExteriorColor: "Gray", Price: 38995, Mileage: 24110, Condition: "Used", Certified: true, SellerType: models.SellerTypeDealer, SellerAccountNumber: "D-1001"},
		{Year: 2023, Make: "Honda", Model: "CR-V", Trim: "EX-L", BodyStyle: "SUV", FuelType: "Hybrid", Transmission: "Automatic", Drivetrain: "AWD", ExteriorColor: "Blue", Price: 36450, Mileage: 8200, Condition: "Used", Certified: true, SellerType: models.SellerTypeDealer, SellerAccountNumber: "D-1001"},
		{Year: 2024, Make: "Ford", Model: "F-150", Trim: "XLT", BodyStyle: "Truck", FuelType: "Gasoline", Transmission: "Automatic", Drivetrain: "4WD", ExteriorColor: "White", Price: 52980, Mileage: 12, Condition: "New", SellerType: models.SellerTypeDealer, SellerAccountNumber: "D-1002"},
		{Year: 2019, Make: "Subaru", Model: "Outback", Trim: "Premium", BodyStyle: "Wagon", FuelType: "Gasoline", Transmission: "CVT", Drivetrain: "AWD", ExteriorColor: "Green", Price: 21500, Mileage: 68420, Condition: "Used", SellerType: models.SellerTypeDealer, SellerAccountNumber: "D-1002"},
		{Year: 2022, Make: "Tesla", Model: "Model 3", Trim: "Long Range", BodyStyle: "Sedan", FuelType: "Electric", Transmission: "Automatic", Drivetrain: "AWD", ExteriorColor: "Red", Price: 33900, Mileage: 27350, Condition: "Used", SellerType: models.SellerTypeDealer, SellerAccountNumber: "D-1003"},
		{Year: 2016, Make: "Toyota", Model: "Camry", Trim: "SE", BodyStyle: "Sedan", FuelType: "Gasoline", Transmission: "Automatic", Drivetrain: "FWD", ExteriorColor: "Black", Price: 13750, Mileage: 102300, Condition: "Used", SellerType: models.SellerTypePrivate, SellerAccountNumber: "P-2001"},
	}
	for _, v := range vehicles {
		if _, err := store.InsertVehicle(ctx, v); err != nil {
			return err
		}
	}

	_, err := store.SyncSellerCoordinates(ctx, "")
	return err
}
