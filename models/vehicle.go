package models

type Vehicle struct {
	ID            int64   `json:"id"`
	Year          int     `json:"year"`
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Trim          string  `json:"trim"`
	BodyStyle     string  `json:"body_style"`
	FuelType      string  `json:"fuel_type"`
	Transmission  string  `json:"transmission"`
	Drivetrain    string  `json:"drivetrain"`
	ExteriorColor string  `json:"exterior_color_generic"`
	Price         float64 `json:"price"`
	Mileage       int     `json:"mileage"`
	Condition     string  `json:"condition"`
	Certified     bool    `json:"certified"`
	SellerType    string  `json:"seller_type"`

	SellerAccountNumber string `json:"seller_account_number"`

	// Denormalized seller copy, written only by coordinate sync. Nil coordinates mean not yet synced.
	SellerLatitude  *float64 `json:"seller_latitude"`
	SellerLongitude *float64 `json:"seller_longitude"`
	SellerName      *string  `json:"seller_name"`
	SellerCity      *string  `json:"seller_city"`
	SellerState     *string  `json:"seller_state"`
	SellerPhone     *string  `json:"seller_phone"`
}

// HasCoordinates reports whether the vehicle has been synced with its seller's location
func (v Vehicle) HasCoordinates() bool {
	return v.SellerLatitude != nil && v.SellerLongitude != nil
}

// VehicleWithDistance is a radius search hit
type VehicleWithDistance struct {
	Vehicle
	DistanceMiles float64 `json:"distance"`
}
