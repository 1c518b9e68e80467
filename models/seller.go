package models

import "time"

// Seller types as stored in the sellers table
const (
	SellerTypeDealer  = "Dealer"
	SellerTypePrivate = "Private Seller"
)

// Seller owns the authoritative coordinate for every vehicle it lists
type Seller struct {
	ID            int64     `json:"id"`
	AccountNumber string    `json:"account_number"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Phone         string    `json:"phone"`
	Email         *string   `json:"email,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZIP           string    `json:"zip"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UpdatedAt     time.Time `json:"updated_at"`
}
