package models

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// VehicleFilters holds the attribute filters for vehicle listings and radius searches.
// Every set field must match (logical AND); list fields match any of their values.
type VehicleFilters struct {
	Makes         []string `json:"makes,omitempty"`
	Models        []string `json:"models,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	BodyStyles    []string `json:"bodyStyles,omitempty"`
	FuelTypes     []string `json:"fuelTypes,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`
	Drivetrains   []string `json:"drivetrains,omitempty"`
	SellerTypes   []string `json:"sellerTypes,omitempty"`

	Year       *int     `json:"year,omitempty"`
	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	MaxMileage *int     `json:"maxMileage,omitempty"`
	Certified  *bool    `json:"certified,omitempty"`
}

// Validate rejects contradictory or out-of-range bounds
func (f VehicleFilters) Validate() error {
	if f.Year != nil && (*f.Year < 1900 || *f.Year > 2100) {
		return fmt.Errorf("year %d is out of range", *f.Year)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return fmt.Errorf("minPrice must not be negative")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return fmt.Errorf("maxPrice must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("minPrice %.2f is greater than maxPrice %.2f", *f.MinPrice, *f.MaxPrice)
	}
	if f.MaxMileage != nil && *f.MaxMileage < 0 {
		return fmt.Errorf("maxMileage must not be negative")
	}
	return nil
}

// IsEmpty reports whether no filter is set
func (f VehicleFilters) IsEmpty() bool {
	return len(f.Makes) == 0 && len(f.Models) == 0 && len(f.Conditions) == 0 &&
		len(f.BodyStyles) == 0 && len(f.FuelTypes) == 0 && len(f.Transmissions) == 0 &&
		len(f.Drivetrains) == 0 && len(f.SellerTypes) == 0 &&
		f.Year == nil && f.MinPrice == nil && f.MaxPrice == nil && f.MaxMileage == nil && f.Certified == nil
}

// Matches evaluates every set filter against the vehicle
func (f VehicleFilters) Matches(v Vehicle) bool {
	if !matchesAny(f.Makes, v.Make) ||
		!matchesAny(f.Models, v.Model) ||
		!matchesAny(f.Conditions, v.Condition) ||
		!matchesAny(f.BodyStyles, v.BodyStyle) ||
		!matchesAny(f.FuelTypes, v.FuelType) ||
		!matchesAny(f.Transmissions, v.Transmission) ||
		!matchesAny(f.Drivetrains, v.Drivetrain) ||
		!matchesAny(f.SellerTypes, v.SellerType) {
		return false
	}

	if f.Year != nil && v.Year != *f.Year {
		return false
	}
	if f.MinPrice != nil && v.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && v.Price > *f.MaxPrice {
		return false
	}
	if f.MaxMileage != nil && v.Mileage > *f.MaxMileage {
		return false
	}
	if f.Certified != nil && v.Certified != *f.Certified {
		return false
	}

	return true
}

// matchesAny compares case-insensitively, like the default MySQL collation the listings came from
func matchesAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), value) {
			return true
		}
	}
	return false
}

// RadiusQuery is an ephemeral radius search request
type RadiusQuery struct {
	Center      Location       `json:"center"`
	RadiusMiles float64        `json:"radiusMiles"`
	Filters     VehicleFilters `json:"filters"`
	Page        int            `json:"page"`
	PageSize    int            `json:"pageSize"`
}

// ValidateRadius rejects non-positive and NaN radii
func ValidateRadius(miles float64) error {
	if math.IsNaN(miles) || miles <= 0 {
		return fmt.Errorf("radius must be greater than zero")
	}
	return nil
}

// Validate checks the center, radius, paging and filters
func (q RadiusQuery) Validate() error {
	if err := ValidateRadius(q.RadiusMiles); err != nil {
		return err
	}
	if math.IsNaN(q.Center.Latitude) || q.Center.Latitude < -90 || q.Center.Latitude > 90 {
		return fmt.Errorf("latitude %v is out of range", q.Center.Latitude)
	}
	if math.IsNaN(q.Center.Longitude) || q.Center.Longitude < -180 || q.Center.Longitude > 180 {
		return fmt.Errorf("longitude %v is out of range", q.Center.Longitude)
	}
	if err := ValidatePagination(q.Page, q.PageSize); err != nil {
		return err
	}
	return q.Filters.Validate()
}

// ValidatePagination checks page bounds, including pages whose offset would overflow int
func ValidatePagination(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("page must be at least 1")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return fmt.Errorf("pageSize must be between 1 and %d", MaxPageSize)
	}
	if page > math.MaxInt/pageSize {
		return fmt.Errorf("page %d is out of range", page)
	}
	return nil
}

// Offset returns the number of rows skipped before the current page
func (q RadiusQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// SearchResult is one page of radius search hits plus the total match count
type SearchResult struct {
	Vehicles []VehicleWithDistance `json:"vehicles"`
	Total    int                   `json:"total"`
}

// ListQuery is a plain, non-geographic listing request
type ListQuery struct {
	Filters  VehicleFilters
	Page     int
	PageSize int
}

// Validate checks pagination and filters
func (q ListQuery) Validate() error {
	if err := ValidatePagination(q.Page, q.PageSize); err != nil {
		return err
	}
	return q.Filters.Validate()
}

// Offset returns the number of rows skipped before the current page
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ListResult is one page of a plain listing
type ListResult struct {
	Vehicles []Vehicle `json:"vehicles"`
	Total    int       `json:"total"`
}

type PaginationMeta struct {
	TotalRecords    int  `json:"totalRecords"`
	TotalPages      int  `json:"totalPages"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPaginationMeta derives page counts from a total
func NewPaginationMeta(total, page, pageSize int) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return PaginationMeta{
		TotalRecords:    total,
		TotalPages:      totalPages,
		CurrentPage:     page,
		PageSize:        pageSize,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}
