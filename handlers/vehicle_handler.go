package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/services"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// VehicleHandler serves the storefront listing, with optional location filtering
type VehicleHandler struct {
	Search   *services.RadiusSearchService
	Resolver *services.GeocodeResolver
}

func NewVehicleHandler(search *services.RadiusSearchService, resolver *services.GeocodeResolver) *VehicleHandler {
	return &VehicleHandler{Search: search, Resolver: resolver}
}

// GetVehicles handles GET /vehicles.
// lat+lng+radius runs the radius search; zip+radius resolves the ZIP first and falls back to the
// plain listing when the ZIP is unknown; anything else is the plain listing.
func (h *VehicleHandler) GetVehicles(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return badRequest(c, shared.CodeInvalidRadiusQuery, err.Error())
	}

	filters, err := parseFilters(c)
	if err != nil {
		return badRequest(c, shared.CodeInvalidRadiusQuery, err.Error())
	}

	lat, lng, radius := c.Query("lat"), c.Query("lng"), c.Query("radius")
	zip := strings.TrimSpace(c.Query("zip"))

	switch {
	case lat != "" && lng != "" && radius != "":
		center, radiusMiles, err := parseCenter(lat, lng, radius)
		if err != nil {
			return badRequest(c, shared.CodeInvalidRadiusQuery, err.Error())
		}
		return h.radiusSearch(c, center, radiusMiles, filters, page, pageSize, "")

	case zip != "" && radius != "":
		radiusMiles, err := strconv.ParseFloat(radius, 64)
		if err != nil {
			return badRequest(c, shared.CodeInvalidRadiusQuery, "radius must be a number")
		}
		if err := models.ValidateRadius(radiusMiles); err != nil {
			return badRequest(c, shared.CodeInvalidRadiusQuery, err.Error())
		}

		resolved, err := h.Resolver.Resolve(c.UserContext(), zip)
		if errors.Is(err, shared.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"component": "VehicleHandler",
				"zip":       zip,
			}).Warn("ZIP not resolved, returning listing without location filter")
			return h.listVehicles(c, filters, page, pageSize)
		}
		if err != nil {
			return errorResponse(c, err)
		}
		return h.radiusSearch(c, resolved.Location, radiusMiles, filters, page, pageSize, resolved.Source)

	default:
		return h.listVehicles(c, filters, page, pageSize)
	}
}

func (h *VehicleHandler) radiusSearch(c *fiber.Ctx, center models.Location, radius float64, filters models.VehicleFilters, page, pageSize int, source models.LocationSource) error {
	result, err := h.Search.Search(c.UserContext(), models.RadiusQuery{
		Center:      center,
		RadiusMiles: radius,
		Filters:     filters,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	meta := paginationMap(models.NewPaginationMeta(result.Total, page, pageSize))
	meta["locationApplied"] = true
	meta["center"] = center
	meta["radius"] = radius
	if source != "" {
		meta["locationSource"] = source
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.Vehicles,
		"meta":    meta,
	})
}

func (h *VehicleHandler) listVehicles(c *fiber.Ctx, filters models.VehicleFilters, page, pageSize int) error {
	result, err := h.Search.ListVehicles(c.UserContext(), models.ListQuery{
		Filters:  filters,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	meta := paginationMap(models.NewPaginationMeta(result.Total, page, pageSize))
	meta["locationApplied"] = false

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.Vehicles,
		"meta":    meta,
	})
}

func paginationMap(meta models.PaginationMeta) fiber.Map {
	return fiber.Map{
		"totalRecords":    meta.TotalRecords,
		"totalPages":      meta.TotalPages,
		"currentPage":     meta.CurrentPage,
		"pageSize":        meta.PageSize,
		"hasNextPage":     meta.HasNextPage,
		"hasPreviousPage": meta.HasPreviousPage,
	}
}

func parsePagination(c *fiber.Ctx) (int, int, error) {
	page, pageSize := 1, models.DefaultPageSize

	if raw := c.Query("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return 0, 0, fmt.Errorf("Page number must be greater than 0")
		}
		page = value
	}
	if raw := c.Query("pageSize"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > models.MaxPageSize {
			return 0, 0, fmt.Errorf("Page size must be between 1 and %d", models.MaxPageSize)
		}
		pageSize = value
	}
	if err := models.ValidatePagination(page, pageSize); err != nil {
		return 0, 0, fmt.Errorf("Page number is too large")
	}

	return page, pageSize, nil
}

func parseCenter(lat, lng, radius string) (models.Location, float64, error) {
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.Location{}, 0, fmt.Errorf("lat must be a number")
	}
	longitude, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return models.Location{}, 0, fmt.Errorf("lng must be a number")
	}
	radiusMiles, err := strconv.ParseFloat(radius, 64)
	if err != nil {
		return models.Location{}, 0, fmt.Errorf("radius must be a number")
	}
	return models.NewLocation(latitude, longitude, "", ""), radiusMiles, nil
}

// parseFilters reads the attribute filters. List filters are comma separated.
func parseFilters(c *fiber.Ctx) (models.VehicleFilters, error) {
	filters := models.VehicleFilters{
		Makes:         splitList(c.Query("make")),
		Models:        splitList(c.Query("model")),
		Conditions:    splitList(c.Query("condition")),
		BodyStyles:    splitList(firstNonEmpty(c.Query("bodyStyle"), c.Query("body_type"))),
		FuelTypes:     splitList(c.Query("fuelType")),
		Transmissions: splitList(c.Query("transmission")),
		Drivetrains:   splitList(firstNonEmpty(c.Query("drivetrain"), c.Query("driveType"))),
		SellerTypes:   splitList(c.Query("sellerType")),
	}

	var err error
	if filters.Year, err = optionalInt(c.Query("year"), "year"); err != nil {
		return filters, err
	}
	if filters.MinPrice, err = optionalFloat(firstNonEmpty(c.Query("minPrice"), c.Query("priceMin")), "minPrice"); err != nil {
		return filters, err
	}
	if filters.MaxPrice, err = optionalFloat(firstNonEmpty(c.Query("maxPrice"), c.Query("priceMax")), "maxPrice"); err != nil {
		return filters, err
	}
	if filters.MaxMileage, err = optionalInt(firstNonEmpty(c.Query("maxMileage"), c.Query("mileage")), "maxMileage"); err != nil {
		return filters, err
	}
	if raw := c.Query("certified"); raw != "" {
		certified, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, fmt.Errorf("certified must be true or false")
		}
		filters.Certified = &certified
	}

	return filters, filters.Validate()
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func optionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &value, nil
}

func optionalFloat(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &value, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
