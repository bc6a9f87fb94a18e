// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a request that violates a required constraint.
// It is one of the two caller-visible hard failures.
var ErrInvalidInput = errors.New("invalid input")

// ValuationRequest describes a commercial property to be valued.
// It is immutable once submitted; optional fields are pointers so that
// absence can be distinguished from a zero value.
type ValuationRequest struct {
	PropertyID   string `json:"property_id,omitempty"`
	PropertyType string `json:"property_type"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`

	SquareFeet   int  `json:"square_feet"`
	NumFloors    *int `json:"num_floors,omitempty"`
	NumUnits     *int `json:"num_units,omitempty"`
	ParkingSpots *int `json:"parking_spots,omitempty"`

	OccupancyRate      float64 `json:"occupancy_rate"`
	AnnualRevenue      float64 `json:"annual_revenue"`
	AnnualExpenses     float64 `json:"annual_expenses"`
	NetOperatingIncome float64 `json:"net_operating_income"`
	CapRate            float64 `json:"cap_rate"`

	// Optional location/quality scores. Missing values are defaulted by the
	// feature normalizer, never here.
	WalkScore               *float64 `json:"walk_score,omitempty"`
	TransitScore            *float64 `json:"transit_score,omitempty"`
	BuildingAge             *float64 `json:"building_age,omitempty"`
	DistanceToDowntown      *float64 `json:"distance_to_downtown,omitempty"`
	DistanceToHighway       *float64 `json:"distance_to_highway,omitempty"`
	DistanceToPublicTransit *float64 `json:"distance_to_public_transit,omitempty"`
	CrimeRate               *float64 `json:"crime_rate,omitempty"`
	SchoolRating            *float64 `json:"school_rating,omitempty"`
}

const minSquareFeet = 100

// Validate checks the required constraints. A violation is reported as
// ErrInvalidInput with detail and rejects the request before feature
// preparation.
func (r *ValuationRequest) Validate() error {
	switch {
	case r.PropertyType == "":
		return fmt.Errorf("%w: property_type is required", ErrInvalidInput)
	case r.City == "":
		return fmt.Errorf("%w: city is required", ErrInvalidInput)
	case r.SquareFeet < minSquareFeet:
		return fmt.Errorf("%w: square_feet must be >= %d, got %d", ErrInvalidInput, minSquareFeet, r.SquareFeet)
	case r.OccupancyRate < 0 || r.OccupancyRate > 1:
		return fmt.Errorf("%w: occupancy_rate must be within [0,1], got %v", ErrInvalidInput, r.OccupancyRate)
	case r.AnnualRevenue < 0:
		return fmt.Errorf("%w: annual_revenue must be >= 0", ErrInvalidInput)
	case r.AnnualExpenses < 0:
		return fmt.Errorf("%w: annual_expenses must be >= 0", ErrInvalidInput)
	case r.NetOperatingIncome < 0:
		return fmt.Errorf("%w: net_operating_income must be >= 0", ErrInvalidInput)
	case r.CapRate <= 0 || r.CapRate > 1:
		return fmt.Errorf("%w: cap_rate must be within (0,1], got %v", ErrInvalidInput, r.CapRate)
	}

	if r.NumFloors != nil && *r.NumFloors < 1 {
		return fmt.Errorf("%w: num_floors must be >= 1", ErrInvalidInput)
	}
	if r.NumUnits != nil && *r.NumUnits < 1 {
		return fmt.Errorf("%w: num_units must be >= 1", ErrInvalidInput)
	}
	if r.ParkingSpots != nil && *r.ParkingSpots < 0 {
		return fmt.Errorf("%w: parking_spots must be >= 0", ErrInvalidInput)
	}
	if r.WalkScore != nil && (*r.WalkScore < 0 || *r.WalkScore > 100) {
		return fmt.Errorf("%w: walk_score must be within [0,100]", ErrInvalidInput)
	}
	if r.TransitScore != nil && (*r.TransitScore < 0 || *r.TransitScore > 100) {
		return fmt.Errorf("%w: transit_score must be within [0,100]", ErrInvalidInput)
	}
	if r.SchoolRating != nil && (*r.SchoolRating < 0 || *r.SchoolRating > 10) {
		return fmt.Errorf("%w: school_rating must be within [0,10]", ErrInvalidInput)
	}
	for name, v := range map[string]*float64{
		"building_age":               r.BuildingAge,
		"distance_to_downtown":       r.DistanceToDowntown,
		"distance_to_highway":        r.DistanceToHighway,
		"distance_to_public_transit": r.DistanceToPublicTransit,
		"crime_rate":                 r.CrimeRate,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidInput, name)
		}
	}

	return nil
}

// AttributeMap flattens the request into named attributes for feature
// normalization and fingerprinting. Absent optional fields are omitted so
// that the normalizer can apply its documented defaults.
func (r *ValuationRequest) AttributeMap() map[string]any {
	attrs := map[string]any{
		"property_type":        r.PropertyType,
		"city":                 r.City,
		"square_feet":          float64(r.SquareFeet),
		"occupancy_rate":       r.OccupancyRate,
		"annual_revenue":       r.AnnualRevenue,
		"annual_expenses":      r.AnnualExpenses,
		"net_operating_income": r.NetOperatingIncome,
		"cap_rate":             r.CapRate,
	}
	if r.PropertyID != "" {
		attrs["property_id"] = r.PropertyID
	}
	if r.State != "" {
		attrs["state"] = r.State
	}
	if r.NumFloors != nil {
		attrs["num_floors"] = float64(*r.NumFloors)
	}
	if r.NumUnits != nil {
		attrs["num_units"] = float64(*r.NumUnits)
	}
	if r.ParkingSpots != nil {
		attrs["parking_spots"] = float64(*r.ParkingSpots)
	}
	for name, v := range map[string]*float64{
		"walk_score":                 r.WalkScore,
		"transit_score":              r.TransitScore,
		"building_age":               r.BuildingAge,
		"distance_to_downtown":       r.DistanceToDowntown,
		"distance_to_highway":        r.DistanceToHighway,
		"distance_to_public_transit": r.DistanceToPublicTransit,
		"crime_rate":                 r.CrimeRate,
		"school_rating":              r.SchoolRating,
	} {
		if v != nil {
			attrs[name] = *v
		}
	}
	return attrs
}

// BuildingAgeOrDefault returns the building age, or the documented default
// when absent. Used by the uncertainty penalties, which read the original
// request rather than the feature vector.
func (r *ValuationRequest) BuildingAgeOrDefault(def float64) float64 {
	if r.BuildingAge != nil {
		return *r.BuildingAge
	}
	return def
}
