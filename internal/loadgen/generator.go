// Package loadgen generates synthetic commercial property traffic against a
// running valuation service and verifies the responses it gets back.
package loadgen

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
)

// cityInfo pairs a market with a rough price multiplier used to scale
// revenue so the generated portfolio spans cheap and expensive markets.
type cityInfo struct {
	name       string
	state      string
	multiplier float64
}

var cities = []cityInfo{
	{"New York", "NY", 2.5},
	{"Los Angeles", "CA", 2.2},
	{"Chicago", "IL", 1.8},
	{"Houston", "TX", 1.5},
	{"Phoenix", "AZ", 1.4},
	{"Philadelphia", "PA", 1.6},
	{"San Diego", "CA", 2.0},
	{"Dallas", "TX", 1.6},
	{"San Jose", "CA", 2.8},
	{"Austin", "TX", 1.7},
	{"Seattle", "WA", 2.1},
	{"Denver", "CO", 1.6},
	{"Boston", "MA", 2.3},
	{"Miami", "FL", 1.9},
}

// typeProfile bounds size and occupancy per property type.
type typeProfile struct {
	name         string
	minSqft      int
	maxSqft      int
	minOccupancy float64
	maxOccupancy float64
}

var propertyTypes = []typeProfile{
	{"Office", 5_000, 500_000, 0.70, 0.98},
	{"Retail", 2_000, 150_000, 0.75, 0.95},
	{"Industrial", 10_000, 1_000_000, 0.80, 0.98},
	{"Multifamily", 10_000, 300_000, 0.85, 0.98},
	{"Hotel", 20_000, 400_000, 0.60, 0.90},
	{"Mixed-Use", 15_000, 350_000, 0.75, 0.95},
}

// revenuePerSqft is the base annual revenue per square foot before the
// market multiplier is applied.
const revenuePerSqft = 35.0

// generateRequests builds n synthetic valuation requests. A fixed seed
// keeps runs reproducible.
func generateRequests(ctx context.Context, n int, seed int64) []model.ValuationRequest {
	log := logger.Get()
	log.Info(ctx, "generating synthetic properties", logger.Int("count", n))

	rng := rand.New(rand.NewSource(seed))
	reqs := make([]model.ValuationRequest, n)
	for i := range reqs {
		reqs[i] = generateSingleRequest(rng, i)
	}
	return reqs
}

func generateSingleRequest(rng *rand.Rand, index int) model.ValuationRequest {
	city := cities[rng.Intn(len(cities))]
	profile := propertyTypes[rng.Intn(len(propertyTypes))]

	sqft := profile.minSqft + rng.Intn(profile.maxSqft-profile.minSqft)
	occupancy := profile.minOccupancy + rng.Float64()*(profile.maxOccupancy-profile.minOccupancy)

	revenue := float64(sqft) * revenuePerSqft * city.multiplier * occupancy
	expenseRatio := 0.25 + rng.Float64()*0.20
	expenses := revenue * expenseRatio
	noi := revenue - expenses
	capRate := 0.04 + rng.Float64()*0.06

	req := model.ValuationRequest{
		PropertyID:         fmt.Sprintf("synthetic_%04d_%s", index, uuid.NewString()[:8]),
		PropertyType:       profile.name,
		City:               city.name,
		State:              city.state,
		SquareFeet:         sqft,
		OccupancyRate:      occupancy,
		AnnualRevenue:      revenue,
		AnnualExpenses:     expenses,
		NetOperatingIncome: noi,
		CapRate:            capRate,
	}

	// Roughly half the properties carry the optional scores so both the
	// defaulted and the explicit normalization paths see traffic.
	if rng.Intn(2) == 0 {
		age := float64(rng.Intn(74))
		walk := rng.Float64() * 100
		transit := rng.Float64() * 100
		crime := rng.Float64() * 100
		school := rng.Float64() * 10
		req.BuildingAge = &age
		req.WalkScore = &walk
		req.TransitScore = &transit
		req.CrimeRate = &crime
		req.SchoolRating = &school
	}
	if rng.Intn(3) == 0 {
		floors := 1 + rng.Intn(50)
		req.NumFloors = &floors
	}

	return req
}
