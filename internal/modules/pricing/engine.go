package pricing

import (
	"fmt"
	"math"

	"coachquote/internal/modules/fleet"
)

// Calculate prices one trip against one rate-table snapshot. It is pure: the tables are
// only read, and a failure never comes with a partial quote.
func Calculate(in Input, t Tables) (Quote, error) {
	if err := ValidateInput(in.Trip, in.PassengerCount); err != nil {
		return Quote{}, err
	}

	trip, err := Classify(in.Trip, t.Policy)
	if err != nil {
		return Quote{}, err
	}

	grid, ok := t.Grids.For(trip.Category())
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoFareGrid, trip.Category())
	}
	base, err := ResolveBaseFare(grid, trip)
	if err != nil {
		return Quote{}, err
	}

	alloc, err := fleet.Allocate(in.PassengerCount, t.Vehicles)
	if err != nil {
		return Quote{}, err
	}

	res, err := Compose(ComposeInput{
		Base:          base,
		Allocation:    alloc,
		DepartureDept: in.DepartureDept,
		ArrivalDept:   in.ArrivalDept,
		Surcharges:    t.Surcharges,
		Coefficients:  t.Coefficients,
		Tax:           in.Tax,
	})
	if err != nil {
		return Quote{}, err
	}
	return Quote{Trip: trip, Pricing: res, Fleet: alloc}, nil
}

// ValidateInput rejects caller mistakes that need no rate table to detect.
func ValidateInput(trip TripRequest, passengers int) error {
	d := trip.DistanceKm
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return fmt.Errorf("%w: %v km", ErrInvalidDistance, d)
	}
	if passengers <= 0 {
		return fmt.Errorf("%w: %d", fleet.ErrInvalidPassengerCount, passengers)
	}
	return nil
}
