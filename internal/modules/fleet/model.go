// README: Vehicle classes and fleet allocations.
package fleet

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidPassengerCount  = errors.New("invalid passenger count")
	ErrNoMatchingVehicleClass = errors.New("no matching vehicle class")
	ErrNoReferenceClass       = errors.New("reference vehicle class not configured")
)

// VehicleClass is a passenger-capacity tier, e.g. {standard, 36, 53}.
type VehicleClass struct {
	Code     string `json:"code" yaml:"code"`
	MinSeats int    `json:"min_seats" yaml:"min_seats"`
	MaxSeats int    `json:"max_seats" yaml:"max_seats"`
}

func (c VehicleClass) Contains(passengers int) bool {
	return passengers >= c.MinSeats && passengers <= c.MaxSeats
}

// ClassTable partitions [1, Ceiling()] into vehicle classes. ReferenceCode names the
// class used as the unit for multi-vehicle splits above the ceiling.
type ClassTable struct {
	Classes       []VehicleClass `json:"classes" yaml:"classes"`
	ReferenceCode string         `json:"reference_code" yaml:"reference_code"`
}

// Ceiling is the largest passenger count a single certified vehicle carries.
func (t ClassTable) Ceiling() int {
	max := 0
	for _, c := range t.Classes {
		if c.MaxSeats > max {
			max = c.MaxSeats
		}
	}
	return max
}

func (t ClassTable) Reference() (VehicleClass, error) {
	for _, c := range t.Classes {
		if c.Code == t.ReferenceCode {
			return c, nil
		}
	}
	return VehicleClass{}, ErrNoReferenceClass
}

// Validate reports gaps, overlaps and a missing reference class.
func (t ClassTable) Validate() []error {
	var errs []error
	if len(t.Classes) == 0 {
		return []error{errors.New("vehicle classes: empty table")}
	}
	sorted := make([]VehicleClass, len(t.Classes))
	copy(sorted, t.Classes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinSeats < sorted[j].MinSeats })

	if sorted[0].MinSeats != 1 {
		errs = append(errs, fmt.Errorf("vehicle classes: first class %q starts at %d, want 1", sorted[0].Code, sorted[0].MinSeats))
	}
	for i, c := range sorted {
		if c.MinSeats > c.MaxSeats {
			errs = append(errs, fmt.Errorf("vehicle classes: %q has min %d > max %d", c.Code, c.MinSeats, c.MaxSeats))
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		switch {
		case c.MinSeats <= prev.MaxSeats:
			errs = append(errs, fmt.Errorf("vehicle classes: %q overlaps %q", c.Code, prev.Code))
		case c.MinSeats > prev.MaxSeats+1:
			errs = append(errs, fmt.Errorf("vehicle classes: gap %d-%d between %q and %q", prev.MaxSeats+1, c.MinSeats-1, prev.Code, c.Code))
		}
	}
	if _, err := t.Reference(); err != nil {
		errs = append(errs, fmt.Errorf("vehicle classes: %w (%q)", err, t.ReferenceCode))
	}
	return errs
}

type Allocation struct {
	VehicleClass       string `json:"vehicle_class"`
	VehicleCount       int    `json:"vehicle_count"`
	CapacityPerVehicle int    `json:"capacity_per_vehicle"`
	TotalCapacity      int    `json:"total_capacity"`
}

// Slack is the number of unused seats. Display only.
func (a Allocation) Slack(passengers int) int {
	return a.TotalCapacity - passengers
}
