package fleet

import (
	"fmt"
	"math"
)

// Allocate picks the vehicle class and count for a group.
//
// Up to the table's ceiling exactly one class covers the group and a single vehicle is
// booked. Above it the group is always split into homogeneous vehicles of the reference
// class, so a given passenger count maps to one quoted fleet.
func Allocate(passengers int, table ClassTable) (Allocation, error) {
	if passengers <= 0 {
		return Allocation{}, fmt.Errorf("%w: %d", ErrInvalidPassengerCount, passengers)
	}

	if passengers <= table.Ceiling() {
		for _, c := range table.Classes {
			if c.Contains(passengers) {
				return newAllocation(c.Code, 1, c.MaxSeats), nil
			}
		}
		return Allocation{}, fmt.Errorf("%w: %d passengers", ErrNoMatchingVehicleClass, passengers)
	}

	ref, err := table.Reference()
	if err != nil {
		return Allocation{}, err
	}
	if ref.MaxSeats <= 0 {
		return Allocation{}, fmt.Errorf("%w: reference class %q has no seats", ErrNoMatchingVehicleClass, ref.Code)
	}
	count := passengers / ref.MaxSeats
	if passengers%ref.MaxSeats != 0 {
		count++
	}
	if count > math.MaxInt/ref.MaxSeats {
		return Allocation{}, fmt.Errorf("%w: %d passengers exceeds bookable capacity", ErrInvalidPassengerCount, passengers)
	}
	return newAllocation(ref.Code, count, ref.MaxSeats), nil
}

func newAllocation(code string, count, capacity int) Allocation {
	return Allocation{
		VehicleClass:       code,
		VehicleCount:       count,
		CapacityPerVehicle: capacity,
		TotalCapacity:      count * capacity,
	}
}
