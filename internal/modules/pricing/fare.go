package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ResolveBaseFare finds the band covering the trip distance and reads the tier for the
// trip's amplitude or day count. Distances past the last band are priced off-grid.
func ResolveBaseFare(grid FareGrid, trip TripInfo) (BaseFare, error) {
	if trip.DistanceKm <= 0 || math.IsNaN(trip.DistanceKm) || math.IsInf(trip.DistanceKm, 0) {
		return BaseFare{}, fmt.Errorf("%w: %v km", ErrInvalidDistance, trip.DistanceKm)
	}

	km := bandKm(trip.DistanceKm)
	for _, band := range grid.Bands {
		if !band.Contains(km) {
			continue
		}
		amount, err := tierPrice(band, grid.Category, trip)
		if err != nil {
			return BaseFare{}, err
		}
		r := band.Range()
		return BaseFare{Amount: amount, Band: &r}, nil
	}

	if grid.OffGridPerKm == nil {
		return BaseFare{}, fmt.Errorf("%w: %s grid has no off-grid rate for %d km", ErrTierUnavailable, grid.Category, km)
	}
	amount := grid.OffGridPerKm.Mul(decimal.NewFromFloat(trip.DistanceKm))
	return BaseFare{Amount: amount, OffGrid: true}, nil
}

// bandKm rounds a routed distance up to whole kilometres so fractional distances never
// fall between two integer-bounded bands.
func bandKm(distance float64) int {
	return int(math.Ceil(distance))
}

func tierPrice(b Band, c Category, trip TripInfo) (decimal.Decimal, error) {
	switch c {
	case CategoryOneWay:
		return offered(b.PublicPrice, b, "public")
	case CategoryDayTrip:
		switch trip.Amplitude {
		case Amplitude8h:
			return offered(b.Price8h, b, "8h")
		case Amplitude10h:
			return offered(b.Price10h, b, "10h")
		case Amplitude12h:
			return offered(b.Price12h, b, "12h")
		case Amplitude9hBreak:
			return offered(b.Price9hWithBreak, b, "9h with break")
		}
		return decimal.Zero, fmt.Errorf("%w: amplitude %q", ErrUnsupportedDuration, trip.Amplitude)
	case CategoryMultiDay, CategoryMultiDayMAD:
		return multiDayPrice(b, trip.NumberOfDays)
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrNoFareGrid, c)
}

func multiDayPrice(b Band, days int) (decimal.Decimal, error) {
	if days < 2 {
		return decimal.Zero, fmt.Errorf("%w: %d days on a multi-day grid", ErrUnsupportedDuration, days)
	}
	if days <= maxTabulatedDays {
		return offered(b.dayPrice(days), b, fmt.Sprintf("%d days", days))
	}
	base, err := offered(b.dayPrice(maxTabulatedDays), b, fmt.Sprintf("%d days", maxTabulatedDays))
	if err != nil {
		return decimal.Zero, err
	}
	extra, err := offered(b.ExtraDaySupplement, b, "extra day")
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(extra.Mul(decimal.NewFromInt(int64(days - maxTabulatedDays)))), nil
}

func offered(price *decimal.Decimal, b Band, tier string) (decimal.Decimal, error) {
	if price == nil {
		return decimal.Zero, fmt.Errorf("%w: %s in band %d-%d km", ErrTierUnavailable, tier, b.KmMin, b.KmMax)
	}
	return *price, nil
}

// Validate reports overlapping bands, gaps between bands and bands not starting at 0.
// The engine itself takes the first matching band; callers use this to warn maintainers.
func (g FareGrid) Validate() []error {
	var errs []error
	for i, b := range g.Bands {
		if b.KmMin > b.KmMax {
			errs = append(errs, fmt.Errorf("%s grid: band %d-%d is inverted", g.Category, b.KmMin, b.KmMax))
		}
		if i == 0 {
			if b.KmMin > 1 {
				errs = append(errs, fmt.Errorf("%s grid: first band starts at %d km", g.Category, b.KmMin))
			}
			continue
		}
		prev := g.Bands[i-1]
		switch {
		case b.KmMin <= prev.KmMax:
			errs = append(errs, fmt.Errorf("%s grid: band %d-%d overlaps %d-%d", g.Category, b.KmMin, b.KmMax, prev.KmMin, prev.KmMax))
		case b.KmMin != prev.KmMax+1:
			errs = append(errs, fmt.Errorf("%s grid: gap %d-%d km", g.Category, prev.KmMax+1, b.KmMin-1))
		}
	}
	return errs
}

// OverlappingBands returns every band containing the distance. More than one match is a
// configuration error.
func (g FareGrid) OverlappingBands(distanceKm float64) []BandRange {
	km := bandKm(distanceKm)
	var out []BandRange
	for _, b := range g.Bands {
		if b.Contains(km) {
			out = append(out, b.Range())
		}
	}
	return out
}
