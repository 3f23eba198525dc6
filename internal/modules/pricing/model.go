// README: Rate-table value types, trip classification and pricing results.
package pricing

import (
	"github.com/shopspring/decimal"

	"coachquote/internal/modules/fleet"
)

// Category selects which fare grid prices a trip.
type Category string

const (
	CategoryOneWay      Category = "one_way"
	CategoryDayTrip     Category = "day_trip"
	CategoryMultiDay    Category = "multi_day"
	CategoryMultiDayMAD Category = "multi_day_mad"
)

type Shape string

const (
	ShapeOneWay    Shape = "one_way"
	ShapeDayReturn Shape = "day_return"
	ShapeMultiDay  Shape = "multi_day"
)

// Amplitude sub-types a single-day round trip by elapsed time.
type Amplitude string

const (
	AmplitudeNone    Amplitude = ""
	Amplitude8h      Amplitude = "8h"
	Amplitude10h     Amplitude = "10h"
	Amplitude12h     Amplitude = "12h"
	Amplitude9hBreak Amplitude = "9h_break"
)

// Multi-day grids tabulate 2..6 days; longer trips add the extra-day supplement.
const maxTabulatedDays = 6

// Band is one distance band of a fare grid. Which price fields are read depends on the
// grid category; a nil field means the tier is not offered for this band.
type Band struct {
	KmMin int `json:"km_min" yaml:"km_min"`
	KmMax int `json:"km_max" yaml:"km_max"`

	PublicPrice *decimal.Decimal `json:"public_price,omitempty" yaml:"public_price,omitempty"`

	Price8h          *decimal.Decimal `json:"price_8h,omitempty" yaml:"price_8h,omitempty"`
	Price10h         *decimal.Decimal `json:"price_10h,omitempty" yaml:"price_10h,omitempty"`
	Price12h         *decimal.Decimal `json:"price_12h,omitempty" yaml:"price_12h,omitempty"`
	Price9hWithBreak *decimal.Decimal `json:"price_9h_break,omitempty" yaml:"price_9h_break,omitempty"`

	Price2Day          *decimal.Decimal `json:"price_2d,omitempty" yaml:"price_2d,omitempty"`
	Price3Day          *decimal.Decimal `json:"price_3d,omitempty" yaml:"price_3d,omitempty"`
	Price4Day          *decimal.Decimal `json:"price_4d,omitempty" yaml:"price_4d,omitempty"`
	Price5Day          *decimal.Decimal `json:"price_5d,omitempty" yaml:"price_5d,omitempty"`
	Price6Day          *decimal.Decimal `json:"price_6d,omitempty" yaml:"price_6d,omitempty"`
	ExtraDaySupplement *decimal.Decimal `json:"extra_day,omitempty" yaml:"extra_day,omitempty"`
}

func (b Band) Contains(km int) bool {
	return km >= b.KmMin && km <= b.KmMax
}

func (b Band) Range() BandRange {
	return BandRange{KmMin: b.KmMin, KmMax: b.KmMax}
}

// dayPrice returns the tabulated price for 2..6 days.
func (b Band) dayPrice(days int) *decimal.Decimal {
	switch days {
	case 2:
		return b.Price2Day
	case 3:
		return b.Price3Day
	case 4:
		return b.Price4Day
	case 5:
		return b.Price5Day
	case 6:
		return b.Price6Day
	}
	return nil
}

type BandRange struct {
	KmMin int `json:"km_min"`
	KmMax int `json:"km_max"`
}

type FareGrid struct {
	Category     Category         `json:"category" yaml:"category"`
	Bands        []Band           `json:"bands" yaml:"bands"`
	OffGridPerKm *decimal.Decimal `json:"off_grid_per_km,omitempty" yaml:"off_grid_per_km,omitempty"`
}

// GridSet holds one grid per category.
type GridSet []FareGrid

func (s GridSet) For(c Category) (FareGrid, bool) {
	for _, g := range s {
		if g.Category == c {
			return g, true
		}
	}
	return FareGrid{}, false
}

// RegionalSurcharge is a pair rule when PairedWith is set (matches the unordered
// departure/arrival pair), otherwise a single-department rule matching either end.
// Amount is a flat extra; Percent is a percentage of the base fare. Both may be set.
type RegionalSurcharge struct {
	Department string          `json:"department" yaml:"department"`
	PairedWith string          `json:"paired_with,omitempty" yaml:"paired_with,omitempty"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	Percent    decimal.Decimal `json:"percent" yaml:"percent"`
}

func (r RegionalSurcharge) IsPair() bool {
	return r.PairedWith != ""
}

type VehicleCoefficient struct {
	ClassCode string          `json:"class_code" yaml:"class_code"`
	Factor    decimal.Decimal `json:"factor" yaml:"factor"`
}

// CountryTax is the per-jurisdiction VAT configuration. VATRate is a percentage.
type CountryTax struct {
	Code       string          `json:"code" yaml:"code"`
	VATRate    decimal.Decimal `json:"vat_rate" yaml:"vat_rate"`
	Currency   string          `json:"currency" yaml:"currency"`
	MinorUnits int32           `json:"minor_units" yaml:"minor_units"`
}

// AmplitudePolicy holds the elapsed-time thresholds (minutes) separating day-trip tiers.
type AmplitudePolicy struct {
	Max8h          int `json:"max_8h" yaml:"max_8h"`
	Max10h         int `json:"max_10h" yaml:"max_10h"`
	Max12h         int `json:"max_12h" yaml:"max_12h"`
	BreakWorkedMax int `json:"break_worked_max" yaml:"break_worked_max"`
	MinBreak       int `json:"min_break" yaml:"min_break"`
}

func DefaultAmplitudePolicy() AmplitudePolicy {
	return AmplitudePolicy{
		Max8h:          8 * 60,
		Max10h:         10 * 60,
		Max12h:         12 * 60,
		BreakWorkedMax: 9 * 60,
		MinBreak:       60,
	}
}

// TripRequest is the raw trip description handed to the classifier. DistanceKm and
// DriveMinutes come from routing; OnSiteMinutes is time spent at destination, of which
// BreakMinutes the driver is released.
type TripRequest struct {
	DistanceKm    float64 `json:"distance_km"`
	DriveMinutes  int     `json:"drive_minutes"`
	OnSiteMinutes int     `json:"on_site_minutes"`
	BreakMinutes  int     `json:"break_minutes"`
	NumberOfDays  int     `json:"number_of_days"`
	RoundTrip     bool    `json:"round_trip"`
	StayWithGroup bool    `json:"stay_with_group"`
}

type TripInfo struct {
	DistanceKm     float64   `json:"distance_km"`
	DriveMinutes   int       `json:"drive_minutes"`
	ElapsedMinutes int       `json:"elapsed_minutes"`
	NumberOfDays   int       `json:"number_of_days"`
	Shape          Shape     `json:"shape"`
	Amplitude      Amplitude `json:"amplitude,omitempty"`
	StayWithGroup  bool      `json:"stay_with_group"`
}

func (t TripInfo) Category() Category {
	switch t.Shape {
	case ShapeOneWay:
		return CategoryOneWay
	case ShapeDayReturn:
		return CategoryDayTrip
	}
	if t.StayWithGroup {
		return CategoryMultiDayMAD
	}
	return CategoryMultiDay
}

type BaseFare struct {
	Amount  decimal.Decimal
	Band    *BandRange
	OffGrid bool
}

type Result struct {
	BaseFareHT                decimal.Decimal `json:"base_fare_ht"`
	RegionalSurchargeAmount   decimal.Decimal `json:"regional_surcharge_amount"`
	VehicleCoefficientApplied decimal.Decimal `json:"vehicle_coefficient_applied"`
	PerVehicleFareHT          decimal.Decimal `json:"per_vehicle_fare_ht"`
	SubtotalHT                decimal.Decimal `json:"subtotal_ht"`
	VATRate                   decimal.Decimal `json:"vat_rate"`
	VATAmount                 decimal.Decimal `json:"vat_amount"`
	TotalTTC                  decimal.Decimal `json:"total_ttc"`
	Currency                  string          `json:"currency"`
	MinorUnits                int32           `json:"minor_units"`
	GridBandUsed              *BandRange      `json:"grid_band_used,omitempty"`
	OffGridFallbackUsed       bool            `json:"off_grid_fallback_used"`
}

// Tables is the read-only rate-table snapshot one calculation runs against.
type Tables struct {
	Grids        GridSet
	Surcharges   []RegionalSurcharge
	Coefficients []VehicleCoefficient
	Vehicles     fleet.ClassTable
	Policy       AmplitudePolicy
}

type Input struct {
	Trip           TripRequest
	PassengerCount int
	DepartureDept  string
	ArrivalDept    string
	Tax            CountryTax
}

// Quote pairs the price with the fleet it was computed for.
type Quote struct {
	Trip    TripInfo         `json:"trip"`
	Pricing Result           `json:"pricing"`
	Fleet   fleet.Allocation `json:"fleet"`
}
