package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"coachquote/internal/modules/fleet"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func val(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(val(want)) {
		t.Errorf("%s = %s, want %s", field, got.String(), want)
	}
}

func testVehicles() fleet.ClassTable {
	return fleet.ClassTable{
		ReferenceCode: "standard",
		Classes: []fleet.VehicleClass{
			{Code: "minibus_8", MinSeats: 1, MaxSeats: 8},
			{Code: "minibus_19", MinSeats: 9, MaxSeats: 19},
			{Code: "midi_35", MinSeats: 20, MaxSeats: 35},
			{Code: "standard", MinSeats: 36, MaxSeats: 53},
			{Code: "large_63", MinSeats: 54, MaxSeats: 63},
			{Code: "double_decker", MinSeats: 64, MaxSeats: 90},
		},
	}
}

func testGrids() GridSet {
	return GridSet{
		{
			Category:     CategoryOneWay,
			OffGridPerKm: dec("1.80"),
			Bands: []Band{
				{KmMin: 0, KmMax: 100, PublicPrice: dec("300")},
				{KmMin: 101, KmMax: 600, PublicPrice: dec("700")},
			},
		},
		{
			Category:     CategoryDayTrip,
			OffGridPerKm: dec("2.10"),
			Bands: []Band{
				{KmMin: 0, KmMax: 50, Price8h: dec("280"), Price10h: dec("330"), Price12h: dec("390"), Price9hWithBreak: dec("310")},
				{KmMin: 51, KmMax: 99, Price8h: dec("340"), Price10h: dec("400"), Price12h: dec("460"), Price9hWithBreak: dec("380")},
				{KmMin: 100, KmMax: 150, Price8h: dec("400"), Price10h: dec("480"), Price12h: nil, Price9hWithBreak: dec("450")},
				{KmMin: 151, KmMax: 600, Price8h: dec("520"), Price10h: dec("610"), Price12h: dec("700"), Price9hWithBreak: dec("580")},
			},
		},
		{
			Category:     CategoryMultiDay,
			OffGridPerKm: dec("2.40"),
			Bands: []Band{
				{KmMin: 0, KmMax: 300, Price2Day: dec("900"), Price3Day: dec("1300"), Price4Day: dec("1700"), Price5Day: dec("2100"), Price6Day: dec("2500"), ExtraDaySupplement: dec("400")},
				{KmMin: 301, KmMax: 1000, Price2Day: dec("1400"), Price3Day: nil, Price4Day: dec("2300"), Price5Day: dec("2700"), Price6Day: dec("3100")},
			},
		},
		{
			Category:     CategoryMultiDayMAD,
			OffGridPerKm: dec("2.60"),
			Bands: []Band{
				{KmMin: 0, KmMax: 1000, Price2Day: dec("1100"), Price3Day: dec("1550"), Price4Day: dec("2000"), Price5Day: dec("2500"), Price6Day: dec("3000"), ExtraDaySupplement: dec("450")},
			},
		},
	}
}

func testTables() Tables {
	return Tables{
		Grids: testGrids(),
		Surcharges: []RegionalSurcharge{
			{Department: "75", Amount: val("50")},
			{Department: "75", PairedWith: "06", Amount: val("120")},
			{Department: "2A", Percent: val("10")},
		},
		Coefficients: []VehicleCoefficient{
			{ClassCode: "minibus_8", Factor: val("0.6")},
			{ClassCode: "minibus_19", Factor: val("0.75")},
			{ClassCode: "midi_35", Factor: val("0.9")},
			{ClassCode: "standard", Factor: val("1.0")},
			{ClassCode: "large_63", Factor: val("1.15")},
			{ClassCode: "double_decker", Factor: val("1.3")},
		},
		Vehicles: testVehicles(),
		Policy:   DefaultAmplitudePolicy(),
	}
}

func franceTax() CountryTax {
	return CountryTax{Code: "FR", VATRate: val("10"), Currency: "EUR", MinorUnits: 2}
}
