package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"coachquote/internal/modules/fleet"
)

func TestSurchargeAmount(t *testing.T) {
	rules := testTables().Surcharges
	base := val("400")
	tests := []struct {
		name      string
		departure string
		arrival   string
		want      string
	}{
		{name: "no match", departure: "69", arrival: "13", want: "0"},
		{name: "single department on departure", departure: "75", arrival: "13", want: "50"},
		{name: "single department on arrival", departure: "13", arrival: "75", want: "50"},
		{name: "pair beats single", departure: "75", arrival: "06", want: "120"},
		{name: "pair is unordered", departure: "06", arrival: "75", want: "120"},
		{name: "percentage rule", departure: "2a", arrival: "2B", want: "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SurchargeAmount(rules, tt.departure, tt.arrival, base)
			assertDecimal(t, "surcharge", got, tt.want)
		})
	}
}

func TestSurchargeAmount_FirstSingleRuleWins(t *testing.T) {
	rules := []RegionalSurcharge{
		{Department: "13", Amount: val("30")},
		{Department: "75", Amount: val("50")},
	}
	got := SurchargeAmount(rules, "75", "13", val("100"))
	assertDecimal(t, "surcharge", got, "30")
}

func TestCompose(t *testing.T) {
	tables := testTables()
	tests := []struct {
		name         string
		base         string
		alloc        fleet.Allocation
		departure    string
		arrival      string
		tax          CountryTax
		wantSubtotal string
		wantVAT      string
		wantTotal    string
	}{
		{
			name:         "plain standard coach",
			base:         "450",
			alloc:        fleet.Allocation{VehicleClass: "standard", VehicleCount: 1, CapacityPerVehicle: 53, TotalCapacity: 53},
			tax:          franceTax(),
			wantSubtotal: "450",
			wantVAT:      "45",
			wantTotal:    "495",
		},
		{
			name:         "surcharge before coefficient",
			base:         "400",
			alloc:        fleet.Allocation{VehicleClass: "large_63", VehicleCount: 1, CapacityPerVehicle: 63, TotalCapacity: 63},
			departure:    "75",
			arrival:      "69",
			tax:          franceTax(),
			wantSubtotal: "517.5", // (400 + 50) x 1.15
			wantVAT:      "51.75",
			wantTotal:    "569.25",
		},
		{
			name:         "coefficient once per vehicle",
			base:         "700",
			alloc:        fleet.Allocation{VehicleClass: "standard", VehicleCount: 3, CapacityPerVehicle: 53, TotalCapacity: 159},
			tax:          CountryTax{Code: "DE", VATRate: val("7"), Currency: "EUR", MinorUnits: 2},
			wantSubtotal: "2100",
			wantVAT:      "147",
			wantTotal:    "2247",
		},
		{
			name:         "zero rated",
			base:         "333.33",
			alloc:        fleet.Allocation{VehicleClass: "standard", VehicleCount: 1, CapacityPerVehicle: 53, TotalCapacity: 53},
			tax:          CountryTax{Code: "GB", VATRate: val("0"), Currency: "GBP", MinorUnits: 2},
			wantSubtotal: "333.33",
			wantVAT:      "0",
			wantTotal:    "333.33",
		},
		{
			name:         "half-to-even on the total",
			base:         "10.15",
			alloc:        fleet.Allocation{VehicleClass: "standard", VehicleCount: 1, CapacityPerVehicle: 53, TotalCapacity: 53},
			tax:          franceTax(),
			wantSubtotal: "10.15",
			wantVAT:      "1.01", // 11.165 rounds to 11.16
			wantTotal:    "11.16",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compose(ComposeInput{
				Base:          BaseFare{Amount: val(tt.base)},
				Allocation:    tt.alloc,
				DepartureDept: tt.departure,
				ArrivalDept:   tt.arrival,
				Surcharges:    tables.Surcharges,
				Coefficients:  tables.Coefficients,
				Tax:           tt.tax,
			})
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			assertDecimal(t, "subtotal", got.SubtotalHT, tt.wantSubtotal)
			assertDecimal(t, "vat", got.VATAmount, tt.wantVAT)
			assertDecimal(t, "total", got.TotalTTC, tt.wantTotal)
			if !got.TotalTTC.Sub(got.VATAmount).Equal(got.SubtotalHT) {
				t.Errorf("total - vat = %s, want subtotal %s", got.TotalTTC.Sub(got.VATAmount), got.SubtotalHT)
			}
		})
	}
}

func TestCompose_VATIdentityHoldsForAnyRate(t *testing.T) {
	tables := testTables()
	bases := []string{"1", "99.99", "450", "1234.567", "0.01", "98765.4321"}
	rates := []string{"0", "5.5", "7", "10", "19.6", "20", "21", "33.333"}
	for _, b := range bases {
		for _, r := range rates {
			got, err := Compose(ComposeInput{
				Base:         BaseFare{Amount: val(b)},
				Allocation:   fleet.Allocation{VehicleClass: "midi_35", VehicleCount: 2, CapacityPerVehicle: 35, TotalCapacity: 70},
				Coefficients: tables.Coefficients,
				Tax:          CountryTax{VATRate: val(r), Currency: "EUR", MinorUnits: 2},
			})
			if err != nil {
				t.Fatalf("Compose(%s, %s) error = %v", b, r, err)
			}
			if !got.TotalTTC.Sub(got.VATAmount).Equal(got.SubtotalHT) {
				t.Fatalf("base %s rate %s: %s - %s != %s", b, r, got.TotalTTC, got.VATAmount, got.SubtotalHT)
			}
			if got.TotalTTC.Exponent() < -2 {
				t.Fatalf("base %s rate %s: total %s not rounded to cents", b, r, got.TotalTTC)
			}
		}
	}
}

func TestCompose_MissingCoefficient(t *testing.T) {
	_, err := Compose(ComposeInput{
		Base:         BaseFare{Amount: decimal.NewFromInt(100)},
		Allocation:   fleet.Allocation{VehicleClass: "limousine", VehicleCount: 1},
		Coefficients: testTables().Coefficients,
		Tax:          franceTax(),
	})
	if !errors.Is(err, ErrMissingCoefficient) {
		t.Errorf("Compose() error = %v, want ErrMissingCoefficient", err)
	}
}

func TestCompose_CarriesCurrencyMinorUnits(t *testing.T) {
	got, err := Compose(ComposeInput{
		Base:         BaseFare{Amount: val("99.99")},
		Allocation:   fleet.Allocation{VehicleClass: "midi_35", VehicleCount: 1, CapacityPerVehicle: 35, TotalCapacity: 35},
		Coefficients: testTables().Coefficients,
		Tax:          CountryTax{Code: "JP", VATRate: val("10"), Currency: "JPY", MinorUnits: 0},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got.MinorUnits != 0 || got.Currency != "JPY" {
		t.Fatalf("currency = %s/%d", got.Currency, got.MinorUnits)
	}
	if got.TotalTTC.Exponent() < 0 {
		t.Fatalf("total %s not rounded to whole yen", got.TotalTTC)
	}
	if !got.TotalTTC.Sub(got.VATAmount).Equal(got.SubtotalHT) {
		t.Fatalf("VAT identity broken: %s - %s != %s", got.TotalTTC, got.VATAmount, got.SubtotalHT)
	}
}
