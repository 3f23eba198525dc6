package ratetable

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"coachquote/internal/modules/pricing"
)

func loadSample(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := LoadFile("testdata/rates.yaml")
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	return snap
}

func TestLoadFile(t *testing.T) {
	snap := loadSample(t)

	if snap.Version != "2026-10-fr" {
		t.Fatalf("version = %q", snap.Version)
	}
	if len(snap.Grids) != 4 {
		t.Fatalf("expected 4 grids, got %d", len(snap.Grids))
	}
	if snap.Vehicles.ReferenceCode != "standard" {
		t.Fatalf("reference = %q", snap.Vehicles.ReferenceCode)
	}
	day, ok := pricing.GridSet(snap.Grids).For(pricing.CategoryDayTrip)
	if !ok {
		t.Fatalf("day_trip grid missing")
	}
	if day.Bands[2].Price12h != nil {
		t.Fatalf("expected 100-150 band to have no 12h price")
	}
	if !day.OffGridPerKm.Equal(decimal.RequireFromString("2.10")) {
		t.Fatalf("off-grid rate = %s", day.OffGridPerKm)
	}
	if snap.Policy == nil || snap.Policy.BreakWorkedMax != 540 {
		t.Fatalf("policy not loaded: %+v", snap.Policy)
	}
}

func TestParse_RejectsInvalidTables(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing grids",
			yaml: `
version: x
vehicles:
  reference_code: std
  classes: [{code: std, min_seats: 1, max_seats: 53}]
coefficients: [{class_code: std, factor: 1}]
`,
			want: "missing one_way grid",
		},
		{
			name: "conflicting surcharge pair",
			yaml: `
version: x
surcharges:
  - {department: "75", paired_with: "06", amount: 120}
  - {department: "06", paired_with: "75", amount: 90}
`,
			want: "conflicting surcharge rules for 06/75",
		},
		{
			name: "coefficient missing for class",
			yaml: `
version: x
vehicles:
  reference_code: std
  classes: [{code: std, min_seats: 1, max_seats: 53}]
`,
			want: `vehicle class "std" has no coefficient`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestValidate_DuplicateSurchargeWithSameAmountIsAllowed(t *testing.T) {
	snap := loadSample(t)
	snap.Surcharges = append(snap.Surcharges, pricing.RegionalSurcharge{
		Department: "06", PairedWith: "75", Amount: decimal.NewFromInt(120),
	})
	if errs := snap.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidate_NegativeVATAndDuplicateCountry(t *testing.T) {
	snap := loadSample(t)
	snap.Countries = append(snap.Countries,
		pricing.CountryTax{Code: "FR", VATRate: decimal.NewFromInt(20), Currency: "EUR", MinorUnits: 2},
		pricing.CountryTax{Code: "XX", VATRate: decimal.NewFromInt(-1), Currency: "EUR", MinorUnits: 2},
	)
	if errs := snap.Validate(); len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestForPricing_FeedsEngine(t *testing.T) {
	src, err := NewFileSource("testdata/rates.yaml")
	if err != nil {
		t.Fatalf("file source: %v", err)
	}
	svc := pricing.NewService(ForPricing(src), nil, nil)

	est, err := svc.Estimate(context.Background(), pricing.EstimateRequest{
		Trip: pricing.TripRequest{
			DistanceKm: 120, DriveMinutes: 180, OnSiteMinutes: 360, BreakMinutes: 90,
			NumberOfDays: 1, RoundTrip: true,
		},
		PassengerCount: 45,
		DepartureDept:  "33",
		ArrivalDept:    "33",
		CountryCode:    "fr",
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.RateTableVersion != "2026-10-fr" {
		t.Fatalf("version = %q", est.RateTableVersion)
	}
	if est.Trip.Amplitude != pricing.Amplitude9hBreak {
		t.Fatalf("amplitude = %s", est.Trip.Amplitude)
	}
	if !est.Pricing.TotalTTC.Equal(decimal.NewFromInt(495)) {
		t.Fatalf("total = %s", est.Pricing.TotalTTC)
	}
}

func TestForPricing_PropagatesSourceError(t *testing.T) {
	src := ForPricing(failingSource{err: ErrNoSnapshot})
	if _, err := src.RateSet(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

type failingSource struct{ err error }

func (f failingSource) Snapshot(context.Context) (*Snapshot, error) { return nil, f.err }
