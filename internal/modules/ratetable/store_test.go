package ratetable

import (
	"context"
	"errors"
	"testing"

	"coachquote/internal/modules/pricing"
	"coachquote/internal/testutil"
)

var rateTables = []string{
	"rate_table_meta", "fare_bands", "fare_grids", "regional_surcharges",
	"vehicle_coefficients", "vehicle_classes", "country_taxes", "amplitude_policy",
}

func TestPGStore_ReplaceAndSnapshot(t *testing.T) {
	store := NewPGStore(testutil.DB(t, rateTables...))
	ctx := context.Background()

	if _, err := store.Snapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on empty store, got %v", err)
	}

	want := loadSample(t)
	if err := store.Replace(ctx, want); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if errs := got.Validate(); len(errs) != 0 {
		t.Fatalf("stored snapshot invalid: %v", errs)
	}
	if got.Version != want.Version || *got.Policy != *want.Policy {
		t.Fatalf("meta mismatch: %q %+v", got.Version, got.Policy)
	}
	if len(got.Surcharges) != 3 || got.Surcharges[1].PairedWith != "06" {
		t.Fatalf("surcharges = %+v", got.Surcharges)
	}
	day, _ := pricing.GridSet(got.Grids).For(pricing.CategoryDayTrip)
	if len(day.Bands) != 4 || day.Bands[2].Price12h != nil {
		t.Fatalf("day grid = %+v", day.Bands)
	}

	grids, err := store.LoadFareGrids(ctx)
	if err != nil || len(grids) != 4 {
		t.Fatalf("LoadFareGrids = %d, %v", len(grids), err)
	}
	coefs, err := store.LoadVehicleCoefficients(ctx)
	if err != nil || len(coefs) != 6 {
		t.Fatalf("LoadVehicleCoefficients = %d, %v", len(coefs), err)
	}

	classes, err := store.LoadVehicleClasses(ctx)
	if err != nil || len(classes.Classes) != 6 || classes.ReferenceCode != "standard" {
		t.Fatalf("LoadVehicleClasses = %+v, %v", classes, err)
	}
	countries, err := store.LoadCountries(ctx)
	if err != nil || len(countries) != 4 {
		t.Fatalf("LoadCountries = %d, %v", len(countries), err)
	}
	gb := pricing.RateSet{Countries: countries}
	if tax, err := gb.Country("gb"); err != nil || tax.Currency != "GBP" || !tax.VATRate.IsZero() {
		t.Fatalf("GB tax = %+v, %v", tax, err)
	}

	// A second import replaces rather than appends.
	want.Version = "2026-11-fr"
	want.Surcharges = want.Surcharges[:1]
	if err := store.Replace(ctx, want); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	rules, err := store.LoadRegionalSurcharges(ctx)
	if err != nil || len(rules) != 1 {
		t.Fatalf("LoadRegionalSurcharges = %d, %v", len(rules), err)
	}
}

func TestPGStore_ReplaceRejectsInvalid(t *testing.T) {
	store := NewPGStore(testutil.DB(t, rateTables...))
	err := store.Replace(context.Background(), &Snapshot{Version: "broken"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
