package fleet

import (
	"errors"
	"math"
	"testing"
)

func referenceTable() ClassTable {
	return ClassTable{
		ReferenceCode: "standard",
		Classes: []VehicleClass{
			{Code: "minibus_8", MinSeats: 1, MaxSeats: 8},
			{Code: "minibus_19", MinSeats: 9, MaxSeats: 19},
			{Code: "midi_35", MinSeats: 20, MaxSeats: 35},
			{Code: "standard", MinSeats: 36, MaxSeats: 53},
			{Code: "large_63", MinSeats: 54, MaxSeats: 63},
			{Code: "double_decker", MinSeats: 64, MaxSeats: 90},
		},
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name       string
		passengers int
		wantClass  string
		wantCount  int
		wantTotal  int
	}{
		{name: "single passenger", passengers: 1, wantClass: "minibus_8", wantCount: 1, wantTotal: 8},
		{name: "class boundary low", passengers: 36, wantClass: "standard", wantCount: 1, wantTotal: 53},
		{name: "school group", passengers: 45, wantClass: "standard", wantCount: 1, wantTotal: 53},
		{name: "class boundary high", passengers: 53, wantClass: "standard", wantCount: 1, wantTotal: 53},
		{name: "ceiling", passengers: 90, wantClass: "double_decker", wantCount: 1, wantTotal: 90},
		{name: "just above ceiling", passengers: 91, wantClass: "standard", wantCount: 2, wantTotal: 106},
		{name: "150 passengers", passengers: 150, wantClass: "standard", wantCount: 3, wantTotal: 159},
		{name: "exact multiple", passengers: 159, wantClass: "standard", wantCount: 3, wantTotal: 159},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(tt.passengers, referenceTable())
			if err != nil {
				t.Fatalf("Allocate(%d) error = %v", tt.passengers, err)
			}
			if got.VehicleClass != tt.wantClass || got.VehicleCount != tt.wantCount || got.TotalCapacity != tt.wantTotal {
				t.Errorf("Allocate(%d) = %+v, want class=%s count=%d total=%d",
					tt.passengers, got, tt.wantClass, tt.wantCount, tt.wantTotal)
			}
		})
	}
}

func TestAllocate_EveryCountWithinCeilingUsesOneContainingClass(t *testing.T) {
	table := referenceTable()
	for n := 1; n <= table.Ceiling(); n++ {
		got, err := Allocate(n, table)
		if err != nil {
			t.Fatalf("Allocate(%d) error = %v", n, err)
		}
		if got.VehicleCount != 1 {
			t.Fatalf("Allocate(%d) count = %d, want 1", n, got.VehicleCount)
		}
		matches := 0
		for _, c := range table.Classes {
			if c.Contains(n) {
				matches++
				if c.Code != got.VehicleClass {
					t.Fatalf("Allocate(%d) class = %s, want %s", n, got.VehicleClass, c.Code)
				}
			}
		}
		if matches != 1 {
			t.Fatalf("%d passengers matched %d classes", n, matches)
		}
	}
}

func TestAllocate_AboveCeilingSplitsIntoReferenceVehicles(t *testing.T) {
	table := referenceTable()
	for n := 91; n <= 600; n++ {
		got, err := Allocate(n, table)
		if err != nil {
			t.Fatalf("Allocate(%d) error = %v", n, err)
		}
		want := (n + 52) / 53
		if got.VehicleCount != want || got.VehicleClass != "standard" {
			t.Fatalf("Allocate(%d) = %+v, want %d x standard", n, got, want)
		}
		if got.TotalCapacity < n {
			t.Fatalf("Allocate(%d) total capacity %d below demand", n, got.TotalCapacity)
		}
		if got.Slack(n) >= 53 {
			t.Fatalf("Allocate(%d) slack %d, one vehicle too many", n, got.Slack(n))
		}
	}
}

func TestAllocate_Errors(t *testing.T) {
	gapped := ClassTable{
		ReferenceCode: "standard",
		Classes: []VehicleClass{
			{Code: "minibus_19", MinSeats: 1, MaxSeats: 19},
			{Code: "standard", MinSeats: 30, MaxSeats: 53},
		},
	}
	noRef := ClassTable{
		ReferenceCode: "missing",
		Classes:       []VehicleClass{{Code: "standard", MinSeats: 1, MaxSeats: 53}},
	}
	tests := []struct {
		name       string
		passengers int
		table      ClassTable
		wantErr    error
	}{
		{name: "zero", passengers: 0, table: referenceTable(), wantErr: ErrInvalidPassengerCount},
		{name: "negative", passengers: -4, table: referenceTable(), wantErr: ErrInvalidPassengerCount},
		{name: "configuration gap", passengers: 25, table: gapped, wantErr: ErrNoMatchingVehicleClass},
		{name: "no reference above ceiling", passengers: 60, table: noRef, wantErr: ErrNoReferenceClass},
		{name: "capacity overflows int", passengers: math.MaxInt, table: referenceTable(), wantErr: ErrInvalidPassengerCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.passengers, tt.table)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Allocate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllocate_LargestBookableGroup(t *testing.T) {
	passengers := (math.MaxInt / 53) * 53
	got, err := Allocate(passengers, referenceTable())
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got.VehicleCount != math.MaxInt/53 || got.TotalCapacity < passengers || got.TotalCapacity <= 0 {
		t.Fatalf("unexpected allocation %+v", got)
	}
}

func TestClassTable_Validate(t *testing.T) {
	if errs := referenceTable().Validate(); len(errs) != 0 {
		t.Fatalf("reference table should be valid, got %v", errs)
	}

	broken := ClassTable{
		ReferenceCode: "coach",
		Classes: []VehicleClass{
			{Code: "a", MinSeats: 2, MaxSeats: 10},
			{Code: "b", MinSeats: 10, MaxSeats: 20},
			{Code: "c", MinSeats: 25, MaxSeats: 30},
		},
	}
	// start != 1, overlap a/b, gap b/c, missing reference
	if errs := broken.Validate(); len(errs) != 4 {
		t.Fatalf("expected 4 validation errors, got %d: %v", len(errs), errs)
	}
}
