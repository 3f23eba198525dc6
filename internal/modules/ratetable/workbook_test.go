package ratetable

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"coachquote/internal/modules/pricing"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	want := loadSample(t)

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, want); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	got, err := ReadWorkbook(&buf)
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}

	if got.Version != want.Version {
		t.Errorf("version = %q, want %q", got.Version, want.Version)
	}
	if *got.Policy != *want.Policy {
		t.Errorf("policy = %+v, want %+v", *got.Policy, *want.Policy)
	}
	if got.Vehicles.ReferenceCode != "standard" || len(got.Vehicles.Classes) != len(want.Vehicles.Classes) {
		t.Errorf("vehicles = %+v", got.Vehicles)
	}
	if len(got.Surcharges) != len(want.Surcharges) || !got.Surcharges[2].Percent.Equal(want.Surcharges[2].Percent) {
		t.Errorf("surcharges = %+v", got.Surcharges)
	}
	if len(got.Countries) != 4 || got.Countries[3].Currency != "GBP" {
		t.Errorf("countries = %+v", got.Countries)
	}

	for _, c := range gridCategories {
		wg, _ := pricing.GridSet(want.Grids).For(c)
		gg, ok := pricing.GridSet(got.Grids).For(c)
		if !ok {
			t.Fatalf("%s grid missing", c)
		}
		if !gg.OffGridPerKm.Equal(*wg.OffGridPerKm) {
			t.Errorf("%s off-grid = %s, want %s", c, gg.OffGridPerKm, wg.OffGridPerKm)
		}
		if len(gg.Bands) != len(wg.Bands) {
			t.Fatalf("%s bands = %d, want %d", c, len(gg.Bands), len(wg.Bands))
		}
	}

	day, _ := pricing.GridSet(got.Grids).For(pricing.CategoryDayTrip)
	if day.Bands[2].Price12h != nil {
		t.Errorf("blank cell should stay unpriced, got %s", day.Bands[2].Price12h)
	}
	if day.Bands[2].Price9hWithBreak == nil || day.Bands[2].Price9hWithBreak.String() != "450" {
		t.Errorf("9h break price = %v", day.Bands[2].Price9hWithBreak)
	}
	multi, _ := pricing.GridSet(got.Grids).For(pricing.CategoryMultiDay)
	if multi.Bands[1].Price3Day != nil || multi.Bands[1].ExtraDaySupplement != nil {
		t.Errorf("unpriced multi-day cells were filled: %+v", multi.Bands[1])
	}
}

func TestReadWorkbook_Errors(t *testing.T) {
	t.Run("missing sheet", func(t *testing.T) {
		f := excelize.NewFile()
		defer f.Close()
		_ = f.SetSheetName("Sheet1", sheetMeta)

		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := ReadWorkbook(&buf)
		if err == nil || !strings.Contains(err.Error(), "sheet one_way") {
			t.Fatalf("expected missing sheet error, got %v", err)
		}
	})

	t.Run("bad price cell", func(t *testing.T) {
		snap := loadSample(t)
		var buf bytes.Buffer
		if err := WriteWorkbook(&buf, snap); err != nil {
			t.Fatalf("write workbook: %v", err)
		}
		f, err := excelize.OpenReader(&buf)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()
		_ = f.SetCellValue(string(pricing.CategoryOneWay), "C2", "three hundred")

		var out bytes.Buffer
		if _, err := f.WriteTo(&out); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err = ReadWorkbook(&out)
		if err == nil || !strings.Contains(err.Error(), "one_way row 2 column public_price") {
			t.Fatalf("expected cell error, got %v", err)
		}
	})
}
