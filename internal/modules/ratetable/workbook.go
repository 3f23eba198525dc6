// README: Spreadsheet import/export of rate tables (the format sales maintains grids in).
package ratetable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"coachquote/internal/modules/fleet"
	"coachquote/internal/modules/pricing"
)

const (
	sheetMeta         = "meta"
	sheetSurcharges   = "surcharges"
	sheetCoefficients = "coefficients"
	sheetVehicles     = "vehicles"
	sheetCountries    = "countries"
)

var gridCategories = []pricing.Category{
	pricing.CategoryOneWay, pricing.CategoryDayTrip, pricing.CategoryMultiDay, pricing.CategoryMultiDayMAD,
}

var bandColumns = []string{
	"km_min", "km_max", "public_price",
	"price_8h", "price_10h", "price_12h", "price_9h_break",
	"price_2d", "price_3d", "price_4d", "price_5d", "price_6d", "extra_day",
}

// ImportWorkbook reads an .xlsx rate-table workbook and validates the result.
func ImportWorkbook(path string) (*Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func ReadWorkbook(r io.Reader) (*Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*Snapshot, error) {
	var snap Snapshot
	meta, err := readMeta(f)
	if err != nil {
		return nil, err
	}
	snap.Version = meta["version"]
	if snap.Policy, err = policyFromMeta(meta); err != nil {
		return nil, err
	}

	for _, c := range gridCategories {
		g := pricing.FareGrid{Category: c}
		if g.OffGridPerKm, err = optionalDecimal(meta["off_grid_per_km."+string(c)]); err != nil {
			return nil, fmt.Errorf("%s off-grid rate: %w", c, err)
		}
		err := eachRow(f, string(c), func(row sheetRow) error {
			b, err := bandFromRow(row)
			if err != nil {
				return err
			}
			g.Bands = append(g.Bands, b)
			return nil
		})
		if err != nil {
			return nil, err
		}
		snap.Grids = append(snap.Grids, g)
	}

	err = eachRow(f, sheetSurcharges, func(row sheetRow) error {
		r := pricing.RegionalSurcharge{Department: row.get("department"), PairedWith: row.get("paired_with")}
		var err error
		if r.Amount, err = row.decimal("amount"); err != nil {
			return err
		}
		if r.Percent, err = row.decimal("percent"); err != nil {
			return err
		}
		snap.Surcharges = append(snap.Surcharges, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, sheetCoefficients, func(row sheetRow) error {
		factor, err := row.decimal("factor")
		if err != nil {
			return err
		}
		snap.Coefficients = append(snap.Coefficients, pricing.VehicleCoefficient{ClassCode: row.get("class_code"), Factor: factor})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, sheetVehicles, func(row sheetRow) error {
		v := fleet.VehicleClass{Code: row.get("code")}
		var err error
		if v.MinSeats, err = row.int("min_seats"); err != nil {
			return err
		}
		if v.MaxSeats, err = row.int("max_seats"); err != nil {
			return err
		}
		if isTrue(row.get("reference")) {
			snap.Vehicles.ReferenceCode = v.Code
		}
		snap.Vehicles.Classes = append(snap.Vehicles.Classes, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, sheetCountries, func(row sheetRow) error {
		c := pricing.CountryTax{Code: row.get("code"), Currency: row.get("currency")}
		var err error
		if c.VATRate, err = row.decimal("vat_rate"); err != nil {
			return err
		}
		units, err := row.int("minor_units")
		if err != nil {
			return err
		}
		c.MinorUnits = int32(units)
		snap.Countries = append(snap.Countries, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := snap.Check(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// WriteWorkbook renders a snapshot in the layout ImportWorkbook reads.
func WriteWorkbook(w io.Writer, snap *Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetMeta); err != nil {
		return err
	}
	meta := [][]any{{"key", "value"}, {"version", snap.Version}}
	for _, g := range snap.Grids {
		if g.OffGridPerKm != nil {
			meta = append(meta, []any{"off_grid_per_km." + string(g.Category), g.OffGridPerKm.String()})
		}
	}
	if p := snap.Policy; p != nil {
		meta = append(meta,
			[]any{"max_8h", p.Max8h}, []any{"max_10h", p.Max10h}, []any{"max_12h", p.Max12h},
			[]any{"break_worked_max", p.BreakWorkedMax}, []any{"min_break", p.MinBreak})
	}
	if err := writeRows(f, sheetMeta, meta); err != nil {
		return err
	}

	for _, c := range gridCategories {
		rows := [][]any{toAny(bandColumns)}
		if g, ok := pricing.GridSet(snap.Grids).For(c); ok {
			for _, b := range g.Bands {
				rows = append(rows, []any{
					b.KmMin, b.KmMax, text(b.PublicPrice),
					text(b.Price8h), text(b.Price10h), text(b.Price12h), text(b.Price9hWithBreak),
					text(b.Price2Day), text(b.Price3Day), text(b.Price4Day), text(b.Price5Day), text(b.Price6Day),
					text(b.ExtraDaySupplement),
				})
			}
		}
		if err := writeRows(f, string(c), rows); err != nil {
			return err
		}
	}

	surcharges := [][]any{{"department", "paired_with", "amount", "percent"}}
	for _, r := range snap.Surcharges {
		surcharges = append(surcharges, []any{r.Department, r.PairedWith, r.Amount.String(), r.Percent.String()})
	}
	coefficients := [][]any{{"class_code", "factor"}}
	for _, c := range snap.Coefficients {
		coefficients = append(coefficients, []any{c.ClassCode, c.Factor.String()})
	}
	vehicles := [][]any{{"code", "min_seats", "max_seats", "reference"}}
	for _, v := range snap.Vehicles.Classes {
		ref := ""
		if v.Code == snap.Vehicles.ReferenceCode {
			ref = "yes"
		}
		vehicles = append(vehicles, []any{v.Code, v.MinSeats, v.MaxSeats, ref})
	}
	countries := [][]any{{"code", "vat_rate", "currency", "minor_units"}}
	for _, c := range snap.Countries {
		countries = append(countries, []any{c.Code, c.VATRate.String(), c.Currency, c.MinorUnits})
	}
	sheets := []struct {
		name string
		rows [][]any
	}{
		{sheetSurcharges, surcharges},
		{sheetCoefficients, coefficients},
		{sheetVehicles, vehicles},
		{sheetCountries, countries},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

type sheetRow struct {
	sheet  string
	line   int
	header map[string]int
	cells  []string
}

func (r sheetRow) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r sheetRow) decimal(col string) (decimal.Decimal, error) {
	v := r.get(col)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, r.errorf(col, err)
	}
	return d, nil
}

func (r sheetRow) int(col string) (int, error) {
	n, err := strconv.Atoi(r.get(col))
	if err != nil {
		return 0, r.errorf(col, err)
	}
	return n, nil
}

func (r sheetRow) errorf(col string, err error) error {
	return fmt.Errorf("%s row %d column %s: %w", r.sheet, r.line, col, err)
}

func eachRow(f *excelize.File, sheet string, fn func(sheetRow) error) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}
	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		if err := fn(sheetRow{sheet: sheet, line: i + 2, header: header, cells: cells}); err != nil {
			return err
		}
	}
	return nil
}

func readMeta(f *excelize.File) (map[string]string, error) {
	meta := map[string]string{}
	err := eachRow(f, sheetMeta, func(row sheetRow) error {
		meta[row.get("key")] = row.get("value")
		return nil
	})
	return meta, err
}

func policyFromMeta(meta map[string]string) (*pricing.AmplitudePolicy, error) {
	keys := []string{"max_8h", "max_10h", "max_12h", "break_worked_max", "min_break"}
	present := false
	for _, k := range keys {
		if meta[k] != "" {
			present = true
		}
	}
	if !present {
		return nil, nil
	}
	p := pricing.DefaultAmplitudePolicy()
	fields := []*int{&p.Max8h, &p.Max10h, &p.Max12h, &p.BreakWorkedMax, &p.MinBreak}
	for i, k := range keys {
		if meta[k] == "" {
			continue
		}
		n, err := strconv.Atoi(meta[k])
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", k, err)
		}
		*fields[i] = n
	}
	return &p, nil
}

func bandFromRow(row sheetRow) (pricing.Band, error) {
	var b pricing.Band
	var err error
	if b.KmMin, err = row.int("km_min"); err != nil {
		return b, err
	}
	if b.KmMax, err = row.int("km_max"); err != nil {
		return b, err
	}
	fields := []**decimal.Decimal{
		&b.PublicPrice,
		&b.Price8h, &b.Price10h, &b.Price12h, &b.Price9hWithBreak,
		&b.Price2Day, &b.Price3Day, &b.Price4Day, &b.Price5Day, &b.Price6Day,
		&b.ExtraDaySupplement,
	}
	for i, col := range bandColumns[2:] {
		d, err := optionalDecimal(row.get(col))
		if err != nil {
			return b, row.errorf(col, err)
		}
		*fields[i] = d
	}
	return b, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func optionalDecimal(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func text(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func toAny(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1", "x":
		return true
	}
	return false
}
