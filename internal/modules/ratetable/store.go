// README: Rate-table store backed by PostgreSQL.
package ratetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"coachquote/internal/modules/fleet"
	"coachquote/internal/modules/pricing"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Snapshot reads every table inside one read-only repeatable-read transaction so a
// concurrent import is never observed half-applied.
func (s *PGStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var snap Snapshot
	err = tx.QueryRow(ctx, `SELECT version FROM rate_table_meta WHERE id = 1`).Scan(&snap.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	if snap.Grids, err = loadFareGrids(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Surcharges, err = loadSurcharges(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Coefficients, err = loadCoefficients(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Vehicles, err = loadVehicleClasses(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Countries, err = loadCountries(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Policy, err = loadPolicy(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *PGStore) LoadFareGrids(ctx context.Context) ([]pricing.FareGrid, error) {
	return loadFareGrids(ctx, s.db)
}

func (s *PGStore) LoadRegionalSurcharges(ctx context.Context) ([]pricing.RegionalSurcharge, error) {
	return loadSurcharges(ctx, s.db)
}

func (s *PGStore) LoadVehicleCoefficients(ctx context.Context) ([]pricing.VehicleCoefficient, error) {
	return loadCoefficients(ctx, s.db)
}

func (s *PGStore) LoadVehicleClasses(ctx context.Context) (fleet.ClassTable, error) {
	return loadVehicleClasses(ctx, s.db)
}

func (s *PGStore) LoadCountries(ctx context.Context) ([]pricing.CountryTax, error) {
	return loadCountries(ctx, s.db)
}

func loadFareGrids(ctx context.Context, q querier) ([]pricing.FareGrid, error) {
	rows, err := q.Query(ctx, `
        SELECT category, off_grid_per_km::text
        FROM fare_grids
        ORDER BY category`)
	if err != nil {
		return nil, err
	}
	var grids []pricing.FareGrid
	for rows.Next() {
		var g pricing.FareGrid
		var offGrid *string
		if err := rows.Scan(&g.Category, &offGrid); err != nil {
			rows.Close()
			return nil, err
		}
		if g.OffGridPerKm, err = parseNullable(offGrid); err != nil {
			rows.Close()
			return nil, err
		}
		grids = append(grids, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range grids {
		bands, err := loadBands(ctx, q, grids[i].Category)
		if err != nil {
			return nil, err
		}
		grids[i].Bands = bands
	}
	return grids, nil
}

func loadBands(ctx context.Context, q querier, c pricing.Category) ([]pricing.Band, error) {
	rows, err := q.Query(ctx, `
        SELECT km_min, km_max,
               public_price::text,
               price_8h::text, price_10h::text, price_12h::text, price_9h_break::text,
               price_2d::text, price_3d::text, price_4d::text, price_5d::text, price_6d::text,
               extra_day::text
        FROM fare_bands
        WHERE category = $1
        ORDER BY position`, string(c))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bands []pricing.Band
	for rows.Next() {
		var b pricing.Band
		raw := make([]*string, 11)
		dest := []any{&b.KmMin, &b.KmMax}
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		fields := []**decimal.Decimal{
			&b.PublicPrice,
			&b.Price8h, &b.Price10h, &b.Price12h, &b.Price9hWithBreak,
			&b.Price2Day, &b.Price3Day, &b.Price4Day, &b.Price5Day, &b.Price6Day,
			&b.ExtraDaySupplement,
		}
		for i, f := range fields {
			v, err := parseNullable(raw[i])
			if err != nil {
				return nil, fmt.Errorf("%s band %d-%d: %w", c, b.KmMin, b.KmMax, err)
			}
			*f = v
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

func loadSurcharges(ctx context.Context, q querier) ([]pricing.RegionalSurcharge, error) {
	rows, err := q.Query(ctx, `
        SELECT department, COALESCE(paired_with, ''), amount::text, percent::text
        FROM regional_surcharges
        ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.RegionalSurcharge
	for rows.Next() {
		var r pricing.RegionalSurcharge
		var amount, percent string
		if err := rows.Scan(&r.Department, &r.PairedWith, &amount, &percent); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if r.Percent, err = decimal.NewFromString(percent); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func loadCoefficients(ctx context.Context, q querier) ([]pricing.VehicleCoefficient, error) {
	rows, err := q.Query(ctx, `SELECT class_code, factor::text FROM vehicle_coefficients ORDER BY class_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.VehicleCoefficient
	for rows.Next() {
		var c pricing.VehicleCoefficient
		var factor string
		if err := rows.Scan(&c.ClassCode, &factor); err != nil {
			return nil, err
		}
		if c.Factor, err = decimal.NewFromString(factor); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func loadVehicleClasses(ctx context.Context, q querier) (fleet.ClassTable, error) {
	rows, err := q.Query(ctx, `SELECT code, min_seats, max_seats, is_reference FROM vehicle_classes ORDER BY min_seats`)
	if err != nil {
		return fleet.ClassTable{}, err
	}
	defer rows.Close()

	var t fleet.ClassTable
	for rows.Next() {
		var c fleet.VehicleClass
		var ref bool
		if err := rows.Scan(&c.Code, &c.MinSeats, &c.MaxSeats, &ref); err != nil {
			return fleet.ClassTable{}, err
		}
		if ref {
			t.ReferenceCode = c.Code
		}
		t.Classes = append(t.Classes, c)
	}
	return t, rows.Err()
}

func loadCountries(ctx context.Context, q querier) ([]pricing.CountryTax, error) {
	rows, err := q.Query(ctx, `SELECT code, vat_rate::text, currency, minor_units FROM country_taxes ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.CountryTax
	for rows.Next() {
		var c pricing.CountryTax
		var rate string
		if err := rows.Scan(&c.Code, &rate, &c.Currency, &c.MinorUnits); err != nil {
			return nil, err
		}
		if c.VATRate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func loadPolicy(ctx context.Context, q querier) (*pricing.AmplitudePolicy, error) {
	var p pricing.AmplitudePolicy
	err := q.QueryRow(ctx, `
        SELECT max_8h, max_10h, max_12h, break_worked_max, min_break
        FROM amplitude_policy WHERE id = 1`).
		Scan(&p.Max8h, &p.Max10h, &p.Max12h, &p.BreakWorkedMax, &p.MinBreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Replace swaps the whole rate-table set in one transaction.
func (s *PGStore) Replace(ctx context.Context, snap *Snapshot) error {
	if err := snap.Check(); err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"fare_bands", "fare_grids", "regional_surcharges", "vehicle_coefficients", "vehicle_classes", "country_taxes", "amplitude_policy"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, g := range snap.Grids {
		if _, err := tx.Exec(ctx, `INSERT INTO fare_grids (category, off_grid_per_km) VALUES ($1, $2::numeric)`,
			string(g.Category), nullableText(g.OffGridPerKm)); err != nil {
			return err
		}
		for i, b := range g.Bands {
			_, err := tx.Exec(ctx, `
                INSERT INTO fare_bands (
                    category, position, km_min, km_max, public_price,
                    price_8h, price_10h, price_12h, price_9h_break,
                    price_2d, price_3d, price_4d, price_5d, price_6d, extra_day
                ) VALUES (
                    $1, $2, $3, $4, $5::numeric,
                    $6::numeric, $7::numeric, $8::numeric, $9::numeric,
                    $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15::numeric
                )`,
				string(g.Category), i, b.KmMin, b.KmMax, nullableText(b.PublicPrice),
				nullableText(b.Price8h), nullableText(b.Price10h), nullableText(b.Price12h), nullableText(b.Price9hWithBreak),
				nullableText(b.Price2Day), nullableText(b.Price3Day), nullableText(b.Price4Day), nullableText(b.Price5Day), nullableText(b.Price6Day),
				nullableText(b.ExtraDaySupplement),
			)
			if err != nil {
				return err
			}
		}
	}
	for i, r := range snap.Surcharges {
		var paired *string
		if r.PairedWith != "" {
			paired = &r.PairedWith
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO regional_surcharges (position, department, paired_with, amount, percent)
            VALUES ($1, $2, $3, $4::numeric, $5::numeric)`,
			i, r.Department, paired, r.Amount.String(), r.Percent.String()); err != nil {
			return err
		}
	}
	for _, c := range snap.Coefficients {
		if _, err := tx.Exec(ctx, `INSERT INTO vehicle_coefficients (class_code, factor) VALUES ($1, $2::numeric)`,
			c.ClassCode, c.Factor.String()); err != nil {
			return err
		}
	}
	for _, v := range snap.Vehicles.Classes {
		if _, err := tx.Exec(ctx, `INSERT INTO vehicle_classes (code, min_seats, max_seats, is_reference) VALUES ($1, $2, $3, $4)`,
			v.Code, v.MinSeats, v.MaxSeats, v.Code == snap.Vehicles.ReferenceCode); err != nil {
			return err
		}
	}
	for _, c := range snap.Countries {
		if _, err := tx.Exec(ctx, `INSERT INTO country_taxes (code, vat_rate, currency, minor_units) VALUES ($1, $2::numeric, $3, $4)`,
			c.Code, c.VATRate.String(), c.Currency, c.MinorUnits); err != nil {
			return err
		}
	}
	if p := snap.Policy; p != nil {
		if _, err := tx.Exec(ctx, `
            INSERT INTO amplitude_policy (id, max_8h, max_10h, max_12h, break_worked_max, min_break)
            VALUES (1, $1, $2, $3, $4, $5)`,
			p.Max8h, p.Max10h, p.Max12h, p.BreakWorkedMax, p.MinBreak); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO rate_table_meta (id, version, updated_at) VALUES (1, $1, NOW())
        ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = NOW()`,
		snap.Version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func parseNullable(v *string) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
