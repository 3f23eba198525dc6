// README: Rate-table snapshots handed to the pricing engine.
package ratetable

import (
	"context"
	"errors"
	"fmt"

	"coachquote/internal/modules/fleet"
	"coachquote/internal/modules/pricing"
)

var (
	ErrNoSnapshot = errors.New("no rate-table snapshot")
	ErrInvalid    = errors.New("invalid rate tables")
)

// Snapshot is one consistent, immutable set of rate tables. Sources hand out a fresh
// value per call; nothing mutates a snapshot after it is loaded.
type Snapshot struct {
	Version      string                       `json:"version" yaml:"version"`
	Grids        []pricing.FareGrid           `json:"grids" yaml:"grids"`
	Surcharges   []pricing.RegionalSurcharge  `json:"surcharges" yaml:"surcharges"`
	Coefficients []pricing.VehicleCoefficient `json:"coefficients" yaml:"coefficients"`
	Vehicles     fleet.ClassTable             `json:"vehicles" yaml:"vehicles"`
	Countries    []pricing.CountryTax         `json:"countries" yaml:"countries"`
	Policy       *pricing.AmplitudePolicy     `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// Source yields the current snapshot.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

func (s *Snapshot) Tables() pricing.Tables {
	policy := pricing.DefaultAmplitudePolicy()
	if s.Policy != nil {
		policy = *s.Policy
	}
	return pricing.Tables{
		Grids:        pricing.GridSet(s.Grids),
		Surcharges:   s.Surcharges,
		Coefficients: s.Coefficients,
		Vehicles:     s.Vehicles,
		Policy:       policy,
	}
}

func (s *Snapshot) RateSet() pricing.RateSet {
	return pricing.RateSet{Version: s.Version, Tables: s.Tables(), Countries: s.Countries}
}

// Validate checks the preconditions the engine relies on but does not verify itself.
func (s *Snapshot) Validate() []error {
	var errs []error
	seen := map[pricing.Category]bool{}
	for _, g := range s.Grids {
		if seen[g.Category] {
			errs = append(errs, fmt.Errorf("duplicate %s grid", g.Category))
		}
		seen[g.Category] = true
		errs = append(errs, g.Validate()...)
	}
	for _, c := range []pricing.Category{pricing.CategoryOneWay, pricing.CategoryDayTrip, pricing.CategoryMultiDay, pricing.CategoryMultiDayMAD} {
		if !seen[c] {
			errs = append(errs, fmt.Errorf("missing %s grid", c))
		}
	}

	errs = append(errs, s.Vehicles.Validate()...)
	coefs := map[string]bool{}
	for _, c := range s.Coefficients {
		if coefs[c.ClassCode] {
			errs = append(errs, fmt.Errorf("duplicate coefficient for %q", c.ClassCode))
		}
		coefs[c.ClassCode] = true
		if !c.Factor.IsPositive() {
			errs = append(errs, fmt.Errorf("coefficient for %q must be positive", c.ClassCode))
		}
	}
	for _, v := range s.Vehicles.Classes {
		if !coefs[v.Code] {
			errs = append(errs, fmt.Errorf("vehicle class %q has no coefficient", v.Code))
		}
	}

	rules := map[string]int{}
	for i, r := range s.Surcharges {
		key := surchargeKey(r)
		if j, ok := rules[key]; ok {
			prev := s.Surcharges[j]
			if !prev.Amount.Equal(r.Amount) || !prev.Percent.Equal(r.Percent) {
				errs = append(errs, fmt.Errorf("conflicting surcharge rules for %s", key))
			}
			continue
		}
		rules[key] = i
	}

	countries := map[string]bool{}
	for _, c := range s.Countries {
		if countries[c.Code] {
			errs = append(errs, fmt.Errorf("duplicate country %q", c.Code))
		}
		countries[c.Code] = true
		if c.VATRate.IsNegative() {
			errs = append(errs, fmt.Errorf("country %q has negative VAT", c.Code))
		}
	}
	return errs
}

// Check wraps Validate into a single error.
func (s *Snapshot) Check() error {
	errs := s.Validate()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func surchargeKey(r pricing.RegionalSurcharge) string {
	a, b := r.Department, r.PairedWith
	if b != "" && b < a {
		a, b = b, a
	}
	return a + "/" + b
}

// ForPricing adapts a Source to the pricing engine's RateSource.
func ForPricing(src Source) pricing.RateSource {
	return pricingSource{src: src}
}

type pricingSource struct {
	src Source
}

func (p pricingSource) RateSet(ctx context.Context) (pricing.RateSet, error) {
	snap, err := p.src.Snapshot(ctx)
	if err != nil {
		return pricing.RateSet{}, err
	}
	return snap.RateSet(), nil
}
