package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"coachquote/internal/modules/fleet"
)

var hundred = decimal.NewFromInt(100)

type ComposeInput struct {
	Base          BaseFare
	Allocation    fleet.Allocation
	DepartureDept string
	ArrivalDept   string
	Surcharges    []RegionalSurcharge
	Coefficients  []VehicleCoefficient
	Tax           CountryTax
}

// Compose turns a base fare into the final breakdown. The surcharge is added to the
// pre-coefficient base, the coefficient is applied once per vehicle, and only the
// total is rounded.
func Compose(in ComposeInput) (Result, error) {
	coef, err := coefficientFor(in.Coefficients, in.Allocation.VehicleClass)
	if err != nil {
		return Result{}, err
	}
	if in.Allocation.VehicleCount < 1 {
		return Result{}, fmt.Errorf("%w: %d vehicles", fleet.ErrInvalidPassengerCount, in.Allocation.VehicleCount)
	}

	surcharge := SurchargeAmount(in.Surcharges, in.DepartureDept, in.ArrivalDept, in.Base.Amount)
	adjusted := in.Base.Amount.Add(surcharge)
	perVehicle := adjusted.Mul(coef)
	subtotal := perVehicle.Mul(decimal.NewFromInt(int64(in.Allocation.VehicleCount)))

	vat := subtotal.Mul(in.Tax.VATRate).Div(hundred)
	total := subtotal.Add(vat).RoundBank(in.Tax.MinorUnits)

	return Result{
		BaseFareHT:                in.Base.Amount,
		RegionalSurchargeAmount:   surcharge,
		VehicleCoefficientApplied: coef,
		PerVehicleFareHT:          perVehicle,
		SubtotalHT:                subtotal,
		VATRate:                   in.Tax.VATRate,
		VATAmount:                 total.Sub(subtotal),
		TotalTTC:                  total,
		Currency:                  in.Tax.Currency,
		MinorUnits:                in.Tax.MinorUnits,
		GridBandUsed:              in.Base.Band,
		OffGridFallbackUsed:       in.Base.OffGrid,
	}, nil
}

// SurchargeAmount returns the regional extra for a departure/arrival pair. A pair rule
// beats a single-department rule; among rules of equal specificity the first in table
// order wins. No match contributes zero.
func SurchargeAmount(rules []RegionalSurcharge, departure, arrival string, base decimal.Decimal) decimal.Decimal {
	departure = normalizeDept(departure)
	arrival = normalizeDept(arrival)

	var single *RegionalSurcharge
	for i := range rules {
		r := &rules[i]
		dept := normalizeDept(r.Department)
		if r.IsPair() {
			other := normalizeDept(r.PairedWith)
			if (dept == departure && other == arrival) || (dept == arrival && other == departure) {
				return r.amountOn(base)
			}
			continue
		}
		if single == nil && dept != "" && (dept == departure || dept == arrival) {
			single = r
		}
	}
	if single == nil {
		return decimal.Zero
	}
	return single.amountOn(base)
}

func (r RegionalSurcharge) amountOn(base decimal.Decimal) decimal.Decimal {
	return r.Amount.Add(base.Mul(r.Percent).Div(hundred))
}

func coefficientFor(coefs []VehicleCoefficient, class string) (decimal.Decimal, error) {
	for _, c := range coefs {
		if c.ClassCode == class {
			return c.Factor, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: class %q", ErrMissingCoefficient, class)
}

// Department codes compare case-insensitively; "2a" and "2A" are the same department.
func normalizeDept(d string) string {
	return strings.ToUpper(strings.TrimSpace(d))
}
