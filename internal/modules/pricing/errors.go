package pricing

import (
	"errors"

	"coachquote/internal/modules/fleet"
)

var (
	ErrInvalidDistance     = errors.New("invalid distance")
	ErrUnsupportedDuration = errors.New("unsupported duration")
	ErrTierUnavailable     = errors.New("tier unavailable")
	ErrNoFareGrid          = errors.New("no fare grid for category")
	ErrMissingCoefficient  = errors.New("missing vehicle coefficient")
	ErrUnknownCountry      = errors.New("unknown country")
)

// IsConfigurationError reports errors caused by rate-table data rather than by the caller.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrTierUnavailable) ||
		errors.Is(err, ErrNoFareGrid) ||
		errors.Is(err, ErrMissingCoefficient) ||
		errors.Is(err, ErrUnknownCountry) ||
		errors.Is(err, fleet.ErrNoMatchingVehicleClass) ||
		errors.Is(err, fleet.ErrNoReferenceClass)
}
