// README: Pricing service loads one rate-table snapshot per call and runs the engine.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"coachquote/internal/modules/fleet"
)

// RateSet is one consistent rate-table snapshot as seen by the engine.
type RateSet struct {
	Version   string
	Tables    Tables
	Countries []CountryTax
}

func (r RateSet) Country(code string) (CountryTax, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range r.Countries {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return CountryTax{}, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
}

type RateSource interface {
	RateSet(ctx context.Context) (RateSet, error)
}

// Recorder receives pricing outcomes; implemented by the metrics package.
type Recorder interface {
	QuoteComputed(category string, offGrid bool)
	PricingFailed(kind string)
}

type Service struct {
	source  RateSource
	metrics Recorder
	logger  *zap.Logger
}

func NewService(source RateSource, metrics Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, metrics: metrics, logger: logger}
}

type EstimateRequest struct {
	Trip           TripRequest `json:"trip"`
	PassengerCount int         `json:"passenger_count"`
	DepartureDept  string      `json:"departure_dept"`
	ArrivalDept    string      `json:"arrival_dept"`
	CountryCode    string      `json:"country_code"`
}

type Estimate struct {
	Quote
	RateTableVersion string `json:"rate_table_version"`
}

// Estimate prices a trip against the current rate tables.
func (s *Service) Estimate(ctx context.Context, req EstimateRequest) (Estimate, error) {
	if err := ValidateInput(req.Trip, req.PassengerCount); err != nil {
		s.fail(err)
		return Estimate{}, err
	}
	rates, err := s.source.RateSet(ctx)
	if err != nil {
		s.fail(err)
		return Estimate{}, fmt.Errorf("load rate tables: %w", err)
	}
	tax, err := rates.Country(req.CountryCode)
	if err != nil {
		s.fail(err)
		return Estimate{}, err
	}

	in := Input{
		Trip:           req.Trip,
		PassengerCount: req.PassengerCount,
		DepartureDept:  req.DepartureDept,
		ArrivalDept:    req.ArrivalDept,
		Tax:            tax,
	}
	q, err := Calculate(in, rates.Tables)
	if err != nil {
		s.fail(err)
		return Estimate{}, err
	}

	s.warnOverlaps(rates.Tables, q.Trip)
	if q.Pricing.OffGridFallbackUsed {
		s.logger.Warn("off-grid fallback used",
			zap.String("category", string(q.Trip.Category())),
			zap.Float64("distance_km", q.Trip.DistanceKm),
			zap.String("rate_table_version", rates.Version),
		)
	}
	if s.metrics != nil {
		s.metrics.QuoteComputed(string(q.Trip.Category()), q.Pricing.OffGridFallbackUsed)
	}
	return Estimate{Quote: q, RateTableVersion: rates.Version}, nil
}

func (s *Service) warnOverlaps(t Tables, trip TripInfo) {
	grid, ok := t.Grids.For(trip.Category())
	if !ok {
		return
	}
	if bands := grid.OverlappingBands(trip.DistanceKm); len(bands) > 1 {
		s.logger.Warn("distance matches several fare bands; first band used",
			zap.String("category", string(grid.Category)),
			zap.Float64("distance_km", trip.DistanceKm),
			zap.Any("bands", bands),
		)
	}
}

func (s *Service) fail(err error) {
	if s.metrics != nil {
		s.metrics.PricingFailed(ErrorKind(err))
	}
	if IsConfigurationError(err) {
		s.logger.Warn("rate-table configuration problem", zap.Error(err))
	}
}

// ErrorKind names the error class for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDistance):
		return "invalid_distance"
	case errors.Is(err, fleet.ErrInvalidPassengerCount):
		return "invalid_passenger_count"
	case errors.Is(err, ErrUnsupportedDuration):
		return "unsupported_duration"
	case errors.Is(err, ErrTierUnavailable):
		return "tier_unavailable"
	case errors.Is(err, fleet.ErrNoMatchingVehicleClass), errors.Is(err, fleet.ErrNoReferenceClass):
		return "no_matching_vehicle_class"
	case errors.Is(err, ErrMissingCoefficient):
		return "missing_coefficient"
	case errors.Is(err, ErrNoFareGrid):
		return "no_fare_grid"
	case errors.Is(err, ErrUnknownCountry):
		return "unknown_country"
	}
	return "internal"
}
