// README: Directions lookup turning two addresses into a distance and drive time.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math"

	"googlemaps.github.io/maps"
)

var ErrNoRoute = errors.New("no route found")

// Route is the driving distance and time for one direction of a trip.
type Route struct {
	DistanceKm   float64 `json:"distance_km"`
	DriveMinutes int     `json:"drive_minutes"`
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
	region string
}

// NewRouteService creates a RouteService with the given API key. region biases geocoding
// (ccTLD, e.g. "fr"); extra options are passed to the maps client.
func NewRouteService(apiKey, region string, opts ...maps.ClientOption) (*RouteService, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, region: region}, nil
}

// Estimate returns the driving route from origin to destination, summed over all legs.
func (s *RouteService) Estimate(ctx context.Context, origin, destination string) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Units:       maps.UnitsMetric,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	var meters int
	var seconds float64
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		seconds += leg.Duration.Seconds()
	}
	return Route{
		DistanceKm:   math.Round(float64(meters)/100) / 10,
		DriveMinutes: int(math.Ceil(seconds / 60)),
	}, nil
}
