package pricing

import "fmt"

// Classify derives the trip shape and, for single-day round trips, the amplitude tier.
func Classify(req TripRequest, policy AmplitudePolicy) (TripInfo, error) {
	info := TripInfo{
		DistanceKm:     req.DistanceKm,
		DriveMinutes:   req.DriveMinutes,
		ElapsedMinutes: req.DriveMinutes + req.OnSiteMinutes,
		NumberOfDays:   req.NumberOfDays,
		StayWithGroup:  req.StayWithGroup,
	}

	switch {
	case req.NumberOfDays < 1:
		return TripInfo{}, fmt.Errorf("%w: %d days", ErrUnsupportedDuration, req.NumberOfDays)
	case req.NumberOfDays >= 2:
		info.Shape = ShapeMultiDay
		return info, nil
	case !req.RoundTrip:
		info.Shape = ShapeOneWay
		return info, nil
	}

	info.Shape = ShapeDayReturn
	amp, err := classifyAmplitude(info.ElapsedMinutes, req.BreakMinutes, policy)
	if err != nil {
		return TripInfo{}, err
	}
	info.Amplitude = amp
	return info, nil
}

// classifyAmplitude maps elapsed minutes to a day-trip tier. A qualifying break takes
// precedence over the 10h/12h tiers when the worked time stays within BreakWorkedMax.
func classifyAmplitude(elapsed, breakMinutes int, p AmplitudePolicy) (Amplitude, error) {
	if elapsed < 0 || breakMinutes < 0 {
		return AmplitudeNone, fmt.Errorf("%w: negative duration", ErrUnsupportedDuration)
	}
	if elapsed <= p.Max8h {
		return Amplitude8h, nil
	}
	qualifyingBreak := p.MinBreak > 0 && breakMinutes >= p.MinBreak && breakMinutes < elapsed
	if qualifyingBreak && elapsed-breakMinutes <= p.BreakWorkedMax {
		return Amplitude9hBreak, nil
	}
	switch {
	case elapsed <= p.Max10h:
		return Amplitude10h, nil
	case elapsed <= p.Max12h:
		return Amplitude12h, nil
	}
	return AmplitudeNone, fmt.Errorf("%w: %d minutes elapsed without a qualifying break", ErrUnsupportedDuration, elapsed)
}
