package weather

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrFetchFailed    = errors.ErrorCode("weather_fetch_failed")
	ErrUpstreamStatus = errors.ErrorCode("weather_upstream_status")
	ErrDecodeFailed   = errors.ErrorCode("weather_decode_failed")
	ErrNoGeocodeMatch = errors.ErrorCode("weather_no_geocode_match")
)
