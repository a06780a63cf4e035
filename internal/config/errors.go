package config

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrInvalidPort            = errors.ErrorCode("config_invalid_port")
	ErrInvalidInterval        = errors.ErrorCode("config_invalid_collection_interval")
	ErrInvalidHistoryDuration = errors.ErrorCode("config_invalid_history_duration")
	ErrInvalidForecastHours   = errors.ErrorCode("config_invalid_forecast_hours")
	ErrInvalidStopTimeout     = errors.ErrorCode("config_invalid_stop_timeout")
	ErrInvalidTelemetryDB     = errors.ErrorCode("config_invalid_telemetry_db")
)
