package api

import "codeberg.org/mutker/pidashd/internal/errors"

const (
	ErrInvalidBody  = errors.ErrorCode("api_invalid_body")
	ErrInvalidQuery = errors.ErrorCode("api_invalid_query")
	ErrServeFailed  = errors.ErrorCode("api_serve_failed")
)
