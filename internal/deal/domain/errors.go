package domain

import "errors"

var (
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidRatio    = errors.New("invalid_assign_ratio")
	ErrInvalidRate     = errors.New("invalid_interest_rate")
	ErrInvalidStartDay = errors.New("invalid_cycle_start_day")
	ErrNotFound        = errors.New("not_found")
)
