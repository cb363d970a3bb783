package domain

import "errors"

var (
	ErrInvalidFeedType = errors.New("invalid_feed_type")
	ErrInvalidStage    = errors.New("invalid_stage")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrNotFound        = errors.New("not_found")
)
