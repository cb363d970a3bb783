package domain

import "context"

type Service interface {
	Ensure(ctx context.Context, feed FeedType, year, month int) (*MonthlyCycleStatus, error)
	Advance(ctx context.Context, feed FeedType, year, month int, stage Stage) (*MonthlyCycleStatus, error)
	Get(ctx context.Context, feed FeedType, year, month int) (*MonthlyCycleStatus, error)
}
