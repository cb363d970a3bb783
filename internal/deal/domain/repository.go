package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Deal, error)
	FindByCode(ctx context.Context, code string) (*Deal, error)
	// FindEffectiveRateChange returns the latest change effective on or before at.
	FindEffectiveRateChange(ctx context.Context, dealID snowflake.ID, at time.Time) (*RateChange, error)
	Create(ctx context.Context, deal *Deal) error
	CreateRateChange(ctx context.Context, change *RateChange) error
}
