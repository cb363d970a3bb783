package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Find(ctx context.Context, feed FeedType, year, month int) (*MonthlyCycleStatus, error)
	Create(ctx context.Context, status *MonthlyCycleStatus) error
	// UpdateStage moves the row only when it is still at expected.
	UpdateStage(ctx context.Context, id snowflake.ID, expected Stage, status *MonthlyCycleStatus) (bool, error)
}
