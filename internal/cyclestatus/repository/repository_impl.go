package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	"github.com/smallbiznis/partnerpayout/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[cyclestatusdomain.MonthlyCycleStatus]
}

func NewRepository(db *gorm.DB) cyclestatusdomain.Repository {
	return &repo{
		db:    db,
		store: repository.ProvideStore[cyclestatusdomain.MonthlyCycleStatus](db),
	}
}

func (r *repo) Find(ctx context.Context, feed cyclestatusdomain.FeedType, year, month int) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	return r.store.FindOne(ctx, &cyclestatusdomain.MonthlyCycleStatus{
		FeedType: feed,
		Year:     year,
		Month:    month,
	})
}

func (r *repo) Create(ctx context.Context, status *cyclestatusdomain.MonthlyCycleStatus) error {
	return r.store.Create(ctx, status)
}

func (r *repo) UpdateStage(ctx context.Context, id snowflake.ID, expected cyclestatusdomain.Stage, status *cyclestatusdomain.MonthlyCycleStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&cyclestatusdomain.MonthlyCycleStatus{}).
		Where("id = ? AND stage = ?", id, expected).
		Updates(map[string]any{
			"stage":         status.Stage,
			"stage_history": status.StageHistory,
			"updated_at":    status.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
