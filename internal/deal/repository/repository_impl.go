package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"github.com/smallbiznis/partnerpayout/pkg/db/option"
	"github.com/smallbiznis/partnerpayout/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	deals   repository.Repository[dealdomain.Deal]
	changes repository.Repository[dealdomain.RateChange]
}

func NewRepository(db *gorm.DB) dealdomain.Repository {
	return &repo{
		deals:   repository.ProvideStore[dealdomain.Deal](db),
		changes: repository.ProvideStore[dealdomain.RateChange](db),
	}
}

// Zero-valued filter fields are ignored by gorm, so empty keys short-circuit.
func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*dealdomain.Deal, error) {
	if id == 0 {
		return nil, nil
	}
	return r.deals.FindOne(ctx, &dealdomain.Deal{ID: id})
}

func (r *repo) FindByCode(ctx context.Context, code string) (*dealdomain.Deal, error) {
	if code == "" {
		return nil, nil
	}
	return r.deals.FindOne(ctx, &dealdomain.Deal{Code: code})
}

func (r *repo) FindEffectiveRateChange(ctx context.Context, dealID snowflake.ID, at time.Time) (*dealdomain.RateChange, error) {
	return r.changes.FindOne(ctx,
		&dealdomain.RateChange{DealID: dealID},
		option.WithWhere("effective_from <= ?", at),
		option.WithSortBy(option.SortBy{Column: "effective_from", Desc: true}),
		option.WithSortBy(option.SortBy{Column: "created_at", Desc: true}),
	)
}

func (r *repo) Create(ctx context.Context, deal *dealdomain.Deal) error {
	return r.deals.Create(ctx, deal)
}

func (r *repo) CreateRateChange(ctx context.Context, change *dealdomain.RateChange) error {
	return r.changes.Create(ctx, change)
}
