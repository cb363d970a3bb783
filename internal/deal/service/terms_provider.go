package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type termsProviderParam struct {
	fx.In

	Repo dealdomain.Repository
	Log  *zap.Logger
}

type termsProvider struct {
	repo dealdomain.Repository
	log  *zap.Logger
}

func NewTermsProvider(p termsProviderParam) payoutdomain.TermsProvider {
	return &termsProvider{
		repo: p.Repo,
		log:  p.Log.Named("deal.terms"),
	}
}

// ResolveTerms returns nil, nil when the deal is unknown or has no ratio or
// rate configured; callers treat that as a soft skip.
func (p *termsProvider) ResolveTerms(ctx context.Context, dealID snowflake.ID, year, month int) (*payoutdomain.DealTerms, error) {
	deal, err := p.repo.FindByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil || !deal.AssignRatio.Valid {
		return nil, nil
	}

	start, end := CycleWindow(deal, year, month)

	rate := deal.AnnualInterestRate
	change, err := p.repo.FindEffectiveRateChange(ctx, dealID, start)
	if err != nil {
		return nil, err
	}
	if change != nil {
		rate.Decimal = change.AnnualInterestRate
		rate.Valid = true
	}
	if !rate.Valid {
		return nil, nil
	}

	if !dealdomain.InUnitRange(deal.AssignRatio.Decimal) {
		return nil, fmt.Errorf("%w: assign ratio %s", payoutdomain.ErrInvalidDealTerms, deal.AssignRatio.Decimal)
	}
	if !dealdomain.InUnitRange(rate.Decimal) {
		return nil, fmt.Errorf("%w: annual interest rate %s", payoutdomain.ErrInvalidDealTerms, rate.Decimal)
	}

	return &payoutdomain.DealTerms{
		DealID:             deal.ID,
		AssignRatio:        deal.AssignRatio.Decimal,
		AnnualInterestRate: rate.Decimal,
		WindowStart:        start,
		WindowEnd:          end,
	}, nil
}

// CycleWindow is [start, start+1 month) where start falls on the deal's
// cycle start day, or on the first of the month when none is set.
func CycleWindow(deal *dealdomain.Deal, year, month int) (time.Time, time.Time) {
	day := 1
	if deal != nil && deal.CycleStartDay != nil {
		day = *deal.CycleStartDay
	}
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
