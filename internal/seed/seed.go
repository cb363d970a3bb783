// Package seed bootstraps a demo deal and its baseline book for local runs.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	baselinedomain "github.com/smallbiznis/partnerpayout/internal/baseline/domain"
	baselinesvc "github.com/smallbiznis/partnerpayout/internal/baseline/service"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"go.uber.org/zap"
)

const (
	DemoDealCode = "DEMO"
	demoDealName = "Demo co-lending pool"
	demoPartner  = "Demo Partner"
)

var demoBaselines = []baselinedomain.Loan{
	{
		LoanID:                         "DEMO-0001",
		CurrentOutstandingPrincipal:    decimal.NewNullDecimal(decimal.NewFromInt(100000)),
		CurrentAssignedOverdueInterest: decimal.NewNullDecimal(decimal.Zero),
		LoanStatus:                     "ACTIVE",
		LoanType:                       "TERM",
	},
	{
		LoanID:                         "DEMO-0002",
		CurrentOutstandingPrincipal:    decimal.NewNullDecimal(decimal.NewFromInt(250000)),
		CurrentAssignedOverdueInterest: decimal.NewNullDecimal(decimal.RequireFromString("25.50")),
		LoanStatus:                     "ACTIVE",
		LoanType:                       "TERM",
	},
}

// The demo deal reprices mid-year so rate-change lookups have data to hit.
var demoRateChange = struct {
	rate string
	from time.Time
}{"0.22", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)}

// EnsureDemoDeal resolves the demo deal by code, creating it with its rate
// change when absent.
func EnsureDemoDeal(ctx context.Context, deals dealdomain.Service) (*dealdomain.Deal, error) {
	existing, err := deals.Get(ctx, DemoDealCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, dealdomain.ErrNotFound) {
		return nil, err
	}

	startDay := 1
	deal, err := deals.Create(ctx, dealdomain.CreateRequest{
		Code:               DemoDealCode,
		Name:               demoDealName,
		PartnerName:        demoPartner,
		AssignRatio:        decimal.NewNullDecimal(decimal.RequireFromString("0.5")),
		AnnualInterestRate: decimal.NewNullDecimal(decimal.RequireFromString("0.24")),
		CycleStartDay:      &startDay,
	})
	if err != nil {
		return nil, err
	}
	if _, err := deals.AddRateChange(ctx, dealdomain.RateChangeRequest{
		DealID:             deal.ID,
		AnnualInterestRate: decimal.RequireFromString(demoRateChange.rate),
		EffectiveFrom:      demoRateChange.from,
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

// EnsureDemo seeds the demo deal and upserts its baseline loans.
func EnsureDemo(ctx context.Context, deals dealdomain.Service, baselines *baselinesvc.Service, log *zap.Logger) error {
	deal, err := EnsureDemoDeal(ctx, deals)
	if err != nil {
		return err
	}
	for _, loan := range demoBaselines {
		loan.DealID = &deal.ID
		if _, err := baselines.Upsert(ctx, loan); err != nil {
			return err
		}
	}
	log.Info("demo data seeded",
		zap.String("deal_id", deal.ID.String()),
		zap.Int("baseline_loans", len(demoBaselines)),
	)
	return nil
}
