package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Code               string
	Name               string
	PartnerName        string
	AssignRatio        decimal.NullDecimal
	AnnualInterestRate decimal.NullDecimal
	CycleStartDay      *int
}

type RateChangeRequest struct {
	DealID             snowflake.ID
	AnnualInterestRate decimal.Decimal
	EffectiveFrom      time.Time
}

// Service is the master-data side used by seeding and the import tool.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Deal, error)
	Get(ctx context.Context, ref string) (*Deal, error)
	AddRateChange(ctx context.Context, req RateChangeRequest) (*RateChange, error)
}
