package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// TermsProvider resolves deal terms for a cycle. A nil result without an
// error means the deal has no usable terms yet.
type TermsProvider interface {
	ResolveTerms(ctx context.Context, dealID snowflake.ID, year, month int) (*DealTerms, error)
}

// BaselineReader loads onboarding facts keyed by loan id.
type BaselineReader interface {
	ListByLoanIDs(ctx context.Context, loanIDs []string) (map[string]BaselineLoan, error)
}

// PriorCycleLookup fetches a loan's record for a specific earlier cycle.
type PriorCycleLookup interface {
	FindByLoanAndPeriod(ctx context.Context, loanID string, year, month int) (*CycleRecord, error)
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	Calculate(ctx context.Context, req CalculateRequest) (*BatchSummary, error)
	Reconcile(ctx context.Context, year, month int) (*Reconciliation, error)
	ListRecords(ctx context.Context, year, month int, dealID *snowflake.ID) ([]CycleRecord, error)
}
