package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the Cycle Record Store.
type Repository interface {
	WithTrx(tx *gorm.DB) Repository

	// FindByCycleAndLoan returns every record sharing the key, earliest first.
	FindByCycleAndLoan(ctx context.Context, cycleStatusID snowflake.ID, loanID string) ([]CycleRecord, error)
	// FindLatestBefore returns the newest record of the loan in a cycle
	// strictly earlier than (year, month).
	FindLatestBefore(ctx context.Context, loanID string, year, month int) (*CycleRecord, error)
	FindByLoanAndPeriod(ctx context.Context, loanID string, year, month int) (*CycleRecord, error)
	ListByCycle(ctx context.Context, year, month int, dealID *snowflake.ID) ([]CycleRecord, error)

	Insert(ctx context.Context, rec *CycleRecord) error
	// UpdateRaw replaces the raw fields and clears the seller fields and
	// CalculatedAt. The mismatch flag is kept.
	UpdateRaw(ctx context.Context, rec *CycleRecord) error
	DeleteByIDs(ctx context.Context, ids []snowflake.ID) error
	SaveCalculation(ctx context.Context, rec *CycleRecord) error
	// SaveSkipped records an evaluation without deal terms: the flag and
	// CalculatedAt are written, seller fields are left alone.
	SaveSkipped(ctx context.Context, rec *CycleRecord) error
	SaveMismatchFlag(ctx context.Context, id snowflake.ID, mismatch bool) error
}
