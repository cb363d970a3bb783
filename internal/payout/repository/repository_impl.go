package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/smallbiznis/partnerpayout/pkg/db/option"
	"github.com/smallbiznis/partnerpayout/pkg/repository"
	"gorm.io/gorm"
)

const deleteChunkSize = 500

var rawColumns = []string{
	"deal_id",
	"opening_pos",
	"closing_pos",
	"total_principal_due",
	"principal_overdue",
	"total_principal_paid",
	"principal_overdue_paid",
	"total_interest_due",
	"interest_overdue",
	"total_interest_component_paid",
	"interest_overdue_paid",
	"foreclosure_paid",
	"foreclosure_charges_paid",
	"prepayment_paid",
	"prepayment_charges_paid",
	"total_charges_paid",
	"total_paid",
	"opening_dpd",
	"closing_dpd",
	"cycle_start_date",
	"cycle_end_date",
	"last_cycle_end_date",
	"modified_at",
}

// derivedColumns are recomputed by Calculate. A re-upload clears them so the
// next cycle cannot read seller values computed from replaced raw data.
var derivedColumns = []string{
	"seller_opening_pos",
	"seller_closing_pos",
	"seller_total_principal_due",
	"seller_principal_overdue",
	"seller_total_principal_paid",
	"seller_principal_overdue_paid",
	"seller_total_interest_due",
	"seller_interest_overdue",
	"seller_total_interest_component_paid",
	"seller_interest_overdue_paid",
	"seller_foreclosure_paid",
	"seller_foreclosure_charges_paid",
	"seller_prepayment_paid",
	"seller_prepayment_charges_paid",
	"seller_total_charges_paid",
	"seller_total_paid",
	"calculated_at",
}

var (
	uploadColumns  = concat(rawColumns, derivedColumns)
	sellerColumns  = concat(derivedColumns, []string{"is_opening_pos_mismatch", "modified_at"})
	skippedColumns = []string{"is_opening_pos_mismatch", "calculated_at", "modified_at"}
)

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type repo struct {
	db    *gorm.DB
	store repository.Repository[payoutdomain.CycleRecord]
}

func NewRepository(db *gorm.DB) payoutdomain.Repository {
	return &repo{
		db:    db,
		store: repository.ProvideStore[payoutdomain.CycleRecord](db),
	}
}

func (r *repo) WithTrx(tx *gorm.DB) payoutdomain.Repository {
	if tx == nil {
		return r
	}
	return &repo{
		db:    tx,
		store: r.store.WithTrx(tx),
	}
}

func (r *repo) FindByCycleAndLoan(ctx context.Context, cycleStatusID snowflake.ID, loanID string) ([]payoutdomain.CycleRecord, error) {
	return r.store.Find(ctx,
		&payoutdomain.CycleRecord{CycleStatusID: cycleStatusID, LoanID: loanID},
		option.OrderBy("created_at", "id"),
	)
}

func (r *repo) FindLatestBefore(ctx context.Context, loanID string, year, month int) (*payoutdomain.CycleRecord, error) {
	return r.store.FindOne(ctx,
		&payoutdomain.CycleRecord{LoanID: loanID},
		option.WithWhere("(cycle_year * 12 + cycle_month - 1) < ?", payoutdomain.CycleIndex(year, month)),
		option.WithSortBy(option.SortBy{Column: "cycle_year", Desc: true}),
		option.WithSortBy(option.SortBy{Column: "cycle_month", Desc: true}),
		option.WithSortBy(option.SortBy{Column: "created_at", Desc: true}),
	)
}

func (r *repo) FindByLoanAndPeriod(ctx context.Context, loanID string, year, month int) (*payoutdomain.CycleRecord, error) {
	return r.store.FindOne(ctx,
		&payoutdomain.CycleRecord{LoanID: loanID, CycleYear: year, CycleMonth: month},
		option.OrderBy("created_at", "id"),
	)
}

func (r *repo) ListByCycle(ctx context.Context, year, month int, dealID *snowflake.ID) ([]payoutdomain.CycleRecord, error) {
	filter := &payoutdomain.CycleRecord{CycleYear: year, CycleMonth: month}
	if dealID != nil {
		filter.DealID = *dealID
	}
	return r.store.Find(ctx, filter, option.OrderBy("loan_id", "created_at", "id"))
}

func (r *repo) Insert(ctx context.Context, rec *payoutdomain.CycleRecord) error {
	return r.store.Create(ctx, rec)
}

func (r *repo) UpdateRaw(ctx context.Context, rec *payoutdomain.CycleRecord) error {
	return r.db.WithContext(ctx).
		Model(&payoutdomain.CycleRecord{}).
		Where("id = ?", rec.ID).
		Select(uploadColumns).
		Updates(rec).Error
}

func (r *repo) DeleteByIDs(ctx context.Context, ids []snowflake.ID) error {
	return repository.InChunks(ids, deleteChunkSize, func(part []snowflake.ID) error {
		return r.store.DeleteWhere(ctx, option.WithWhere("id IN ?", part))
	})
}

func (r *repo) SaveCalculation(ctx context.Context, rec *payoutdomain.CycleRecord) error {
	return r.db.WithContext(ctx).
		Model(&payoutdomain.CycleRecord{}).
		Where("id = ?", rec.ID).
		Select(sellerColumns).
		Updates(rec).Error
}

func (r *repo) SaveSkipped(ctx context.Context, rec *payoutdomain.CycleRecord) error {
	return r.db.WithContext(ctx).
		Model(&payoutdomain.CycleRecord{}).
		Where("id = ?", rec.ID).
		Select(skippedColumns).
		Updates(rec).Error
}

func (r *repo) SaveMismatchFlag(ctx context.Context, id snowflake.ID, mismatch bool) error {
	return r.db.WithContext(ctx).
		Model(&payoutdomain.CycleRecord{}).
		Where("id = ?", id).
		Update("is_opening_pos_mismatch", mismatch).Error
}
