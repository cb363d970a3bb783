package repository

import (
	"context"

	baselinedomain "github.com/smallbiznis/partnerpayout/internal/baseline/domain"
	"github.com/smallbiznis/partnerpayout/pkg/db/option"
	"github.com/smallbiznis/partnerpayout/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Large feeds are read in chunks to stay under driver parameter limits.
const listChunkSize = 500

type repo struct {
	db    *gorm.DB
	store repository.Repository[baselinedomain.Loan]
}

func NewRepository(db *gorm.DB) baselinedomain.Repository {
	return &repo{
		db:    db,
		store: repository.ProvideStore[baselinedomain.Loan](db),
	}
}

func (r *repo) FindByLoanID(ctx context.Context, loanID string) (*baselinedomain.Loan, error) {
	return r.store.FindOne(ctx, &baselinedomain.Loan{LoanID: loanID})
}

func (r *repo) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]baselinedomain.Loan, error) {
	items := make([]baselinedomain.Loan, 0, len(loanIDs))
	err := repository.InChunks(loanIDs, listChunkSize, func(part []string) error {
		chunk, err := r.store.Find(ctx, nil, option.WithWhere("loan_id IN ?", part))
		if err != nil {
			return err
		}
		items = append(items, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Upsert(ctx context.Context, loan *baselinedomain.Loan) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "loan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"deal_id",
			"current_outstanding_principal",
			"current_assigned_overdue_interest",
			"loan_status",
			"loan_type",
			"updated_at",
		}),
	}).Create(loan).Error
}
