package domain

import "context"

type Repository interface {
	FindByLoanID(ctx context.Context, loanID string) (*Loan, error)
	ListByLoanIDs(ctx context.Context, loanIDs []string) ([]Loan, error)
	Upsert(ctx context.Context, loan *Loan) error
}
