package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	baselinedomain "github.com/smallbiznis/partnerpayout/internal/baseline/domain"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Repo  baselinedomain.Repository
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	repo  baselinedomain.Repository
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) *Service {
	return &Service{
		repo:  p.Repo,
		log:   p.Log.Named("baseline.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// NewReader exposes the service as the payout engine's baseline source.
func NewReader(s *Service) payoutdomain.BaselineReader {
	return s
}

func (s *Service) ListByLoanIDs(ctx context.Context, loanIDs []string) (map[string]payoutdomain.BaselineLoan, error) {
	out := make(map[string]payoutdomain.BaselineLoan, len(loanIDs))
	if len(loanIDs) == 0 {
		return out, nil
	}
	loans, err := s.repo.ListByLoanIDs(ctx, loanIDs)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		out[loan.LoanID] = payoutdomain.BaselineLoan{
			LoanID:                         loan.LoanID,
			CurrentOutstandingPrincipal:    loan.CurrentOutstandingPrincipal,
			CurrentAssignedOverdueInterest: loan.CurrentAssignedOverdueInterest,
		}
	}
	return out, nil
}

// Upsert records or refreshes a loan's onboarding facts.
func (s *Service) Upsert(ctx context.Context, loan baselinedomain.Loan) (*baselinedomain.Loan, error) {
	loan.LoanID = strings.TrimSpace(loan.LoanID)
	if loan.LoanID == "" {
		return nil, baselinedomain.ErrInvalidLoanID
	}
	now := s.clock.Now()
	if loan.ID == 0 {
		loan.ID = s.genID.Generate()
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = now
	}
	loan.UpdatedAt = now

	if err := s.repo.Upsert(ctx, &loan); err != nil {
		return nil, err
	}
	return s.repo.FindByLoanID(ctx, loan.LoanID)
}
