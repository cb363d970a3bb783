package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Repo  dealdomain.Repository
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	repo  dealdomain.Repository
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) dealdomain.Service {
	return &Service{
		repo:  p.Repo,
		log:   p.Log.Named("deal.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req dealdomain.CreateRequest) (*dealdomain.Deal, error) {
	now := s.clock.Now()
	deal := &dealdomain.Deal{
		ID:                 s.genID.Generate(),
		Code:               strings.TrimSpace(req.Code),
		Name:               strings.TrimSpace(req.Name),
		PartnerName:        strings.TrimSpace(req.PartnerName),
		AssignRatio:        req.AssignRatio,
		AnnualInterestRate: req.AnnualInterestRate,
		CycleStartDay:      req.CycleStartDay,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := deal.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, deal); err != nil {
		return nil, err
	}
	s.log.Info("deal created", zap.String("deal_id", deal.ID.String()), zap.String("code", deal.Code))
	return deal, nil
}

// Get accepts either a numeric deal id or a deal code.
func (s *Service) Get(ctx context.Context, ref string) (*dealdomain.Deal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, dealdomain.ErrNotFound
	}

	var (
		deal *dealdomain.Deal
		err  error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		deal, err = s.repo.FindByID(ctx, snowflake.ID(id))
		if err != nil {
			return nil, err
		}
	}
	if deal == nil {
		deal, err = s.repo.FindByCode(ctx, ref)
		if err != nil {
			return nil, err
		}
	}
	if deal == nil {
		return nil, dealdomain.ErrNotFound
	}
	return deal, nil
}

func (s *Service) AddRateChange(ctx context.Context, req dealdomain.RateChangeRequest) (*dealdomain.RateChange, error) {
	if !dealdomain.InUnitRange(req.AnnualInterestRate) {
		return nil, dealdomain.ErrInvalidRate
	}
	deal, err := s.repo.FindByID(ctx, req.DealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, dealdomain.ErrNotFound
	}

	y, m, d := req.EffectiveFrom.Date()
	change := &dealdomain.RateChange{
		ID:                 s.genID.Generate(),
		DealID:             deal.ID,
		AnnualInterestRate: req.AnnualInterestRate,
		EffectiveFrom:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		CreatedAt:          s.clock.Now(),
	}
	if err := s.repo.CreateRateChange(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}
