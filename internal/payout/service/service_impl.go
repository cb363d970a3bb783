package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	"github.com/smallbiznis/partnerpayout/internal/config"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	"github.com/smallbiznis/partnerpayout/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        payoutdomain.Repository
	Terms       payoutdomain.TermsProvider
	Baselines   payoutdomain.BaselineReader
	CycleStatus cyclestatusdomain.Service
	Locker      keylock.Locker
	Policy      *config.PayoutPolicyHolder
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        payoutdomain.Repository
	terms       payoutdomain.TermsProvider
	baselines   payoutdomain.BaselineReader
	cycleStatus cyclestatusdomain.Service
	locker      keylock.Locker
	policy      *config.PayoutPolicyHolder
	metrics     *metrics.Metrics
	reconciler  *Reconciler
	tracer      trace.Tracer
}

func NewService(p ServiceParam) payoutdomain.Service {
	log := p.Log.Named("payout.service")
	return &Service{
		db:          p.DB,
		log:         log,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		terms:       p.Terms,
		baselines:   p.Baselines,
		cycleStatus: p.CycleStatus,
		locker:      p.Locker,
		policy:      p.Policy,
		metrics:     p.Metrics,
		reconciler:  NewReconciler(p.Repo, log.Named("reconciler")),
		tracer:      otel.Tracer("partnerpayout/payout"),
	}
}

func (s *Service) ListRecords(ctx context.Context, year, month int, dealID *snowflake.ID) ([]payoutdomain.CycleRecord, error) {
	if err := payoutdomain.ValidateCycle(year, month); err != nil {
		return nil, err
	}
	return s.repo.ListByCycle(ctx, year, month, dealID)
}

// lockKey scopes mutual exclusion to one loan within one cycle.
func lockKey(year, month int, loanID string) string {
	return fmt.Sprintf("cycle:%04d-%02d:%s", year, month, loanID)
}

func (s *Service) workers() int {
	return s.policy.Get().Workers
}

func (s *Service) obtain(ctx context.Context, key string) (keylock.ReleaseFunc, error) {
	release, err := s.locker.Obtain(ctx, key)
	if err != nil {
		if errors.Is(err, keylock.ErrNotObtained) {
			return nil, payoutdomain.ErrLockNotObtained
		}
		return nil, err
	}
	return release, nil
}

func (s *Service) release(ctx context.Context, key string, release keylock.ReleaseFunc) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("failed to release key lock", zap.String("key", key), zap.Error(err))
	}
}
