package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	"github.com/smallbiznis/partnerpayout/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Stage moves are retried when another writer advanced the row first.
const maxAdvanceAttempts = 5

type ServiceParam struct {
	fx.In

	Repo  cyclestatusdomain.Repository
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	repo  cyclestatusdomain.Repository
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) cyclestatusdomain.Service {
	return &Service{
		repo:  p.Repo,
		log:   p.Log.Named("cyclestatus.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, feed cyclestatusdomain.FeedType, year, month int) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	if err := validate(feed, year, month); err != nil {
		return nil, err
	}
	status, err := s.repo.Find(ctx, feed, year, month)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, cyclestatusdomain.ErrNotFound
	}
	return status, nil
}

// Ensure resolves the status for (feed, year, month), creating it at the
// feed's first stage when absent.
func (s *Service) Ensure(ctx context.Context, feed cyclestatusdomain.FeedType, year, month int) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	if err := validate(feed, year, month); err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, feed, year, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	first := feed.Stages()[0]
	status := &cyclestatusdomain.MonthlyCycleStatus{
		ID:           s.genID.Generate(),
		FeedType:     feed,
		Year:         year,
		Month:        month,
		Stage:        first,
		StageHistory: datatypes.JSONMap{string(first): now.Format(time.RFC3339)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, status); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// lost the race to a concurrent creator
		existing, findErr := s.repo.Find(ctx, feed, year, month)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}

	s.log.Info("cycle status initialized",
		zap.String("feed_type", string(feed)),
		zap.Int("year", year),
		zap.Int("month", month),
	)
	return status, nil
}

// Advance moves the status forward to stage. Reaching a stage at or before
// the current one is a no-op; there is no backwards transition.
func (s *Service) Advance(ctx context.Context, feed cyclestatusdomain.FeedType, year, month int, stage cyclestatusdomain.Stage) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	target := feed.StageIndex(stage)
	if target < 0 {
		return nil, fmt.Errorf("%w: %s for %s", cyclestatusdomain.ErrInvalidStage, stage, feed)
	}

	for attempt := 0; attempt < maxAdvanceAttempts; attempt++ {
		status, err := s.Ensure(ctx, feed, year, month)
		if err != nil {
			return nil, err
		}
		if feed.StageIndex(status.Stage) >= target {
			return status, nil
		}

		now := s.clock.Now()
		history := datatypes.JSONMap{}
		for k, v := range status.StageHistory {
			history[k] = v
		}
		history[string(stage)] = now.Format(time.RFC3339)

		next := *status
		next.Stage = stage
		next.StageHistory = history
		next.UpdatedAt = now

		ok, err := s.repo.UpdateStage(ctx, status.ID, status.Stage, &next)
		if err != nil {
			return nil, err
		}
		if ok {
			s.log.Info("cycle status advanced",
				zap.String("feed_type", string(feed)),
				zap.Int("year", year),
				zap.Int("month", month),
				zap.String("from", string(status.Stage)),
				zap.String("to", string(stage)),
			)
			return &next, nil
		}
	}
	return nil, errors.New("cycle status advance contended")
}

func validate(feed cyclestatusdomain.FeedType, year, month int) error {
	if feed.StageIndex(cyclestatusdomain.StageInitialized) != 0 {
		return cyclestatusdomain.ErrInvalidFeedType
	}
	if year < 1900 || year > 9999 || month < 1 || month > 12 {
		return cyclestatusdomain.ErrInvalidPeriod
	}
	return nil
}
