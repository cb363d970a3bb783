package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	obslogger "github.com/smallbiznis/partnerpayout/internal/observability/logger"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/smallbiznis/partnerpayout/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type upsertOutcome int

const (
	outcomeInserted upsertOutcome = iota
	outcomeUpdated
)

type parsedRow struct {
	index  int
	line   int
	record payoutdomain.CycleRecord
}

// rowNumber is the source line when the row was decoded from a file and the
// 1-based position in the request otherwise.
func rowNumber(i int, row payoutdomain.RawCycleRow) int {
	if row.Line > 0 {
		return row.Line
	}
	return i + 1
}

// Ingest stores one LMS batch for (year, month). Rows are parsed one by one
// so a malformed row is reported without failing the batch; rows for the
// same loan are applied in input order, so the last one wins.
func (s *Service) Ingest(ctx context.Context, req payoutdomain.IngestRequest) (*payoutdomain.IngestResult, error) {
	if err := payoutdomain.ValidateCycle(req.Year, req.Month); err != nil {
		return nil, err
	}
	if req.DealID == 0 {
		return nil, payoutdomain.ErrInvalidDealID
	}

	ctx, correlationID := correlation.StartRun(ctx, "ingest", req.Year, req.Month)
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, "payout.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int("cycle.year", req.Year),
		attribute.Int("cycle.month", req.Month),
		attribute.Int("rows", len(req.Rows)),
	)

	log := obslogger.WithDeal(obslogger.WithCycle(obslogger.WithContext(ctx, s.log), req.Year, req.Month), req.DealID)

	status, err := s.cycleStatus.Advance(ctx, cyclestatusdomain.FeedLMS, req.Year, req.Month, cyclestatusdomain.StageUploaded)
	if err != nil {
		span.SetStatus(codes.Error, "cycle status")
		return nil, err
	}

	result := &payoutdomain.IngestResult{
		CorrelationID: correlationID,
		CycleStatusID: status.ID,
		Records:       []payoutdomain.CycleRecord{},
		Errors:        []payoutdomain.RowError{},
	}

	groups := make(map[string][]parsedRow)
	order := make([]string, 0, len(req.Rows))
	for i, row := range req.Rows {
		line := rowNumber(i, row)
		rec, err := row.ToRecord()
		if err != nil {
			field := ""
			var fieldErr *payoutdomain.FieldError
			if errors.As(err, &fieldErr) {
				field = fieldErr.Field
			}
			rowErr := payoutdomain.NewRowError(line, row.LoanID, field, err)
			result.Errors = append(result.Errors, rowErr)
			s.metrics.RecordRowRejected(ctx, rowErr.Reason)
			log.Warn("rejected feed row",
				zap.Int("row", line),
				zap.String("loan_id", row.LoanID),
				zap.String("reason", rowErr.Reason),
				zap.String("field", field),
			)
			continue
		}
		rec.CycleStatusID = status.ID
		rec.CycleYear = req.Year
		rec.CycleMonth = req.Month
		rec.DealID = req.DealID
		if _, seen := groups[rec.LoanID]; !seen {
			order = append(order, rec.LoanID)
		}
		groups[rec.LoanID] = append(groups[rec.LoanID], parsedRow{index: i, line: line, record: rec})
	}

	stored := make([]*payoutdomain.CycleRecord, len(req.Rows))
	var (
		mu                        sync.Mutex
		inserted, updated, healed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, loanID := range order {
		rows := groups[loanID]
		g.Go(func() error {
			for _, row := range rows {
				rec, outcome, removed, err := s.upsert(gctx, row.record)
				mu.Lock()
				if err != nil {
					rowErr := payoutdomain.NewRowError(row.line, row.record.LoanID, "", err)
					result.Errors = append(result.Errors, rowErr)
					mu.Unlock()
					s.metrics.RecordRowRejected(gctx, rowErr.Reason)
					log.Error("failed to store cycle record",
						zap.Int("row", row.line),
						zap.String("loan_id", row.record.LoanID),
						zap.Error(err),
					)
					continue
				}
				stored[row.index] = &rec
				healed += removed
				if outcome == outcomeInserted {
					inserted++
				} else {
					updated++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	// workers never return errors; per-row failures are collected above
	_ = g.Wait()

	for _, rec := range stored {
		if rec != nil {
			result.Records = append(result.Records, *rec)
		}
	}
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Row < result.Errors[j].Row
	})
	result.Inserted = inserted
	result.Updated = updated
	result.DuplicatesHealed = healed

	s.metrics.RecordRowsIngested(ctx, "inserted", inserted)
	s.metrics.RecordRowsIngested(ctx, "updated", updated)
	s.metrics.RecordDuplicateHealed(ctx, healed)
	outcome := "complete"
	if len(result.Errors) > 0 {
		outcome = "partial"
	}
	s.metrics.RecordBatchDuration(ctx, "ingest", outcome, s.clock.Now().Sub(started))

	span.SetAttributes(
		attribute.Int("inserted", inserted),
		attribute.Int("updated", updated),
		attribute.Int("row_errors", len(result.Errors)),
	)
	log.Info("ingested cycle batch",
		zap.String("deal_id", req.DealID.String()),
		zap.Int("rows", len(req.Rows)),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("duplicates_healed", healed),
		zap.Int("row_errors", len(result.Errors)),
	)
	return result, nil
}

// upsert applies the insert-if-none, update-if-one, collapse-if-many rule
// for a (cycle, loan) key under the key lock and inside one transaction.
func (s *Service) upsert(ctx context.Context, incoming payoutdomain.CycleRecord) (payoutdomain.CycleRecord, upsertOutcome, int, error) {
	key := lockKey(incoming.CycleYear, incoming.CycleMonth, incoming.LoanID)
	release, err := s.obtain(ctx, key)
	if err != nil {
		return payoutdomain.CycleRecord{}, 0, 0, err
	}
	defer s.release(ctx, key, release)

	incoming.LastCycleEndDate = s.lastCycleEndDate(ctx, incoming.LoanID, incoming.CycleYear, incoming.CycleMonth)

	var (
		out     payoutdomain.CycleRecord
		outcome upsertOutcome
		removed int
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		existing, err := repo.FindByCycleAndLoan(ctx, incoming.CycleStatusID, incoming.LoanID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if len(existing) == 0 {
			rec := incoming
			rec.ID = s.genID.Generate()
			rec.IsOpeningPosMismatch = false
			rec.CreatedAt = now
			rec.ModifiedAt = now
			if err := repo.Insert(ctx, &rec); err != nil {
				return err
			}
			out, outcome = rec, outcomeInserted
			return nil
		}

		canonical := existing[0]
		if len(existing) > 1 {
			ids := make([]snowflake.ID, 0, len(existing)-1)
			for _, dup := range existing[1:] {
				ids = append(ids, dup.ID)
			}
			if err := repo.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
			removed = len(ids)
			s.log.Warn("collapsed duplicate cycle records",
				zap.String("loan_id", incoming.LoanID),
				zap.String("cycle_status_id", incoming.CycleStatusID.String()),
				zap.String("kept_id", canonical.ID.String()),
				zap.Int("removed", removed),
			)
		}

		rec := canonical.WithRaw(incoming)
		rec.ModifiedAt = now
		if err := repo.UpdateRaw(ctx, &rec); err != nil {
			return err
		}
		out, outcome = rec, outcomeUpdated
		return nil
	})
	if err != nil {
		return payoutdomain.CycleRecord{}, 0, 0, err
	}
	return out, outcome, removed, nil
}

// lastCycleEndDate points at the end of the loan's newest earlier cycle.
// Lookup failures are logged and treated as no history.
func (s *Service) lastCycleEndDate(ctx context.Context, loanID string, year, month int) *time.Time {
	prior, err := s.repo.FindLatestBefore(ctx, loanID, year, month)
	if err != nil {
		s.log.Warn("previous cycle lookup failed", zap.String("loan_id", loanID), zap.Error(err))
		return nil
	}
	if prior == nil {
		return nil
	}
	if prior.CycleEndDate != nil {
		end := *prior.CycleEndDate
		return &end
	}
	_, next := payoutdomain.CycleBounds(prior.CycleYear, prior.CycleMonth)
	end := next.AddDate(0, 0, -1)
	return &end
}
