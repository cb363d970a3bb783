package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	obslogger "github.com/smallbiznis/partnerpayout/internal/observability/logger"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/smallbiznis/partnerpayout/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type loanStatus int

const (
	loanProcessed loanStatus = iota
	loanSkipped
	loanFailed
)

type loanOutcome struct {
	status        loanStatus
	rowErr        *payoutdomain.RowError
	discrepancies []payoutdomain.Discrepancy
	notices       []payoutdomain.Discrepancy
}

type resolvedTerms struct {
	terms *payoutdomain.DealTerms
	err   error
}

// Calculate fills the seller fields of every record in the cycle and
// reconciles opening positions. Loans are independent and fan out across
// workers; a failing loan is reported in the summary and never aborts the
// batch.
func (s *Service) Calculate(ctx context.Context, req payoutdomain.CalculateRequest) (*payoutdomain.BatchSummary, error) {
	if err := payoutdomain.ValidateCycle(req.Year, req.Month); err != nil {
		return nil, err
	}

	ctx, correlationID := correlation.StartRun(ctx, "calculate", req.Year, req.Month)
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, "payout.calculate")
	defer span.End()
	span.SetAttributes(attribute.Int("cycle.year", req.Year), attribute.Int("cycle.month", req.Month))

	log := obslogger.WithCycle(obslogger.WithContext(ctx, s.log), req.Year, req.Month)
	if req.DealID != nil {
		log = obslogger.WithDeal(log, *req.DealID)
	}

	listed, err := s.repo.ListByCycle(ctx, req.Year, req.Month, req.DealID)
	if err != nil {
		return nil, fmt.Errorf("list cycle records: %w", err)
	}
	records := canonicalByLoan(listed)

	baselines, err := s.baselines.ListByLoanIDs(ctx, loanIDs(records))
	if err != nil {
		return nil, fmt.Errorf("load baselines: %w", err)
	}

	terms := make(map[snowflake.ID]resolvedTerms)
	for _, rec := range records {
		if _, ok := terms[rec.DealID]; ok {
			continue
		}
		t, err := s.terms.ResolveTerms(ctx, rec.DealID, req.Year, req.Month)
		terms[rec.DealID] = resolvedTerms{terms: t, err: err}
		switch {
		case err != nil:
			log.Warn("deal terms unusable", zap.String("deal_id", rec.DealID.String()), zap.Error(err))
		case t == nil:
			log.Warn("deal terms missing; seller fields left blank", zap.String("deal_id", rec.DealID.String()))
		}
	}

	outcomes := make([]loanOutcome, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, rec := range records {
		g.Go(func() error {
			outcomes[i] = s.calculateLoan(gctx, rec, terms[rec.DealID], baselines, req.Year, req.Month)
			return nil
		})
	}
	_ = g.Wait()

	summary := &payoutdomain.BatchSummary{
		CorrelationID: correlationID,
		Year:          req.Year,
		Month:         req.Month,
		Errors:        []payoutdomain.RowError{},
		Discrepancies: []payoutdomain.Discrepancy{},
		Notices:       []payoutdomain.Discrepancy{},
	}
	for _, o := range outcomes {
		switch o.status {
		case loanProcessed:
			summary.Processed++
		case loanSkipped:
			summary.Skipped++
		case loanFailed:
			summary.Failed++
		}
		if o.rowErr != nil {
			summary.Errors = append(summary.Errors, *o.rowErr)
		}
		summary.Discrepancies = append(summary.Discrepancies, o.discrepancies...)
		summary.Notices = append(summary.Notices, o.notices...)
	}

	if summary.Failed == 0 && len(records) > 0 {
		if _, err := s.cycleStatus.Advance(ctx, cyclestatusdomain.FeedLMS, req.Year, req.Month, cyclestatusdomain.StageProcessed); err != nil {
			log.Warn("failed to mark cycle processed", zap.Error(err))
		}
	}

	outcome := "complete"
	if summary.Failed > 0 {
		outcome = "partial"
	}
	s.metrics.RecordBatchDuration(ctx, "calculate", outcome, s.clock.Now().Sub(started))

	span.SetAttributes(
		attribute.Int("processed", summary.Processed),
		attribute.Int("skipped", summary.Skipped),
		attribute.Int("failed", summary.Failed),
		attribute.Int("discrepancies", len(summary.Discrepancies)),
	)
	log.Info("calculated cycle batch",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("discrepancies", len(summary.Discrepancies)),
		zap.Int("notices", len(summary.Notices)),
	)
	return summary, nil
}

// calculateLoan runs read, compute, reconcile and write for one loan under
// its key lock so that a concurrent re-upload cannot interleave.
func (s *Service) calculateLoan(
	ctx context.Context,
	listed payoutdomain.CycleRecord,
	resolved resolvedTerms,
	baselines map[string]payoutdomain.BaselineLoan,
	year, month int,
) loanOutcome {
	fail := func(err error) loanOutcome {
		rowErr := payoutdomain.NewRowError(0, listed.LoanID, "", err)
		s.metrics.RecordCalculated(ctx, "failed")
		s.log.Warn("loan calculation failed",
			zap.String("loan_id", listed.LoanID),
			zap.String("reason", rowErr.Reason),
			zap.Error(err),
		)
		return loanOutcome{status: loanFailed, rowErr: &rowErr}
	}

	if resolved.err != nil {
		return fail(resolved.err)
	}

	key := lockKey(year, month, listed.LoanID)
	release, err := s.obtain(ctx, key)
	if err != nil {
		return fail(err)
	}
	defer s.release(ctx, key, release)

	current, err := s.repo.FindByLoanAndPeriod(ctx, listed.LoanID, year, month)
	if err != nil {
		return fail(err)
	}
	if current == nil {
		current = &listed
	}

	if resolved.terms == nil {
		// soft skip: seller fields stay as they are. The record still counts
		// as evaluated so the next cycle can chain from it.
		recon := s.reconciler.DetectMismatches(ctx, []payoutdomain.CycleRecord{*current}, baselines, year, month)
		skipped := recon.Records[0]
		now := s.clock.Now()
		skipped.CalculatedAt = &now
		skipped.ModifiedAt = now
		if err := s.repo.SaveSkipped(ctx, &skipped); err != nil {
			return fail(err)
		}
		s.metrics.RecordCalculated(ctx, "skipped")
		s.recordDiscrepancies(ctx, recon)
		return loanOutcome{status: loanSkipped, discrepancies: recon.Discrepancies, notices: recon.Notices}
	}

	prevYear, prevMonth := payoutdomain.PreviousCycle(year, month)
	prior, err := s.repo.FindByLoanAndPeriod(ctx, listed.LoanID, prevYear, prevMonth)
	if err != nil {
		s.log.Warn("prior cycle lookup failed; seeding from baseline",
			zap.String("loan_id", listed.LoanID),
			zap.Error(err),
		)
		prior = nil
	}
	if prior != nil && prior.CalculatedAt == nil {
		return fail(fmt.Errorf("%w: %04d-%02d", payoutdomain.ErrPriorCycleNotCalculated, prevYear, prevMonth))
	}

	var baseline *payoutdomain.BaselineLoan
	if b, ok := baselines[listed.LoanID]; ok {
		baseline = &b
	}

	computed := ComputeSellerFields(*current, resolved.terms, baseline, prior)
	recon := s.reconciler.DetectMismatches(ctx, []payoutdomain.CycleRecord{computed}, baselines, year, month)
	final := recon.Records[0]

	now := s.clock.Now()
	final.CalculatedAt = &now
	final.ModifiedAt = now
	if err := s.repo.SaveCalculation(ctx, &final); err != nil {
		return fail(err)
	}

	s.metrics.RecordCalculated(ctx, "calculated")
	s.recordDiscrepancies(ctx, recon)
	return loanOutcome{status: loanProcessed, discrepancies: recon.Discrepancies, notices: recon.Notices}
}

// Reconcile re-runs only the opening-position check for a cycle and
// persists the refreshed flags.
func (s *Service) Reconcile(ctx context.Context, year, month int) (*payoutdomain.Reconciliation, error) {
	if err := payoutdomain.ValidateCycle(year, month); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "payout.reconcile")
	defer span.End()

	listed, err := s.repo.ListByCycle(ctx, year, month, nil)
	if err != nil {
		return nil, fmt.Errorf("list cycle records: %w", err)
	}
	records := canonicalByLoan(listed)

	baselines, err := s.baselines.ListByLoanIDs(ctx, loanIDs(records))
	if err != nil {
		return nil, fmt.Errorf("load baselines: %w", err)
	}

	recon := s.reconciler.DetectMismatches(ctx, records, baselines, year, month)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		for _, rec := range recon.Records {
			if err := repo.SaveMismatchFlag(ctx, rec.ID, rec.IsOpeningPosMismatch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist mismatch flags: %w", err)
	}

	s.recordDiscrepancies(ctx, recon)
	span.SetAttributes(attribute.Int("discrepancies", len(recon.Discrepancies)))
	obslogger.WithCycle(obslogger.WithContext(ctx, s.log), year, month).Info("reconciled cycle",
		zap.Int("records", len(recon.Records)),
		zap.Int("discrepancies", len(recon.Discrepancies)),
		zap.Int("notices", len(recon.Notices)),
	)
	return &recon, nil
}

func (s *Service) recordDiscrepancies(ctx context.Context, recon payoutdomain.Reconciliation) {
	for _, d := range recon.Discrepancies {
		s.metrics.RecordDiscrepancy(ctx, string(d.Type))
	}
	for _, n := range recon.Notices {
		s.metrics.RecordDiscrepancy(ctx, string(n.Type))
	}
}

// canonicalByLoan keeps the earliest record per loan from a listing sorted
// by loan, creation time and id.
func canonicalByLoan(records []payoutdomain.CycleRecord) []payoutdomain.CycleRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]payoutdomain.CycleRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.LoanID]; ok {
			continue
		}
		seen[rec.LoanID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func loanIDs(records []payoutdomain.CycleRecord) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.LoanID)
	}
	return ids
}
