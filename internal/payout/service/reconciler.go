package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.uber.org/zap"
)

// Reconciler checks each record's declared opening position against the
// prior cycle's closing position or, failing that, the baseline principal.
type Reconciler struct {
	prior payoutdomain.PriorCycleLookup
	log   *zap.Logger
}

func NewReconciler(prior payoutdomain.PriorCycleLookup, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{prior: prior, log: log}
}

// DetectMismatches returns every record with IsOpeningPosMismatch set
// explicitly, alongside the actual mismatches. Equal positions produce no
// entry. Loans without a baseline get a NO_BASELINE notice and are only
// compared when a prior cycle record is available.
func (r *Reconciler) DetectMismatches(
	ctx context.Context,
	records []payoutdomain.CycleRecord,
	baselines map[string]payoutdomain.BaselineLoan,
	year, month int,
) payoutdomain.Reconciliation {
	out := payoutdomain.Reconciliation{
		Records:       make([]payoutdomain.CycleRecord, 0, len(records)),
		Discrepancies: []payoutdomain.Discrepancy{},
		Notices:       []payoutdomain.Discrepancy{},
	}
	prevYear, prevMonth := payoutdomain.PreviousCycle(year, month)

	for _, record := range records {
		rec := record
		rec.IsOpeningPosMismatch = false
		if rec.LoanID == "" {
			out.Records = append(out.Records, rec)
			continue
		}

		baseline, hasBaseline := baselines[rec.LoanID]
		declared := payoutdomain.Amount(rec.OpeningPos)

		if !hasBaseline {
			out.Notices = append(out.Notices, payoutdomain.Discrepancy{
				LoanID:      rec.LoanID,
				Declared:    declared,
				Expected:    decimal.Zero,
				Difference:  decimal.Zero,
				Type:        payoutdomain.DiscrepancyNoBaseline,
				Description: fmt.Sprintf("no baseline loan record for %s", rec.LoanID),
			})
		}

		var (
			expected decimal.Decimal
			kind     payoutdomain.DiscrepancyType
			found    bool
		)
		if rec.LastCycleEndDate != nil {
			prior := r.lookupPrior(ctx, rec.LoanID, prevYear, prevMonth)
			if prior != nil {
				expected = payoutdomain.Amount(prior.ClosingPos)
				kind = payoutdomain.DiscrepancyPreviousMonth
				found = true
			}
		}
		if !found && hasBaseline {
			expected = payoutdomain.Amount(baseline.CurrentOutstandingPrincipal)
			kind = payoutdomain.DiscrepancyCurrentMonth
			found = true
		}
		if !found {
			out.Records = append(out.Records, rec)
			continue
		}

		if !declared.Equal(expected) {
			rec.IsOpeningPosMismatch = true
			diff := declared.Sub(expected)
			out.Discrepancies = append(out.Discrepancies, payoutdomain.Discrepancy{
				LoanID:      rec.LoanID,
				Declared:    declared,
				Expected:    expected,
				Difference:  diff,
				Type:        kind,
				Description: describe(kind, declared, expected, diff),
			})
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// lookupPrior treats a failed read as a missing prior cycle.
func (r *Reconciler) lookupPrior(ctx context.Context, loanID string, year, month int) *payoutdomain.CycleRecord {
	if r.prior == nil {
		return nil
	}
	prior, err := r.prior.FindByLoanAndPeriod(ctx, loanID, year, month)
	if err != nil {
		r.log.Warn("prior cycle lookup failed; falling back to baseline",
			zap.String("loan_id", loanID),
			zap.Int("prior_year", year),
			zap.Int("prior_month", month),
			zap.Error(err),
		)
		return nil
	}
	return prior
}

func describe(kind payoutdomain.DiscrepancyType, declared, expected, diff decimal.Decimal) string {
	source := "baseline outstanding principal"
	if kind == payoutdomain.DiscrepancyPreviousMonth {
		source = "previous cycle closing position"
	}
	return fmt.Sprintf("opening position %s differs from %s %s by %s",
		declared.StringFixed(2), source, expected.StringFixed(2), diff.StringFixed(2))
}
