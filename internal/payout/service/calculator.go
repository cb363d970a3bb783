package service

import (
	"github.com/shopspring/decimal"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
)

var daysInYear = decimal.NewFromInt(365)

// ComputeSellerFields derives the seller share of one cycle record. It does
// not touch its inputs; the returned record is a new value.
//
// Overdue interest carries forward per loan: the prior cycle's unpaid due
// becomes this cycle's overdue, and only a loan's first cycle is seeded from
// its baseline.
func ComputeSellerFields(
	record payoutdomain.CycleRecord,
	terms *payoutdomain.DealTerms,
	baseline *payoutdomain.BaselineLoan,
	prior *payoutdomain.CycleRecord,
) payoutdomain.CycleRecord {
	if terms == nil {
		return record
	}

	out := record
	ratio := terms.AssignRatio
	share := func(v decimal.NullDecimal) decimal.NullDecimal {
		return payoutdomain.Known(payoutdomain.Round2(payoutdomain.Amount(v).Mul(ratio)))
	}

	out.SellerOpeningPos = share(record.OpeningPos)
	out.SellerClosingPos = share(record.ClosingPos)
	out.SellerTotalPrincipalDue = share(record.TotalPrincipalDue)
	out.SellerPrincipalOverdue = share(record.PrincipalOverdue)
	out.SellerTotalPrincipalPaid = share(record.TotalPrincipalPaid)
	out.SellerPrincipalOverduePaid = share(record.PrincipalOverduePaid)
	out.SellerForeclosurePaid = share(record.ForeclosurePaid)
	out.SellerForeclosureChargesPaid = share(record.ForeclosureChargesPaid)
	out.SellerPrepaymentPaid = share(record.PrepaymentPaid)
	out.SellerPrepaymentChargesPaid = share(record.PrepaymentChargesPaid)
	out.SellerTotalChargesPaid = share(record.TotalChargesPaid)
	out.SellerTotalPaid = share(record.TotalPaid)

	interestDue := decimal.Zero
	if days := cycleDays(record, terms); days > 0 {
		interestDue = payoutdomain.Round2(
			payoutdomain.Amount(out.SellerOpeningPos).
				Mul(terms.AnnualInterestRate).
				Mul(decimal.NewFromInt(int64(days))).
				Div(daysInYear),
		)
	}
	out.SellerTotalInterestDue = payoutdomain.Known(interestDue)

	// Anything collected on the raw side settles the whole seller due.
	interestPaid := decimal.Zero
	if payoutdomain.Amount(record.TotalInterestComponentPaid).IsPositive() {
		interestPaid = interestDue
	}
	out.SellerTotalInterestComponentPaid = payoutdomain.Known(interestPaid)

	overdue := carriedOverdue(baseline, prior)
	out.SellerInterestOverdue = payoutdomain.Known(overdue)

	overduePaid := decimal.Zero
	if overdue.IsPositive() {
		overduePaid = payoutdomain.ClampZero(payoutdomain.Round2(interestPaid.Sub(interestDue.Sub(overdue))))
	}
	out.SellerInterestOverduePaid = payoutdomain.Known(overduePaid)

	return out
}

func carriedOverdue(baseline *payoutdomain.BaselineLoan, prior *payoutdomain.CycleRecord) decimal.Decimal {
	if prior != nil {
		unpaid := payoutdomain.Amount(prior.SellerTotalInterestDue).
			Sub(payoutdomain.Amount(prior.SellerTotalInterestComponentPaid))
		return payoutdomain.ClampZero(payoutdomain.Round2(unpaid))
	}
	if baseline != nil {
		return payoutdomain.ClampZero(payoutdomain.Round2(payoutdomain.Amount(baseline.CurrentAssignedOverdueInterest)))
	}
	return decimal.Zero
}

// cycleDays prefers the dates reported on the row and falls back to the
// deal's configured window only when the row carries neither.
func cycleDays(record payoutdomain.CycleRecord, terms *payoutdomain.DealTerms) int {
	if record.CycleStartDate != nil || record.CycleEndDate != nil {
		return payoutdomain.DaysBetween(record.CycleStartDate, record.CycleEndDate)
	}
	if terms.WindowStart.IsZero() || terms.WindowEnd.IsZero() {
		return 0
	}
	return payoutdomain.DaysBetween(&terms.WindowStart, &terms.WindowEnd)
}
