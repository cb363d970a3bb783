package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return payoutdomain.Known(d(s)) }

func day(y int, m time.Month, dd int) *time.Time {
	t := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	return &t
}

func terms(ratio, rate string) *payoutdomain.DealTerms {
	return &payoutdomain.DealTerms{
		AssignRatio:        d(ratio),
		AnnualInterestRate: d(rate),
	}
}

func assertAmount(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected %s, got null", want)
	assert.True(t, got.Decimal.Equal(d(want)), "expected %s, got %s", want, got.Decimal)
}

func TestComputeSellerFieldsEndToEndScenario(t *testing.T) {
	rec := payoutdomain.CycleRecord{
		LoanID:                     "LN-1",
		OpeningPos:                 nd("100000"),
		TotalInterestComponentPaid: nd("500"),
		CycleStartDate:             day(2024, 1, 1),
		CycleEndDate:               day(2024, 1, 31),
	}

	out := ComputeSellerFields(rec, terms("0.5", "0.24"), nil, nil)

	assertAmount(t, "50000.00", out.SellerOpeningPos)
	assertAmount(t, "986.30", out.SellerTotalInterestDue)
	assertAmount(t, "986.30", out.SellerTotalInterestComponentPaid)
	assertAmount(t, "0", out.SellerInterestOverdue)
	assertAmount(t, "0", out.SellerInterestOverduePaid)

	// input untouched
	assert.False(t, rec.SellerOpeningPos.Valid)
}

func TestComputeSellerFieldsProportionalShares(t *testing.T) {
	ratios := []string{"0", "0.1", "0.333333", "0.5", "0.9", "1"}
	values := []string{"0", "0.01", "1234.565", "99999.995", "100000"}

	for _, r := range ratios {
		for _, v := range values {
			rec := payoutdomain.CycleRecord{
				OpeningPos:             nd(v),
				ClosingPos:             nd(v),
				TotalPrincipalDue:      nd(v),
				PrincipalOverdue:       nd(v),
				TotalPrincipalPaid:     nd(v),
				PrincipalOverduePaid:   nd(v),
				ForeclosurePaid:        nd(v),
				ForeclosureChargesPaid: nd(v),
				PrepaymentPaid:         nd(v),
				PrepaymentChargesPaid:  nd(v),
				TotalChargesPaid:       nd(v),
				TotalPaid:              nd(v),
			}
			out := ComputeSellerFields(rec, terms(r, "0.1"), nil, nil)
			want := d(v).Mul(d(r)).Round(2)

			for _, got := range []decimal.NullDecimal{
				out.SellerOpeningPos, out.SellerClosingPos, out.SellerTotalPrincipalDue,
				out.SellerPrincipalOverdue, out.SellerTotalPrincipalPaid, out.SellerPrincipalOverduePaid,
				out.SellerForeclosurePaid, out.SellerForeclosureChargesPaid, out.SellerPrepaymentPaid,
				out.SellerPrepaymentChargesPaid, out.SellerTotalChargesPaid, out.SellerTotalPaid,
			} {
				require.True(t, got.Valid)
				assert.True(t, got.Decimal.Equal(want), "ratio %s value %s: want %s got %s", r, v, want, got.Decimal)
				assert.False(t, got.Decimal.IsNegative())
			}
		}
	}
}

func TestComputeSellerFieldsRoundsHalfUp(t *testing.T) {
	rec := payoutdomain.CycleRecord{TotalPaid: nd("10.01")}
	out := ComputeSellerFields(rec, terms("0.5", "0"), nil, nil)
	assertAmount(t, "5.01", out.SellerTotalPaid) // 5.005
}

func TestComputeSellerFieldsNullRawIsZero(t *testing.T) {
	out := ComputeSellerFields(payoutdomain.CycleRecord{}, terms("0.5", "0.2"), nil, nil)
	assertAmount(t, "0", out.SellerOpeningPos)
	assertAmount(t, "0", out.SellerTotalPaid)
	assertAmount(t, "0", out.SellerTotalInterestDue)
}

func TestComputeSellerFieldsNoDaysNoInterest(t *testing.T) {
	rec := payoutdomain.CycleRecord{
		OpeningPos:                 nd("1000"),
		TotalInterestComponentPaid: nd("10"),
		CycleStartDate:             day(2024, 1, 1),
	}
	out := ComputeSellerFields(rec, terms("1", "0.24"), nil, nil)
	assertAmount(t, "0", out.SellerTotalInterestDue)
	assertAmount(t, "0", out.SellerTotalInterestComponentPaid)
}

func TestComputeSellerFieldsFallsBackToDealWindow(t *testing.T) {
	tm := terms("1", "0.365")
	tm.WindowStart = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tm.WindowEnd = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	out := ComputeSellerFields(payoutdomain.CycleRecord{OpeningPos: nd("1000")}, tm, nil, nil)
	// 1000 * 0.365 / 365 * 29
	assertAmount(t, "29.00", out.SellerTotalInterestDue)
}

func TestComputeSellerFieldsInterestPaidInFullWhenAnythingCollected(t *testing.T) {
	rec := payoutdomain.CycleRecord{
		OpeningPos:                 nd("100000"),
		TotalInterestComponentPaid: nd("0.01"),
		CycleStartDate:             day(2024, 1, 1),
		CycleEndDate:               day(2024, 1, 31),
	}
	out := ComputeSellerFields(rec, terms("0.5", "0.24"), nil, nil)
	assertAmount(t, "986.30", out.SellerTotalInterestComponentPaid)

	rec.TotalInterestComponentPaid = nd("0")
	out = ComputeSellerFields(rec, terms("0.5", "0.24"), nil, nil)
	assertAmount(t, "0", out.SellerTotalInterestComponentPaid)
}

func TestComputeSellerFieldsFirstCycleSeedsFromBaseline(t *testing.T) {
	baseline := &payoutdomain.BaselineLoan{
		LoanID:                         "LN-1",
		CurrentAssignedOverdueInterest: nd("25.50"),
	}
	out := ComputeSellerFields(payoutdomain.CycleRecord{LoanID: "LN-1"}, terms("0.5", "0.24"), baseline, nil)
	assertAmount(t, "25.50", out.SellerInterestOverdue)
	// nothing paid, so nothing of the overdue is settled
	assertAmount(t, "0", out.SellerInterestOverduePaid)
}

func TestComputeSellerFieldsChainsFromPriorCycleIgnoringBaseline(t *testing.T) {
	prior := &payoutdomain.CycleRecord{
		SellerTotalInterestDue:           nd("100.00"),
		SellerTotalInterestComponentPaid: nd("40.00"),
	}
	for _, seed := range []string{"0", "25.50", "9999"} {
		baseline := &payoutdomain.BaselineLoan{CurrentAssignedOverdueInterest: nd(seed)}
		out := ComputeSellerFields(payoutdomain.CycleRecord{}, terms("0.5", "0.24"), baseline, prior)
		assertAmount(t, "60.00", out.SellerInterestOverdue)
	}
}

func TestComputeSellerFieldsOverduePaid(t *testing.T) {
	// due 986.30 fully paid, 60 overdue carried: the excess over the
	// current due covers the overdue.
	prior := &payoutdomain.CycleRecord{
		SellerTotalInterestDue:           nd("100.00"),
		SellerTotalInterestComponentPaid: nd("40.00"),
	}
	rec := payoutdomain.CycleRecord{
		OpeningPos:                 nd("100000"),
		TotalInterestComponentPaid: nd("500"),
		CycleStartDate:             day(2024, 1, 1),
		CycleEndDate:               day(2024, 1, 31),
	}
	out := ComputeSellerFields(rec, terms("0.5", "0.24"), nil, prior)
	assertAmount(t, "60.00", out.SellerInterestOverdue)
	// 986.30 - (986.30 - 60.00)
	assertAmount(t, "60.00", out.SellerInterestOverduePaid)
}

func TestComputeSellerFieldsOverdueNeverNegative(t *testing.T) {
	cases := []struct {
		name     string
		prior    *payoutdomain.CycleRecord
		baseline *payoutdomain.BaselineLoan
		rec      payoutdomain.CycleRecord
	}{
		{
			name: "prior overpaid",
			prior: &payoutdomain.CycleRecord{
				SellerTotalInterestDue:           nd("10"),
				SellerTotalInterestComponentPaid: nd("50"),
			},
		},
		{
			name:     "negative baseline seed",
			baseline: &payoutdomain.BaselineLoan{CurrentAssignedOverdueInterest: nd("-12.34")},
		},
		{
			name:     "negative opening with positive overdue",
			baseline: &payoutdomain.BaselineLoan{CurrentAssignedOverdueInterest: nd("5")},
			rec: payoutdomain.CycleRecord{
				OpeningPos:                 nd("-1000"),
				TotalInterestComponentPaid: nd("1"),
				CycleStartDate:             day(2024, 1, 1),
				CycleEndDate:               day(2024, 1, 31),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ComputeSellerFields(tc.rec, terms("0.7", "0.3"), tc.baseline, tc.prior)
			require.True(t, out.SellerInterestOverdue.Valid)
			require.True(t, out.SellerInterestOverduePaid.Valid)
			assert.False(t, out.SellerInterestOverdue.Decimal.IsNegative())
			assert.False(t, out.SellerInterestOverduePaid.Decimal.IsNegative())
		})
	}
}

func TestComputeSellerFieldsSoftSkipsWithoutTerms(t *testing.T) {
	rec := payoutdomain.CycleRecord{
		LoanID:           "LN-1",
		OpeningPos:       nd("100"),
		SellerOpeningPos: nd("42"),
	}
	out := ComputeSellerFields(rec, nil, nil, nil)
	assert.Equal(t, rec, out)
}
