package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	baselinedomain "github.com/smallbiznis/partnerpayout/internal/baseline/domain"
	baselinerepo "github.com/smallbiznis/partnerpayout/internal/baseline/repository"
	baselinesvc "github.com/smallbiznis/partnerpayout/internal/baseline/service"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	"github.com/smallbiznis/partnerpayout/internal/config"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	cyclestatusrepo "github.com/smallbiznis/partnerpayout/internal/cyclestatus/repository"
	cyclestatussvc "github.com/smallbiznis/partnerpayout/internal/cyclestatus/service"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/smallbiznis/partnerpayout/internal/payout/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testDeal snowflake.ID = 42

type termsStub struct {
	byDeal map[snowflake.ID]*payoutdomain.DealTerms
	err    error
}

func (s *termsStub) ResolveTerms(_ context.Context, dealID snowflake.ID, _, _ int) (*payoutdomain.DealTerms, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byDeal[dealID], nil
}

type harness struct {
	svc         payoutdomain.Service
	db          *gorm.DB
	repo        payoutdomain.Repository
	terms       *termsStub
	baselines   *baselinesvc.Service
	cycleStatus cyclestatusdomain.Service
	clock       *clock.FakeClock
	node        *snowflake.Node
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(
		&payoutdomain.CycleRecord{},
		&cyclestatusdomain.MonthlyCycleStatus{},
		&baselinedomain.Loan{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	cycleStatus := cyclestatussvc.NewService(cyclestatussvc.ServiceParam{
		Repo:  cyclestatusrepo.NewRepository(conn),
		Log:   log,
		GenID: node,
		Clock: fc,
	})
	baselines := baselinesvc.NewService(baselinesvc.ServiceParam{
		Repo:  baselinerepo.NewRepository(conn),
		Log:   log,
		GenID: node,
		Clock: fc,
	})
	ts := &termsStub{byDeal: map[snowflake.ID]*payoutdomain.DealTerms{
		testDeal: {
			DealID:             testDeal,
			AssignRatio:        d("0.5"),
			AnnualInterestRate: d("0.24"),
		},
	}}
	repo := repository.NewRepository(conn)

	svc := NewService(ServiceParam{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fc,
		Repo:        repo,
		Terms:       ts,
		Baselines:   baselinesvc.NewReader(baselines),
		CycleStatus: cycleStatus,
		Locker:      keylock.NewLocalLocker(),
		Policy:      config.NewStaticPayoutPolicyHolder(config.PayoutPolicy{Workers: 4}),
	})

	return &harness{
		svc:         svc,
		db:          conn,
		repo:        repo,
		terms:       ts,
		baselines:   baselines,
		cycleStatus: cycleStatus,
		clock:       fc,
		node:        node,
	}
}

func (h *harness) ingest(t *testing.T, year, month int, rows ...payoutdomain.RawCycleRow) *payoutdomain.IngestResult {
	t.Helper()
	res, err := h.svc.Ingest(context.Background(), payoutdomain.IngestRequest{
		DealID: testDeal,
		Year:   year,
		Month:  month,
		Rows:   rows,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) seedBaseline(t *testing.T, loanID, principal, overdue string) {
	t.Helper()
	_, err := h.baselines.Upsert(context.Background(), baselinedomain.Loan{
		LoanID:                         loanID,
		CurrentOutstandingPrincipal:    nd(principal),
		CurrentAssignedOverdueInterest: nd(overdue),
	})
	require.NoError(t, err)
}

func (h *harness) records(t *testing.T, loanID string) []payoutdomain.CycleRecord {
	t.Helper()
	var items []payoutdomain.CycleRecord
	require.NoError(t, h.db.Where("loan_id = ?", loanID).
		Order("cycle_year ASC").Order("cycle_month ASC").Order("created_at ASC").
		Find(&items).Error)
	return items
}

func row(loanID string, opening, closing, interestPaid, start, end string) payoutdomain.RawCycleRow {
	return payoutdomain.RawCycleRow{
		LoanID:                     loanID,
		OpeningPos:                 payoutdomain.RawValue(opening),
		ClosingPos:                 payoutdomain.RawValue(closing),
		TotalInterestComponentPaid: payoutdomain.RawValue(interestPaid),
		CycleStartDate:             payoutdomain.RawValue(start),
		CycleEndDate:               payoutdomain.RawValue(end),
	}
}
