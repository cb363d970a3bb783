package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/baseline"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	"github.com/smallbiznis/partnerpayout/internal/config"
	"github.com/smallbiznis/partnerpayout/internal/cyclestatus"
	"github.com/smallbiznis/partnerpayout/internal/deal"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	"github.com/smallbiznis/partnerpayout/internal/lmsfeed"
	"github.com/smallbiznis/partnerpayout/internal/migration"
	"github.com/smallbiznis/partnerpayout/internal/observability"
	"github.com/smallbiznis/partnerpayout/internal/payout"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/smallbiznis/partnerpayout/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "Required: LMS feed (.xlsx or .csv)")
	dealRef := flag.String("deal", "", "Required: deal id or code")
	year := flag.Int("year", 0, "Required: cycle year")
	month := flag.Int("month", 0, "Required: cycle month (1-12)")
	sheet := flag.String("sheet", "", "Optional: workbook sheet (defaults to the policy sheet, then the first sheet)")
	calculate := flag.Bool("calculate", false, "Run the seller calculation after ingesting")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall time limit")
	flag.Parse()

	if strings.TrimSpace(*file) == "" || strings.TrimSpace(*dealRef) == "" {
		fmt.Fprintln(os.Stderr, "-file and -deal are required")
		os.Exit(2)
	}

	var (
		payoutSvc payoutdomain.Service
		dealSvc   dealdomain.Service
		policy    *config.PayoutPolicyHolder
		log       *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.NodeID)
		}),
		db.Module,
		migration.Module,
		clock.Module,
		keylock.Module,
		deal.Module,
		baseline.Module,
		cyclestatus.Module,
		payout.Module,
		fx.Populate(&payoutSvc, &dealSvc, &policy, &log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	err := run(ctx, runParams{
		file:      *file,
		dealRef:   *dealRef,
		year:      *year,
		month:     *month,
		sheet:     *sheet,
		calculate: *calculate,
		payoutSvc: payoutSvc,
		dealSvc:   dealSvc,
		policy:    policy,
		log:       log.Named("lms-import"),
	})
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)

	if err != nil {
		fmt.Fprintf(os.Stderr, "lms-import: %v\n", err)
		os.Exit(1)
	}
}

type runParams struct {
	file      string
	dealRef   string
	year      int
	month     int
	sheet     string
	calculate bool
	payoutSvc payoutdomain.Service
	dealSvc   dealdomain.Service
	policy    *config.PayoutPolicyHolder
	log       *zap.Logger
}

func run(ctx context.Context, p runParams) error {
	if err := payoutdomain.ValidateCycle(p.year, p.month); err != nil {
		return err
	}

	d, err := p.dealSvc.Get(ctx, p.dealRef)
	if err != nil {
		return fmt.Errorf("resolve deal %q: %w", p.dealRef, err)
	}

	f, err := os.Open(p.file)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := p.sheet
	if sheet == "" {
		sheet = p.policy.Get().FeedSheet
	}
	rows, err := lmsfeed.DecodeFile(f, p.file, sheet)
	if err != nil {
		return fmt.Errorf("decode %s: %w", p.file, err)
	}
	p.log.Info("decoded lms feed", zap.String("file", p.file), zap.Int("rows", len(rows)))

	ingested, err := p.payoutSvc.Ingest(ctx, payoutdomain.IngestRequest{
		DealID: d.ID,
		Year:   p.year,
		Month:  p.month,
		Rows:   rows,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	out := map[string]any{"ingest": ingested}
	if p.calculate {
		summary, err := p.payoutSvc.Calculate(ctx, payoutdomain.CalculateRequest{
			Year:   p.year,
			Month:  p.month,
			DealID: &d.ID,
		})
		if err != nil {
			return fmt.Errorf("calculate: %w", err)
		}
		out["calculation"] = summary
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
