package migration

import (
	baselinedomain "github.com/smallbiznis/partnerpayout/internal/baseline/domain"
	"github.com/smallbiznis/partnerpayout/internal/config"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBMigrate {
			return nil
		}
		if cfg.DBType != "postgres" {
			// embedded SQL is postgres-only; local sqlite/mysql runs use the models
			log.Warn("embedded migrations are postgres-only; auto-migrating models", zap.String("db_type", cfg.DBType))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		res, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema ready", zap.Uint("version", res.Version), zap.Bool("applied", res.Applied))
		return nil
	}),
)

// AutoMigrate creates the schema from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&dealdomain.Deal{},
		&dealdomain.RateChange{},
		&baselinedomain.Loan{},
		&cyclestatusdomain.MonthlyCycleStatus{},
		&payoutdomain.CycleRecord{},
	)
}
