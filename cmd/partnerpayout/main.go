package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpayout/internal/baseline"
	"github.com/smallbiznis/partnerpayout/internal/clock"
	"github.com/smallbiznis/partnerpayout/internal/config"
	"github.com/smallbiznis/partnerpayout/internal/cyclestatus"
	"github.com/smallbiznis/partnerpayout/internal/deal"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	"github.com/smallbiznis/partnerpayout/internal/migration"
	"github.com/smallbiznis/partnerpayout/internal/observability"
	"github.com/smallbiznis/partnerpayout/internal/payout"
	"github.com/smallbiznis/partnerpayout/internal/seed"
	"github.com/smallbiznis/partnerpayout/internal/server"
	"github.com/smallbiznis/partnerpayout/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		keylock.Module,

		// Functional Domains
		deal.Module,
		baseline.Module,
		cyclestatus.Module,
		payout.Module,
		seed.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
