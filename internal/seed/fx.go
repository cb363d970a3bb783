package seed

import (
	"context"

	baselinesvc "github.com/smallbiznis/partnerpayout/internal/baseline/service"
	"github.com/smallbiznis/partnerpayout/internal/config"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       config.Config
	Deals     dealdomain.Service
	Baselines *baselinesvc.Service
	Log       *zap.Logger
}

var Module = fx.Module("seed",
	fx.Invoke(func(p Params) {
		if !p.Cfg.SeedDemo || p.Cfg.IsProduction() {
			return
		}
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureDemo(ctx, p.Deals, p.Baselines, p.Log.Named("seed"))
			},
		})
	}),
)
