package payout

import (
	"github.com/smallbiznis/partnerpayout/internal/payout/repository"
	"github.com/smallbiznis/partnerpayout/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
