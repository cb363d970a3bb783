package deal

import (
	"github.com/smallbiznis/partnerpayout/internal/deal/repository"
	"github.com/smallbiznis/partnerpayout/internal/deal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deal.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewTermsProvider),
	fx.Provide(service.NewService),
)
