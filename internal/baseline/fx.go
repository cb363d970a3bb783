package baseline

import (
	"github.com/smallbiznis/partnerpayout/internal/baseline/repository"
	"github.com/smallbiznis/partnerpayout/internal/baseline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("baseline.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(service.NewReader),
)
