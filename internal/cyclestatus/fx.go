package cyclestatus

import (
	"github.com/smallbiznis/partnerpayout/internal/cyclestatus/repository"
	"github.com/smallbiznis/partnerpayout/internal/cyclestatus/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cyclestatus.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
