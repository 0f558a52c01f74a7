package masterdata

import (
	"github.com/smallbiznis/sitebill/internal/masterdata/repository"
	"github.com/smallbiznis/sitebill/internal/masterdata/service"
	"go.uber.org/fx"
)

var Module = fx.Module("masterdata.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
