package tax

import (
	"github.com/smallbiznis/sitebill/internal/tax/repository"
	"github.com/smallbiznis/sitebill/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewAccountResolver),
	fx.Provide(service.NewService),
)
