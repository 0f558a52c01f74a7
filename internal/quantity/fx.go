package quantity

import (
	"github.com/smallbiznis/sitebill/internal/quantity/repository"
	"github.com/smallbiznis/sitebill/internal/quantity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quantity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
