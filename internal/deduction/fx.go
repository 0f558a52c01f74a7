package deduction

import (
	"github.com/smallbiznis/sitebill/internal/deduction/domain"
	"github.com/smallbiznis/sitebill/internal/deduction/repository"
	"github.com/smallbiznis/sitebill/internal/deduction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deduction.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Resolver { return svc }),
)
