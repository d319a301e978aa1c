package catalog

import (
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	"github.com/smallbiznis/gglounge/internal/catalog/repository"
	"github.com/smallbiznis/gglounge/internal/catalog/service"
	pkgrepository "github.com/smallbiznis/gglounge/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(pkgrepository.ProvideStore[catalogdomain.Device]),
	fx.Provide(pkgrepository.ProvideStore[catalogdomain.Game]),
	fx.Provide(pkgrepository.ProvideStore[catalogdomain.Snack]),
	fx.Provide(service.New),
)
