package session

import (
	"github.com/smallbiznis/gglounge/internal/session/repository"
	"github.com/smallbiznis/gglounge/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
