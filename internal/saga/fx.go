package saga

import "go.uber.org/fx"

var Module = fx.Module("saga",
	fx.Provide(NewRunner),
)
