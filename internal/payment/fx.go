package payment

import "go.uber.org/fx"

var Module = fx.Module("payment.reconciler",
	fx.Provide(NewReconciler),
)
