package order

import "go.uber.org/fx"

// Module provides the order status engine to Fx.
var Module = fx.Provide(NewService)
