package http

import (
	"go.uber.org/fx"

	checkouttransport "github.com/RomanDenysov/kromka-sub000/internal/transport/http/checkout"
	transportmw "github.com/RomanDenysov/kromka-sub000/internal/transport/http/middleware"
	ordertransport "github.com/RomanDenysov/kromka-sub000/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	fx.Provide(transportmw.NewAdminGuard),
	checkouttransport.Module,
	ordertransport.Module,
)
