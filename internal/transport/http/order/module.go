package order

import (
	"go.uber.org/fx"

	"github.com/labstack/echo/v4"

	transportmw "github.com/RomanDenysov/kromka-sub000/internal/transport/http/middleware"
)

// Module wires HTTP order handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, guard *transportmw.AdminGuard) {
		Register(e, h, guard)
	}),
)
