package app

import (
	"go.uber.org/fx"

	"github.com/RomanDenysov/kromka-sub000/internal/cache"
	"github.com/RomanDenysov/kromka-sub000/internal/cart"
	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/logger"
	"github.com/RomanDenysov/kromka-sub000/internal/messaging"
	"github.com/RomanDenysov/kromka-sub000/internal/notification"
	"github.com/RomanDenysov/kromka-sub000/internal/observability"
	"github.com/RomanDenysov/kromka-sub000/internal/pricing"
	repositorycatalog "github.com/RomanDenysov/kromka-sub000/internal/repository/catalog"
	repositoryorder "github.com/RomanDenysov/kromka-sub000/internal/repository/order"
	repositoryuser "github.com/RomanDenysov/kromka-sub000/internal/repository/user"
	grpcserver "github.com/RomanDenysov/kromka-sub000/internal/server/grpc"
	httpserver "github.com/RomanDenysov/kromka-sub000/internal/server/http"
	servicecheckout "github.com/RomanDenysov/kromka-sub000/internal/service/checkout"
	serviceorder "github.com/RomanDenysov/kromka-sub000/internal/service/order"
	"github.com/RomanDenysov/kromka-sub000/internal/settings"
	transporthttp "github.com/RomanDenysov/kromka-sub000/internal/transport/http"
	"github.com/RomanDenysov/kromka-sub000/internal/worker"
	workerorder "github.com/RomanDenysov/kromka-sub000/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	notification.Module,
	observability.Module,
	settings.Module,
	cart.Module,
	pricing.Module,
	repositorycatalog.Module,
	repositoryorder.Module,
	repositoryuser.Module,
	servicecheckout.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
