package checkout

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cart"
	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/messaging"
	"github.com/RomanDenysov/kromka-sub000/internal/notification"
	"github.com/RomanDenysov/kromka-sub000/internal/ordernumber"
	"github.com/RomanDenysov/kromka-sub000/internal/pricing"
	catalogrepo "github.com/RomanDenysov/kromka-sub000/internal/repository/catalog"
	orderrepo "github.com/RomanDenysov/kromka-sub000/internal/repository/order"
	userrepo "github.com/RomanDenysov/kromka-sub000/internal/repository/user"
	"github.com/RomanDenysov/kromka-sub000/internal/settings"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/service/checkout")

// CartStore reads and clears the session cart.
type CartStore interface {
	Get(ctx context.Context, sessionID string) ([]cart.Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

// LastOrderMemory remembers a guest session's latest order for prefill.
type LastOrderMemory interface {
	RememberLastOrder(ctx context.Context, sessionID string, orderID int64) error
}

// Catalog is the read-only product/store/organization surface the pipeline
// consults.
type Catalog interface {
	FindActiveProducts(ctx context.Context, ids []int64) ([]*entity.Product, error)
	StoreExists(ctx context.Context, id int64) (bool, error)
	GetOrganization(ctx context.Context, id int64) (*entity.Organization, error)
}

// PriceResolver resolves effective unit prices for tiered pricing.
type PriceResolver interface {
	Resolve(ctx context.Context, in pricing.Input) (map[int64]int64, error)
}

// OrderWriter persists a validated order atomically.
type OrderWriter interface {
	Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem) error
}

// ProfileWriter propagates submitted contact info back onto user profiles.
type ProfileWriter interface {
	SyncContactInfo(ctx context.Context, userID int64, name, email, phone string, lastOrderID int64) error
}

// Service runs the order-creation pipeline: validation, pricing, item
// building, atomic persistence, and post-commit side effects.
type Service struct {
	carts      CartStore
	lastOrders LastOrderMemory
	catalog    Catalog
	prices     PriceResolver
	orders     OrderWriter
	profiles   ProfileWriter
	settings   settings.Reader
	mailer     notification.Mailer
	publisher  messaging.Client
	numbers    *ordernumber.Generator
	logger     *zap.Logger
	effects    *effectRunner

	messagingEnabled bool
	now              func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Carts     *cart.Store
	Catalog   *catalogrepo.Repository
	Resolver  *pricing.Resolver
	Orders    *orderrepo.Repository
	Profiles  *userrepo.Repository
	Settings  *settings.Service
	Mailer    notification.Mailer
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
}

// Module wires the checkout service into Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		carts:            p.Carts,
		lastOrders:       p.Carts,
		catalog:          p.Catalog,
		prices:           p.Resolver,
		orders:           p.Orders,
		profiles:         p.Profiles,
		settings:         p.Settings,
		mailer:           p.Mailer,
		publisher:        p.Publisher,
		numbers:          ordernumber.New(p.Config.Orders.NumberPrefix),
		logger:           p.Logger,
		effects:          newEffectRunner(p.Logger),
		messagingEnabled: p.Config.Messaging.Enabled,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderInput carries everything a checkout submission provides.
type CreateOrderInput struct {
	SessionID     string
	UserID        *int64
	Channel       entity.Channel
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StoreID       *int64
	CompanyID     *int64
	PaymentMethod entity.PaymentMethod
	PickupDate    string
	PickupTime    string
}

// CreateOrderResult identifies the persisted order.
type CreateOrderResult struct {
	OrderID int64  `json:"order_id"`
	Number  string `json:"number"`
}

// CreateOrder runs the full pipeline. It either fully succeeds, returning
// the order id and number, or fully fails with a single typed error; no
// partial state is ever exposed. Business-rule violations carry a stable
// code; infrastructure failures surface as one generic internal error.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.CreateOrder", trace.WithAttributes(
		attribute.String("order.channel", string(in.Channel)),
	))
	defer span.End()

	// The kill switch runs before everything else so a disabled shop
	// rejects cheaply.
	enabled, err := s.settings.Bool(ctx, settings.KeyOrdersEnabled, true)
	if err != nil {
		return nil, s.internal(span, "read orders_enabled", err)
	}
	if !enabled {
		return nil, errorbank.Unprocessable("ordering is temporarily disabled",
			errorbank.WithCode(CodeOrdersDisabled))
	}

	if appErr := validateContactInfo(in.CustomerName, in.CustomerEmail, in.CustomerPhone); appErr != nil {
		return nil, appErr
	}

	pickupDate, appErr := validatePickupDate(in.PickupDate, s.now())
	if appErr != nil {
		return nil, appErr
	}

	if appErr := validatePaymentMethod(in.Channel, in.PaymentMethod); appErr != nil {
		return nil, appErr
	}

	var priceTierID, organizationID *int64
	switch in.Channel {
	case entity.ChannelB2C:
		if in.StoreID == nil {
			return nil, errorbank.BadRequest("pickup store is required",
				errorbank.WithCode(CodeBadRequest))
		}
		exists, err := s.catalog.StoreExists(ctx, *in.StoreID)
		if err != nil {
			return nil, s.internal(span, "check store", err)
		}
		if !exists {
			return nil, errorbank.NotFound("pickup store not found",
				errorbank.WithCode(CodeStoreNotFound))
		}
		// A retail order is anchored to its pickup store only.
		in.CompanyID = nil
	case entity.ChannelB2B:
		if in.CompanyID == nil {
			return nil, errorbank.BadRequest("organization is required",
				errorbank.WithCode(CodeBadRequest))
		}
		org, err := s.catalog.GetOrganization(ctx, *in.CompanyID)
		if errors.Is(err, catalogrepo.ErrOrganizationNotFound) {
			return nil, errorbank.BadRequest("organization not found",
				errorbank.WithCode(CodeBadRequest))
		}
		if err != nil {
			return nil, s.internal(span, "load organization", err)
		}
		priceTierID = org.PriceTierID
		organizationID = &org.ID
		// A wholesale order is anchored to its organization only.
		in.StoreID = nil
	default:
		return nil, errorbank.BadRequest("unknown order channel",
			errorbank.WithCode(CodeBadRequest))
	}

	entries, err := s.carts.Get(ctx, in.SessionID)
	if err != nil {
		return nil, s.internal(span, "read cart", err)
	}
	if len(entries) == 0 {
		return nil, errorbank.Unprocessable("cart is empty",
			errorbank.WithCode(CodeEmptyCart))
	}

	items, appErr, err := s.buildOrderItems(ctx, entries, priceTierID, organizationID)
	if err != nil {
		return nil, s.internal(span, "build order items", err)
	}
	if appErr != nil {
		return nil, appErr
	}

	now := s.now()
	order := &entity.Order{
		Number:        s.numbers.Next(),
		CreatedBy:     in.UserID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		StoreID:       in.StoreID,
		CompanyID:     in.CompanyID,
		Channel:       in.Channel,
		Status:        entity.StatusNew,
		PaymentStatus: entity.PaymentPending,
		PaymentMethod: in.PaymentMethod,
		TotalCents:    sumTotals(items),
		PickupDate:    pickupDate,
		PickupTime:    in.PickupTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.Items = items

	if err := s.orders.Create(ctx, order, items); err != nil {
		return nil, s.internal(span, "persist order", err)
	}

	// The cart is cleared only once the commit is confirmed; a failed
	// commit must never lose the customer's cart.
	if err := s.carts.Clear(ctx, in.SessionID); err != nil {
		s.logger.Warn("cart clear failed after commit",
			zap.String("order_number", order.Number), zap.Error(err))
	}

	s.dispatchPostCommit(ctx, order, in)

	span.SetAttributes(attribute.String("order.number", order.Number))
	return &CreateOrderResult{OrderID: order.ID, Number: order.Number}, nil
}

func (s *Service) internal(span trace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.logger.Error("checkout pipeline failed", zap.String("stage", stage), zap.Error(err))
	return errorbank.Internal("could not create order", errorbank.WithCause(err))
}

func sumTotals(items []*entity.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalCents
	}
	return total
}
