package checkout

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RomanDenysov/kromka-sub000/internal/cart"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/presentation/http/response"
	service "github.com/RomanDenysov/kromka-sub000/internal/service/checkout"
	transportmw "github.com/RomanDenysov/kromka-sub000/internal/transport/http/middleware"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/transport/http/checkout")

// Handler exposes the storefront cart and checkout endpoints.
type Handler struct {
	svc   *service.Service
	carts *cart.Store
}

// NewHandler constructs the storefront Handler.
func NewHandler(svc *service.Service, carts *cart.Store) *Handler {
	return &Handler{svc: svc, carts: carts}
}

// Register wires the storefront routes.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/cart", h.getCart)
	e.POST("/cart/items", h.addItem)
	e.PUT("/cart/items/:productID", h.setQuantity)
	e.DELETE("/cart", h.clearCart)
	e.POST("/checkout", h.checkout)
}

func (h *Handler) getCart(c echo.Context) error {
	b := response.New(c)
	sessionID := transportmw.SessionID(c)
	if sessionID == "" {
		return b.WithError(errorbank.BadRequest("session id is required")).Build()
	}
	entries, err := h.carts.Get(c.Request().Context(), sessionID)
	if err != nil {
		return b.WithError(errorbank.Internal("could not read cart", errorbank.WithCause(err))).Build()
	}
	if entries == nil {
		entries = []cart.Entry{}
	}
	return b.WithData(entries).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)
	sessionID := transportmw.SessionID(c)
	if sessionID == "" {
		return b.WithError(errorbank.BadRequest("session id is required")).Build()
	}

	var payload struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}

	entries, err := h.carts.Add(c.Request().Context(), sessionID, payload.ProductID, payload.Quantity)
	if err != nil {
		if err == cart.ErrInvalidQuantity {
			return b.WithError(errorbank.BadRequest("quantity must be positive")).Build()
		}
		return b.WithError(errorbank.Internal("could not update cart", errorbank.WithCause(err))).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(entries).Build()
}

func (h *Handler) setQuantity(c echo.Context) error {
	b := response.New(c)
	sessionID := transportmw.SessionID(c)
	if sessionID == "" {
		return b.WithError(errorbank.BadRequest("session id is required")).Build()
	}

	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid product id", errorbank.WithCause(err))).Build()
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	entries, err := h.carts.SetQuantity(c.Request().Context(), sessionID, productID, payload.Quantity)
	if err != nil {
		if err == cart.ErrInvalidQuantity {
			return b.WithError(errorbank.BadRequest("quantity must not be negative")).Build()
		}
		return b.WithError(errorbank.Internal("could not update cart", errorbank.WithCause(err))).Build()
	}
	return b.WithData(entries).Build()
}

func (h *Handler) clearCart(c echo.Context) error {
	b := response.New(c)
	sessionID := transportmw.SessionID(c)
	if sessionID == "" {
		return b.WithError(errorbank.BadRequest("session id is required")).Build()
	}
	if err := h.carts.Clear(c.Request().Context(), sessionID); err != nil {
		return b.WithError(errorbank.Internal("could not clear cart", errorbank.WithCause(err))).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) checkout(c echo.Context) error {
	b := response.New(c)
	sessionID := transportmw.SessionID(c)
	if sessionID == "" {
		return b.WithError(errorbank.BadRequest("session id is required")).Build()
	}

	var payload struct {
		Channel       string `json:"channel"`
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
		CustomerPhone string `json:"customer_phone"`
		StoreID       *int64 `json:"store_id"`
		CompanyID     *int64 `json:"company_id"`
		PaymentMethod string `json:"payment_method"`
		PickupDate    string `json:"pickup_date"`
		PickupTime    string `json:"pickup_time"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Channel == "" {
		payload.Channel = string(entity.ChannelB2C)
	}
	if payload.PaymentMethod == "" {
		payload.PaymentMethod = string(entity.PaymentMethodInStore)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.create", trace.WithAttributes(
		attribute.String("order.channel", payload.Channel),
	))
	defer span.End()

	result, err := h.svc.CreateOrder(ctx, service.CreateOrderInput{
		SessionID:     sessionID,
		UserID:        transportmw.ActorID(c),
		Channel:       entity.Channel(payload.Channel),
		CustomerName:  payload.CustomerName,
		CustomerEmail: payload.CustomerEmail,
		CustomerPhone: payload.CustomerPhone,
		StoreID:       payload.StoreID,
		CompanyID:     payload.CompanyID,
		PaymentMethod: entity.PaymentMethod(payload.PaymentMethod),
		PickupDate:    payload.PickupDate,
		PickupTime:    payload.PickupTime,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(result).Build()
}
