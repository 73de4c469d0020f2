package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RomanDenysov/kromka-sub000/internal/dto"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/presentation/http/response"
	service "github.com/RomanDenysov/kromka-sub000/internal/service/order"
	transportmw "github.com/RomanDenysov/kromka-sub000/internal/transport/http/middleware"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/transport/http/order")

// Handler exposes the back-office order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes under /admin/orders, guarded by the staff token.
func Register(e *echo.Echo, h *Handler, guard *transportmw.AdminGuard) {
	g := e.Group("/admin/orders", guard.Require)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id/status", h.updateStatus)
	g.POST("/bulk", h.bulkUpdate)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return b.WithError(err).Build()
	}

	views := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		views = append(views, dto.FromOrder(order))
	}
	return b.WithData(views).WithMeta("count", len(views)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Status == "" {
		return b.WithError(errorbank.BadRequest("status is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, id, entity.OrderStatus(payload.Status), payload.Note, transportmw.ActorID(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) bulkUpdate(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		OrderIDs      []int64 `json:"order_ids"`
		Status        *string `json:"status"`
		PaymentStatus *string `json:"payment_status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	var status *entity.OrderStatus
	if payload.Status != nil {
		v := entity.OrderStatus(*payload.Status)
		status = &v
	}
	var payment *entity.PaymentStatus
	if payload.PaymentStatus != nil {
		v := entity.PaymentStatus(*payload.PaymentStatus)
		payment = &v
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkUpdate", trace.WithAttributes(
		attribute.Int("order.count", len(payload.OrderIDs)),
	))
	defer span.End()

	result, err := h.svc.BulkUpdate(ctx, payload.OrderIDs, status, payment, transportmw.ActorID(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusOK).WithData(result).Build()
}
