package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/messaging"
	checkoutsvc "github.com/RomanDenysov/kromka-sub000/internal/service/checkout"
	ordersvc "github.com/RomanDenysov/kromka-sub000/internal/service/order"
	"github.com/RomanDenysov/kromka-sub000/internal/worker"
)

var workerTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/worker/order")

// Module registers order-event worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// envelope peeks at the event type before full decoding.
type envelope struct {
	Type   string `json:"type"`
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

// NewOrderEventsHandler consumes the order analytics stream: order.created
// events from checkout and order.status_changed events from the status
// engine.
func NewOrderEventsHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var head envelope
		if err := json.Unmarshal(msg.Value, &head); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("event.type", head.Type))

		switch head.Type {
		case checkoutsvc.EventOrderCreated:
			var event checkoutsvc.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				span.RecordError(err)
				return err
			}
			logger.Info("order completed event processed",
				zap.Int64("id", event.ID),
				zap.String("number", event.Number),
				zap.String("channel", string(event.Channel)),
				zap.Int64("total_cents", event.TotalCents),
				zap.Int("items", event.Items),
			)
		case ordersvc.EventStatusChanged:
			var event ordersvc.StatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				span.RecordError(err)
				return err
			}
			logger.Info("order status change processed",
				zap.Int64("id", event.ID),
				zap.String("number", event.Number),
				zap.String("status", string(event.Status)),
				zap.String("payment_status", string(event.PaymentStatus)),
			)
		default:
			logger.Warn("unknown order event type", zap.String("type", head.Type))
		}
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
