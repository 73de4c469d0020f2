package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cache"
	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/messaging"
	"github.com/RomanDenysov/kromka-sub000/internal/notification"
	repo "github.com/RomanDenysov/kromka-sub000/internal/repository/order"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/service/order")

// Repository is the persistence surface the status engine drives.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Order, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, upd repo.StatusUpdate, derive func(*entity.Order) *entity.PaymentStatus) (*entity.Order, error)
	BulkUpdate(ctx context.Context, orderIDs []int64, status *entity.OrderStatus, payment *entity.PaymentStatus, actorID *int64) ([]int64, error)
}

// Service is the admin-driven order status engine: it moves orders through
// their lifecycle, derives payment status, and dispatches the matching
// customer notifications.
type Service struct {
	repo      Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	mailer    notification.Mailer
	publisher messaging.Client

	messagingEnabled bool
	chunkSize        int
	chunkWait        time.Duration
	sleep            func(time.Duration)
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Mailer     notification.Mailer
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:             p.Repository,
		cache:            p.Cache,
		cacheTTL:         p.Config.Cache.DefaultTTL,
		logger:           p.Logger,
		mailer:           p.Mailer,
		publisher:        p.Publisher,
		messagingEnabled: p.Config.Messaging.Enabled,
		chunkSize:        p.Config.Orders.NotifyChunkSize,
		chunkWait:        p.Config.Orders.NotifyChunkWait,
		sleep:            time.Sleep,
	}
}

// Get retrieves a hydrated order, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return order, nil
}

// List returns recent orders for the back office.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	orders, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// UpdateStatus transitions one order to newStatus, appending a status event
// and deriving payment status (completed implies paid, refunded implies
// refunded). Any status may follow any other; every move lands in the audit
// log. The matching customer email is dispatched after the transaction and
// its failure is only logged.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, newStatus entity.OrderStatus, note string, actorID *int64) (*entity.Order, error) {
	if !newStatus.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status %q", newStatus))
	}
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(newStatus)),
	))
	defer span.End()

	order, err := s.repo.UpdateStatus(ctx, orderID, repo.StatusUpdate{
		Status:  newStatus,
		Note:    note,
		ActorID: actorID,
	}, DerivePaymentStatus)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	s.invalidateCache(ctx, orderID)
	s.notifyStatus(ctx, order)
	s.publishStatusChanged(ctx, order)
	return order, nil
}

// BulkResult reports the outcome of a bulk transition.
type BulkResult struct {
	Updated       []int64  `json:"updated"`
	EmailFailures []string `json:"email_failures,omitempty"`
}

// BulkUpdate applies one header change to many orders, then dispatches the
// status-keyed emails in fixed-size chunks with a short pause between chunks
// to avoid flooding the notification sink. Email failures are collected per
// order and never abort the remaining chunks.
func (s *Service) BulkUpdate(ctx context.Context, orderIDs []int64, newStatus *entity.OrderStatus, newPayment *entity.PaymentStatus, actorID *int64) (*BulkResult, error) {
	if len(orderIDs) == 0 {
		return nil, errorbank.BadRequest("no order ids given")
	}
	if newStatus == nil && newPayment == nil {
		return nil, errorbank.BadRequest("nothing to update")
	}
	if newStatus != nil && !newStatus.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status %q", *newStatus))
	}
	if newPayment != nil && !newPayment.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown payment status %q", *newPayment))
	}
	// The status/payment coupling applies to bulk moves too: completing or
	// refunding without an explicit payment derives it, same as a single
	// transition. An explicit payment always wins.
	if newStatus != nil && newPayment == nil {
		newPayment = DerivePaymentStatus(&entity.Order{Status: *newStatus})
	}
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkUpdate", trace.WithAttributes(
		attribute.Int("order.count", len(orderIDs)),
	))
	defer span.End()

	updated, err := s.repo.BulkUpdate(ctx, orderIDs, newStatus, newPayment, actorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to bulk update orders", errorbank.WithCause(err))
	}

	result := &BulkResult{Updated: updated}
	for _, id := range updated {
		s.invalidateCache(ctx, id)
	}

	if newStatus == nil || len(updated) == 0 {
		return result, nil
	}

	orders, err := s.repo.GetByIDs(ctx, updated)
	if err != nil {
		// Header updates already committed; report the orders as updated
		// and the notifications as failed.
		s.logger.Error("bulk notification load failed", zap.Error(err))
		for _, id := range updated {
			result.EmailFailures = append(result.EmailFailures, fmt.Sprintf("order %d: %v", id, err))
		}
		return result, nil
	}

	for start := 0; start < len(orders); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(orders) {
			end = len(orders)
		}
		for _, order := range orders[start:end] {
			if err := s.sendStatusEmail(ctx, order); err != nil {
				result.EmailFailures = append(result.EmailFailures,
					fmt.Sprintf("order %d: %v", order.ID, err))
			}
			s.publishStatusChanged(ctx, order)
		}
		if end < len(orders) && s.chunkWait > 0 {
			s.sleep(s.chunkWait)
		}
	}
	return result, nil
}

// DerivePaymentStatus implements the status/payment coupling: completing an
// order marks it paid, refunding marks it refunded, anything else leaves the
// payment status alone. The order carries the target status already.
func DerivePaymentStatus(order *entity.Order) *entity.PaymentStatus {
	switch order.Status {
	case entity.StatusCompleted:
		if order.PaymentStatus != entity.PaymentPaid {
			paid := entity.PaymentPaid
			return &paid
		}
	case entity.StatusRefunded:
		if order.PaymentStatus != entity.PaymentRefunded {
			refunded := entity.PaymentRefunded
			return &refunded
		}
	}
	return nil
}

func (s *Service) notifyStatus(ctx context.Context, order *entity.Order) {
	if err := s.sendStatusEmail(ctx, order); err != nil {
		s.logger.Warn("status notification failed",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}

// sendStatusEmail dispatches the email keyed to the order's new status.
// Cancellation currently sends nothing.
func (s *Service) sendStatusEmail(ctx context.Context, order *entity.Order) error {
	switch order.Status {
	case entity.StatusInProgress:
		return s.mailer.SendOrderConfirmationEmail(ctx, order)
	case entity.StatusReadyForPickup:
		return s.mailer.SendOrderReadyEmail(ctx, order)
	case entity.StatusCompleted:
		return s.mailer.SendThankYouEmail(ctx, order)
	}
	return nil
}

// StatusChangedEvent is emitted to the message bus on every transition.
type StatusChangedEvent struct {
	Type          string               `json:"type"`
	ID            int64                `json:"id"`
	Number        string               `json:"number"`
	Status        entity.OrderStatus   `json:"status"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	ChangedAt     time.Time            `json:"changed_at"`
}

// EventStatusChanged tags analytics events for status transitions.
const EventStatusChanged = "order.status_changed"

func (s *Service) publishStatusChanged(ctx context.Context, order *entity.Order) {
	if !s.messagingEnabled || s.publisher == nil {
		return
	}
	event := StatusChangedEvent{
		Type:          EventStatusChanged,
		ID:            order.ID,
		Number:        order.Number,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		ChangedAt:     order.UpdatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal status changed", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish status changed", zap.Error(err))
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

func (s *Service) invalidateCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}
