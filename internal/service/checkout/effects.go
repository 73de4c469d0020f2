package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// effectRunner executes post-commit side effects on background goroutines.
// Each effect is isolated: one failing never blocks the others and never
// reaches the caller, because the order has already been committed.
type effectRunner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

func newEffectRunner(logger *zap.Logger) *effectRunner {
	return &effectRunner{logger: logger}
}

func (r *effectRunner) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(ctx); err != nil {
			r.logger.Warn("post-commit effect failed",
				zap.String("effect", name), zap.Error(err))
		}
	}()
}

// wait blocks until all in-flight effects settle. Used by tests and by
// graceful shutdown.
func (r *effectRunner) wait() {
	r.wg.Wait()
}

// Wait blocks until dispatched post-commit effects have settled.
func (s *Service) Wait() {
	s.effects.wait()
}

// dispatchPostCommit fires the side effects of a successful order: profile
// sync or guest last-order memory, the two notification emails, and the
// analytics event. Runs strictly after commit and cart clearing; the effect
// context is detached so a finished request cannot cancel them.
func (s *Service) dispatchPostCommit(ctx context.Context, order *entity.Order, in CreateOrderInput) {
	detached := context.WithoutCancel(ctx)

	if in.UserID != nil {
		userID := *in.UserID
		s.effects.spawn(detached, "profile_sync", func(ctx context.Context) error {
			return s.profiles.SyncContactInfo(ctx, userID,
				order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.ID)
		})
	} else {
		s.effects.spawn(detached, "guest_last_order", func(ctx context.Context) error {
			return s.lastOrders.RememberLastOrder(ctx, in.SessionID, order.ID)
		})
	}

	// Staff and customer mails are dispatched independently so one sink
	// being unreachable cannot suppress the other.
	s.effects.spawn(detached, "staff_new_order_email", func(ctx context.Context) error {
		return s.mailer.SendNewOrderEmail(ctx, order)
	})
	s.effects.spawn(detached, "customer_receipt_email", func(ctx context.Context) error {
		return s.mailer.SendReceiptEmail(ctx, order)
	})

	s.effects.spawn(detached, "analytics_order_completed", func(ctx context.Context) error {
		return s.publishOrderCreated(ctx, order)
	})
}

// OrderCreatedEvent is emitted to the message bus when an order commits.
type OrderCreatedEvent struct {
	Type       string             `json:"type"`
	ID         int64              `json:"id"`
	Number     string             `json:"number"`
	Channel    entity.Channel     `json:"channel"`
	Status     entity.OrderStatus `json:"status"`
	TotalCents int64              `json:"total_cents"`
	Items      int                `json:"items"`
	CreatedAt  time.Time          `json:"created_at"`
}

// EventOrderCreated tags analytics events for new orders.
const EventOrderCreated = "order.created"

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) error {
	if !s.messagingEnabled || s.publisher == nil {
		return nil
	}
	event := OrderCreatedEvent{
		Type:       EventOrderCreated,
		ID:         order.ID,
		Number:     order.Number,
		Channel:    order.Channel,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      len(order.Items),
		CreatedAt:  order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload)
}
