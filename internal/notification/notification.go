package notification

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// Mailer renders and delivers transactional order emails. Every method takes
// a fully hydrated order (header + items + customer contact); delivery is a
// collaborator concern, so implementations stay thin.
type Mailer interface {
	// SendNewOrderEmail notifies staff about a freshly placed order.
	SendNewOrderEmail(ctx context.Context, order *entity.Order) error
	// SendReceiptEmail sends the customer their order receipt.
	SendReceiptEmail(ctx context.Context, order *entity.Order) error
	// SendOrderConfirmationEmail tells the customer the order is in progress.
	SendOrderConfirmationEmail(ctx context.Context, order *entity.Order) error
	// SendOrderReadyEmail tells the customer the order awaits pickup.
	SendOrderReadyEmail(ctx context.Context, order *entity.Order) error
	// SendThankYouEmail closes the loop after pickup.
	SendThankYouEmail(ctx context.Context, order *entity.Order) error
}

// Module provides the configured mailer to the Fx graph.
var Module = fx.Provide(NewMailer)

// NewMailer selects the mail backend from configuration (log or noop).
func NewMailer(cfg config.Config, logger *zap.Logger) (Mailer, error) {
	switch cfg.Notification.Driver {
	case "noop":
		return noopMailer{}, nil
	case "log":
		return &logMailer{
			logger:     logger,
			from:       cfg.Notification.FromEmail,
			staffEmail: cfg.Notification.StaffEmail,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported notification driver: %s", cfg.Notification.Driver)
	}
}

type noopMailer struct{}

func (noopMailer) SendNewOrderEmail(context.Context, *entity.Order) error          { return nil }
func (noopMailer) SendReceiptEmail(context.Context, *entity.Order) error           { return nil }
func (noopMailer) SendOrderConfirmationEmail(context.Context, *entity.Order) error { return nil }
func (noopMailer) SendOrderReadyEmail(context.Context, *entity.Order) error        { return nil }
func (noopMailer) SendThankYouEmail(context.Context, *entity.Order) error          { return nil }

// logMailer records deliveries in the structured log. Used in development
// and as the default until a real provider is wired behind the interface.
type logMailer struct {
	logger     *zap.Logger
	from       string
	staffEmail string
}

func (m *logMailer) send(kind, recipient string, order *entity.Order) error {
	m.logger.Info("transactional email dispatched",
		zap.String("kind", kind),
		zap.String("from", m.from),
		zap.String("to", recipient),
		zap.String("order_number", order.Number),
		zap.Int("items", len(order.Items)),
		zap.Int64("total_cents", order.TotalCents),
	)
	return nil
}

func (m *logMailer) SendNewOrderEmail(_ context.Context, order *entity.Order) error {
	return m.send("staff_new_order", m.staffEmail, order)
}

func (m *logMailer) SendReceiptEmail(_ context.Context, order *entity.Order) error {
	return m.send("customer_receipt", order.CustomerEmail, order)
}

func (m *logMailer) SendOrderConfirmationEmail(_ context.Context, order *entity.Order) error {
	return m.send("order_confirmed", order.CustomerEmail, order)
}

func (m *logMailer) SendOrderReadyEmail(_ context.Context, order *entity.Order) error {
	return m.send("order_ready", order.CustomerEmail, order)
}

func (m *logMailer) SendThankYouEmail(_ context.Context, order *entity.Order) error {
	return m.send("thank_you", order.CustomerEmail, order)
}
