package user

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

var repoTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/repository/user")

// Module provides the user repository to Fx.
var Module = fx.Provide(NewRepository)

// Repository handles the user-profile writes triggered by checkout.
type Repository struct {
	writer *bun.DB
}

// NewRepository builds the repository on the write connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer}
}

// SyncContactInfo copies the contact details submitted with an order back
// onto the user profile and records the order as the user's latest.
func (r *Repository) SyncContactInfo(ctx context.Context, userID int64, name, email, phone string, lastOrderID int64) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.SyncContactInfo",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.User)(nil)).
		Set("name = ?", name).
		Set("email = ?", email).
		Set("phone = ?", phone).
		Set("last_order_id = ?", lastOrderID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
