package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

var repoTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrNoItems guards against persisting an order without lines. Reaching this
// is a programming error in the pipeline, not a recoverable business case.
var ErrNoItems = errors.New("order must have at least one item")

// Repository encapsulates read/write access for orders, their items, and the
// status event log.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists the order header, all items, and the initial status event
// as one transaction. Nothing is visible on failure.
func (r *Repository) Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem) error {
	if order == nil {
		return errors.New("nil order")
	}
	if len(items) == 0 {
		return ErrNoItems
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.number", order.Number),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, item := range items {
			item.OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
		event := &entity.StatusEvent{
			OrderID:   order.ID,
			Status:    order.Status,
			CreatedBy: order.CreatedBy,
			CreatedAt: order.CreatedAt,
		}
		_, err := tx.NewInsert().Model(event).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create tx failed")
		return err
	}
	order.Items = items
	return nil
}

// GetByID fetches a fully hydrated order (items and event log included).
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Relation("Events").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// GetByIDs loads hydrated orders for a set of ids; unknown ids are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByIDs", trace.WithAttributes(attribute.Int("order.count", len(ids))))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Where("o.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return orders, nil
}

// List returns recent orders for the back office, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		OrderExpr("o.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return orders, nil
}

// StatusUpdate describes one transition applied to an order header.
type StatusUpdate struct {
	Status        entity.OrderStatus
	PaymentStatus *entity.PaymentStatus
	Note          string
	ActorID       *int64
}

// UpdateStatus transitions an order's status, optionally deriving payment
// status via derive, and appends the matching status event. The header write
// and the event append are one transaction; the row is locked while in
// flight so concurrent transitions serialize instead of losing updates.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, upd StatusUpdate, derive func(*entity.Order) *entity.PaymentStatus) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(upd.Status)),
	))
	defer span.End()

	order := new(entity.Order)
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(order).Where("o.id = ?", orderID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		order.Status = upd.Status
		order.UpdatedAt = now
		if upd.PaymentStatus != nil {
			order.PaymentStatus = *upd.PaymentStatus
		} else if derive != nil {
			if derived := derive(order); derived != nil {
				order.PaymentStatus = *derived
			}
		}

		if _, err := tx.NewUpdate().Model(order).
			Column("status", "payment_status", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		event := &entity.StatusEvent{
			OrderID:   order.ID,
			Status:    upd.Status,
			Note:      upd.Note,
			CreatedBy: upd.ActorID,
			CreatedAt: now,
		}
		_, err = tx.NewInsert().Model(event).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status tx failed")
		return nil, err
	}
	return order, nil
}

// BulkUpdate applies the same header change to many orders in one pass and
// appends one status event per affected order. Returns the affected ids.
func (r *Repository) BulkUpdate(ctx context.Context, orderIDs []int64, status *entity.OrderStatus, payment *entity.PaymentStatus, actorID *int64) ([]int64, error) {
	if len(orderIDs) == 0 || (status == nil && payment == nil) {
		return nil, nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.BulkUpdate", trace.WithAttributes(attribute.Int("order.count", len(orderIDs))))
	defer span.End()

	var affected []int64
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		if err := tx.NewSelect().Model((*entity.Order)(nil)).
			Column("o.id").
			Where("o.id IN (?)", bun.In(orderIDs)).
			For("UPDATE").
			Scan(ctx, &affected); err != nil {
			return err
		}
		if len(affected) == 0 {
			return nil
		}

		q := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("updated_at = ?", now).
			Where("id IN (?)", bun.In(affected))
		if status != nil {
			q = q.Set("status = ?", *status)
		}
		if payment != nil {
			q = q.Set("payment_status = ?", *payment)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}

		if status != nil {
			events := make([]*entity.StatusEvent, 0, len(affected))
			for _, id := range affected {
				events = append(events, &entity.StatusEvent{
					OrderID:   id,
					Status:    *status,
					CreatedBy: actorID,
					CreatedAt: now,
				})
			}
			if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk tx failed")
		return nil, err
	}
	return affected, nil
}
