package catalog

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

var repoTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/repository/catalog")

// Module provides the catalog repository to Fx.
var Module = fx.Provide(NewRepository)

// Repository is the read-only catalog surface used by the order pipeline.
type Repository struct {
	reader *bun.DB
}

// NewRepository builds the repository on the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// FindActiveProducts returns sellable products among the given ids. Ids that
// are unknown, inactive, or archived are simply absent from the result.
func (r *Repository) FindActiveProducts(ctx context.Context, ids []int64) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	ctx, span := repoTracer.Start(ctx, "CatalogRepository.FindActiveProducts",
		trace.WithAttributes(attribute.Int("products.requested", len(sorted))))
	defer span.End()

	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).
		Where("id IN (?)", bun.In(sorted)).
		Where("is_active = TRUE").
		Where("status = ?", entity.ProductActive).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return products, nil
}

// StoreExists reports whether an active pickup store with the id exists.
func (r *Repository) StoreExists(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.StoreExists")
	defer span.End()

	exists, err := r.reader.NewSelect().Model((*entity.Store)(nil)).
		Where("id = ?", id).
		Where("is_active = TRUE").
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return exists, nil
}

// GetOrganization loads an active organization, or ErrOrganizationNotFound.
func (r *Repository) GetOrganization(ctx context.Context, id int64) (*entity.Organization, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetOrganization")
	defer span.End()

	org := new(entity.Organization)
	err := r.reader.NewSelect().Model(org).
		Where("id = ?", id).
		Where("is_active = TRUE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return org, nil
}

// ErrOrganizationNotFound is returned for unknown or inactive organizations.
var ErrOrganizationNotFound = errors.New("organization not found")
