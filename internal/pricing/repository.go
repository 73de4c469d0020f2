package pricing

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// Repository loads price rules from the relational store.
type Repository struct {
	reader *bun.DB
}

// Module wires the pricing repository and resolver.
var Module = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(func(repo *Repository) *Resolver {
		return NewResolver(repo)
	}),
)

// NewRepository builds a Repository on the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

var _ RuleSource = (*Repository)(nil)

// ActiveRules returns active rules for the tier and products, restricted to
// the organization's rules plus tier-wide wildcards. Window filtering is
// left to the resolver so that clock handling stays in one place.
func (r *Repository) ActiveRules(ctx context.Context, tierID int64, productIDs []int64, orgID *int64) ([]entity.PriceRule, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	q := r.reader.NewSelect().
		Model((*entity.PriceRule)(nil)).
		Where("price_tier_id = ?", tierID).
		Where("product_id IN (?)", bun.In(productIDs)).
		Where("is_active = TRUE")
	if orgID != nil {
		q = q.Where("(organization_id IS NULL OR organization_id = ?)", *orgID)
	} else {
		q = q.Where("organization_id IS NULL")
	}

	var rules []entity.PriceRule
	if err := q.Scan(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
