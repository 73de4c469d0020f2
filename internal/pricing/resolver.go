package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

var resolverTracer = otel.Tracer("github.com/RomanDenysov/kromka-sub000/pricing")

// RuleSource loads candidate price rules for a tier.
type RuleSource interface {
	ActiveRules(ctx context.Context, tierID int64, productIDs []int64, orgID *int64) ([]entity.PriceRule, error)
}

// Input carries everything price resolution depends on.
type Input struct {
	PriceTierID    *int64
	OrganizationID *int64
	Quantities     map[int64]int
	AsOf           time.Time
}

// Resolver computes effective unit prices from tiered price rules. Products
// without a matching rule are absent from the result; callers fall back to
// the base price, never to zero.
type Resolver struct {
	rules RuleSource
}

// NewResolver builds a Resolver over the given rule source.
func NewResolver(rules RuleSource) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the effective unit price per product id. A nil tier or an
// empty quantity set resolves to an empty map.
func (r *Resolver) Resolve(ctx context.Context, in Input) (map[int64]int64, error) {
	if in.PriceTierID == nil || len(in.Quantities) == 0 {
		return map[int64]int64{}, nil
	}
	for id, qty := range in.Quantities {
		if qty <= 0 {
			return nil, fmt.Errorf("non-positive quantity %d for product %d", qty, id)
		}
	}

	productIDs := make([]int64, 0, len(in.Quantities))
	for id := range in.Quantities {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	ctx, span := resolverTracer.Start(ctx, "Pricing.Resolve", trace.WithAttributes(
		attribute.Int64("price_tier.id", *in.PriceTierID),
		attribute.Int("products", len(productIDs)),
	))
	defer span.End()

	rules, err := r.rules.ActiveRules(ctx, *in.PriceTierID, productIDs, in.OrganizationID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load price rules: %w", err)
	}

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	byProduct := make(map[int64][]entity.PriceRule)
	for _, rule := range rules {
		byProduct[rule.ProductID] = append(byProduct[rule.ProductID], rule)
	}

	resolved := make(map[int64]int64, len(byProduct))
	for productID, candidates := range byProduct {
		if best, ok := BestRule(candidates, in.Quantities[productID], in.OrganizationID, asOf); ok {
			resolved[productID] = best.AmountCents
		}
	}
	return resolved, nil
}

// BestRule picks the winning rule for one product: highest priority among
// active, in-window, quantity-eligible, organization-matching rules. Ties go
// to the organization-specific rule over the wildcard, then to the rule with
// the later start, then to the lower rule id.
func BestRule(rules []entity.PriceRule, quantity int, orgID *int64, asOf time.Time) (entity.PriceRule, bool) {
	var best entity.PriceRule
	found := false
	for _, rule := range rules {
		if !rule.IsActive || rule.MinQty > quantity || !rule.InWindow(asOf) || !rule.MatchesOrganization(orgID) {
			continue
		}
		if !found || outranks(rule, best) {
			best = rule
			found = true
		}
	}
	return best, found
}

func outranks(a, b entity.PriceRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	aSpecific := a.OrganizationID != nil
	bSpecific := b.OrganizationID != nil
	if aSpecific != bSpecific {
		return aSpecific
	}
	aStart := startOf(a)
	bStart := startOf(b)
	if !aStart.Equal(bStart) {
		return aStart.After(bStart)
	}
	return a.ID < b.ID
}

func startOf(r entity.PriceRule) time.Time {
	if r.StartsAt == nil {
		return time.Time{}
	}
	return *r.StartsAt
}
