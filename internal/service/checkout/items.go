package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cart"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/pricing"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

// buildOrderItems joins cart entries with live catalog data and resolved
// prices into immutable order lines. Cart entries pointing at products that
// are gone or no longer sellable are dropped silently; an empty result after
// dropping is an INVALID_PRODUCTS failure. The second return value is the
// business failure, the third an infrastructure error.
func (s *Service) buildOrderItems(ctx context.Context, entries []cart.Entry, priceTierID, organizationID *int64) ([]*entity.OrderItem, *errorbank.AppError, error) {
	// Duplicate lines for the same product are merged so quantity-gated
	// price rules see the combined quantity.
	productIDs := make([]int64, 0, len(entries))
	quantities := make(map[int64]int, len(entries))
	for _, entry := range entries {
		if entry.Quantity <= 0 {
			continue
		}
		if _, seen := quantities[entry.ProductID]; !seen {
			productIDs = append(productIDs, entry.ProductID)
		}
		quantities[entry.ProductID] += entry.Quantity
	}

	products, err := s.catalog.FindActiveProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]*entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved, err := s.prices.Resolve(ctx, pricing.Input{
		PriceTierID:    priceTierID,
		OrganizationID: organizationID,
		Quantities:     quantities,
		AsOf:           s.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	items := make([]*entity.OrderItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, ok := byID[productID]
		if !ok {
			s.logger.Info("dropping unavailable cart product",
				zap.Int64("product_id", productID))
			continue
		}
		quantity := quantities[productID]
		unitPrice := product.PriceCents
		if override, ok := resolved[product.ID]; ok {
			unitPrice = override
		}
		items = append(items, &entity.OrderItem{
			ProductID:         product.ID,
			ProductName:       product.Name,
			ProductPriceCents: unitPrice,
			Quantity:          quantity,
			UnitPriceCents:    unitPrice,
			TotalCents:        unitPrice * int64(quantity),
		})
	}

	if len(items) == 0 {
		return nil, errorbank.Unprocessable("no orderable products in cart",
			errorbank.WithCode(CodeInvalidProducts)), nil
	}
	return items, nil, nil
}
