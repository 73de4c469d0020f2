package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// All seeds the full development dataset.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Settings(ctx); err != nil {
		return err
	}
	if err := s.Catalog(ctx); err != nil {
		return err
	}
	return s.PriceRules(ctx)
}

// Settings seeds the site configuration flags.
func (s *Seeder) Settings(ctx context.Context) error {
	settings := []entity.SiteSetting{
		{Key: "orders_enabled", Value: "true", UpdatedAt: time.Now().UTC()},
	}
	for _, sample := range settings {
		setting := sample
		_, err := s.db.NewInsert().Model(&setting).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// Catalog seeds stores, organizations, and example bakery products.
func (s *Seeder) Catalog(ctx context.Context) error {
	now := time.Now().UTC()

	stores := []entity.Store{
		{Name: "Kromka Obchodna", Address: "Obchodna 44, Bratislava", IsActive: true},
		{Name: "Kromka Ruzinov", Address: "Tomasikova 10, Bratislava", IsActive: true},
	}
	for _, sample := range stores {
		store := sample
		if _, err := s.db.NewInsert().Model(&store).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	tierID := int64(1)
	orgs := []entity.Organization{
		{Name: "Cafe Dobre Rano", PriceTierID: &tierID, IsActive: true},
	}
	for _, sample := range orgs {
		org := sample
		if _, err := s.db.NewInsert().Model(&org).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	products := []entity.Product{
		{Name: "Sourdough Loaf", Slug: "sourdough-loaf", PriceCents: 420, IsActive: true, Status: entity.ProductActive, CreatedAt: now, UpdatedAt: now},
		{Name: "Rye Bread", Slug: "rye-bread", PriceCents: 380, IsActive: true, Status: entity.ProductActive, CreatedAt: now, UpdatedAt: now},
		{Name: "Butter Croissant", Slug: "butter-croissant", PriceCents: 250, IsActive: true, Status: entity.ProductActive, CreatedAt: now, UpdatedAt: now},
		{Name: "Cinnamon Roll", Slug: "cinnamon-roll", PriceCents: 290, IsActive: true, Status: entity.ProductActive, CreatedAt: now, UpdatedAt: now},
	}
	for _, sample := range products {
		product := sample
		if _, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (slug) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded catalog",
		zap.Int("stores", len(stores)),
		zap.Int("organizations", len(orgs)),
		zap.Int("products", len(products)),
	)
	return nil
}

// PriceRules seeds a wholesale tier for the example organization.
func (s *Seeder) PriceRules(ctx context.Context) error {
	orgID := int64(1)
	rules := []entity.PriceRule{
		{ProductID: 1, PriceTierID: 1, Channel: entity.ChannelB2B, MinQty: 1, Priority: 10, AmountCents: 360, IsActive: true},
		{ProductID: 1, PriceTierID: 1, Channel: entity.ChannelB2B, OrganizationID: &orgID, MinQty: 20, Priority: 20, AmountCents: 330, IsActive: true},
		{ProductID: 3, PriceTierID: 1, Channel: entity.ChannelB2B, MinQty: 10, Priority: 10, AmountCents: 210, IsActive: true},
	}
	for _, sample := range rules {
		rule := sample
		if _, err := s.db.NewInsert().Model(&rule).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded price rules", zap.Int("count", len(rules)))
	return nil
}
