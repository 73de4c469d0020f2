package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// PriceRule overrides a product's base price for a price tier. A rule with a
// nil OrganizationID is a tier-wide wildcard; a non-nil one applies to that
// organization only and outranks the wildcard at equal priority.
type PriceRule struct {
	bun.BaseModel `bun:"table:price_rules"`

	ID             int64      `bun:",pk,autoincrement" json:"id"`
	ProductID      int64      `bun:"product_id" json:"product_id"`
	PriceTierID    int64      `bun:"price_tier_id" json:"price_tier_id"`
	Channel        Channel    `bun:"channel" json:"channel"`
	OrganizationID *int64     `bun:"organization_id" json:"organization_id,omitempty"`
	MinQty         int        `bun:"min_qty" json:"min_qty"`
	Priority       int        `bun:"priority" json:"priority"`
	AmountCents    int64      `bun:"amount_cents" json:"amount_cents"`
	StartsAt       *time.Time `bun:"starts_at" json:"starts_at,omitempty"`
	EndsAt         *time.Time `bun:"ends_at" json:"ends_at,omitempty"`
	IsActive       bool       `bun:"is_active" json:"is_active"`
}

// MatchesOrganization reports whether the rule applies to the given
// organization, treating a nil rule organization as a wildcard.
func (r *PriceRule) MatchesOrganization(orgID *int64) bool {
	if r.OrganizationID == nil {
		return true
	}
	return orgID != nil && *r.OrganizationID == *orgID
}

// InWindow reports whether t falls inside the rule's active window. Open
// bounds are unbounded.
func (r *PriceRule) InWindow(t time.Time) bool {
	if r.StartsAt != nil && t.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && t.After(*r.EndsAt) {
		return false
	}
	return true
}
