package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// ProductStatus marks catalog availability beyond the active flag.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductArchived ProductStatus = "archived"
	ProductDraft    ProductStatus = "draft"
)

// Product is a catalog item. PriceCents is the base retail price; wholesale
// pricing is layered on top via price rules.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID         int64         `bun:",pk,autoincrement" json:"id"`
	Name       string        `bun:"name" json:"name"`
	Slug       string        `bun:"slug" json:"slug"`
	PriceCents int64         `bun:"price_cents" json:"price_cents"`
	IsActive   bool          `bun:"is_active" json:"is_active"`
	Status     ProductStatus `bun:"status" json:"status"`
	CreatedAt  time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `bun:"updated_at,nullzero" json:"updated_at"`
}

// Store is a physical pickup location for retail orders.
type Store struct {
	bun.BaseModel `bun:"table:stores"`

	ID       int64  `bun:",pk,autoincrement" json:"id"`
	Name     string `bun:"name" json:"name"`
	Address  string `bun:"address" json:"address"`
	IsActive bool   `bun:"is_active" json:"is_active"`
}

// Organization is a wholesale customer. Its price tier selects which price
// rules apply to its orders.
type Organization struct {
	bun.BaseModel `bun:"table:organizations"`

	ID          int64  `bun:",pk,autoincrement" json:"id"`
	Name        string `bun:"name" json:"name"`
	PriceTierID *int64 `bun:"price_tier_id" json:"price_tier_id,omitempty"`
	IsActive    bool   `bun:"is_active" json:"is_active"`
}
