package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account holder. LastOrderID backs "repeat my last order".
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	Email       string    `bun:"email" json:"email"`
	Name        string    `bun:"name" json:"name"`
	Phone       string    `bun:"phone" json:"phone"`
	Role        string    `bun:"role" json:"role"`
	LastOrderID *int64    `bun:"last_order_id" json:"last_order_id,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// SiteSetting is a single key/value configuration row, e.g. the
// orders_enabled kill switch.
type SiteSetting struct {
	bun.BaseModel `bun:"table:site_settings"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}
