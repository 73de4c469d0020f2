package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

type ruleSourceMock struct {
	activeRules func(ctx context.Context, tierID int64, productIDs []int64, orgID *int64) ([]entity.PriceRule, error)
}

func (m *ruleSourceMock) ActiveRules(ctx context.Context, tierID int64, productIDs []int64, orgID *int64) ([]entity.PriceRule, error) {
	return m.activeRules(ctx, tierID, productIDs, orgID)
}

func ptr[T any](v T) *T { return &v }

func rule(id int64, mutate func(*entity.PriceRule)) entity.PriceRule {
	r := entity.PriceRule{
		ID:          id,
		ProductID:   1,
		PriceTierID: 10,
		AmountCents: 100 * id,
		IsActive:    true,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestBestRule(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rules    []entity.PriceRule
		quantity int
		orgID    *int64
		wantID   int64
		wantNone bool
	}{
		{
			name: "highest priority wins",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.Priority = 1 }),
				rule(2, func(r *entity.PriceRule) { r.Priority = 5 }),
				rule(3, func(r *entity.PriceRule) { r.Priority = 3 }),
			},
			quantity: 1,
			wantID:   2,
		},
		{
			name: "organization rule beats wildcard at equal priority",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.Priority = 2 }),
				rule(2, func(r *entity.PriceRule) {
					r.Priority = 2
					r.OrganizationID = ptr(int64(7))
				}),
			},
			quantity: 1,
			orgID:    ptr(int64(7)),
			wantID:   2,
		},
		{
			name: "foreign organization rule is skipped",
			rules: []entity.PriceRule{
				rule(1, nil),
				rule(2, func(r *entity.PriceRule) { r.OrganizationID = ptr(int64(99)) }),
			},
			quantity: 1,
			orgID:    ptr(int64(7)),
			wantID:   1,
		},
		{
			name: "later start wins among equals",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.StartsAt = ptr(asOf.AddDate(0, -2, 0)) }),
				rule(2, func(r *entity.PriceRule) { r.StartsAt = ptr(asOf.AddDate(0, -1, 0)) }),
			},
			quantity: 1,
			wantID:   2,
		},
		{
			name: "lower id breaks a full tie",
			rules: []entity.PriceRule{
				rule(4, nil),
				rule(2, nil),
				rule(9, nil),
			},
			quantity: 1,
			wantID:   2,
		},
		{
			name: "min quantity gates eligibility",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) {
					r.MinQty = 10
					r.Priority = 5
				}),
				rule(2, func(r *entity.PriceRule) { r.MinQty = 2 }),
			},
			quantity: 3,
			wantID:   2,
		},
		{
			name: "expired rule is skipped",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.EndsAt = ptr(asOf.AddDate(0, 0, -1)) }),
				rule(2, nil),
			},
			quantity: 1,
			wantID:   2,
		},
		{
			name: "future rule is skipped",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.StartsAt = ptr(asOf.AddDate(0, 0, 1)) }),
			},
			quantity: 1,
			wantNone: true,
		},
		{
			name: "inactive rule is skipped",
			rules: []entity.PriceRule{
				rule(1, func(r *entity.PriceRule) { r.IsActive = false }),
			},
			quantity: 1,
			wantNone: true,
		},
		{
			name:     "no rules",
			rules:    nil,
			quantity: 1,
			wantNone: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best, ok := BestRule(tc.rules, tc.quantity, tc.orgID, asOf)
			if tc.wantNone {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.wantID, best.ID)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil tier resolves nothing", func(t *testing.T) {
		r := NewResolver(&ruleSourceMock{
			activeRules: func(context.Context, int64, []int64, *int64) ([]entity.PriceRule, error) {
				t.Fatal("rule source must not be queried without a tier")
				return nil, nil
			},
		})

		prices, err := r.Resolve(context.Background(), Input{Quantities: map[int64]int{1: 2}})
		require.NoError(t, err)
		assert.Empty(t, prices)
	})

	t.Run("empty quantities resolve nothing", func(t *testing.T) {
		r := NewResolver(&ruleSourceMock{})

		prices, err := r.Resolve(context.Background(), Input{PriceTierID: ptr(int64(10))})
		require.NoError(t, err)
		assert.Empty(t, prices)
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		r := NewResolver(&ruleSourceMock{})

		_, err := r.Resolve(context.Background(), Input{
			PriceTierID: ptr(int64(10)),
			Quantities:  map[int64]int{1: 0},
		})
		assert.Error(t, err)
	})

	t.Run("products without rules are absent", func(t *testing.T) {
		r := NewResolver(&ruleSourceMock{
			activeRules: func(_ context.Context, tierID int64, productIDs []int64, _ *int64) ([]entity.PriceRule, error) {
				assert.Equal(t, int64(10), tierID)
				assert.Equal(t, []int64{1, 2}, productIDs)
				return []entity.PriceRule{
					rule(1, func(pr *entity.PriceRule) { pr.AmountCents = 450 }),
				}, nil
			},
		})

		prices, err := r.Resolve(context.Background(), Input{
			PriceTierID: ptr(int64(10)),
			Quantities:  map[int64]int{1: 2, 2: 1},
			AsOf:        asOf,
		})
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{1: 450}, prices)
	})

	t.Run("organization override wins per product", func(t *testing.T) {
		orgID := ptr(int64(7))
		r := NewResolver(&ruleSourceMock{
			activeRules: func(_ context.Context, _ int64, _ []int64, gotOrg *int64) ([]entity.PriceRule, error) {
				assert.Equal(t, orgID, gotOrg)
				return []entity.PriceRule{
					rule(1, func(pr *entity.PriceRule) { pr.AmountCents = 500 }),
					rule(2, func(pr *entity.PriceRule) {
						pr.AmountCents = 400
						pr.OrganizationID = orgID
					}),
				}, nil
			},
		})

		prices, err := r.Resolve(context.Background(), Input{
			PriceTierID:    ptr(int64(10)),
			OrganizationID: orgID,
			Quantities:     map[int64]int{1: 2},
			AsOf:           asOf,
		})
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{1: 400}, prices)
	})

	t.Run("rule source failure propagates", func(t *testing.T) {
		r := NewResolver(&ruleSourceMock{
			activeRules: func(context.Context, int64, []int64, *int64) ([]entity.PriceRule, error) {
				return nil, errors.New("db down")
			},
		})

		_, err := r.Resolve(context.Background(), Input{
			PriceTierID: ptr(int64(10)),
			Quantities:  map[int64]int{1: 1},
		})
		assert.Error(t, err)
	})
}
