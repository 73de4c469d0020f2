package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cache"
	"github.com/RomanDenysov/kromka-sub000/internal/config"
)

// Entry is a single cart line, keyed by product.
type Entry struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ErrInvalidQuantity is returned for zero or negative quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Store keeps per-session carts in the shared cache backend. The cart is
// ephemeral state owned by the session; every write replaces the whole list.
type Store struct {
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// Module provides the cart store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore builds a cart store on top of the configured cache backend.
func NewStore(cacheStore cache.Store, cfg config.Config, logger *zap.Logger) *Store {
	return &Store{
		cache:  cacheStore,
		ttl:    cfg.Orders.CartTTL,
		logger: logger,
	}
}

// Get returns the cart for a session. A missing cart is an empty cart.
func (s *Store) Get(ctx context.Context, sessionID string) ([]Entry, error) {
	raw, err := s.cache.Get(ctx, s.key(sessionID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt cart is unrecoverable; treat it as empty.
		s.logger.Warn("discarding corrupt cart", zap.String("session", sessionID), zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

// Add inserts a product or increments its quantity when already present.
func (s *Store) Add(ctx context.Context, sessionID string, productID int64, quantity int) ([]Entry, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	entries, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range entries {
		if entries[i].ProductID == productID {
			entries[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, Entry{ProductID: productID, Quantity: quantity})
	}
	if err := s.save(ctx, sessionID, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetQuantity overwrites a line's quantity, removing the line at zero.
func (s *Store) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) ([]Entry, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	entries, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next := entries[:0]
	for _, e := range entries {
		if e.ProductID == productID {
			if quantity > 0 {
				next = append(next, Entry{ProductID: productID, Quantity: quantity})
			}
			continue
		}
		next = append(next, e)
	}
	if err := s.save(ctx, sessionID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clear removes the session's cart entirely.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// RememberLastOrder stores the session's most recent order id so a returning
// guest can repeat it.
func (s *Store) RememberLastOrder(ctx context.Context, sessionID string, orderID int64) error {
	return s.cache.Set(ctx, s.lastOrderKey(sessionID), []byte(strconv.FormatInt(orderID, 10)), s.ttl)
}

// LastOrder returns the session's remembered order id, if any.
func (s *Store) LastOrder(ctx context.Context, sessionID string) (int64, bool, error) {
	raw, err := s.cache.Get(ctx, s.lastOrderKey(sessionID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *Store) lastOrderKey(sessionID string) string {
	return fmt.Sprintf("lastorder:%s", sessionID)
}

func (s *Store) save(ctx context.Context, sessionID string, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, s.key(sessionID), raw, s.ttl); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
