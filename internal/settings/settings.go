package settings

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cache"
	"github.com/RomanDenysov/kromka-sub000/internal/database"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// KeyOrdersEnabled is the global checkout kill switch.
const KeyOrdersEnabled = "orders_enabled"

const cacheTTL = 30 * time.Second

// Reader exposes read access to site settings.
type Reader interface {
	Bool(ctx context.Context, key string, fallback bool) (bool, error)
}

// Service is a read-through site-settings lookup backed by the settings
// table with a short-lived cache in front.
type Service struct {
	db     *bun.DB
	cache  cache.Store
	logger *zap.Logger
}

// Module provides the settings service to the Fx graph.
var Module = fx.Provide(New)

// New builds the settings service on the read connection.
func New(conns *database.Connections, cacheStore cache.Store, logger *zap.Logger) *Service {
	return &Service{db: conns.Reader, cache: cacheStore, logger: logger}
}

var _ Reader = (*Service)(nil)

// Bool resolves a boolean setting, returning fallback when the key is
// absent. Storage errors are returned so callers can distinguish "disabled"
// from "unknown".
func (s *Service) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	value, ok, err := s.lookup(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("malformed boolean setting", zap.String("key", key), zap.String("value", value))
		return fallback, nil
	}
	return parsed, nil
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool, error) {
	cacheKey := "settings:" + key
	if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
		return string(raw), true, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
	}

	setting := new(entity.SiteSetting)
	err := s.db.NewSelect().Model(setting).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if err := s.cache.Set(ctx, cacheKey, []byte(setting.Value), cacheTTL); err != nil {
		s.logger.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
	}
	return setting.Value, true, nil
}
