package middleware

import (
	"crypto/subtle"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/RomanDenysov/kromka-sub000/internal/config"
	"github.com/RomanDenysov/kromka-sub000/internal/presentation/http/response"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

// Header names for the session/auth collaborator. Real authentication lives
// outside this service; these headers carry its results.
const (
	HeaderAdminToken = "X-Admin-Token"
	HeaderSessionID  = "X-Session-ID"
	HeaderUserID     = "X-User-ID"
)

// AdminGuard protects back-office routes with a static staff token.
type AdminGuard struct {
	token string
}

// NewAdminGuard builds the guard from configuration.
func NewAdminGuard(cfg config.Config) *AdminGuard {
	return &AdminGuard{token: cfg.Admin.APIToken}
}

// Require rejects requests without a matching admin token. An empty
// configured token locks the admin surface entirely.
func (g *AdminGuard) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		supplied := c.Request().Header.Get(HeaderAdminToken)
		if g.token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(g.token)) != 1 {
			return response.New(c).
				WithError(errorbank.Unauthorized("admin token required")).
				Build()
		}
		return next(c)
	}
}

// SessionID extracts the session key the cart is stored under.
func SessionID(c echo.Context) string {
	return c.Request().Header.Get(HeaderSessionID)
}

// ActorID returns the acting user's id when the session collaborator
// supplied one.
func ActorID(c echo.Context) *int64 {
	raw := c.Request().Header.Get(HeaderUserID)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
